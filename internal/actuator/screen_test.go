package actuator

import (
	"context"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"github.com/artemshloyda/wallgen/internal/templates"
)

// newTestScreen создаёт Screen с подменёнными точками ввода-вывода.
// Шаблон 10x10 кладётся в временную директорию.
func newTestScreen(t *testing.T) (*Screen, *screenLog) {
	t.Helper()

	dir := t.TempDir()
	tpl := imaging.New(10, 10, color.White)
	if err := imaging.Save(tpl, filepath.Join(dir, templates.MessageBox+".png")); err != nil {
		t.Fatalf("не удалось сохранить шаблон: %v", err)
	}

	rec := &screenLog{}

	s := &Screen{
		templates: &templates.Dir{Path: dir},
		scale:     1,
		capture:   func() image.Image { return imaging.New(100, 100, color.Black) },
		match: func(sub, src image.Image) (float64, image.Point) {
			rec.matches++
			return rec.score, rec.loc
		},
		click: func(x, y int) {
			rec.clicks = append(rec.clicks, image.Pt(x, y))
		},
		typeStr: func(text string) { rec.typed = append(rec.typed, text) },
		submit:  func() { rec.submits++ },
		sleep:   func(d time.Duration) {},
	}

	return s, rec
}

// screenLog записывает обращения фальшивого экрана.
type screenLog struct {
	score   float64
	loc     image.Point
	matches int
	clicks  []image.Point
	typed   []string
	submits int
}

func TestScreen_LocateAndActivate(t *testing.T) {
	s, rec := newTestScreen(t)
	rec.score = 0.95
	rec.loc = image.Pt(20, 40)

	target := Target{Template: templates.MessageBox, Clicks: 1}

	if err := s.LocateAndActivate(context.Background(), target); err != nil {
		t.Fatalf("LocateAndActivate() error = %v", err)
	}

	// Клик по центру найденной области: угол + половина шаблона
	if len(rec.clicks) != 1 {
		t.Fatalf("clicks = %d, want 1", len(rec.clicks))
	}
	if rec.clicks[0] != image.Pt(25, 45) {
		t.Errorf("click at %v, want (25, 45)", rec.clicks[0])
	}
}

func TestScreen_LocateAndActivateScale(t *testing.T) {
	s, rec := newTestScreen(t)
	s.scale = 2
	rec.score = 0.9
	rec.loc = image.Pt(20, 40)

	target := Target{Template: templates.MessageBox, Clicks: 1}

	if err := s.LocateAndActivate(context.Background(), target); err != nil {
		t.Fatalf("LocateAndActivate() error = %v", err)
	}

	// Координаты скриншота делятся на масштаб дисплея
	if rec.clicks[0] != image.Pt(12, 22) {
		t.Errorf("click at %v, want (12, 22)", rec.clicks[0])
	}
}

func TestScreen_LocateAndActivateMultiClick(t *testing.T) {
	s, rec := newTestScreen(t)
	rec.score = 0.9

	target := Target{Template: templates.MessageBox, Clicks: 2, ClickDelay: time.Millisecond}

	if err := s.LocateAndActivate(context.Background(), target); err != nil {
		t.Fatalf("LocateAndActivate() error = %v", err)
	}
	if len(rec.clicks) != 2 {
		t.Errorf("clicks = %d, want 2", len(rec.clicks))
	}
}

func TestScreen_LocateAndActivateNotFound(t *testing.T) {
	s, rec := newTestScreen(t)
	rec.score = 0.42

	target := Target{Template: templates.MessageBox, Clicks: 1, MaxRetries: 2}

	err := s.LocateAndActivate(context.Background(), target)
	if err == nil {
		t.Fatal("LocateAndActivate() below confidence should fail")
	}

	var detErr *DetectionError
	if !errors.As(err, &detErr) {
		t.Fatalf("error = %T, want *DetectionError", err)
	}

	// MaxRetries повторов = MaxRetries+1 попыток
	if detErr.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", detErr.Attempts)
	}
	if detErr.BestScore != 0.42 {
		t.Errorf("BestScore = %v, want 0.42", detErr.BestScore)
	}
	if len(rec.clicks) != 0 {
		t.Errorf("clicks = %d, want 0 on failure", len(rec.clicks))
	}
}

func TestScreen_LocateAndActivateCustomConfidence(t *testing.T) {
	s, rec := newTestScreen(t)
	rec.score = 0.6

	// 0.6 ниже порога по умолчанию, но выше явного порога 0.5
	target := Target{Template: templates.MessageBox, Clicks: 1, Confidence: 0.5}

	if err := s.LocateAndActivate(context.Background(), target); err != nil {
		t.Fatalf("LocateAndActivate() error = %v", err)
	}
	if len(rec.clicks) != 1 {
		t.Errorf("clicks = %d, want 1", len(rec.clicks))
	}
}

func TestScreen_LocateAndActivateMissingTemplate(t *testing.T) {
	s, _ := newTestScreen(t)

	target := Target{Template: "no_such_template", Clicks: 1}

	if err := s.LocateAndActivate(context.Background(), target); err == nil {
		t.Error("LocateAndActivate() with missing template file should fail")
	}
}

func TestScreen_TypeText(t *testing.T) {
	s, rec := newTestScreen(t)

	if err := s.TypeText(context.Background(), "/imagine"); err != nil {
		t.Fatalf("TypeText() error = %v", err)
	}

	if len(rec.typed) != 1 || rec.typed[0] != "/imagine" {
		t.Errorf("typed = %v, want [/imagine]", rec.typed)
	}
	if rec.submits != 1 {
		t.Errorf("submits = %d, want 1", rec.submits)
	}
}

func TestScreen_TypeTextCancelled(t *testing.T) {
	s, rec := newTestScreen(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.TypeText(ctx, "text"); err == nil {
		t.Error("TypeText() with cancelled context should fail")
	}
	if len(rec.typed) != 0 {
		t.Error("cancelled TypeText() should not type")
	}
}

func TestScreen_TypeTextCancelledBeforeSubmit(t *testing.T) {
	s, rec := newTestScreen(t)

	// Контекст отменяется во время паузы после печати
	ctx, cancel := context.WithCancel(context.Background())
	s.sleep = func(d time.Duration) { cancel() }

	if err := s.TypeText(ctx, "/imagine"); err == nil {
		t.Error("TypeText() cancelled mid-way should fail")
	}
	if len(rec.typed) != 1 {
		t.Errorf("typed = %v, want text typed before cancellation", rec.typed)
	}
	if rec.submits != 0 {
		t.Errorf("submits = %d, want 0 after cancellation", rec.submits)
	}
}
