// Package actuator реализует взаимодействие с внешним приложением
// через поиск шаблонов на экране и эмуляцию ввода.
package actuator

import (
	"context"
	"fmt"
	"image"
	"log"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-vgo/robotgo"
	"github.com/sethvargo/go-retry"
	"github.com/vcaesar/gcv"

	"github.com/artemshloyda/wallgen/internal/templates"
)

// Screen - реализация Actuator поверх реального экрана (robotgo + gcv).
type Screen struct {
	// templates - директория с шаблонами.
	templates *templates.Dir

	// scale - коэффициент координат дисплея. Некоторые backend'ы
	// (Retina) отдают координаты скриншота в 2x физических пикселях,
	// поэтому центр найденной области делится на scale перед кликом.
	scale float64

	// logger - логгер для диагностики поиска.
	logger *log.Logger

	// Точки подмены для тестов: захват экрана, сопоставление шаблона,
	// клик, печать и пауза.
	capture func() image.Image
	match   func(sub, src image.Image) (float64, image.Point)
	click   func(x, y int)
	typeStr func(text string)
	submit  func()
	sleep   func(d time.Duration)
}

// NewScreen создаёт экранный актуатор.
func NewScreen(dir *templates.Dir, logger *log.Logger) *Screen {
	return &Screen{
		templates: dir,
		scale:     displayScale(),
		logger:    logger,
		capture:   func() image.Image { return robotgo.CaptureImg() },
		match:     matchTemplate,
		click: func(x, y int) {
			robotgo.Move(x, y)
			robotgo.Click("left")
		},
		typeStr: func(text string) { robotgo.TypeStr(text) },
		submit:  func() { robotgo.KeyTap("enter") },
		sleep:   time.Sleep,
	}
}

// displayScale возвращает коэффициент координат текущего дисплея.
func displayScale() float64 {
	if f := robotgo.ScaleF(); f > 1 {
		return f
	}
	return 1
}

// matchTemplate ищет шаблон в снимке экрана и возвращает степень
// совпадения и верхний левый угол лучшей области.
func matchTemplate(sub, src image.Image) (float64, image.Point) {
	_, maxVal, _, maxLoc := gcv.FindImg(sub, src)
	return float64(maxVal), maxLoc
}

// LocateAndActivate ищет шаблон на экране и кликает по центру найденной
// области. Каждая неудачная попытка ждёт RetryDelay перед повтором;
// ошибка возвращается только после исчерпания всех попыток.
func (s *Screen) LocateAndActivate(ctx context.Context, t Target) error {
	tplPath := s.templates.Resolve(t.Template)
	tpl, err := imaging.Open(tplPath)
	if err != nil {
		return fmt.Errorf("не удалось открыть шаблон %s: %w", tplPath, err)
	}

	confidence := t.Confidence
	if confidence == 0 {
		confidence = DefaultConfidence
	}

	attempts := 0
	bestScore := 0.0

	// Константный backoff требует положительной паузы.
	delay := t.RetryDelay
	if delay <= 0 {
		delay = 10 * time.Millisecond
	}
	backoff := retry.WithMaxRetries(uint64(t.MaxRetries), retry.NewConstant(delay))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++

		snap := s.capture()
		if snap == nil {
			return retry.RetryableError(fmt.Errorf("не удалось снять скриншот"))
		}

		score, loc := s.match(tpl, snap)
		if score > bestScore {
			bestScore = score
		}

		if score < confidence {
			if s.logger != nil {
				s.logger.Printf("[UI] %s: попытка %d, совпадение %.2f < %.2f",
					t.Template, attempts, score, confidence)
			}
			return retry.RetryableError(fmt.Errorf("совпадение %.2f", score))
		}

		bounds := tpl.Bounds()
		cx := loc.X + bounds.Dx()/2
		cy := loc.Y + bounds.Dy()/2

		// Коррекция координат для дисплеев с масштабированием.
		x := int(float64(cx) / s.scale)
		y := int(float64(cy) / s.scale)

		for i := 0; i < t.Clicks; i++ {
			if i > 0 {
				s.sleep(t.ClickDelay)
			}
			s.click(x, y)
		}

		if s.logger != nil {
			s.logger.Printf("[UI] %s: найден (%.2f), клик в (%d, %d)", t.Template, score, x, y)
		}
		return nil
	})
	if err != nil {
		return &DetectionError{Template: t.Template, Attempts: attempts, BestScore: bestScore}
	}

	return nil
}

// TypeText печатает текст и отправляет его нажатием enter.
// Паузы дают внешнему приложению время обработать ввод; отмена
// контекста проверяется между шагами, чтобы не нажимать enter
// после остановки конвейера.
func (s *Screen) TypeText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.typeStr(text)
	s.sleep(time.Second)

	if err := ctx.Err(); err != nil {
		return err
	}

	s.submit()
	s.sleep(time.Second)
	return ctx.Err()
}
