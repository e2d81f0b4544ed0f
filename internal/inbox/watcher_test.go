package inbox

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeEvent пишет файл события в директорию входящих.
func writeEvent(t *testing.T, dir, name string, evt Event) string {
	t.Helper()

	data, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("os.WriteFile() error = %v", err)
	}
	return path
}

// recvEvent ждёт событие из канала с таймаутом.
func recvEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()

	select {
	case evt := <-events:
		return evt
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestWatcher_ExistingFiles(t *testing.T) {
	dir := t.TempDir()

	// Файл лежит в директории до старта watcher'а
	writeEvent(t, dir, "old.json", Event{
		URL:      "https://cdn/grid.png",
		Filename: "grid.png",
		Content:  "x - Image #1",
	})

	w, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := w.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	evt := recvEvent(t, events)
	if evt.URL != "https://cdn/grid.png" {
		t.Errorf("URL = %q, want grid url", evt.URL)
	}
	if evt.ResolveKind() != KindThumbnail {
		t.Errorf("kind = %q, want thumbnail", evt.ResolveKind())
	}
}

func TestWatcher_NewFile(t *testing.T) {
	dir := t.TempDir()

	w, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()
	w.SetDebounceTime(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := w.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	path := writeEvent(t, dir, "new.json", Event{
		Kind:     KindUpscaled,
		URL:      "https://cdn/up.png",
		Filename: "up.png",
	})

	evt := recvEvent(t, events)
	if evt.ResolveKind() != KindUpscaled {
		t.Errorf("kind = %q, want upscaled", evt.ResolveKind())
	}

	// Обработанный файл удаляется
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("event file should be removed after consumption")
	}
}

func TestWatcher_SkipsInvalid(t *testing.T) {
	dir := t.TempDir()

	w, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()
	w.SetDebounceTime(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := w.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	// Нечитаемый JSON, затем валидное событие
	badPath := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(badPath, []byte("{broken"), 0644); err != nil {
		t.Fatalf("os.WriteFile() error = %v", err)
	}
	writeEvent(t, dir, "good.json", Event{
		Kind:     KindThumbnail,
		URL:      "https://cdn/ok.png",
		Filename: "ok.png",
	})

	evt := recvEvent(t, events)
	if evt.URL != "https://cdn/ok.png" {
		t.Errorf("URL = %q, want good event", evt.URL)
	}

	// Нечитаемый файл тоже удалён, чтобы не зациклиться
	if _, err := os.Stat(badPath); !os.IsNotExist(err) {
		t.Error("broken event file should be removed")
	}
}

func TestWatcher_StartupBacklog(t *testing.T) {
	dir := t.TempDir()

	// Бэклог больше буфера канала: файлы накопились за время простоя
	const backlog = 20
	for i := 0; i < backlog; i++ {
		writeEvent(t, dir, fmt.Sprintf("old-%02d.json", i), Event{
			Kind:     KindThumbnail,
			URL:      fmt.Sprintf("https://cdn/grid-%d.png", i),
			Filename: fmt.Sprintf("grid-%d.png", i),
		})
	}

	w, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Watch не должен блокироваться на отправке бэклога в канал:
	// потребитель появляется только после возврата из Watch
	type watchResult struct {
		events <-chan Event
		err    error
	}
	started := make(chan watchResult, 1)
	go func() {
		events, err := w.Watch(ctx)
		started <- watchResult{events, err}
	}()

	var res watchResult
	select {
	case res = <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("Watch() did not return with a backlog of pre-existing event files")
	}
	if res.err != nil {
		t.Fatalf("Watch() error = %v", res.err)
	}

	seen := make(map[string]bool)
	for i := 0; i < backlog; i++ {
		evt := recvEvent(t, res.events)
		seen[evt.URL] = true
	}
	if len(seen) != backlog {
		t.Errorf("received %d distinct events, want %d", len(seen), backlog)
	}
}

func TestWatcher_ConsumeUnblocksOnCancel(t *testing.T) {
	dir := t.TempDir()
	path := writeEvent(t, dir, "evt.json", Event{
		Kind:     KindUpscaled,
		URL:      "https://cdn/up.png",
		Filename: "up.png",
	})

	w, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Канал без читателя: отправка должна прерваться отменой контекста
	events := make(chan Event)

	done := make(chan struct{})
	go func() {
		w.consume(ctx, path, events)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consume() blocked on a full channel after cancellation")
	}

	// Файл всё равно считается обработанным и удаляется
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("event file should be removed after consumption")
	}
}

func TestWatcher_IgnoresNonJSON(t *testing.T) {
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("hi"), 0644); err != nil {
		t.Fatalf("os.WriteFile() error = %v", err)
	}

	w, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := w.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	select {
	case evt := <-events:
		t.Errorf("unexpected event %+v for non-json file", evt)
	case <-time.After(100 * time.Millisecond):
	}
}
