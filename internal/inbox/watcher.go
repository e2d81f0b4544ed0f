// Package inbox принимает события доставки изображений от внешнего транспорта.
package inbox

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher следит за директорией входящих и отправляет события в канал.
type Watcher struct {
	// dir - директория входящих событий.
	dir string

	// watcher - fsnotify watcher.
	watcher *fsnotify.Watcher

	// debounceTime - время ожидания перед чтением файла.
	// Нужно, чтобы транспорт успел дописать файл целиком.
	debounceTime time.Duration

	// pending - файлы, ожидающие чтения (для debounce).
	pending map[string]time.Time
	mu      sync.Mutex

	// logger - логгер.
	logger *log.Logger
}

// New создаёт новый Watcher.
func New(dir string, logger *log.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("не удалось создать watcher: %w", err)
	}

	return &Watcher{
		dir:          dir,
		watcher:      w,
		debounceTime: 500 * time.Millisecond,
		pending:      make(map[string]time.Time),
		logger:       logger,
	}, nil
}

// SetDebounceTime устанавливает время debounce.
func (w *Watcher) SetDebounceTime(d time.Duration) {
	w.debounceTime = d
}

// Watch запускает слежение и возвращает канал событий доставки.
// Уже лежащие в директории файлы событий обрабатываются при старте.
func (w *Watcher) Watch(ctx context.Context) (<-chan Event, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию входящих: %w", err)
	}

	if err := w.watcher.Add(w.dir); err != nil {
		return nil, fmt.Errorf("не удалось добавить %s в watcher: %w", w.dir, err)
	}

	events := make(chan Event, 16)

	// Файлы, оставшиеся с прошлого запуска. Список собирается до старта,
	// но читается уже в фоне: потребитель канала появляется только после
	// возврата из Watch, и накопившийся бэклог не должен блокировать старт.
	backlog, err := w.scanExisting()
	if err != nil {
		return nil, err
	}

	go func() {
		for _, path := range backlog {
			w.consume(ctx, path, events)
		}
	}()
	go w.processEvents(ctx, events)
	go w.processPending(ctx, events)

	return events, nil
}

// Close останавливает слежение.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// scanExisting возвращает файлы событий, уже лежащие в директории.
func (w *Watcher) scanExisting() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать директорию входящих: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !isEventFile(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(w.dir, e.Name()))
	}
	return paths, nil
}

// processEvents обрабатывает события fsnotify.
func (w *Watcher) processEvents(ctx context.Context, events chan<- Event) {
	for {
		select {
		case <-ctx.Done():
			return

		case evt, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isEventFile(filepath.Base(evt.Name)) {
				continue
			}
			if evt.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}

			// Откладываем чтение: файл может быть записан не полностью.
			w.mu.Lock()
			w.pending[evt.Name] = time.Now()
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Printf("[INBOX] ошибка watcher: %v", err)
			}
		}
	}
}

// processPending читает отложенные файлы после истечения debounce.
func (w *Watcher) processPending(ctx context.Context, events chan<- Event) {
	ticker := time.NewTicker(w.debounceTime / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()

			w.mu.Lock()
			var ready []string
			for path, added := range w.pending {
				if now.Sub(added) >= w.debounceTime {
					ready = append(ready, path)
					delete(w.pending, path)
				}
			}
			w.mu.Unlock()

			for _, path := range ready {
				w.consume(ctx, path, events)
			}
		}
	}
}

// consume читает файл события, удаляет его и отправляет событие в канал.
// Нечитаемые файлы удаляются, чтобы не зациклиться на них.
// Отправка прерывается отменой контекста, иначе переполненный канал
// заблокировал бы goroutine навсегда.
func (w *Watcher) consume(ctx context.Context, path string, events chan<- Event) {
	evt, err := readEventFile(path)

	if rmErr := os.Remove(path); rmErr != nil && w.logger != nil {
		w.logger.Printf("[INBOX] не удалось удалить %s: %v", path, rmErr)
	}

	if err != nil {
		if w.logger != nil {
			w.logger.Printf("[INBOX] пропущен %s: %v", path, err)
		}
		return
	}

	select {
	case events <- *evt:
	case <-ctx.Done():
	}
}

// isEventFile проверяет, что имя файла похоже на файл события.
func isEventFile(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".json")
}
