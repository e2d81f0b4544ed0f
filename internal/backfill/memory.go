// Package backfill досоздаёт варианты разрешений для устаревших
// каталожных записей.
package backfill

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// MemoryLimiter ограничивает использование памяти при декодировании
// изображений.
type MemoryLimiter struct {
	// maxMemoryBytes - максимальное использование памяти в байтах.
	maxMemoryBytes uint64

	// mu защищает доступ к текущему использованию.
	mu sync.Mutex

	// currentUsage - текущее зарезервированное использование памяти.
	currentUsage uint64

	// enabled - включено ли ограничение.
	enabled bool
}

// NewMemoryLimiter создаёт новый MemoryLimiter.
// maxMemoryMB - ограничение в мегабайтах (0 = без ограничения).
func NewMemoryLimiter(maxMemoryMB int) *MemoryLimiter {
	if maxMemoryMB <= 0 {
		return &MemoryLimiter{enabled: false}
	}

	return &MemoryLimiter{
		maxMemoryBytes: uint64(maxMemoryMB) * 1024 * 1024,
		enabled:        true,
	}
}

// Acquire пытается зарезервировать память для обработки изображения.
// Блокирует выполнение, пока не будет достаточно памяти.
// Возвращает функцию для освобождения памяти.
func (ml *MemoryLimiter) Acquire(ctx context.Context, fileSize int64) (release func(), err error) {
	if !ml.enabled {
		return func() {}, nil
	}

	// Декодированное изображение занимает заметно больше файла
	// (примерно 4 байта на пиксель против сжатого JPEG).
	estimatedUsage := uint64(fileSize) * 3

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		ml.mu.Lock()
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)
		currentAlloc := memStats.Alloc

		if ml.currentUsage+estimatedUsage <= ml.maxMemoryBytes &&
			currentAlloc+estimatedUsage <= ml.maxMemoryBytes {
			ml.currentUsage += estimatedUsage
			ml.mu.Unlock()

			return func() {
				ml.mu.Lock()
				ml.currentUsage -= estimatedUsage
				ml.mu.Unlock()
			}, nil
		}
		ml.mu.Unlock()

		// Ждём и пробуем снова
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(100 * time.Millisecond):
			runtime.GC()
		}
	}
}

// IsEnabled возвращает true если ограничение включено.
func (ml *MemoryLimiter) IsEnabled() bool {
	return ml.enabled
}

// CurrentUsage возвращает текущее зарезервированное использование памяти.
func (ml *MemoryLimiter) CurrentUsage() uint64 {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	return ml.currentUsage
}
