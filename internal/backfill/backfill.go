// Package backfill досоздаёт варианты разрешений для устаревших
// каталожных записей: скачивает исходник, генерирует полный набор
// вариантов и обновляет imageList записи.
package backfill

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"

	"github.com/artemshloyda/wallgen/internal/catalog"
	"github.com/artemshloyda/wallgen/internal/deriv"
	"github.com/artemshloyda/wallgen/internal/progress"
)

// Stats содержит статистику обновления.
type Stats struct {
	// Processed - количество обновлённых записей.
	Processed int64

	// Skipped - количество записей, не требующих обновления.
	Skipped int64

	// Failed - количество записей с ошибками.
	Failed int64

	// Total - общее количество записей в каталоге.
	Total int64
}

// CatalogClient - сторона клиента каталога, нужная backfill.
type CatalogClient interface {
	List(ctx context.Context) ([]catalog.Item, error)
	PatchImageList(ctx context.Context, itemID string, refs []catalog.ImageRef) error
}

// Ingestor скачивает и нормализует изображения.
type Ingestor interface {
	Ingest(ctx context.Context, remoteRef string) (string, error)
}

// Generator создаёт и загружает варианты разрешений.
type Generator interface {
	GenerateAll(ctx context.Context, canonicalPath string) ([]deriv.Derivative, error)
}

// Runner выполняет обновление каталога пулом воркеров.
type Runner struct {
	catalog  CatalogClient
	ingestor Ingestor
	deriv    Generator
	logger   *log.Logger

	workers int
	limiter *MemoryLimiter
	bar     *progress.Bar

	stats Stats

	// apiErr - первая ошибка сервиса каталога. Дальнейшие запросы
	// после неё бессмысленны: обновление останавливается.
	apiErr  error
	apiOnce sync.Once
	cancel  context.CancelFunc
}

// New создаёт новый Runner.
func New(cat CatalogClient, ing Ingestor, gen Generator, workers, maxMemoryMB int, logger *log.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		catalog:  cat,
		ingestor: ing,
		deriv:    gen,
		logger:   logger,
		workers:  workers,
		limiter:  NewMemoryLimiter(maxMemoryMB),
	}
}

// SetProgressBar устанавливает прогресс-бар для отображения прогресса.
func (r *Runner) SetProgressBar(bar *progress.Bar) {
	r.bar = bar
}

// NeedsUpdate определяет, требует ли запись обновления: пустой
// imageList, устаревшая схема вариантов или отсутствие размытого
// варианта для превью.
func NeedsUpdate(item *catalog.Item) bool {
	if len(item.ImageList) == 0 {
		return true
	}

	// Старая схема хранила единственный вариант с типом "small".
	if item.ImageList[0].Type == "small" {
		return true
	}

	for _, ref := range item.ImageList {
		if ref.Type == "BL" {
			return false
		}
	}
	return true
}

// Run обходит каталог и обновляет все устаревшие записи.
// Первая ошибка сервиса каталога останавливает обновление.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.cancel = cancel

	items, err := r.catalog.List(ctx)
	if err != nil {
		return r.snapshot(), fmt.Errorf("не удалось получить список каталога: %w", err)
	}

	atomic.StoreInt64(&r.stats.Total, int64(len(items)))

	var stale []catalog.Item
	for _, item := range items {
		if NeedsUpdate(&item) {
			stale = append(stale, item)
		} else {
			atomic.AddInt64(&r.stats.Skipped, 1)
		}
	}

	if r.bar != nil {
		r.bar.SetTotal(int64(len(stale)))
	}

	if len(stale) == 0 {
		return r.snapshot(), nil
	}

	jobs := make(chan catalog.Item)

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.worker(ctx, jobs)
		}()
	}

	for _, item := range stale {
		select {
		case <-ctx.Done():
		case jobs <- item:
			continue
		}
		break
	}
	close(jobs)

	wg.Wait()

	return r.snapshot(), r.apiErr
}

// worker обрабатывает записи из канала.
func (r *Runner) worker(ctx context.Context, jobs <-chan catalog.Item) {
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-jobs:
			if !ok {
				return
			}
			r.processItem(ctx, item)
		}
	}
}

// processItem обновляет одну запись: скачивает исходник, генерирует
// варианты и записывает новый imageList.
func (r *Runner) processItem(ctx context.Context, item catalog.Item) {
	source := pickSource(&item)
	if source == "" {
		r.logError(item.ItemID, fmt.Errorf("нет исходного изображения"))
		r.markFailed()
		return
	}

	localPath, err := r.ingestor.Ingest(ctx, source)
	if err != nil {
		r.logError(item.ItemID, err)
		r.markFailed()
		return
	}
	defer os.Remove(localPath)

	if r.limiter.IsEnabled() {
		size := int64(0)
		if info, err := os.Stat(localPath); err == nil {
			size = info.Size()
		}

		release, err := r.limiter.Acquire(ctx, size)
		if err != nil {
			r.logError(item.ItemID, fmt.Errorf("ограничение памяти: %w", err))
			r.markFailed()
			return
		}
		defer release()
	}

	derivatives, err := r.deriv.GenerateAll(ctx, localPath)
	if err != nil || len(derivatives) == 0 {
		r.logError(item.ItemID, fmt.Errorf("варианты разрешений: %w", err))
		r.markFailed()
		return
	}

	refs := make([]catalog.ImageRef, 0, len(derivatives))
	for _, d := range derivatives {
		refs = append(refs, catalog.ImageRef{
			Type:       d.Type,
			Resolution: d.Resolution,
			Link:       d.URL,
			Blob:       d.Blob,
		})
	}

	if err := r.catalog.PatchImageList(ctx, item.ItemID, refs); err != nil {
		r.logError(item.ItemID, err)
		r.markFailed()

		// Отказ сервиса каталога останавливает весь проход.
		r.apiOnce.Do(func() {
			r.apiErr = fmt.Errorf("сервис каталога отказал на записи %s: %w", item.ItemID, err)
			r.cancel()
		})
		return
	}

	atomic.AddInt64(&r.stats.Processed, 1)
	if r.bar != nil {
		r.bar.Increment()
	}
	if r.logger != nil {
		r.logger.Printf("[BACKFILL] обновлена запись %s (%d вариантов)", item.ItemID, len(refs))
	}
}

// pickSource выбирает исходное изображение записи: вариант HD,
// иначе последний вариант, иначе миниатюра.
func pickSource(item *catalog.Item) string {
	for _, ref := range item.ImageList {
		if ref.Type == "HD" && ref.Link != "" {
			return ref.Link
		}
	}

	for i := len(item.ImageList) - 1; i >= 0; i-- {
		if item.ImageList[i].Link != "" {
			return item.ImageList[i].Link
		}
	}

	return item.Thumbnail
}

// markFailed учитывает запись с ошибкой.
func (r *Runner) markFailed() {
	atomic.AddInt64(&r.stats.Failed, 1)
	if r.bar != nil {
		r.bar.IncrementFailed()
	}
}

// logError логирует ошибку обработки записи.
func (r *Runner) logError(itemID string, err error) {
	if r.bar != nil && !r.bar.IsDisabled() {
		r.bar.WriteMessage("❌ %s: %v\n", itemID, err)
		return
	}
	if r.logger != nil {
		r.logger.Printf("[BACKFILL] ❌ %s: %v", itemID, err)
	}
}

// snapshot возвращает копию статистики.
func (r *Runner) snapshot() Stats {
	return Stats{
		Processed: atomic.LoadInt64(&r.stats.Processed),
		Skipped:   atomic.LoadInt64(&r.stats.Skipped),
		Failed:    atomic.LoadInt64(&r.stats.Failed),
		Total:     atomic.LoadInt64(&r.stats.Total),
	}
}
