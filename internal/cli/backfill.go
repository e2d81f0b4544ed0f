// Package cli содержит CLI команды приложения.
package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/wallgen/internal/backfill"
	"github.com/artemshloyda/wallgen/internal/blob"
	"github.com/artemshloyda/wallgen/internal/catalog"
	"github.com/artemshloyda/wallgen/internal/deriv"
	"github.com/artemshloyda/wallgen/internal/ingest"
	"github.com/artemshloyda/wallgen/internal/progress"
)

// newBackfillCmd создаёт команду обновления устаревших записей каталога.
func newBackfillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Досоздать варианты разрешений для устаревших записей каталога",
		Long: `Досоздать варианты разрешений для устаревших записей каталога.

Обходит все записи каталога, находит записи со старой схемой вариантов
(или без размытого превью), скачивает исходное изображение, генерирует
полный набор вариантов и обновляет imageList записи.

Первая ошибка сервиса каталога останавливает проход.

Примеры:
  wallgen backfill
  wallgen backfill --workers 8 --max-memory 2048`,
		RunE: runBackfill,
	}

	cmd.Flags().IntVar(&cfg.Workers, "workers", cfg.Workers, "Количество параллельных воркеров")
	cmd.Flags().IntVar(&cfg.MaxMemoryMB, "max-memory", cfg.MaxMemoryMB,
		"Ограничение памяти на декодирование в МБ (0 = без ограничения)")

	return cmd
}

// runBackfill выполняет проход по каталогу.
func runBackfill(cmd *cobra.Command, args []string) error {
	if cfg.CatalogBaseURL == "" {
		return fmt.Errorf("не задан URL сервиса каталога (WALLGEN_CATALOG_URL)")
	}
	if cfg.BlobBucket == "" {
		return fmt.Errorf("не задан бакет blob-хранилища (WALLGEN_BUCKET)")
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("некорректное количество воркеров: %d", cfg.Workers)
	}

	startTime := time.Now()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := log.New(os.Stderr, "", log.LstdFlags)

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	uploader, err := blob.New(ctx, cfg.BlobBucket, logger)
	if err != nil {
		return fmt.Errorf("не удалось подключиться к blob-хранилищу: %w", err)
	}

	runner := backfill.New(
		catalog.NewClient(cfg.CatalogBaseURL, logger),
		ingest.New(cfg.WorkDir, logger),
		deriv.NewGenerator(uploader, cfg.WorkDir, logger),
		cfg.Workers,
		cfg.MaxMemoryMB,
		logger,
	)

	bar := progress.New(progress.Options{
		Description: "Обновление каталога",
		Disabled:    cfg.NoProgress,
	})
	runner.SetProgressBar(bar)

	fmt.Printf("🚀 Запуск обновления каталога:\n")
	fmt.Printf("   Каталог: %s\n", cfg.CatalogBaseURL)
	fmt.Printf("   Бакет: %s\n", cfg.BlobBucket)
	fmt.Printf("   Воркеров: %d\n", cfg.Workers)
	if cfg.MaxMemoryMB > 0 {
		fmt.Printf("   Лимит памяти: %d МБ\n", cfg.MaxMemoryMB)
	}
	fmt.Println()

	stats, err := runner.Run(ctx)
	bar.Finish()

	duration := time.Since(startTime)
	fmt.Println()
	fmt.Printf("📊 Результаты:\n")
	fmt.Printf("   Всего записей: %d\n", stats.Total)
	fmt.Printf("   Обновлено: %d\n", stats.Processed)
	fmt.Printf("   Без изменений: %d\n", stats.Skipped)
	fmt.Printf("   Ошибок: %d\n", stats.Failed)
	fmt.Printf("   Время: %s\n", duration.Round(time.Millisecond))

	if err != nil {
		return err
	}
	if stats.Failed > 0 {
		return fmt.Errorf("завершено с %d ошибками", stats.Failed)
	}
	return nil
}
