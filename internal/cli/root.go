// Package cli содержит CLI интерфейс приложения.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/wallgen/internal/actuator"
	"github.com/artemshloyda/wallgen/internal/blob"
	"github.com/artemshloyda/wallgen/internal/catalog"
	"github.com/artemshloyda/wallgen/internal/config"
	"github.com/artemshloyda/wallgen/internal/deriv"
	"github.com/artemshloyda/wallgen/internal/inbox"
	"github.com/artemshloyda/wallgen/internal/ingest"
	"github.com/artemshloyda/wallgen/internal/notify"
	"github.com/artemshloyda/wallgen/internal/pipeline"
	"github.com/artemshloyda/wallgen/internal/queue"
	"github.com/artemshloyda/wallgen/internal/store"
	"github.com/artemshloyda/wallgen/internal/tagger"
	"github.com/artemshloyda/wallgen/internal/templates"
)

var (
	// Version будет установлена при сборке.
	Version = "dev"

	// BuildTime будет установлена при сборке.
	BuildTime = "unknown"
)

// cfg содержит глобальную конфигурацию.
var cfg = config.DefaultConfig()

// Пути и имена, задаваемые флагами.
var (
	configPath string
	presetName string
)

// NewRootCmd создаёт корневую команду CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "wallgen",
		Short: "Конвейер генерации и публикации обоев",
		Long: `Wallgen - конвейер генерации обоев: забирает заявки из очереди ожидания,
запускает генерацию во внешнем приложении через поиск шаблонов на экране,
принимает доставленные изображения, создаёт варианты разрешений
и публикует записи в каталог.

Конвейер обрабатывает не более одной заявки одновременно.

Примеры:
  # Запустить конвейер (основной режим)
  wallgen

  # Добавить заявку в очередь ожидания
  wallgen add https://example.com/photo.jpg --note "закат"

  # Досоздать варианты разрешений для старых записей каталога
  wallgen backfill --workers 8

  # Показать журнал прогонов
  wallgen runs --limit 20`,
		RunE: runDaemon,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Путь к файлу конфигурации YAML")
	pf.StringVar(&presetName, "preset", "", "Имя пресета публикации")
	pf.StringVar(&cfg.AssignTag, "assign-tag", cfg.AssignTag, "Тег назначения воркера в очереди")
	pf.StringVar(&cfg.WorkDir, "work", cfg.WorkDir, "Рабочая директория")
	pf.StringVar(&cfg.InboxDir, "inbox", cfg.InboxDir, "Директория входящих событий доставки")
	pf.StringVar(&cfg.TemplatesDir, "templates", cfg.TemplatesDir, "Директория шаблонов для поиска по экрану")
	pf.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Путь к SQLite базе данных")
	pf.StringVar(&cfg.PromptSuffix, "prompt-suffix", cfg.PromptSuffix, "Фиксированные параметры генерации в промпте")
	pf.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Подробный вывод")
	pf.BoolVar(&cfg.NoProgress, "no-progress", cfg.NoProgress, "Отключить прогресс-бар")

	pollSec := pf.Int("poll-interval", int(cfg.PollInterval/time.Second), "Интервал опроса очереди в секундах")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := loadFileConfig(cmd); err != nil {
			return err
		}

		if presetName != "" {
			if err := config.LoadPreset(presetName, cfg); err != nil {
				return err
			}
		}

		if cmd.Flags().Changed("poll-interval") {
			cfg.PollInterval = time.Duration(*pollSec) * time.Second
		}

		// Переменные окружения имеют высший приоритет.
		cfg.LoadEnv()
		return nil
	}

	// Подкоманды
	rootCmd.AddCommand(newAddCmd())
	rootCmd.AddCommand(newBackfillCmd())
	rootCmd.AddCommand(newRunsCmd())
	rootCmd.AddCommand(newPresetsCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// loadFileConfig загружает файл конфигурации (явный --config или один из
// стандартных путей). Флаги имеют приоритет над файлом, поэтому явно
// заданные значения восстанавливаются после наложения файла.
func loadFileConfig(cmd *cobra.Command) error {
	var (
		fc  *config.FileConfig
		err error
	)

	if configPath != "" {
		fc, err = config.LoadFile(configPath)
	} else {
		fc, _, err = config.FindAndLoad()
	}
	if err != nil {
		return err
	}
	if fc == nil {
		return nil
	}

	fl := cmd.Flags()
	saved := map[string]string{
		"assign-tag":    cfg.AssignTag,
		"work":          cfg.WorkDir,
		"inbox":         cfg.InboxDir,
		"templates":     cfg.TemplatesDir,
		"db":            cfg.DBPath,
		"prompt-suffix": cfg.PromptSuffix,
	}

	fc.Apply(cfg)

	for name, value := range saved {
		if fl.Changed(name) {
			switch name {
			case "assign-tag":
				cfg.AssignTag = value
			case "work":
				cfg.WorkDir = value
			case "inbox":
				cfg.InboxDir = value
			case "templates":
				cfg.TemplatesDir = value
			case "db":
				cfg.DBPath = value
			case "prompt-suffix":
				cfg.PromptSuffix = value
			}
		}
	}

	return nil
}

// runDaemon запускает основной цикл конвейера.
func runDaemon(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("ошибка конфигурации: %w", err)
	}
	if cfg.BlobBucket == "" {
		return fmt.Errorf("не задан бакет blob-хранилища (WALLGEN_BUCKET)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := log.New(os.Stderr, "", log.LstdFlags)

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	// Ищем директорию шаблонов
	finder := templates.NewFinder(cfg.TemplatesDir)
	tplDir, err := finder.Find()
	if err != nil {
		return err
	}
	fmt.Printf("📦 Шаблоны: %s\n", tplDir.Path)

	// Журнал прогонов
	st, err := store.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("не удалось инициализировать журнал: %w", err)
	}
	defer func() { _ = st.Close() }()

	// Blob-хранилище
	uploader, err := blob.New(ctx, cfg.BlobBucket, logger)
	if err != nil {
		return fmt.Errorf("не удалось подключиться к blob-хранилищу: %w", err)
	}

	// Сервис тегов
	var tag tagger.Tagger
	if cfg.GeminiAPIKey != "" {
		g, err := tagger.NewGemini(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return fmt.Errorf("не удалось подключиться к сервису тегов: %w", err)
		}
		defer func() { _ = g.Close() }()
		tag = g
	} else {
		fmt.Println("⚠️  Ключ сервиса тегов не задан, используется заголовок по умолчанию")
		tag = &tagger.Static{Title: cfg.Publish.Title}
	}

	// Уведомления
	var notifier pipeline.Notifier = notify.NewLog(logger)
	if cfg.WebhookURL != "" {
		notifier = notify.NewWebhook(cfg.WebhookURL)
	}

	orch := pipeline.New(pipeline.Options{
		Queue:        queue.NewClient(cfg.QueueBaseURL, logger),
		Catalog:      catalog.NewClient(cfg.CatalogBaseURL, logger),
		Actuator:     actuator.NewScreen(tplDir, logger),
		Ingestor:     ingest.New(cfg.WorkDir, logger),
		Uploader:     uploader,
		Deriv:        deriv.NewGenerator(uploader, cfg.WorkDir, logger),
		Tagger:       tag,
		Notifier:     notifier,
		Ledger:       st,
		Logger:       logger,
		AssignTag:    cfg.AssignTag,
		PromptSuffix: cfg.PromptSuffix,
		PollInterval: cfg.PollInterval,
		ItemURLBase:  cfg.CatalogBaseURL,
		Publish:      cfg.Publish,
	})

	// Входящие события доставки
	watcher, err := inbox.New(cfg.InboxDir, logger)
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	events, err := watcher.Watch(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("🚀 Конвейер запущен:\n")
	fmt.Printf("   Очередь: %s (тег %s)\n", cfg.QueueBaseURL, cfg.AssignTag)
	fmt.Printf("   Каталог: %s\n", cfg.CatalogBaseURL)
	fmt.Printf("   Бакет: %s\n", cfg.BlobBucket)
	fmt.Printf("   Входящие: %s\n", cfg.InboxDir)
	fmt.Printf("   Опрос: каждые %s\n", cfg.PollInterval)
	fmt.Println()

	err = orch.Run(ctx, events)
	if errors.Is(err, context.Canceled) {
		fmt.Println("\n⚠️  Получен сигнал завершения, конвейер остановлен")
		return nil
	}
	return err
}

// newVersionCmd создаёт команду version.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Показать версию",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("wallgen %s (built %s)\n", Version, BuildTime)
		},
	}
}

// Execute запускает CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		// Не выводим ошибку, cobra уже вывела
		os.Exit(1)
	}
}
