// Package config содержит конфигурацию приложения.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// Config содержит все настройки конвейера генерации.
type Config struct {
	// QueueBaseURL - базовый URL сервиса очереди ожидания.
	QueueBaseURL string

	// CatalogBaseURL - базовый URL сервиса каталога.
	CatalogBaseURL string

	// AssignTag - тег назначения, по которому воркер забирает элементы очереди.
	AssignTag string

	// WorkDir - рабочая директория для скачанных и промежуточных файлов.
	WorkDir string

	// InboxDir - директория, куда транспорт складывает события доставки.
	InboxDir string

	// TemplatesDir - директория с шаблонами для поиска по экрану
	// (пусто = автоматический поиск).
	TemplatesDir string

	// PollInterval - интервал опроса очереди ожидания.
	PollInterval time.Duration

	// PromptSuffix - фиксированные параметры генерации, добавляемые к URL
	// в промпте (соотношение сторон, стиль и т.п.).
	PromptSuffix string

	// BlobBucket - имя бакета для загрузки изображений.
	BlobBucket string

	// WebhookURL - вебхук канала для сообщений о результатах
	// (пусто = вывод только в лог).
	WebhookURL string

	// GeminiAPIKey - ключ сервиса генерации заголовков и тегов
	// (пусто = статический заголовок).
	GeminiAPIKey string

	// DBPath - путь к SQLite базе с журналом прогонов.
	DBPath string

	// Publish - значения по умолчанию для публикации в каталог.
	Publish PublishDefaults

	// Workers - количество воркеров для команды backfill.
	Workers int

	// MaxMemoryMB - ограничение памяти на декодирование в backfill
	// (0 = без ограничения).
	MaxMemoryMB int

	// Verbose - подробный вывод.
	Verbose bool

	// NoProgress - отключить прогресс-бар.
	NoProgress bool
}

// PublishDefaults содержит значения каталожной записи по умолчанию.
// Любое из них можно переопределить пресетом или флагом.
type PublishDefaults struct {
	// Price - цена по умолчанию.
	Price float64 `yaml:"price,omitempty"`

	// Stars - рейтинг по умолчанию (1-5).
	Stars int `yaml:"stars,omitempty"`

	// PhotoType - тип фотографии (например, "static").
	PhotoType string `yaml:"photo_type,omitempty"`

	// FreeDownload - доступна ли бесплатная загрузка.
	FreeDownload bool `yaml:"free_download,omitempty"`

	// Preview - ссылка на превью (обычно пусто).
	Preview string `yaml:"preview,omitempty"`

	// Title - заголовок, если сервис тегов недоступен.
	Title string `yaml:"title,omitempty"`
}

// DefaultConfig возвращает конфигурацию со значениями по умолчанию.
func DefaultConfig() *Config {
	return &Config{
		AssignTag:    "wallgen",
		WorkDir:      "work",
		InboxDir:     filepath.Join("work", "inbox"),
		PollInterval: 60 * time.Second,
		PromptSuffix: "HDR Coastal Landscape --ar 9:16 --seed 10",
		DBPath:       filepath.Join("work", "wallgen.db"),
		Publish: PublishDefaults{
			Price:        2.8,
			Stars:        5,
			PhotoType:    "static",
			FreeDownload: true,
			Title:        "Untitled Wallpaper",
		},
		Workers:     4,
		MaxMemoryMB: 0,
	}
}

// LoadEnv загружает переменные окружения из .env (если есть) и
// переносит секреты и адреса сервисов в конфигурацию.
// Переменные окружения имеют приоритет над файлом конфигурации.
func (c *Config) LoadEnv() {
	// .env опционален: отсутствие файла не является ошибкой.
	_ = godotenv.Load()

	if v := os.Getenv("WALLGEN_QUEUE_URL"); v != "" {
		c.QueueBaseURL = v
	}
	if v := os.Getenv("WALLGEN_CATALOG_URL"); v != "" {
		c.CatalogBaseURL = v
	}
	if v := os.Getenv("WALLGEN_ASSIGN_TAG"); v != "" {
		c.AssignTag = v
	}
	if v := os.Getenv("WALLGEN_BUCKET"); v != "" {
		c.BlobBucket = v
	}
	if v := os.Getenv("WALLGEN_WEBHOOK_URL"); v != "" {
		c.WebhookURL = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.GeminiAPIKey = v
	}
}

// Validate проверяет корректность конфигурации.
func (c *Config) Validate() error {
	if c.QueueBaseURL == "" {
		return fmt.Errorf("не задан URL сервиса очереди (WALLGEN_QUEUE_URL)")
	}

	if c.CatalogBaseURL == "" {
		return fmt.Errorf("не задан URL сервиса каталога (WALLGEN_CATALOG_URL)")
	}

	if c.AssignTag == "" {
		return fmt.Errorf("не задан тег назначения")
	}

	if c.WorkDir == "" {
		return fmt.Errorf("не задана рабочая директория")
	}

	if c.InboxDir == "" {
		return fmt.Errorf("не задана директория входящих событий")
	}

	if c.PollInterval < time.Second {
		return fmt.Errorf("интервал опроса слишком мал: %s (минимум 1s)", c.PollInterval)
	}

	if c.Publish.Stars < 1 || c.Publish.Stars > 5 {
		return fmt.Errorf("некорректный рейтинг по умолчанию: %d (допустимо 1-5)", c.Publish.Stars)
	}

	if c.Publish.Price < 0 {
		return fmt.Errorf("некорректная цена по умолчанию: %v", c.Publish.Price)
	}

	if c.Workers < 1 {
		return fmt.Errorf("некорректное количество воркеров: %d", c.Workers)
	}

	return nil
}

// EnsureDirs создаёт рабочие директории, если они не существуют.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{
		c.WorkDir,
		c.InboxDir,
		filepath.Join(c.WorkDir, "input"),
		filepath.Join(c.WorkDir, "canonical"),
		filepath.Join(c.WorkDir, "derived"),
		filepath.Dir(c.DBPath),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("не удалось создать директорию %s: %w", dir, err)
		}
	}
	return nil
}
