// Package config содержит конфигурацию приложения.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig представляет структуру конфигурационного файла YAML.
// Все поля опциональны - если не указаны, используются значения по умолчанию.
type FileConfig struct {
	// Services - адреса внешних сервисов.
	Services *ServicesConfig `yaml:"services,omitempty"`

	// Pipeline - настройки конвейера.
	Pipeline *PipelineConfig `yaml:"pipeline,omitempty"`

	// Paths - настройки путей.
	Paths *PathsConfig `yaml:"paths,omitempty"`

	// Publish - значения публикации по умолчанию.
	Publish *PublishDefaults `yaml:"publish,omitempty"`
}

// ServicesConfig содержит адреса внешних сервисов.
type ServicesConfig struct {
	// QueueURL - базовый URL сервиса очереди ожидания.
	QueueURL string `yaml:"queue_url,omitempty"`

	// CatalogURL - базовый URL сервиса каталога.
	CatalogURL string `yaml:"catalog_url,omitempty"`

	// Bucket - имя бакета blob-хранилища.
	Bucket string `yaml:"bucket,omitempty"`

	// WebhookURL - вебхук канала для уведомлений.
	WebhookURL string `yaml:"webhook_url,omitempty"`
}

// PipelineConfig содержит настройки конвейера.
type PipelineConfig struct {
	// AssignTag - тег назначения воркера.
	AssignTag string `yaml:"assign_tag,omitempty"`

	// PollIntervalSec - интервал опроса очереди в секундах.
	PollIntervalSec int `yaml:"poll_interval_sec,omitempty"`

	// PromptSuffix - фиксированные параметры генерации.
	PromptSuffix string `yaml:"prompt_suffix,omitempty"`

	// Workers - количество воркеров для backfill.
	Workers int `yaml:"workers,omitempty"`

	// Verbose - подробный вывод.
	Verbose bool `yaml:"verbose,omitempty"`

	// NoProgress - отключить прогресс-бар.
	NoProgress bool `yaml:"no_progress,omitempty"`
}

// PathsConfig содержит настройки путей.
type PathsConfig struct {
	// Work - рабочая директория.
	Work string `yaml:"work,omitempty"`

	// Inbox - директория входящих событий доставки.
	Inbox string `yaml:"inbox,omitempty"`

	// Templates - директория шаблонов для поиска по экрану.
	Templates string `yaml:"templates,omitempty"`

	// DB - путь к SQLite базе данных.
	DB string `yaml:"db,omitempty"`
}

// DefaultConfigPaths возвращает список путей для поиска конфигурационного файла.
// Поиск выполняется в следующем порядке:
// 1. ./wallgen.yaml (текущая директория)
// 2. ./wallgen.yml
// 3. ~/.config/wallgen/config.yaml
// 4. ~/.config/wallgen/config.yml
func DefaultConfigPaths() []string {
	paths := []string{
		"wallgen.yaml",
		"wallgen.yml",
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(homeDir, ".config", "wallgen", "config.yaml"),
			filepath.Join(homeDir, ".config", "wallgen", "config.yml"),
		)
	}

	return paths
}

// LoadFile читает конфигурационный файл по указанному пути.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать файл конфигурации: %w", err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("не удалось разобрать YAML %s: %w", path, err)
	}

	return &fc, nil
}

// FindAndLoad ищет конфигурационный файл по стандартным путям и загружает
// первый найденный. Возвращает nil без ошибки, если файл не найден.
func FindAndLoad() (*FileConfig, string, error) {
	for _, path := range DefaultConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			fc, err := LoadFile(path)
			if err != nil {
				return nil, path, err
			}
			return fc, path, nil
		}
	}
	return nil, "", nil
}

// Apply накладывает значения из файла на конфигурацию.
// Заполняются только явно указанные в файле поля.
func (fc *FileConfig) Apply(cfg *Config) {
	if fc == nil {
		return
	}

	if s := fc.Services; s != nil {
		if s.QueueURL != "" {
			cfg.QueueBaseURL = s.QueueURL
		}
		if s.CatalogURL != "" {
			cfg.CatalogBaseURL = s.CatalogURL
		}
		if s.Bucket != "" {
			cfg.BlobBucket = s.Bucket
		}
		if s.WebhookURL != "" {
			cfg.WebhookURL = s.WebhookURL
		}
	}

	if p := fc.Pipeline; p != nil {
		if p.AssignTag != "" {
			cfg.AssignTag = p.AssignTag
		}
		if p.PollIntervalSec > 0 {
			cfg.PollInterval = time.Duration(p.PollIntervalSec) * time.Second
		}
		if p.PromptSuffix != "" {
			cfg.PromptSuffix = p.PromptSuffix
		}
		if p.Workers > 0 {
			cfg.Workers = p.Workers
		}
		if p.Verbose {
			cfg.Verbose = true
		}
		if p.NoProgress {
			cfg.NoProgress = true
		}
	}

	if p := fc.Paths; p != nil {
		if p.Work != "" {
			cfg.WorkDir = p.Work
		}
		if p.Inbox != "" {
			cfg.InboxDir = p.Inbox
		}
		if p.Templates != "" {
			cfg.TemplatesDir = p.Templates
		}
		if p.DB != "" {
			cfg.DBPath = p.DB
		}
	}

	if p := fc.Publish; p != nil {
		if p.Price > 0 {
			cfg.Publish.Price = p.Price
		}
		if p.Stars > 0 {
			cfg.Publish.Stars = p.Stars
		}
		if p.PhotoType != "" {
			cfg.Publish.PhotoType = p.PhotoType
		}
		if p.FreeDownload {
			cfg.Publish.FreeDownload = true
		}
		if p.Preview != "" {
			cfg.Publish.Preview = p.Preview
		}
		if p.Title != "" {
			cfg.Publish.Title = p.Title
		}
	}
}
