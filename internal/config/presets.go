// Package config содержит конфигурацию приложения.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// PublishPreset представляет именованный пресет значений публикации.
// Пресеты позволяют публиковать разные серии с разными ценами и рейтингами
// без правки основной конфигурации.
type PublishPreset struct {
	// Name - имя пресета.
	Name string
	// Path - путь к файлу пресета.
	Path string
	// Defaults - значения публикации пресета.
	Defaults *PublishDefaults
}

// GetPresetsDir возвращает директорию для хранения пресетов.
func GetPresetsDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("не удалось получить домашнюю директорию: %w", err)
	}

	return filepath.Join(homeDir, ".config", "wallgen", "presets"), nil
}

// LoadPreset загружает пресет по имени и применяет его к конфигурации.
func LoadPreset(name string, cfg *Config) error {
	presetsDir, err := GetPresetsDir()
	if err != nil {
		return err
	}

	path := filepath.Join(presetsDir, name+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("пресет %q не найден: %w", name, err)
	}

	var d PublishDefaults
	if err := yaml.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("не удалось разобрать пресет %q: %w", name, err)
	}

	fc := &FileConfig{Publish: &d}
	fc.Apply(cfg)
	return nil
}

// SavePreset сохраняет текущие значения публикации под именем пресета.
func SavePreset(name string, d *PublishDefaults) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("имя пресета не может быть пустым")
	}

	presetsDir, err := GetPresetsDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(presetsDir, 0755); err != nil {
		return fmt.Errorf("не удалось создать директорию пресетов: %w", err)
	}

	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("не удалось сериализовать пресет: %w", err)
	}

	path := filepath.Join(presetsDir, name+".yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("не удалось сохранить пресет: %w", err)
	}
	return nil
}

// PresetExists проверяет, существует ли пресет с указанным именем.
func PresetExists(name string) bool {
	presetsDir, err := GetPresetsDir()
	if err != nil {
		return false
	}

	_, err = os.Stat(filepath.Join(presetsDir, name+".yaml"))
	return err == nil
}

// DeletePreset удаляет пресет по имени.
func DeletePreset(name string) error {
	presetsDir, err := GetPresetsDir()
	if err != nil {
		return err
	}

	path := filepath.Join(presetsDir, name+".yaml")
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("не удалось удалить пресет %q: %w", name, err)
	}
	return nil
}

// ListPresets возвращает имена всех сохранённых пресетов в алфавитном порядке.
func ListPresets() ([]string, error) {
	presetsDir, err := GetPresetsDir()
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(presetsDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать директорию пресетов: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
		}
	}

	sort.Strings(names)
	return names, nil
}
