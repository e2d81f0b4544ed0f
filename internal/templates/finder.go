// Package templates отвечает за поиск директории с шаблонами экрана.
package templates

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Известные имена шаблонов. Файлы лежат в директории шаблонов
// как {имя}.png, опционально в поддиректории платформы
// ({GOOS}/{имя}.png), если вид кнопки зависит от платформы.
const (
	// MessageBox - поле ввода сообщения внешнего приложения.
	MessageBox = "message_box"

	// UpscaleButton - кнопка увеличения выбранного варианта.
	UpscaleButton = "upscale_button"

	// U4Extend - кнопка U4 расширенной сетки вариантов.
	U4Extend = "u4_extend"
)

// Dir представляет найденную директорию шаблонов.
type Dir struct {
	// Path - абсолютный путь к директории.
	Path string
}

// Finder ищет директорию шаблонов.
type Finder struct {
	// CustomPath - пользовательский путь (из флага --templates).
	CustomPath string

	// EnvVar - имя переменной окружения с путём к шаблонам.
	EnvVar string
}

// NewFinder создаёт новый Finder.
func NewFinder(customPath string) *Finder {
	return &Finder{
		CustomPath: customPath,
		EnvVar:     "WALLGEN_TEMPLATES",
	}
}

// Find ищет директорию шаблонов в следующем порядке:
// 1. CustomPath (если задан)
// 2. Переменная окружения WALLGEN_TEMPLATES
// 3. ./img рядом с исполняемым файлом
// 4. ./img в текущей директории
func (f *Finder) Find() (*Dir, error) {
	var candidates []string

	if f.CustomPath != "" {
		candidates = append(candidates, f.CustomPath)
	}

	if envPath := os.Getenv(f.EnvVar); envPath != "" {
		candidates = append(candidates, envPath)
	}

	if execPath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(execPath), "img"))
	}

	candidates = append(candidates, "img")

	for _, path := range candidates {
		if dir, err := f.check(path); err == nil {
			return dir, nil
		}
	}

	return nil, fmt.Errorf("директория шаблонов не найдена (проверены: %v)", candidates)
}

// check проверяет, что путь существует и содержит хотя бы обязательный
// шаблон поля ввода.
func (f *Finder) check(path string) (*Dir, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s не является директорией", path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	dir := &Dir{Path: abs}
	if _, err := os.Stat(dir.Resolve(MessageBox)); err != nil {
		return nil, fmt.Errorf("в %s нет шаблона %s.png", abs, MessageBox)
	}

	return dir, nil
}

// Resolve возвращает путь к файлу шаблона по имени.
// Платформенный вариант ({GOOS}/{имя}.png) имеет приоритет.
func (d *Dir) Resolve(name string) string {
	platform := filepath.Join(d.Path, runtime.GOOS, name+".png")
	if _, err := os.Stat(platform); err == nil {
		return platform
	}
	return filepath.Join(d.Path, name+".png")
}
