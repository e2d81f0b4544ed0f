// Package inbox принимает события доставки изображений от внешнего транспорта.
package inbox

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Kind определяет вид доставленного изображения.
type Kind string

const (
	// KindThumbnail - сетка вариантов (миниатюра).
	KindThumbnail Kind = "thumbnail"
	// KindUpscaled - увеличенное финальное изображение.
	KindUpscaled Kind = "upscaled"
	// KindUnknown - вид определить не удалось.
	KindUnknown Kind = ""
)

// Event представляет одно событие доставки.
// Транспорт складывает по одному JSON файлу на вложение в директорию
// входящих; после обработки файл удаляется.
type Event struct {
	// Kind - вид изображения. Может отсутствовать: тогда вид
	// выводится из маркеров в Content.
	Kind Kind `json:"kind,omitempty"`

	// URL - ссылка на доставленное изображение.
	URL string `json:"url"`

	// Filename - имя файла вложения.
	Filename string `json:"filename"`

	// Content - текст сообщения, сопровождавшего вложение.
	Content string `json:"content,omitempty"`
}

// ResolveKind возвращает вид события, при необходимости выводя его
// из маркеров текста сообщения.
func (e *Event) ResolveKind() Kind {
	if e.Kind == KindThumbnail || e.Kind == KindUpscaled {
		return e.Kind
	}

	if strings.Contains(e.Content, "- Upscaled") {
		return KindUpscaled
	}
	if strings.Contains(e.Content, "- Image #") {
		return KindThumbnail
	}

	return KindUnknown
}

// Validate проверяет, что событие пригодно для приёма.
func (e *Event) Validate() error {
	if e.URL == "" {
		return fmt.Errorf("событие без ссылки")
	}

	switch strings.ToLower(filepath.Ext(e.Filename)) {
	case ".png", ".jpg", ".jpeg", ".gif":
		return nil
	default:
		return fmt.Errorf("неизвестный формат вложения: %q", e.Filename)
	}
}

// readEventFile читает и разбирает файл события.
func readEventFile(path string) (*Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать событие %s: %w", path, err)
	}

	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, fmt.Errorf("не удалось разобрать событие %s: %w", path, err)
	}

	if err := evt.Validate(); err != nil {
		return nil, err
	}
	return &evt, nil
}
