// Package tagger генерирует заголовок и теги для изображения.
package tagger

import (
	"context"
	"encoding/json"
	"fmt"
)

// Tagger анализирует изображение и возвращает заголовок и теги.
// Реализации: Gemini (внешний сервис) и Static (запасной вариант).
type Tagger interface {
	Analyze(ctx context.Context, imagePath string) (title string, tags []string, err error)
}

// Static возвращает фиксированный заголовок без тегов.
// Используется, когда ключ сервиса тегов не задан: отказ сервиса тегов
// не должен блокировать публикацию.
type Static struct {
	// Title - заголовок по умолчанию.
	Title string
}

// Analyze возвращает фиксированный заголовок.
func (s *Static) Analyze(ctx context.Context, imagePath string) (string, []string, error) {
	return s.Title, nil, nil
}

// analysisResponse - контракт JSON ответа сервиса тегов.
// Теги включают два основных цвета в виде "#RRGGBB%NNN"
// (hex-код с процентом покрытия).
type analysisResponse struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// parseAnalysis разбирает JSON ответ сервиса тегов.
func parseAnalysis(raw string) (string, []string, error) {
	var resp analysisResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return "", nil, fmt.Errorf("не удалось разобрать ответ сервиса тегов: %w", err)
	}

	if resp.Name == "" {
		return "", nil, fmt.Errorf("в ответе сервиса тегов нет заголовка: %s", raw)
	}

	return resp.Name, resp.Tags, nil
}
