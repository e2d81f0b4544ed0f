// Package tagger генерирует заголовок и теги для изображения.
package tagger

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// defaultModel - модель сервиса тегов по умолчанию.
const defaultModel = "gemini-2.0-flash"

// Промпт фиксирует формат ответа: заголовок, описательные теги и два
// основных цвета в hex с процентом покрытия.
const analysisPrompt = `Please provide a title for the attached image, and give it some image tags. ` +
	`(1) A descriptive title for the image. ` +
	`(2) A list of relevant tags, including general descriptors and the two main colors in hexadecimal format ` +
	`with their respective coverage percentages (from 1% to 100%), appended to the color hex code. ` +
	`Please return as a json format, here is a response example: ` +
	`{"name": "Twilight over the Bay Bridge","tags": ["Landscape","Cityscape","Bridge","Skyline","#8B008B%045","#4682B4%020"]}`

// Gemini - реализация Tagger поверх сервиса Gemini.
type Gemini struct {
	// client - клиент сервиса.
	client *genai.Client

	// model - имя модели.
	model string
}

// NewGemini создаёт новый Gemini-теггер.
func NewGemini(ctx context.Context, apiKey string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("не задан ключ сервиса тегов")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("не удалось создать клиент сервиса тегов: %w", err)
	}

	return &Gemini{client: client, model: defaultModel}, nil
}

// Analyze отправляет изображение сервису тегов и возвращает заголовок и теги.
func (g *Gemini) Analyze(ctx context.Context, imagePath string) (string, []string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", nil, fmt.Errorf("не удалось прочитать изображение: %w", err)
	}

	model := g.client.GenerativeModel(g.model)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx,
		genai.ImageData("jpeg", data),
		genai.Text(analysisPrompt),
	)
	if err != nil {
		return "", nil, fmt.Errorf("сервис тегов недоступен: %w", err)
	}

	raw, err := extractText(resp)
	if err != nil {
		return "", nil, err
	}

	return parseAnalysis(raw)
}

// Close освобождает ресурсы клиента.
func (g *Gemini) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// extractText достаёт текстовую часть из ответа сервиса.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("пустой ответ сервиса тегов")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("ответ сервиса тегов без содержимого")
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("в ответе сервиса тегов нет текста")
	}
	return sb.String(), nil
}
