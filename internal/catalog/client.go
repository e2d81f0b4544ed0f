// Package catalog реализует клиент сервиса каталога.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// Маркер успешной публикации в текстовом ответе сервиса каталога.
const successMarker = "successful"

// PublishError представляет отказ сервиса каталога принять запись.
type PublishError struct {
	// StatusCode - HTTP статус ответа (0 при сетевой ошибке).
	StatusCode int

	// Body - тело ответа сервиса.
	Body string

	// Cause - исходная ошибка (если есть).
	Cause error
}

func (e *PublishError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("публикация отклонена: %v", e.Cause)
	}
	return fmt.Sprintf("публикация отклонена (статус %d): %s", e.StatusCode, e.Body)
}

func (e *PublishError) Unwrap() error {
	return e.Cause
}

// Client выполняет запросы к сервису каталога.
type Client struct {
	// baseURL - базовый URL сервиса (без завершающего слэша).
	baseURL string

	// http - HTTP клиент с таймаутом.
	http *http.Client

	// logger - логгер для диагностики запросов.
	logger *log.Logger

	// retryDelay - пауза перед повторной попыткой сетевого запроса.
	retryDelay time.Duration
}

// NewClient создаёт новый клиент каталога.
func NewClient(baseURL string, logger *log.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		retryDelay: 2 * time.Second,
	}
}

// Publish отправляет каталожную запись и возвращает назначенный itemId.
// Успех распознаётся по маркеру в текстовом ответе сервиса.
func (c *Client) Publish(ctx context.Context, entry *Entry) (string, error) {
	if err := entry.Validate(); err != nil {
		return "", &PublishError{Cause: err}
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return "", &PublishError{Cause: fmt.Errorf("не удалось сериализовать запись: %w", err)}
	}

	body, status, err := c.request(ctx, http.MethodPost, c.baseURL+"/api/items", payload)
	if err != nil {
		return "", &PublishError{Cause: err}
	}

	itemID, ok := ParsePublishResponse(body)
	if !ok {
		return "", &PublishError{StatusCode: status, Body: body}
	}

	return itemID, nil
}

// List возвращает все каталожные записи.
func (c *Client) List(ctx context.Context) ([]Item, error) {
	body, _, err := c.request(ctx, http.MethodGet, c.baseURL+"/api/items", nil)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить список каталога: %w", err)
	}

	var items []Item
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		return nil, fmt.Errorf("не удалось разобрать список каталога: %w", err)
	}

	return items, nil
}

// PatchImageList обновляет список вариантов изображения существующей записи.
func (c *Client) PatchImageList(ctx context.Context, itemID string, refs []ImageRef) error {
	payload, err := json.Marshal(map[string]any{"imageList": refs})
	if err != nil {
		return fmt.Errorf("не удалось сериализовать imageList: %w", err)
	}

	url := fmt.Sprintf("%s/api/items/%s", c.baseURL, itemID)
	if _, _, err := c.request(ctx, http.MethodPatch, url, payload); err != nil {
		return fmt.Errorf("не удалось обновить запись %s: %w", itemID, err)
	}
	return nil
}

// ParsePublishResponse извлекает itemId из текстового ответа публикации.
// Ответ считается успешным, только если содержит маркер успеха и itemId.
func ParsePublishResponse(body string) (string, bool) {
	if !strings.Contains(body, successMarker) {
		return "", false
	}

	idx := strings.LastIndex(body, "itemId=")
	if idx < 0 {
		return "", false
	}

	itemID := strings.TrimSpace(body[idx+len("itemId="):])
	// Отрезаем возможный хвост после идентификатора.
	for i, r := range itemID {
		if r == ' ' || r == '\n' || r == '"' || r == '}' || r == ',' {
			itemID = itemID[:i]
			break
		}
	}

	if itemID == "" {
		return "", false
	}
	return itemID, true
}

// request выполняет HTTP запрос с одним неявным повтором на сетевую ошибку.
func (c *Client) request(ctx context.Context, method, url string, payload []byte) (string, int, error) {
	var (
		respBody string
		status   int
	)

	backoff := retry.WithMaxRetries(1, retry.NewConstant(c.retryDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			if c.logger != nil {
				c.logger.Printf("[CATALOG] сетевая ошибка %s %s: %v", method, url, err)
			}
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}

		status = resp.StatusCode
		respBody = strings.TrimSpace(string(body))

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("сервис каталога вернул статус %d: %s", resp.StatusCode, respBody)
		}
		return nil
	})
	if err != nil {
		return respBody, status, err
	}

	return respBody, status, nil
}
