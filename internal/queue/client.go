// Package queue реализует клиент удалённой очереди ожидания.
package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// ErrNoWaiting возвращается, когда в очереди нет элементов для данного тега.
var ErrNoWaiting = errors.New("очередь ожидания пуста")

// Client выполняет запросы к сервису очереди ожидания.
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

// NewClient создаёт новый клиент очереди ожидания.
func NewClient(baseURL string, logger *log.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		retryDelay: 2 * time.Second,
	}
}

// ClaimNext забирает следующий элемент очереди для данного тега назначения.
// Возвращает ErrNoWaiting, если очередь пуста.
func (c *Client) ClaimNext(ctx context.Context, assignTag string) (*WorkItem, error) {
	url := fmt.Sprintf("%s/api/waiting/%s", c.baseURL, assignTag)

	body, err := c.request(ctx, http.MethodGet, url, nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && isNoWaiting(apiErr) {
			return nil, ErrNoWaiting
		}
		return nil, err
	}

	var item WorkItem
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("не удалось разобрать ответ очереди: %w", err)
	}
	if item.ID == "" || item.URL == "" {
		return nil, fmt.Errorf("неполный элемент очереди: %s", string(body))
	}

	item.Status = StatusClaimed
	return &item, nil
}

// Count возвращает количество ожидающих элементов для данного тега.
func (c *Client) Count(ctx context.Context, assignTag string) (int, error) {
	url := fmt.Sprintf("%s/api/waiting/count/%s", c.baseURL, assignTag)

	body, err := c.request(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("не удалось разобрать счётчик очереди: %w", err)
	}

	return resp.Count, nil
}

// Complete отмечает элемент очереди как завершённый, записывая
// идентификатор и ссылку созданной каталожной записи.
func (c *Client) Complete(ctx context.Context, id string, req CompleteRequest) error {
	if req.Status == "" {
		req.Status = StatusCompleted
	}

	url := fmt.Sprintf("%s/api/waiting/%s", c.baseURL, id)
	if _, err := c.request(ctx, http.MethodPatch, url, req); err != nil {
		return fmt.Errorf("не удалось завершить элемент %s: %w", id, err)
	}
	return nil
}

// Add добавляет новый элемент в очередь ожидания (сторона продюсера).
func (c *Client) Add(ctx context.Context, req AddRequest) error {
	if req.Status == "" {
		req.Status = StatusPending
	}

	url := fmt.Sprintf("%s/api/waiting", c.baseURL)
	if _, err := c.request(ctx, http.MethodPost, url, req); err != nil {
		return fmt.Errorf("не удалось добавить элемент в очередь: %w", err)
	}
	return nil
}

// request выполняет HTTP запрос с одним неявным повтором на сетевую ошибку.
// Ошибки HTTP статусов не повторяются: решение остаётся за вызывающим.
func (c *Client) request(ctx context.Context, method, url string, payload any) ([]byte, error) {
	var reqBody []byte
	if payload != nil {
		var err error
		reqBody, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("не удалось сериализовать запрос: %w", err)
		}
	}

	var respBody []byte
	backoff := retry.WithMaxRetries(1, retry.NewConstant(c.retryDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var reader io.Reader
		if reqBody != nil {
			reader = bytes.NewReader(reqBody)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			// Сетевые ошибки повторяем один раз.
			if c.logger != nil {
				c.logger.Printf("[QUEUE] сетевая ошибка %s %s: %v", method, url, err)
			}
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		}

		respBody = body
		return nil
	})
	if err != nil {
		return nil, err
	}

	return respBody, nil
}

// isNoWaiting распознаёт ответ "нет элементов" сервиса очереди.
func isNoWaiting(err *APIError) bool {
	if err.StatusCode == http.StatusNotFound {
		return true
	}
	return strings.Contains(strings.ToLower(err.Body), "no items")
}
