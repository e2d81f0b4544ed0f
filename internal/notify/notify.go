// Package notify отправляет сообщения о ходе конвейера в канал оператора.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Notifier отправляет человекочитаемое сообщение в канал,
// из которого пришёл исходный запрос.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Webhook отправляет сообщения через вебхук канала.
type Webhook struct {
	// url - адрес вебхука.
	url string

	// http - HTTP клиент с таймаутом.
	http *http.Client
}

// NewWebhook создаёт новый Webhook-нотификатор.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:  url,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// Send отправляет сообщение в канал.
func (w *Webhook) Send(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]string{"content": text})
	if err != nil {
		return fmt.Errorf("не удалось сериализовать сообщение: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("не удалось создать запрос вебхука: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("вебхук недоступен: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("вебхук вернул статус %d", resp.StatusCode)
	}
	return nil
}

// Log пишет сообщения в лог. Используется, когда вебхук не настроен.
type Log struct {
	// logger - целевой логгер.
	logger *log.Logger
}

// NewLog создаёт новый Log-нотификатор.
func NewLog(logger *log.Logger) *Log {
	return &Log{logger: logger}
}

// Send пишет сообщение в лог.
func (l *Log) Send(ctx context.Context, text string) error {
	l.logger.Printf("[NOTIFY] %s", text)
	return nil
}
