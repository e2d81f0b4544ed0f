// Package queue реализует клиент удалённой очереди ожидания.
package queue

import "fmt"

// Status определяет статус элемента очереди ожидания.
type Status string

const (
	// StatusPending - элемент ждёт обработки.
	StatusPending Status = "pending"
	// StatusClaimed - элемент забран воркером.
	StatusClaimed Status = "claimed"
	// StatusCompleted - элемент обработан и опубликован.
	StatusCompleted Status = "completed"
)

// WorkItem представляет элемент очереди ожидания.
type WorkItem struct {
	// ID - идентификатор, назначенный сервисом очереди.
	ID string `json:"_id"`

	// URL - исходный URL изображения.
	URL string `json:"url"`

	// Source - источник элемента (ручная подача или скрейпер).
	Source string `json:"source,omitempty"`

	// Note - произвольная заметка.
	Note string `json:"note,omitempty"`

	// Priority - приоритет обработки.
	Priority int `json:"priority,omitempty"`

	// Assign - тег назначения воркера.
	Assign string `json:"assign,omitempty"`

	// Status - текущий статус элемента.
	Status Status `json:"status,omitempty"`

	// ItemID - идентификатор каталожной записи после публикации.
	ItemID string `json:"itemId,omitempty"`

	// ItemURL - ссылка на опубликованную запись.
	ItemURL string `json:"itemUrl,omitempty"`

	// Review - требуется ли ручная проверка.
	Review bool `json:"review,omitempty"`
}

// CompleteRequest описывает тело запроса завершения элемента очереди.
type CompleteRequest struct {
	// ItemID - идентификатор созданной каталожной записи.
	ItemID string `json:"itemId"`

	// ItemURL - ссылка на созданную запись.
	ItemURL string `json:"itemUrl"`

	// Priority - итоговый приоритет.
	Priority int `json:"priority"`

	// Status - итоговый статус (обычно completed).
	Status Status `json:"status"`

	// Review - требуется ли ручная проверка.
	Review bool `json:"review"`
}

// AddRequest описывает тело запроса добавления элемента в очередь
// (сторона продюсера).
type AddRequest struct {
	// Source - источник элемента.
	Source string `json:"source"`

	// Note - произвольная заметка.
	Note string `json:"note"`

	// URL - исходный URL изображения.
	URL string `json:"url"`

	// Priority - приоритет обработки.
	Priority int `json:"priority"`

	// Assign - тег назначения воркера.
	Assign string `json:"assign"`

	// Status - начальный статус (pending).
	Status Status `json:"status"`

	// ItemID - пусто при добавлении.
	ItemID string `json:"itemId"`

	// ItemURL - пусто при добавлении.
	ItemURL string `json:"itemUrl"`

	// Review - требуется ли ручная проверка.
	Review bool `json:"review"`
}

// APIError представляет ошибку сервиса очереди.
type APIError struct {
	// StatusCode - HTTP статус ответа.
	StatusCode int

	// Body - тело ответа.
	Body string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("сервис очереди вернул статус %d: %s", e.StatusCode, e.Body)
}
