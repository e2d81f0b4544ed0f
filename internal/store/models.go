// Package store содержит модели и логику журнала прогонов конвейера.
package store

import "time"

// RunState определяет достигнутое состояние прогона.
// Значения совпадают с состояниями конвейера, плюс терминальные ok/failed.
type RunState string

const (
	// StateClaimed - элемент очереди забран.
	StateClaimed RunState = "claimed"
	// StateUploading - запускается генерация во внешнем приложении.
	StateUploading RunState = "uploading"
	// StateAwaitingThumbnail - ожидание доставки миниатюры.
	StateAwaitingThumbnail RunState = "awaiting_thumbnail"
	// StateAwaitingUpscale - ожидание доставки увеличенного изображения.
	StateAwaitingUpscale RunState = "awaiting_upscale"
	// StatePublishing - публикация в каталог.
	StatePublishing RunState = "publishing"
	// StateOK - прогон успешно завершён.
	StateOK RunState = "ok"
	// StateFailed - прогон прерван ошибкой.
	StateFailed RunState = "failed"
)

// Run представляет один прогон конвейера.
// Прогоны с ошибками остаются в журнале для ручной сверки:
// конвейер не откатывает загруженные blob'ы и не снимает claim.
type Run struct {
	// ID - идентификатор прогона.
	ID int64 `db:"id"`

	// WorkItemID - идентификатор элемента очереди ожидания.
	WorkItemID string `db:"work_item_id"`

	// SourceURL - исходный URL изображения.
	SourceURL string `db:"source_url"`

	// State - достигнутое состояние.
	State RunState `db:"state"`

	// FailedAt - состояние, в котором прогон прервался (для failed).
	FailedAt *string `db:"failed_at"`

	// ItemID - идентификатор каталожной записи (для ok).
	ItemID *string `db:"item_id"`

	// Error - сообщение об ошибке (для failed).
	Error *string `db:"error"`

	// StartedAt - время начала прогона.
	StartedAt *time.Time `db:"started_at"`

	// FinishedAt - время завершения прогона.
	FinishedAt *time.Time `db:"finished_at"`
}
