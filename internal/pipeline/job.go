// Package pipeline реализует конвейер генерации: одиночный прогон
// от забора элемента очереди до публикации в каталог.
package pipeline

import (
	"sync"
	"time"

	"github.com/artemshloyda/wallgen/internal/deriv"
	"github.com/artemshloyda/wallgen/internal/queue"
	"github.com/artemshloyda/wallgen/internal/store"
)

// Job представляет текущий прогон конвейера.
// Одновременно существует не более одного прогона.
type Job struct {
	// Item - забранный элемент очереди.
	Item *queue.WorkItem

	// RunID - идентификатор прогона в журнале.
	RunID int64

	// State - текущее состояние прогона.
	State store.RunState

	// ThumbnailURL - публичный URL миниатюры после загрузки.
	ThumbnailURL string

	// UpscalePath - локальный путь к каноническому увеличенному изображению.
	UpscalePath string

	// Derivatives - загруженные варианты разрешений.
	Derivatives []deriv.Derivative

	// StartedAt - момент забора элемента.
	StartedAt time.Time
}

// register хранит текущий прогон.
// Конвейер однопоточный, но к регистру обращаются и внешние читатели
// (диагностика), поэтому доступ защищён мьютексом.
type register struct {
	mu  sync.Mutex
	job *Job
}

// begin регистрирует новый прогон. Возвращает false, если прогон
// уже идёт: второй элемент очереди забирать нельзя.
func (r *register) begin(job *Job) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.job != nil {
		return false
	}
	r.job = job
	return true
}

// current возвращает текущий прогон (nil, если конвейер свободен).
func (r *register) current() *Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.job
}

// clear освобождает конвейер.
func (r *register) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.job = nil
}
