// Package pipeline реализует конвейер генерации.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/artemshloyda/wallgen/internal/inbox"
	"github.com/artemshloyda/wallgen/internal/store"
)

// Run запускает цикл конвейера: периодический опрос очереди плюс
// обработка событий доставки. Все шаги выполняются в одной горутине,
// поэтому состояние прогона не требует дополнительной синхронизации.
// Возвращает ошибку контекста при остановке.
func (o *Orchestrator) Run(ctx context.Context, events <-chan inbox.Event) error {
	interval := o.pollInterval
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Первый опрос сразу, не дожидаясь тика.
	o.step(ctx, func() { o.Poll(ctx) })

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			o.step(ctx, func() { o.Poll(ctx) })

		case <-o.pollNow:
			o.step(ctx, func() { o.Poll(ctx) })

		case evt, ok := <-events:
			if !ok {
				return nil
			}
			o.step(ctx, func() { o.HandleDelivery(ctx, evt) })
		}
	}
}

// step выполняет один шаг цикла, перехватывая паники: сбой одного
// прогона не должен останавливать конвейер целиком.
func (o *Orchestrator) step(ctx context.Context, fn func()) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		o.logf("[QUEUE] паника в шаге конвейера: %v", r)

		if job := o.reg.current(); job != nil {
			o.fail(ctx, job, job.State, fmt.Errorf("внутренняя ошибка: %v", r))
		}
	}()

	fn()
}

// Snapshot возвращает краткое описание текущего прогона для диагностики.
func (o *Orchestrator) Snapshot() string {
	job := o.reg.current()
	if job == nil {
		return "свободен"
	}

	state := job.State
	if state == "" {
		state = store.StateClaimed
	}

	return fmt.Sprintf("прогон %d: элемент %s, состояние %s, запущен %s назад",
		job.RunID, job.Item.ID, state, time.Since(job.StartedAt).Round(time.Second))
}
