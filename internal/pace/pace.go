// Package pace держит выдержку перед отправкой формы шлюза.
// Шортенер отклоняет форму, отправленную раньше минимального времени на странице.
package pace

import (
	"context"
	"time"
)

// Waiter ждёт заданную паузу или отмену контекста.
type Waiter interface {
	Wait(ctx context.Context) error
}

// Delay пауза фиксированной длины. Нулевое значение не ждёт вовсе.
type Delay time.Duration

// Wait блокируется на d или до отмены ctx.
func (d Delay) Wait(ctx context.Context) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(time.Duration(d))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Sleep ждёт произвольную длительность с учётом контекста.
func Sleep(ctx context.Context, d time.Duration) error {
	return Delay(d).Wait(ctx)
}
