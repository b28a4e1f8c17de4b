package a

import (
	"context"
	"time"
)

func wait() {
	time.Sleep(time.Second) // want "вызов time.Sleep запрещён"
}

func deferred() {
	defer time.Sleep(time.Millisecond) // want "вызов time.Sleep запрещён"
}

func timer(ctx context.Context) {
	t := time.NewTimer(time.Second)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
