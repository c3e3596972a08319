package tracker

import (
	"context"
	"sync"
)

// taskHandle is one cancellable background task. Stop is idempotent and waits
// for the task goroutine to exit.
type taskHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func startTask(run func(ctx context.Context)) *taskHandle {
	ctx, cancel := context.WithCancel(context.Background())
	h := &taskHandle{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		run(ctx)
	}()
	return h
}

func (h *taskHandle) Stop() {
	h.once.Do(func() {
		h.cancel()
		<-h.done
	})
}
