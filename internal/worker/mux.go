package worker

import (
	"context"
	"time"

	"ingester/internal/logger"

	"github.com/hibiken/asynq"
)

type Mux struct {
	mux *asynq.ServeMux
	log *logger.Logger
}

func NewMux() *Mux {
	m := &Mux{mux: asynq.NewServeMux(), log: logger.New("Worker")}
	m.mux.Use(m.logTask)
	return m
}

func (m *Mux) HandleFunc(t string, h func(ctx context.Context, task *asynq.Task) error) {
	m.mux.HandleFunc(t, h)
}

func (m *Mux) Mux() *asynq.ServeMux { return m.mux }

func (m *Mux) logTask(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
		start := time.Now()
		err := next.ProcessTask(ctx, task)
		if err != nil {
			m.log.LogErrorf("task %s failed after %s: %v", task.Type(), time.Since(start), err)
			return err
		}
		m.log.LogDebugf("task %s done in %s", task.Type(), time.Since(start))
		return nil
	})
}
