package worker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/studypal/pkg/service/worker"
)

type mockEvicter struct {
	mu        sync.Mutex
	calls     int
	retention time.Duration
}

func (m *mockEvicter) Evict(olderThan time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.retention = olderThan
	return 1
}

func (m *mockEvicter) snapshot() (int, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls, m.retention
}

func TestTaskSweeper(t *testing.T) {
	t.Run("evicts periodically with configured retention", func(t *testing.T) {
		ev := &mockEvicter{}
		w := worker.NewTaskSweeper(ev, 10*time.Millisecond, time.Hour)
		gt.NoError(t, w.Start(context.Background()))

		time.Sleep(80 * time.Millisecond)
		w.Stop()

		calls, retention := ev.snapshot()
		gt.Number(t, calls).GreaterOrEqual(2)
		gt.Value(t, retention).Equal(time.Hour)
	})

	t.Run("stops after stop is called", func(t *testing.T) {
		ev := &mockEvicter{}
		w := worker.NewTaskSweeper(ev, 10*time.Millisecond, time.Minute)
		gt.NoError(t, w.Start(context.Background()))
		time.Sleep(30 * time.Millisecond)
		w.Stop()

		before, _ := ev.snapshot()
		time.Sleep(50 * time.Millisecond)
		after, _ := ev.snapshot()
		gt.Value(t, after).Equal(before)
	})

	t.Run("exits on context cancellation", func(t *testing.T) {
		ev := &mockEvicter{}
		w := worker.NewTaskSweeper(ev, time.Hour, time.Minute)
		ctx, cancel := context.WithCancel(context.Background())
		gt.NoError(t, w.Start(ctx))
		cancel()

		done := make(chan struct{})
		go func() {
			w.Stop()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("sweeper did not stop after context cancellation")
		}
	})
}
