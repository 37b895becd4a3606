package worker

import (
	"context"
	"time"

	"github.com/secmon-lab/studypal/pkg/utils/logging"
)

// Evicter drops finished tasks older than the given retention and reports how many were removed
type Evicter interface {
	Evict(olderThan time.Duration) int
}

// TaskSweeper periodically removes finished background tasks from the registry
//
// Architecture assumptions:
// - Single server instance; the registry lives in process memory
type TaskSweeper struct {
	evicter   Evicter
	interval  time.Duration
	retention time.Duration
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewTaskSweeper creates a sweeper that runs every interval and evicts tasks finished more than retention ago
func NewTaskSweeper(evicter Evicter, interval, retention time.Duration) *TaskSweeper {
	return &TaskSweeper{
		evicter:   evicter,
		interval:  interval,
		retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the sweep loop in a background goroutine
func (w *TaskSweeper) Start(ctx context.Context) error {
	logging.Default().Info("Task sweeper starting",
		"interval", w.interval.String(),
		"retention", w.retention.String())

	go w.run(ctx)

	return nil
}

// Stop signals the sweeper to stop and waits for completion
func (w *TaskSweeper) Stop() {
	logging.Default().Info("Task sweeper stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Task sweeper stopped")
}

func (w *TaskSweeper) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep()

		case <-w.stopCh:
			logging.Default().Info("Task sweeper received stop signal")
			return

		case <-ctx.Done():
			logging.Default().Info("Task sweeper context cancelled")
			return
		}
	}
}

func (w *TaskSweeper) sweep() {
	if n := w.evicter.Evict(w.retention); n > 0 {
		logging.Default().Info("Evicted finished tasks", "count", n)
	}
}
