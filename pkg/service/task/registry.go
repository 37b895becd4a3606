package task

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/studypal/pkg/domain/model"
	"github.com/secmon-lab/studypal/pkg/domain/types"
	"github.com/secmon-lab/studypal/pkg/utils/logging"
	"github.com/secmon-lab/studypal/pkg/utils/metrics"
	"golang.org/x/sync/semaphore"
)

// Func is the work executed by a task. The returned value becomes the task result.
type Func func(ctx context.Context) (any, error)

// DefaultPoolSize returns min(4, number of CPUs), never less than 1
func DefaultPoolSize() int {
	return max(1, min(4, runtime.NumCPU()))
}

// Registry runs submitted functions on a bounded pool and keeps their status by ID.
// Submit never blocks; waiting tasks stay pending until a slot is free.
type Registry struct {
	mu       sync.RWMutex
	tasks    map[model.TaskID]*model.Task
	sem      *semaphore.Weighted
	poolSize int
	wg       sync.WaitGroup
	metrics  *metrics.Collector
	now      func() time.Time
}

type Option func(*Registry)

func WithPoolSize(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.poolSize = n
		}
	}
}

func WithMetrics(m *metrics.Collector) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithClock replaces time.Now, used by tests
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

func New(opts ...Option) *Registry {
	r := &Registry{
		tasks:    make(map[model.TaskID]*model.Task),
		poolSize: DefaultPoolSize(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.sem = semaphore.NewWeighted(int64(r.poolSize))
	return r
}

// PoolSize returns the number of tasks that may run at once
func (r *Registry) PoolSize() int {
	return r.poolSize
}

// Submit registers fn as a pending task and returns its ID immediately.
// The task runs detached from ctx cancellation but keeps its logger.
func (r *Registry) Submit(ctx context.Context, name string, fn Func) model.TaskID {
	id := model.NewTaskID()
	r.mu.Lock()
	r.tasks[id] = &model.Task{
		ID:        id,
		Name:      name,
		Status:    types.TaskStatusPending,
		CreatedAt: r.now(),
	}
	r.mu.Unlock()

	bgCtx := logging.With(context.Background(), logging.From(ctx).With("task_id", id, "task", name))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		// Acquire only fails on context cancellation; bgCtx is never cancelled
		_ = r.sem.Acquire(bgCtx, 1)
		defer r.sem.Release(1)

		r.run(bgCtx, id, fn)
	}()

	return id
}

func (r *Registry) run(ctx context.Context, id model.TaskID, fn Func) {
	r.transition(id, types.TaskStatusRunning, nil, "")
	r.metrics.TaskStarted()

	result, err := invoke(ctx, fn)
	if err != nil {
		logging.From(ctx).Error("Task failed", "error", err.Error())
		r.transition(id, types.TaskStatusFailed, nil, err.Error())
		r.metrics.TaskFinished(types.TaskStatusFailed.String())
		return
	}

	logging.From(ctx).Info("Task completed")
	r.transition(id, types.TaskStatusDone, result, "")
	r.metrics.TaskFinished(types.TaskStatusDone.String())
}

func invoke(ctx context.Context, fn Func) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = goerr.New(fmt.Sprintf("panic: %v", rec))
		}
	}()
	return fn(ctx)
}

func (r *Registry) transition(id model.TaskID, next types.TaskStatus, result any, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok || !t.Status.CanTransitionTo(next) {
		return
	}

	t.Status = next
	switch next {
	case types.TaskStatusRunning:
		t.StartedAt = r.now()
	case types.TaskStatusDone, types.TaskStatusFailed:
		t.Result = result
		t.Error = errMsg
		t.FinishedAt = r.now()
	}
}

// Status returns a snapshot of the task. Unknown IDs yield a task with status not_found.
func (r *Registry) Status(id model.TaskID) *model.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return &model.Task{ID: id, Status: types.TaskStatusNotFound}
	}
	return t.Copy()
}

// List returns snapshots of every known task
func (r *Registry) List() map[model.TaskID]*model.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[model.TaskID]*model.Task, len(r.tasks))
	for id, t := range r.tasks {
		result[id] = t.Copy()
	}
	return result
}

// Evict removes finished tasks that finished more than olderThan ago and
// returns how many were removed. Pending and running tasks are kept.
func (r *Registry) Evict(olderThan time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-olderThan)
	evicted := 0
	for id, t := range r.tasks {
		if t.Status.IsFinished() && t.FinishedAt.Before(cutoff) {
			delete(r.tasks, id)
			evicted++
		}
	}
	return evicted
}

// Shutdown waits for submitted tasks to finish or for ctx to be done
func (r *Registry) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "tasks did not finish before shutdown deadline")
	}
}
