package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/studypal/pkg/domain/types"
)

// TaskID is a UUID-based identifier for a background task
type TaskID string

// NewTaskID generates a new UUID v4 TaskID
func NewTaskID() TaskID {
	return TaskID(uuid.New().String())
}

func (id TaskID) String() string {
	return string(id)
}

// Task is a snapshot of a background task
type Task struct {
	ID         TaskID
	Name       string
	Status     types.TaskStatus
	Result     any
	Error      string
	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time
}

// Copy returns a shallow copy of the task. Result is shared.
func (t *Task) Copy() *Task {
	copied := *t
	return &copied
}
