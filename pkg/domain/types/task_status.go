package types

// TaskStatus represents the lifecycle state of a background task
type TaskStatus string

const (
	TaskStatusPending  TaskStatus = "pending"
	TaskStatusRunning  TaskStatus = "running"
	TaskStatusDone     TaskStatus = "done"
	TaskStatusFailed   TaskStatus = "failed"
	TaskStatusNotFound TaskStatus = "not_found"
)

// IsFinished reports whether the task reached a terminal state
func (s TaskStatus) IsFinished() bool {
	return s == TaskStatusDone || s == TaskStatusFailed
}

// CanTransitionTo reports whether moving from s to next keeps the lifecycle
// pending -> running -> done|failed. Terminal states never change.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case TaskStatusPending:
		return next == TaskStatusRunning || next == TaskStatusFailed
	case TaskStatusRunning:
		return next == TaskStatusDone || next == TaskStatusFailed
	default:
		return false
	}
}

func (s TaskStatus) String() string {
	return string(s)
}
