package models

import "fmt"

// TaskState names a task lifecycle state as exposed to clients.
type TaskState string

const (
	TaskStatePending TaskState = "PENDING"
	TaskStateRunning TaskState = "RUNNING"
	TaskStateSuccess TaskState = "SUCCESS"
	TaskStateFailure TaskState = "FAILURE"
)

// TaskStatus is a closed set of task states. The unexported method keeps
// other packages from adding variants, so a type switch over Pending,
// Running, Success and Failure is exhaustive.
type TaskStatus interface {
	State() TaskState
	taskStatus()
}

// Pending: queued, or no record of the task exists.
type Pending struct{}

// Running: a worker has picked the task up.
type Running struct{}

// Success: the redaction result is persisted.
type Success struct{}

// Failure: the task gave up; Detail holds the last error.
type Failure struct {
	Detail string
}

func (Pending) State() TaskState { return TaskStatePending }
func (Running) State() TaskState { return TaskStateRunning }
func (Success) State() TaskState { return TaskStateSuccess }
func (Failure) State() TaskState { return TaskStateFailure }

func (Pending) taskStatus() {}
func (Running) taskStatus() {}
func (Success) taskStatus() {}
func (Failure) taskStatus() {}

// ParseTaskStatus rebuilds a status from its stored state and detail.
func ParseTaskStatus(state, detail string) (TaskStatus, error) {
	switch TaskState(state) {
	case TaskStatePending:
		return Pending{}, nil
	case TaskStateRunning:
		return Running{}, nil
	case TaskStateSuccess:
		return Success{}, nil
	case TaskStateFailure:
		return Failure{Detail: detail}, nil
	default:
		return nil, fmt.Errorf("unknown task state %q", state)
	}
}

// DetailOf returns the failure detail, or "" for non-failure states.
func DetailOf(s TaskStatus) string {
	if f, ok := s.(Failure); ok {
		return f.Detail
	}
	return ""
}
