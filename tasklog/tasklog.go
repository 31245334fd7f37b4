// Package tasklog manages the per-task logger lifecycle.
//
// The orchestration engine runs each task with an identifier in the
// environment. The logger is built once per task invocation and injected
// into every handler at construction rather than re-derived ad hoc;
// discarding it at task end is the only teardown needed.
package tasklog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// TaskIDEnv is the environment variable carrying the task identifier.
const TaskIDEnv = "TRANSFER_TASK_ID"

// New returns a logger tagged with the given task identifier. An empty
// identifier yields a logger without the task_id field.
func New(taskID string) zerolog.Logger {
	return NewWithWriter(taskID, os.Stderr)
}

// NewWithWriter is New with an explicit output, for tests.
func NewWithWriter(taskID string, w io.Writer) zerolog.Logger {
	ctx := zerolog.New(w).With().Timestamp()
	if taskID != "" {
		ctx = ctx.Str("task_id", taskID)
	}
	return ctx.Logger()
}

// FromEnv builds the task logger from TaskIDEnv.
func FromEnv() zerolog.Logger {
	return New(os.Getenv(TaskIDEnv))
}

// Nop returns a disabled logger for components that run outside a task.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
