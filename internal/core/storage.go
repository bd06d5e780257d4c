package core

import (
	"context"
	"time"
)

type TranscriptRepository interface {
	AddMessage(ctx context.Context, sessionID string, msg Message) error
	GetMessages(ctx context.Context, sessionID string, limit int) ([]Message, error)
}

type RunRepository interface {
	RecordRun(ctx context.Context, run TaskRun) error
}

const (
	OutcomeDone            = "done"
	OutcomeBudgetExhausted = "budget_exhausted"
	OutcomeEngineError     = "engine_error"
	OutcomeAborted         = "aborted"
)

// TaskRun is the persisted record of one scheduled task execution.
type TaskRun struct {
	ID         string
	TaskPrompt string
	SessionID  string
	Turns      int
	Outcome    string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}
