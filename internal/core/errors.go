package core

import (
	"errors"
	"fmt"
)

var (
	// ErrToolNotFound means the requested name is absent from the registry.
	ErrToolNotFound = errors.New("tool not found")

	// ErrDuplicateTool means a registration collided with an existing name.
	ErrDuplicateTool = errors.New("duplicate tool")
)

// EngineError wraps a reasoning-engine call failure. It aborts the current
// task execution only; the scheduler logs it and moves on to the next cycle.
type EngineError struct {
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("reasoning engine: %v", e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}
