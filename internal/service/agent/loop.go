package agent

import (
	"context"
	"fmt"

	"github.com/sandevgo/aizen/internal/core"
	"github.com/sandevgo/aizen/internal/invoker"
	"github.com/sandevgo/aizen/internal/registry"
	"github.com/sandevgo/aizen/internal/session"
	"github.com/sandevgo/aizen/pkg/log"
)

const DefaultMaxTurns = 5

type Result struct {
	FinalContent    string
	Turns           int
	BudgetExhausted bool
}

func (r Result) Outcome() string {
	if r.BudgetExhausted {
		return core.OutcomeBudgetExhausted
	}
	return core.OutcomeDone
}

// Loop drives one task to completion: send the history to the reasoning
// engine, dispatch whatever tool calls come back, feed the results in, and
// repeat until the engine answers without tool calls or the turn budget runs
// out. Engine transport failures abort the run as core.EngineError; tool
// failures never do.
type Loop struct {
	engine    core.ReasoningEngine
	registry  *registry.Registry
	invoker   *invoker.Invoker
	toolNames []string
	maxTurns  int
}

func NewLoop(engine core.ReasoningEngine, reg *registry.Registry, inv *invoker.Invoker, toolNames []string, maxTurns int) *Loop {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Loop{
		engine:    engine,
		registry:  reg,
		invoker:   inv,
		toolNames: toolNames,
		maxTurns:  maxTurns,
	}
}

func (l *Loop) Run(ctx context.Context, sess *session.Session) (Result, error) {
	logger := log.FromCtx(ctx)

	// The descriptor list is static for the life of the process but is
	// resent on every request: chat completions carry no state between calls.
	tools, err := l.registry.DescriptorsFor(l.toolNames)
	if err != nil {
		return Result{}, fmt.Errorf("build tool descriptors: %w", err)
	}

	var finalContent string

	for {
		if err := ctx.Err(); err != nil {
			return Result{Turns: sess.Turns()}, err
		}

		responseMsg, err := l.engine.Chat(ctx, sess.Snapshot(), tools)
		if err != nil {
			return Result{Turns: sess.Turns()}, &core.EngineError{Err: err}
		}

		if err := sess.Append(ctx, responseMsg); err != nil {
			logger.Error().Err(err).Msg("Failed to persist assistant message")
		}

		if responseMsg.Content != "" {
			finalContent = responseMsg.Content
		}

		if len(responseMsg.ToolCalls) == 0 {
			logger.Debug().Int("turns", sess.Turns()).Int("tokens", sess.TokenCount()).Msg("Task completed")
			return Result{FinalContent: finalContent, Turns: sess.Turns()}, nil
		}

		// Results are appended in call order so each tool message pairs
		// with its tool_call_id before the next engine request.
		for _, tc := range responseMsg.ToolCalls {
			if err := ctx.Err(); err != nil {
				return Result{Turns: sess.Turns()}, err
			}

			logger.Info().Str("tool", tc.Function.Name).Msg("Executing tool")
			res := l.invoker.Invoke(ctx, tc.Function.Name, tc.Function.Arguments)

			toolMsg := core.Message{
				Role:       core.RoleTool,
				Content:    res.Serialize(),
				ToolCallID: tc.ID,
			}
			if err := sess.Append(ctx, toolMsg); err != nil {
				logger.Error().Err(err).Msg("Failed to persist tool message")
			}
		}

		if turns := sess.IncrementTurn(); turns >= l.maxTurns {
			logger.Warn().Int("max_turns", l.maxTurns).Msg("Turn budget exhausted, stopping task")
			return Result{FinalContent: finalContent, Turns: turns, BudgetExhausted: true}, nil
		}
	}
}
