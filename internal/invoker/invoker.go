package invoker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/aizen/internal/core"
	"github.com/sandevgo/aizen/internal/registry"
	"github.com/sandevgo/aizen/pkg/log"
)

const (
	DefaultTimeout  = 2 * time.Minute
	DefaultPoolSize = 4
)

// Invoker dispatches tool calls and converts every possible outcome into a
// core.ToolResult envelope. Invoke never returns an error: handler failures,
// panics, timeouts and unknown names all surface to the reasoning engine as
// failure envelopes so a single bad call cannot take down a task run.
type Invoker struct {
	registry *registry.Registry
	timeout  time.Duration
	workers  chan struct{}
}

type Option func(*Invoker)

// WithTimeout caps the wall-clock time of a single tool invocation.
func WithTimeout(d time.Duration) Option {
	return func(i *Invoker) {
		if d > 0 {
			i.timeout = d
		}
	}
}

// WithPoolSize bounds how many blocking tools may run at once.
func WithPoolSize(n int) Option {
	return func(i *Invoker) {
		if n > 0 {
			i.workers = make(chan struct{}, n)
		}
	}
}

func New(reg *registry.Registry, opts ...Option) *Invoker {
	inv := &Invoker{
		registry: reg,
		timeout:  DefaultTimeout,
		workers:  make(chan struct{}, DefaultPoolSize),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Invoke runs the named tool with raw JSON arguments from the engine.
func (i *Invoker) Invoke(ctx context.Context, name string, rawArgs string) core.ToolResult {
	logger := log.FromCtx(ctx).With().Str("tool", name).Logger()

	if err := ctx.Err(); err != nil {
		return failure(err.Error())
	}

	def, err := i.registry.Resolve(name)
	if err != nil {
		logger.Warn().Msg("Requested tool is not registered")
		return failure(fmt.Sprintf("tool not found: %s", name))
	}

	args := json.RawMessage(rawArgs)
	if strings.TrimSpace(rawArgs) == "" {
		args = json.RawMessage("{}")
	}

	if def.Blocking {
		select {
		case i.workers <- struct{}{}:
		case <-ctx.Done():
			return failure(ctx.Err().Error())
		}
	}

	tCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	started := time.Now()
	out, err := i.run(tCtx, def, args)
	elapsed := time.Since(started)

	if err != nil {
		if tCtx.Err() == context.DeadlineExceeded {
			logger.Warn().Dur("elapsed", elapsed).Msg("Tool invocation timed out")
			return failure("timeout")
		}
		logger.Warn().Err(err).Dur("elapsed", elapsed).Msg("Tool invocation failed")
		return failure(err.Error())
	}

	logger.Debug().Dur("elapsed", elapsed).Msg("Tool invocation completed")
	return envelope(out)
}

// run executes the handler in a goroutine so a handler that ignores its
// context cannot stall the dispatch loop past the timeout. The worker slot of
// a blocking tool is released by the handler goroutine itself; an abandoned
// slow tool keeps occupying its slot until it actually returns.
func (i *Invoker) run(ctx context.Context, def core.ToolDefinition, args json.RawMessage) (string, error) {
	type outcome struct {
		out string
		err error
	}
	done := make(chan outcome, 1)
	deadline, hasDeadline := ctx.Deadline()

	go func() {
		defer func() {
			if def.Blocking {
				<-i.workers
				// visible pool starvation: the handler sat on its slot past
				// the point the dispatch loop gave up on it
				if hasDeadline && time.Now().After(deadline) {
					log.FromCtx(ctx).Warn().Str("tool", def.Name).Msg("Blocking tool returned after timeout, worker slot reclaimed late")
				}
			}
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("tool panicked: %v", r)}
			}
		}()
		out, err := def.Handler(ctx, args)
		done <- outcome{out: out, err: err}
	}()

	select {
	case res := <-done:
		return res.out, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// envelope wraps raw handler output. Handlers that already emit a result
// envelope pass through untouched, valid JSON becomes the data payload, and
// anything else is carried as a JSON string.
func envelope(out string) core.ToolResult {
	trimmed := strings.TrimSpace(out)

	if trimmed != "" && json.Valid([]byte(trimmed)) {
		var sniff struct {
			Success *bool `json:"success"`
		}
		if json.Unmarshal([]byte(trimmed), &sniff) == nil && sniff.Success != nil {
			var res core.ToolResult
			if json.Unmarshal([]byte(trimmed), &res) == nil {
				return res
			}
		}
		return core.ToolResult{Success: true, Data: json.RawMessage(trimmed)}
	}

	quoted, _ := json.Marshal(out)
	return core.ToolResult{Success: true, Data: quoted}
}

func failure(msg string) core.ToolResult {
	return core.ToolResult{Success: false, Error: msg}
}
