package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sandevgo/aizen/internal/config"
	"github.com/sandevgo/aizen/internal/core"
	"github.com/sandevgo/aizen/internal/service/agent"
	"github.com/sandevgo/aizen/internal/session"
	"github.com/sandevgo/aizen/pkg/log"
)

const DefaultErrorCooldown = 60 * time.Second

// TaskRunner drives one prepared session to completion.
type TaskRunner interface {
	Run(ctx context.Context, sess *session.Session) (agent.Result, error)
}

// Scheduler cycles through the configured tasks forever, running each through
// the reasoning loop and sleeping the task's frequency between runs. Nothing a
// task does can stop the cycle: engine failures, panics and persistence errors
// are logged, recorded, and followed by a cool-down before the next task.
type Scheduler struct {
	agentCfg    *config.AgentConfig
	tasks       []core.Task
	loop        TaskRunner
	transcripts core.TranscriptRepository
	runs        core.RunRepository
	cooldown    time.Duration
	historySize int
	done        chan struct{}
}

type Option func(*Scheduler)

func WithTranscripts(repo core.TranscriptRepository) Option {
	return func(s *Scheduler) {
		s.transcripts = repo
	}
}

func WithRunLog(repo core.RunRepository) Option {
	return func(s *Scheduler) {
		s.runs = repo
	}
}

func WithErrorCooldown(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.cooldown = d
		}
	}
}

func WithHistoryWindow(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.historySize = n
		}
	}
}

func New(agentCfg *config.AgentConfig, tasks []core.Task, loop TaskRunner, opts ...Option) *Scheduler {
	s := &Scheduler{
		agentCfg:    agentCfg,
		tasks:       tasks,
		loop:        loop,
		cooldown:    DefaultErrorCooldown,
		historySize: 50,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Start(ctx context.Context) error {
	defer close(s.done)

	logger := log.FromCtx(ctx)
	logger.Info().Int("tasks", len(s.tasks)).Str("agent", s.agentCfg.Name).Msg("Scheduler started")

	for {
		for i, task := range s.tasks {
			if ctx.Err() != nil {
				logger.Info().Msg("Scheduler stopping")
				return nil
			}

			delay := task.Frequency
			if err := s.executeTask(ctx, i, task); err != nil {
				if ctx.Err() != nil {
					logger.Info().Msg("Scheduler stopping")
					return nil
				}
				logger.Error().Err(err).Int("task", i).Msg("Task run failed, cooling down")
				delay = s.cooldown
			}

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				logger.Info().Msg("Scheduler stopping")
				return nil
			}
		}
	}
}

func (s *Scheduler) Shutdown(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-time.After(10 * time.Second):
		return fmt.Errorf("scheduler did not stop in time")
	}
}

// executeTask runs one task through the loop and records the outcome. A panic
// inside a capability or the loop itself is contained here so the scheduler
// cycle survives it.
func (s *Scheduler) executeTask(ctx context.Context, index int, task core.Task) (err error) {
	logger := log.FromCtx(ctx)

	runID := uuid.NewString()
	sessionID := runID
	if s.agentCfg.CarryHistory {
		// stable id so follow-up runs find the transcript
		sessionID = fmt.Sprintf("%s-task-%d", s.agentCfg.Name, index)
	}

	startedAt := time.Now()
	var result agent.Result

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
		s.recordRun(ctx, core.TaskRun{
			ID:         runID,
			TaskPrompt: task.Prompt,
			SessionID:  sessionID,
			Turns:      result.Turns,
			Outcome:    outcomeOf(result, err),
			Error:      errString(err),
			StartedAt:  startedAt,
			FinishedAt: time.Now(),
		})
	}()

	sess, err := s.prepareSession(ctx, sessionID, task.Prompt)
	if err != nil {
		return err
	}

	logger.Info().Str("run_id", runID).Str("session_id", sessionID).Msg("Running task")

	result, err = s.loop.Run(ctx, sess)
	if err != nil {
		return err
	}

	logger.Info().
		Str("run_id", runID).
		Int("turns", result.Turns).
		Str("outcome", result.Outcome()).
		Msg("Task run finished")
	return nil
}

// prepareSession builds the conversation for a run. With carry_history the
// persisted transcript continues and only the task prompt is appended; without
// it every run starts from a clean system + task pair.
func (s *Scheduler) prepareSession(ctx context.Context, sessionID, prompt string) (*session.Session, error) {
	var opts []session.Option
	if s.transcripts != nil {
		opts = append(opts, session.WithTranscriptStore(s.transcripts))
	}
	sess := session.New(sessionID, opts...)

	if s.agentCfg.CarryHistory {
		n, err := sess.Restore(ctx, s.historySize)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			// the window may have cut off the original system message
			sess.SeedSystem(s.agentCfg.SystemPrompt)
			if err := sess.Append(ctx, core.Message{Role: core.RoleUser, Content: prompt}); err != nil {
				return nil, err
			}
			return sess, nil
		}
	}

	if err := sess.Reset(ctx, s.agentCfg.SystemPrompt, prompt); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Scheduler) recordRun(ctx context.Context, run core.TaskRun) {
	if s.runs == nil {
		return
	}
	if err := s.runs.RecordRun(ctx, run); err != nil {
		log.FromCtx(ctx).Error().Err(err).Str("run_id", run.ID).Msg("Failed to record task run")
	}
}

func outcomeOf(result agent.Result, err error) string {
	switch {
	case err == nil:
		return result.Outcome()
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return core.OutcomeAborted
	default:
		return core.OutcomeEngineError
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
