package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/sandevgo/aizen/internal/core"
)

// Session accumulates the conversation history of a single task run. The
// reasoning loop is the only writer; Snapshot hands out copies so the engine
// payload cannot alias the live history.
type Session struct {
	mu       sync.Mutex
	id       string
	messages []core.Message
	turns    int
	store    core.TranscriptRepository
}

type Option func(*Session)

// WithTranscriptStore persists every appended message, letting a follow-up
// run rebuild the conversation after a restart.
func WithTranscriptStore(repo core.TranscriptRepository) Option {
	return func(s *Session) {
		s.store = repo
	}
}

func New(id string, opts ...Option) *Session {
	s := &Session{id: id}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) ID() string {
	return s.id
}

// Reset discards any accumulated history and seeds the session with the
// system prompt and the task prompt.
func (s *Session) Reset(ctx context.Context, systemPrompt, taskPrompt string) error {
	s.mu.Lock()
	s.messages = s.messages[:0]
	s.turns = 0
	s.mu.Unlock()

	if err := s.Append(ctx, core.Message{Role: core.RoleSystem, Content: systemPrompt}); err != nil {
		return err
	}
	return s.Append(ctx, core.Message{Role: core.RoleUser, Content: taskPrompt})
}

// Restore loads the most recent persisted messages into the session. The
// window cut can split an assistant tool-call request from its tool replies;
// those fragments are trimmed so every restored reply stays paired with its
// request. It returns the number of messages recovered; zero means the caller
// should seed the session with Reset instead.
func (s *Session) Restore(ctx context.Context, limit int) (int, error) {
	if s.store == nil {
		return 0, nil
	}

	msgs, err := s.store.GetMessages(ctx, s.id, limit)
	if err != nil {
		return 0, fmt.Errorf("restore session %s: %w", s.id, err)
	}
	msgs = trimUnpaired(msgs)

	s.mu.Lock()
	s.messages = msgs
	s.turns = 0
	s.mu.Unlock()

	return len(msgs), nil
}

// trimUnpaired drops tool replies whose requesting assistant message fell
// outside the restore window, then drops a trailing request whose replies were
// never recorded (a run interrupted mid-dispatch). Either fragment makes the
// history unacceptable to a chat-completions engine.
func trimUnpaired(msgs []core.Message) []core.Message {
	requested := make(map[string]bool)
	kept := make([]core.Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Role == core.RoleTool && !requested[msg.ToolCallID] {
			continue
		}
		for _, tc := range msg.ToolCalls {
			requested[tc.ID] = true
		}
		kept = append(kept, msg)
	}

	for len(kept) > 0 {
		last := -1
		for i := len(kept) - 1; i >= 0; i-- {
			if kept[i].Role == core.RoleAssistant && len(kept[i].ToolCalls) > 0 {
				last = i
				break
			}
		}
		if last < 0 {
			break
		}

		answered := make(map[string]bool)
		for _, msg := range kept[last+1:] {
			if msg.Role == core.RoleTool {
				answered[msg.ToolCallID] = true
			}
		}
		complete := true
		for _, tc := range kept[last].ToolCalls {
			if !answered[tc.ID] {
				complete = false
				break
			}
		}
		if complete {
			break
		}
		kept = kept[:last]
	}
	return kept
}

// SeedSystem prepends the system prompt when the restore window cut it off.
// In-memory only: the persisted transcript already holds the original.
func (s *Session) SeedSystem(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.messages) > 0 && s.messages[0].Role == core.RoleSystem {
		return
	}
	s.messages = append([]core.Message{{Role: core.RoleSystem, Content: prompt}}, s.messages...)
}

func (s *Session) Append(ctx context.Context, msg core.Message) error {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.AddMessage(ctx, s.id, msg); err != nil {
			return fmt.Errorf("persist message: %w", err)
		}
	}
	return nil
}

// Snapshot returns a copy of the history in insertion order.
func (s *Session) Snapshot() []core.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *Session) Turns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turns
}

// IncrementTurn records a completed engine round-trip and returns the new count.
func (s *Session) IncrementTurn() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns++
	return s.turns
}
