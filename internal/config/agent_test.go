package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAgentConfig(t *testing.T) {
	path := writeFile(t, "agent.yaml", `
name: aizen
system_prompt: |
  You are a crypto market analyst.
tools:
  - blockworks.get_latest_news
  - defillama.get_chain_tvl
  - telegram.post_update
max_turns: 8
carry_history: true
`)

	cfg, err := LoadAgentConfig(path)
	if err != nil {
		t.Fatalf("LoadAgentConfig failed: %v", err)
	}
	if cfg.Name != "aizen" {
		t.Errorf("name = %q", cfg.Name)
	}
	if !strings.Contains(cfg.SystemPrompt, "market analyst") {
		t.Errorf("system_prompt = %q", cfg.SystemPrompt)
	}
	if len(cfg.Tools) != 3 || cfg.Tools[1] != "defillama.get_chain_tvl" {
		t.Errorf("tools = %v", cfg.Tools)
	}
	if cfg.MaxTurns != 8 {
		t.Errorf("max_turns = %d", cfg.MaxTurns)
	}
	if !cfg.CarryHistory {
		t.Error("carry_history should be true")
	}
}

func TestLoadAgentConfig_Defaults(t *testing.T) {
	path := writeFile(t, "agent.yaml", `
name: aizen
system_prompt: analyst
tools: [web.fetch_page]
`)

	cfg, err := LoadAgentConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxTurns != 5 {
		t.Errorf("default max_turns = %d, want 5", cfg.MaxTurns)
	}
	if cfg.CarryHistory {
		t.Error("carry_history must default to false")
	}
}

func TestLoadAgentConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing name", "system_prompt: x\ntools: [a]"},
		{"missing prompt", "name: x\ntools: [a]"},
		{"no tools", "name: x\nsystem_prompt: y"},
		{"negative max_turns", "name: x\nsystem_prompt: y\ntools: [a]\nmax_turns: -1"},
		{"not yaml", "{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "agent.yaml", tt.yaml)
			if _, err := LoadAgentConfig(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadTasks(t *testing.T) {
	path := writeFile(t, "tasks.yaml", `
tasks:
  - prompt: Summarize the latest crypto headlines and post to the channel.
    frequency: 30m
  - prompt: Report ethereum chain TVL.
    frequency: 4h
`)

	tasks, err := LoadTasks(path)
	if err != nil {
		t.Fatalf("LoadTasks failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("len = %d, want 2", len(tasks))
	}
	if tasks[0].Frequency != 30*time.Minute {
		t.Errorf("frequency = %s, want 30m", tasks[0].Frequency)
	}
	if tasks[1].Frequency != 4*time.Hour {
		t.Errorf("frequency = %s, want 4h", tasks[1].Frequency)
	}
}

func TestLoadTasks_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty list", "tasks: []"},
		{"empty prompt", "tasks:\n  - prompt: \"\"\n    frequency: 1h"},
		{"bad frequency", "tasks:\n  - prompt: x\n    frequency: often"},
		{"zero frequency", "tasks:\n  - prompt: x\n    frequency: 0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "tasks.yaml", tt.yaml)
			if _, err := LoadTasks(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
