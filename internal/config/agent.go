package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AgentConfig is the declarative agent definition loaded from agent.yaml:
// identity, behavior prompt, the tools the agent may use, and the loop limits.
type AgentConfig struct {
	Name         string   `yaml:"name"`
	SystemPrompt string   `yaml:"system_prompt"`
	Tools        []string `yaml:"tools"`
	MaxTurns     int      `yaml:"max_turns"`
	CarryHistory bool     `yaml:"carry_history"`
}

func LoadAgentConfig(path string) (*AgentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agent config: %w", err)
	}

	c := &AgentConfig{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse agent config: %w", err)
	}

	if c.Name == "" {
		return nil, fmt.Errorf("agent config %s: name must not be empty", path)
	}
	if c.SystemPrompt == "" {
		return nil, fmt.Errorf("agent config %s: system_prompt must not be empty", path)
	}
	if len(c.Tools) == 0 {
		return nil, fmt.Errorf("agent config %s: tools must not be empty", path)
	}
	if c.MaxTurns == 0 {
		c.MaxTurns = 5
	}
	if c.MaxTurns < 0 {
		return nil, fmt.Errorf("agent config %s: max_turns must be positive", path)
	}

	return c, nil
}
