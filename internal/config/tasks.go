package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sandevgo/aizen/internal/core"
)

type taskEntry struct {
	Prompt    string `yaml:"prompt"`
	Frequency string `yaml:"frequency"`
}

type taskFile struct {
	Tasks []taskEntry `yaml:"tasks"`
}

// LoadTasks reads the recurring task list from tasks.yaml. Frequencies use
// Go duration syntax ("30m", "1h").
func LoadTasks(path string) ([]core.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tasks: %w", err)
	}

	f := &taskFile{}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parse tasks: %w", err)
	}
	if len(f.Tasks) == 0 {
		return nil, fmt.Errorf("tasks %s: at least one task is required", path)
	}

	tasks := make([]core.Task, 0, len(f.Tasks))
	for i, entry := range f.Tasks {
		if entry.Prompt == "" {
			return nil, fmt.Errorf("tasks %s: task %d has an empty prompt", path, i)
		}
		freq, err := time.ParseDuration(entry.Frequency)
		if err != nil {
			return nil, fmt.Errorf("tasks %s: task %d frequency: %w", path, i, err)
		}
		if freq <= 0 {
			return nil, fmt.Errorf("tasks %s: task %d frequency must be positive", path, i)
		}
		tasks = append(tasks, core.Task{Prompt: entry.Prompt, Frequency: freq})
	}
	return tasks, nil
}
