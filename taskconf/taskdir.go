package taskconf

import (
	"fmt"
	"os"
	"path/filepath"
)

type TaskDir struct {
	Path        string // absolute path to the task
	ProblemToml []byte // problem.toml
}

func NewTaskDir(path string) (TaskDir, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return TaskDir{}, fmt.Errorf("failed to resolve task path: %w", err)
	}
	content, err := os.ReadFile(filepath.Join(abs, "problem.toml"))
	if err != nil {
		return TaskDir{}, fmt.Errorf("failed to read problem.toml: %w", err)
	}
	return TaskDir{Path: abs, ProblemToml: content}, nil
}

// ReadTaskScoring reads the scoring configuration of the task directory
// at path.
func ReadTaskScoring(path string) (TaskScoring, error) {
	dir, err := NewTaskDir(path)
	if err != nil {
		return TaskScoring{}, err
	}
	return ParseTaskScoring(dir.ProblemToml)
}
