package scoring

import "fmt"

// MissingEvaluationError means the task configuration references a test
// case that the grading pipeline did not report. It is an operator
// problem, never shown to contestants.
type MissingEvaluationError struct {
	Subtask  int
	Codename string
}

func (e *MissingEvaluationError) Error() string {
	return fmt.Sprintf("subtask %d: no evaluation for test case %q", e.Subtask, e.Codename)
}

// UnknownPolicyError is returned by PolicyByName.
type UnknownPolicyError struct {
	Name string
}

func (e *UnknownPolicyError) Error() string {
	return fmt.Sprintf("unknown score type %q", e.Name)
}
