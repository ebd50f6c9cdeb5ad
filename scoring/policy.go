package scoring

import "slices"

// Policy reduces the outcomes of one subtask to a score fraction in
// [0,1] and labels individual outcomes.
type Policy interface {
	Name() string
	Reduce(outcomes []float64, p SubtaskParam) float64
	Classify(outcome float64, p SubtaskParam) string
}

const (
	PolicySharedGroupThreshold = "SharedGroupThreshold"
	PolicyGroupMin             = "GroupMin"
	PolicyGroupMul             = "GroupMul"
	PolicyGroupAvg             = "GroupAvg"
)

// PolicyByName returns the policy configured for a task. An empty name
// selects SharedGroupThreshold.
func PolicyByName(name string) (Policy, error) {
	switch name {
	case "", PolicySharedGroupThreshold:
		return SharedGroupThreshold{}, nil
	case PolicyGroupMin:
		return GroupMin{}, nil
	case PolicyGroupMul:
		return GroupMul{}, nil
	case PolicyGroupAvg:
		return GroupAvg{}, nil
	}
	return nil, &UnknownPolicyError{Name: name}
}

// PolicyNames lists every name accepted by PolicyByName.
func PolicyNames() []string {
	return []string{
		PolicySharedGroupThreshold,
		PolicyGroupMin,
		PolicyGroupMul,
		PolicyGroupAvg,
	}
}

// SharedGroupThreshold lets test cases be shared between subtasks. A
// subtask scores the minimum of its outcomes if none of them is below
// the threshold, and zero otherwise.
type SharedGroupThreshold struct{}

func (SharedGroupThreshold) Name() string { return PolicySharedGroupThreshold }

func (SharedGroupThreshold) Reduce(outcomes []float64, p SubtaskParam) float64 {
	return ReduceThreshold(outcomes, p.Threshold)
}

func (SharedGroupThreshold) Classify(outcome float64, p SubtaskParam) string {
	return Classify(outcome, p.Threshold)
}

// ReduceThreshold is the weakest-link reduction: min(outcomes) when all
// outcomes reach the threshold (inclusive), 0 otherwise.
func ReduceThreshold(outcomes []float64, threshold float64) float64 {
	if len(outcomes) == 0 {
		return 0.0
	}
	for _, o := range outcomes {
		if o < threshold {
			return 0.0
		}
	}
	return slices.Min(outcomes)
}

// Classify labels a single outcome. Zero is always "Not correct", even
// with a zero threshold.
func Classify(outcome float64, threshold float64) string {
	if outcome == 0 || outcome < threshold {
		return LabelNotCorrect
	} else if outcome >= 1.0 {
		return LabelCorrect
	}
	return LabelPartiallyCorrect
}

// ClassifyFraction labels a reduced subtask fraction.
func ClassifyFraction(fraction float64) string {
	if fraction <= 0 {
		return LabelNotCorrect
	} else if fraction >= 1.0 {
		return LabelCorrect
	}
	return LabelPartiallyCorrect
}

// GroupMin scores a subtask with its weakest outcome.
type GroupMin struct{}

func (GroupMin) Name() string { return PolicyGroupMin }

func (GroupMin) Reduce(outcomes []float64, _ SubtaskParam) float64 {
	if len(outcomes) == 0 {
		return 0.0
	}
	return slices.Min(outcomes)
}

func (GroupMin) Classify(outcome float64, _ SubtaskParam) string {
	return ClassifyFraction(outcome)
}

// GroupMul scores a subtask with the product of its outcomes.
type GroupMul struct{}

func (GroupMul) Name() string { return PolicyGroupMul }

func (GroupMul) Reduce(outcomes []float64, _ SubtaskParam) float64 {
	if len(outcomes) == 0 {
		return 0.0
	}
	res := 1.0
	for _, o := range outcomes {
		res *= o
	}
	return res
}

func (GroupMul) Classify(outcome float64, _ SubtaskParam) string {
	return ClassifyFraction(outcome)
}

// GroupAvg awards the sum of outcomes divided by the number of test
// cases, i.e. partial credit per test case.
type GroupAvg struct{}

func (GroupAvg) Name() string { return PolicyGroupAvg }

func (GroupAvg) Reduce(outcomes []float64, _ SubtaskParam) float64 {
	if len(outcomes) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, o := range outcomes {
		sum += o
	}
	return sum / float64(len(outcomes))
}

func (GroupAvg) Classify(outcome float64, _ SubtaskParam) string {
	return ClassifyFraction(outcome)
}
