package scoring

import "slices"

// evalLookup indexes a snapshot by codename. Display indices number all
// codenames of the submission in ascending order, independent of
// subtasks, so both breakdowns agree on them.
type evalLookup struct {
	evals map[string]Evaluation
	idx   map[string]int
}

func newEvalLookup(evals []Evaluation) evalLookup {
	l := evalLookup{
		evals: make(map[string]Evaluation, len(evals)),
		idx:   make(map[string]int, len(evals)),
	}
	codes := make([]string, 0, len(evals))
	for _, ev := range evals {
		if _, dup := l.evals[ev.Codename]; !dup {
			codes = append(codes, ev.Codename)
		}
		l.evals[ev.Codename] = ev
	}
	slices.Sort(codes)
	for i, code := range codes {
		l.idx[code] = i + 1
	}
	return l
}

func (l evalLookup) get(subtaskIdx int, code string) (Evaluation, int, error) {
	ev, ok := l.evals[code]
	if !ok {
		return Evaluation{}, 0, &MissingEvaluationError{Subtask: subtaskIdx, Codename: code}
	}
	return ev, l.idx[code], nil
}
