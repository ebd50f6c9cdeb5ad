package taskconf

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/programme-lv/scorer/scoring"
)

const defaultThreshold = 1.0

// TaskScoring is the validated scoring configuration of a task.
type TaskScoring struct {
	ScoreType       string                 `json:"score_type"`
	Precision       int                    `json:"score_precision"`
	Params          []scoring.SubtaskParam `json:"params"`
	PublicTestcases map[string]bool        `json:"public_testcases"`
}

func (ts TaskScoring) Policy() (scoring.Policy, error) {
	return scoring.PolicyByName(ts.ScoreType)
}

// Result attaches the task's precision and visibility to an evaluation
// snapshot.
func (ts TaskScoring) Result(evaluated bool, evals []scoring.Evaluation) scoring.SubmissionResult {
	return scoring.SubmissionResult{
		Evaluated:       evaluated,
		Evaluations:     evals,
		ScorePrecision:  ts.Precision,
		PublicTestcases: ts.PublicTestcases,
	}
}

func (ts TaskScoring) MaxScores() scoring.MaxScoreInfo {
	return scoring.MaxScores(ts.Params, ts.PublicTestcases)
}

type problemToml struct {
	Scoring struct {
		ScoreType   string `toml:"score_type"`
		Precision   *int   `toml:"score_precision"`
		PublicTests []any  `toml:"public_tests"`
	} `toml:"scoring"`

	Subtasks []struct {
		ID        int      `toml:"id"`
		Points    float64  `toml:"points"`
		Threshold *float64 `toml:"threshold"`
		Tests     []any    `toml:"tests"`
	} `toml:"subtasks"`

	TestGroups []struct {
		GroupID int     `toml:"id"`
		Points  float64 `toml:"points"`
		Public  bool    `toml:"public"`
		Tests   []any   `toml:"tests"`
	} `toml:"test_groups"`
}

// ParseTaskScoring parses and validates the scoring sections of
// problem.toml. Subtasks come from [[subtasks]]; a task that only has
// [[test_groups]] gets one all-or-nothing subtask per group, with the
// tests of public groups marked public.
func ParseTaskScoring(content []byte) (TaskScoring, error) {
	var obj problemToml
	err := toml.Unmarshal(content, &obj)
	if err != nil {
		return TaskScoring{}, fmt.Errorf("failed to unmarshal scoring: %w", err)
	}

	res := TaskScoring{
		ScoreType:       obj.Scoring.ScoreType,
		Precision:       0,
		PublicTestcases: map[string]bool{},
	}
	if res.ScoreType == "" {
		res.ScoreType = scoring.PolicySharedGroupThreshold
	}
	if _, err := scoring.PolicyByName(res.ScoreType); err != nil {
		return TaskScoring{}, err
	}
	if obj.Scoring.Precision != nil {
		if *obj.Scoring.Precision < 0 {
			return TaskScoring{}, fmt.Errorf("score precision must not be negative, got %d", *obj.Scoring.Precision)
		}
		res.Precision = *obj.Scoring.Precision
	}

	public := mapset.NewThreadUnsafeSet[string]()

	switch {
	case len(obj.Subtasks) > 0:
		sort.Slice(obj.Subtasks, func(i, j int) bool {
			return obj.Subtasks[i].ID < obj.Subtasks[j].ID
		})
		ids := make([]int, len(obj.Subtasks))
		for i, st := range obj.Subtasks {
			ids[i] = st.ID
		}
		if err := checkConsecutive("subtask", ids); err != nil {
			return TaskScoring{}, err
		}
		for _, st := range obj.Subtasks {
			codes, err := testCodes(st.Tests)
			if err != nil {
				return TaskScoring{}, fmt.Errorf("subtask %d: %w", st.ID, err)
			}
			threshold := defaultThreshold
			if st.Threshold != nil {
				threshold = *st.Threshold
			}
			res.Params = append(res.Params, scoring.SubtaskParam{
				MaxScore:      st.Points,
				TestcaseCodes: codes,
				Threshold:     threshold,
			})
		}
	case len(obj.TestGroups) > 0:
		sort.Slice(obj.TestGroups, func(i, j int) bool {
			return obj.TestGroups[i].GroupID < obj.TestGroups[j].GroupID
		})
		ids := make([]int, len(obj.TestGroups))
		for i, tg := range obj.TestGroups {
			ids[i] = tg.GroupID
		}
		if err := checkConsecutive("test group", ids); err != nil {
			return TaskScoring{}, err
		}
		for _, tg := range obj.TestGroups {
			codes, err := testCodes(tg.Tests)
			if err != nil {
				return TaskScoring{}, fmt.Errorf("test group %d: %w", tg.GroupID, err)
			}
			res.Params = append(res.Params, scoring.SubtaskParam{
				MaxScore:      tg.Points,
				TestcaseCodes: codes,
				Threshold:     defaultThreshold,
			})
			if tg.Public {
				public.Append(codes...)
			}
		}
	default:
		return TaskScoring{}, fmt.Errorf("neither subtasks nor test groups are defined")
	}

	if len(obj.Scoring.PublicTests) > 0 {
		codes, err := testCodes(obj.Scoring.PublicTests)
		if err != nil {
			return TaskScoring{}, fmt.Errorf("public tests: %w", err)
		}
		public.Append(codes...)
	}

	if err := validateParams(res.Params, public); err != nil {
		return TaskScoring{}, err
	}
	for _, code := range public.ToSlice() {
		res.PublicTestcases[code] = true
	}
	return res, nil
}

func checkConsecutive(what string, sortedIDs []int) error {
	if sortedIDs[0] != 1 {
		return fmt.Errorf("consecutive %s IDs must start with 1", what)
	}
	for i, id := range sortedIDs {
		if id != i+1 {
			return fmt.Errorf("consecutive %s IDs must end with %d", what, len(sortedIDs))
		}
	}
	return nil
}

func validateParams(params []scoring.SubtaskParam, public mapset.Set[string]) error {
	referenced := mapset.NewThreadUnsafeSet[string]()
	for i, p := range params {
		if p.MaxScore < 0 {
			return fmt.Errorf("subtask %d: points must not be negative", i+1)
		}
		if p.Threshold < 0 || p.Threshold > 1 {
			return fmt.Errorf("subtask %d: threshold %v is outside [0, 1]", i+1, p.Threshold)
		}
		if len(p.TestcaseCodes) == 0 {
			return fmt.Errorf("subtask %d: no tests", i+1)
		}
		seen := mapset.NewThreadUnsafeSet[string]()
		for _, code := range p.TestcaseCodes {
			if !seen.Add(code) {
				return fmt.Errorf("subtask %d: test %q listed more than once", i+1, code)
			}
		}
		referenced = referenced.Union(seen)
	}
	if unknown := public.Difference(referenced); unknown.Cardinality() > 0 {
		codes := unknown.ToSlice()
		sort.Strings(codes)
		return fmt.Errorf("public tests not used by any subtask: %s", strings.Join(codes, ", "))
	}
	return nil
}

// testCodes converts test references to codenames. Strings lose their
// file extension ("kp01a.in" -> "kp01a"), integers become their decimal
// form.
func testCodes(tests []any) ([]string, error) {
	codes := make([]string, 0, len(tests))
	for _, test := range tests {
		switch v := test.(type) {
		case string:
			base := strings.TrimSuffix(v, filepath.Ext(v))
			if base == "" {
				return nil, fmt.Errorf("empty test reference %q", v)
			}
			codes = append(codes, base)
		case int64:
			codes = append(codes, strconv.FormatInt(v, 10))
		case int:
			codes = append(codes, strconv.Itoa(v))
		default:
			return nil, fmt.Errorf("unsupported test reference %v of type %T", v, v)
		}
	}
	if len(codes) == 0 {
		return nil, fmt.Errorf("no tests")
	}
	return codes, nil
}
