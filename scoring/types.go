package scoring

// Outcome labels are message ids for the translation layer. They are
// never translated here.
const (
	LabelNotCorrect       = "Not correct"
	LabelCorrect          = "Correct"
	LabelPartiallyCorrect = "Partially correct"
)

// SubtaskParam describes one subtask of a task. Subtasks are ordered,
// the first one has display index 1.
type SubtaskParam struct {
	MaxScore      float64  `json:"max_score" toml:"points"`
	TestcaseCodes []string `json:"testcases" toml:"tests"`
	Threshold     float64  `json:"threshold" toml:"threshold"`
}

// Text is a message template with its parameters as produced by the
// grading pipeline.
type Text struct {
	Template string   `json:"template"`
	Args     []string `json:"args,omitempty"`
}

// Evaluation is the outcome of a single executed test case.
type Evaluation struct {
	Codename   string  `json:"codename"`
	Outcome    float64 `json:"outcome"`
	Text       Text    `json:"text"`
	ExecTime   float64 `json:"execution_time"`   // seconds
	ExecMemory int64   `json:"execution_memory"` // bytes
}

// SubmissionResult is the read-only snapshot a report is computed from.
type SubmissionResult struct {
	// Evaluated is false after a compilation failure or before grading.
	Evaluated       bool            `json:"evaluated"`
	Evaluations     []Evaluation    `json:"evaluations"`
	ScorePrecision  int             `json:"score_precision"`
	PublicTestcases map[string]bool `json:"public_testcases"`
}

type ScoreReport struct {
	Score          float64         `json:"score"`
	PublicScore    float64         `json:"public_score"`
	Subtasks       []SubtaskDetail `json:"subtasks"`
	PublicSubtasks []SubtaskDetail `json:"public_subtasks"`
	RankingDetails []string        `json:"ranking_details"`
}

// SubtaskDetail is a subtask of a report. In the public breakdown a
// subtask that is not entirely public has nil score fields and its
// testcases may be stubs.
type SubtaskDetail struct {
	Idx           int              `json:"idx"`
	ScoreFraction *float64         `json:"score_fraction,omitempty"`
	Score         *float64         `json:"score,omitempty"`
	MaxScore      *float64         `json:"max_score,omitempty"`
	Status        string           `json:"status,omitempty"`
	Testcases     []TestcaseDetail `json:"testcases"`
}

// HasScore reports whether the subtask exposes its score.
func (st SubtaskDetail) HasScore() bool {
	return st.Score != nil
}

// TestcaseDetail is a test case of a subtask. A stub has only Idx set.
type TestcaseDetail struct {
	Idx     int      `json:"idx"`
	Outcome string   `json:"outcome,omitempty"`
	Text    *Text    `json:"text,omitempty"`
	Time    *float64 `json:"time,omitempty"`
	Memory  *int64   `json:"memory,omitempty"`
}

func (tc TestcaseDetail) IsStub() bool {
	return tc.Outcome == "" && tc.Text == nil
}

// MaxScoreInfo is independent of any submission and can be cached per
// task configuration.
type MaxScoreInfo struct {
	Total   float64  `json:"total"`
	Public  float64  `json:"public"`
	Headers []string `json:"headers"`
}
