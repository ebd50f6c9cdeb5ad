package scoring

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BuildReport computes the score report of a submission.
//
// Subtask scores are summed unrounded and the totals are rounded once to
// res.ScorePrecision. A subtask counts toward the public score only when
// every one of its test cases is public. A test case referenced by a
// subtask but absent from an evaluated snapshot is a configuration error
// and no report is returned.
func BuildReport(policy Policy, res SubmissionResult, params []SubtaskParam) (ScoreReport, error) {
	if !res.Evaluated {
		return notEvaluatedReport(params), nil
	}

	lookup := newEvalLookup(res.Evaluations)
	built := make([]builtSubtask, len(params))
	for i, p := range params {
		st, err := buildSubtask(policy, lookup, res.PublicTestcases, i+1, p)
		if err != nil {
			return ScoreReport{}, err
		}
		built[i] = st
	}
	return assemble(built, res.ScorePrecision), nil
}

// BuildReportParallel is BuildReport with subtasks computed
// concurrently. The output is identical to BuildReport's.
func BuildReportParallel(ctx context.Context, policy Policy, res SubmissionResult, params []SubtaskParam) (ScoreReport, error) {
	if !res.Evaluated {
		return notEvaluatedReport(params), nil
	}

	lookup := newEvalLookup(res.Evaluations)
	built := make([]builtSubtask, len(params))
	g, ctx := errgroup.WithContext(ctx)
	for i, p := range params {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			st, err := buildSubtask(policy, lookup, res.PublicTestcases, i+1, p)
			if err != nil {
				return err
			}
			built[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ScoreReport{}, err
	}
	return assemble(built, res.ScorePrecision), nil
}

type builtSubtask struct {
	score      float64
	allPublic  bool
	private    SubtaskDetail
	public     SubtaskDetail
	rankingStr string
}

func notEvaluatedReport(params []SubtaskParam) ScoreReport {
	ranking := make([]string, len(params))
	for i := range params {
		ranking[i] = FormatCompact(0.0)
	}
	return ScoreReport{
		Score:          0.0,
		PublicScore:    0.0,
		Subtasks:       []SubtaskDetail{},
		PublicSubtasks: []SubtaskDetail{},
		RankingDetails: ranking,
	}
}

func buildSubtask(
	policy Policy,
	lookup evalLookup,
	public map[string]bool,
	stIdx int,
	p SubtaskParam,
) (builtSubtask, error) {
	outcomes := make([]float64, 0, len(p.TestcaseCodes))
	testcases := make([]TestcaseDetail, 0, len(p.TestcaseCodes))
	publicTestcases := make([]TestcaseDetail, 0, len(p.TestcaseCodes))
	allPublic := true

	for _, code := range p.TestcaseCodes {
		ev, idx, err := lookup.get(stIdx, code)
		if err != nil {
			return builtSubtask{}, err
		}
		outcomes = append(outcomes, ev.Outcome)

		tc := testcaseDetail(idx, policy.Classify(ev.Outcome, p), ev)
		testcases = append(testcases, tc)

		if public[code] {
			publicTestcases = append(publicTestcases, testcaseDetail(idx, tc.Outcome, ev))
		} else {
			allPublic = false
			publicTestcases = append(publicTestcases, TestcaseDetail{Idx: idx})
		}
	}

	fraction := policy.Reduce(outcomes, p)
	score := fraction * p.MaxScore

	private := SubtaskDetail{
		Idx:           stIdx,
		ScoreFraction: ptr(fraction),
		Score:         ptr(score),
		MaxScore:      ptr(p.MaxScore),
		Status:        ClassifyFraction(fraction),
		Testcases:     testcases,
	}

	var publicSt SubtaskDetail
	if allPublic {
		publicSt = private
		publicSt.Testcases = publicTestcases
	} else {
		publicSt = SubtaskDetail{
			Idx:       stIdx,
			Testcases: publicTestcases,
		}
	}

	return builtSubtask{
		score:      score,
		allPublic:  allPublic,
		private:    private,
		public:     publicSt,
		rankingStr: rankingDetail(score),
	}, nil
}

func assemble(built []builtSubtask, precision int) ScoreReport {
	report := ScoreReport{
		Subtasks:       make([]SubtaskDetail, 0, len(built)),
		PublicSubtasks: make([]SubtaskDetail, 0, len(built)),
		RankingDetails: make([]string, 0, len(built)),
	}
	score, publicScore := 0.0, 0.0
	for _, st := range built {
		score += st.score
		if st.allPublic {
			publicScore += st.score
		}
		report.Subtasks = append(report.Subtasks, st.private)
		report.PublicSubtasks = append(report.PublicSubtasks, st.public)
		report.RankingDetails = append(report.RankingDetails, st.rankingStr)
	}
	report.Score = Round(score, precision)
	report.PublicScore = Round(publicScore, precision)
	return report
}

func testcaseDetail(idx int, label string, ev Evaluation) TestcaseDetail {
	text := ev.Text
	text.Args = append([]string(nil), ev.Text.Args...)
	return TestcaseDetail{
		Idx:     idx,
		Outcome: label,
		Text:    &text,
		Time:    ptr(ev.ExecTime),
		Memory:  ptr(ev.ExecMemory),
	}
}

func ptr[T any](v T) *T {
	return &v
}
