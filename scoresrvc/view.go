package scoresrvc

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/programme-lv/scorer/scorerepo"
	"github.com/programme-lv/scorer/scoring"
	"github.com/programme-lv/scorer/srvcerror"
)

// ReportView is a report as shown to a particular viewer. The public
// view omits the total score and the ranking details.
type ReportView struct {
	SubmUUID       uuid.UUID               `json:"subm_uuid"`
	TaskID         string                  `json:"task_id"`
	Private        bool                    `json:"private"`
	Evaluated      bool                    `json:"evaluated"`
	Score          *float64                `json:"score,omitempty"`
	MaxScore       float64                 `json:"max_score"`
	PublicScore    float64                 `json:"public_score"`
	PublicMaxScore float64                 `json:"public_max_score"`
	Subtasks       []scoring.SubtaskDetail `json:"subtasks"`
	RankingDetails []string                `json:"ranking_details,omitempty"`
	Headers        []string                `json:"headers,omitempty"`
}

func newReportView(
	subm scorerepo.SubmSnapshot,
	report scoring.ScoreReport,
	maxScores scoring.MaxScoreInfo,
	private bool,
) ReportView {
	view := ReportView{
		SubmUUID:       subm.SubmUUID,
		TaskID:         subm.TaskID,
		Private:        private,
		Evaluated:      subm.Evaluated,
		PublicScore:    report.PublicScore,
		PublicMaxScore: maxScores.Public,
		Subtasks:       report.PublicSubtasks,
	}
	if private {
		score := report.Score
		view.Score = &score
		view.MaxScore = maxScores.Total
		view.Subtasks = report.Subtasks
		view.RankingDetails = report.RankingDetails
		view.Headers = maxScores.Headers
	}
	return view
}

// ComputeRequest asks for a report without any stored state.
type ComputeRequest struct {
	ScoreType string                   `json:"score_type"`
	Params    []scoring.SubtaskParam   `json:"params"`
	Result    scoring.SubmissionResult `json:"result"`
}

// Compute builds a report from a self-contained request. Configuration
// errors are the caller's fault here.
func (s *ScoreSrvc) Compute(ctx context.Context, req ComputeRequest) (scoring.ScoreReport, error) {
	policy, err := scoring.PolicyByName(req.ScoreType)
	if err != nil {
		return scoring.ScoreReport{}, srvcerror.ErrInvalidRequest(err.Error())
	}
	for _, p := range req.Params {
		if p.MaxScore < 0 || p.Threshold < 0 || p.Threshold > 1 {
			return scoring.ScoreReport{}, srvcerror.ErrInvalidRequest("subtask parameters out of range")
		}
	}
	if req.Result.ScorePrecision < 0 {
		return scoring.ScoreReport{}, srvcerror.ErrInvalidRequest("negative score precision")
	}

	report, err := scoring.BuildReportParallel(ctx, policy, req.Result, req.Params)
	if err != nil {
		var missing *scoring.MissingEvaluationError
		if errors.As(err, &missing) {
			return scoring.ScoreReport{}, srvcerror.ErrInvalidRequest(err.Error())
		}
		return scoring.ScoreReport{}, err
	}
	return report, nil
}
