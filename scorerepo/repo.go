package scorerepo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/programme-lv/scorer/scoring"
	"github.com/programme-lv/scorer/taskconf"
)

// SubmSnapshot is the evaluation state of a submission at read time.
type SubmSnapshot struct {
	SubmUUID    uuid.UUID
	TaskID      string
	AuthorUUID  uuid.UUID
	Evaluated   bool
	Evaluations []scoring.Evaluation
	CreatedAt   time.Time
}

// UserTaskReport is a submission of a user together with its scores.
// Scored is false when no report has been stored yet.
type UserTaskReport struct {
	SubmUUID    uuid.UUID
	TaskID      string
	Evaluated   bool
	Scored      bool
	Score       float64
	PublicScore float64
	CreatedAt   time.Time
}

type Repo interface {
	GetTaskScoring(ctx context.Context, taskID string) (taskconf.TaskScoring, error)
	GetSubmResult(ctx context.Context, submUUID uuid.UUID) (SubmSnapshot, error)
	StoreReport(ctx context.Context, submUUID uuid.UUID, report scoring.ScoreReport) error
	GetReport(ctx context.Context, submUUID uuid.UUID) (scoring.ScoreReport, error)
	ListTaskSubms(ctx context.Context, taskID string) ([]uuid.UUID, error)
	ListUserReports(ctx context.Context, authorUUID uuid.UUID) ([]UserTaskReport, error)
}
