package scorerepo

import (
	"context"
	"slices"
	"sort"

	"github.com/google/uuid"
	"github.com/programme-lv/scorer/scoring"
	"github.com/programme-lv/scorer/srvcerror"
	"github.com/programme-lv/scorer/taskconf"
	"github.com/puzpuzpuz/xsync/v3"
)

// InMemRepo keeps everything in process memory. It backs the CLI and
// tests.
type InMemRepo struct {
	tasks   *xsync.MapOf[string, taskconf.TaskScoring]
	subms   *xsync.MapOf[uuid.UUID, SubmSnapshot]
	reports *xsync.MapOf[uuid.UUID, scoring.ScoreReport]
}

func NewInMemRepo() *InMemRepo {
	return &InMemRepo{
		tasks:   xsync.NewMapOf[string, taskconf.TaskScoring](),
		subms:   xsync.NewMapOf[uuid.UUID, SubmSnapshot](),
		reports: xsync.NewMapOf[uuid.UUID, scoring.ScoreReport](),
	}
}

var _ Repo = (*InMemRepo)(nil)

func (m *InMemRepo) PutTaskScoring(_ context.Context, taskID string, ts taskconf.TaskScoring) error {
	m.tasks.Store(taskID, ts)
	return nil
}

func (m *InMemRepo) StoreSubm(_ context.Context, subm SubmSnapshot) error {
	subm.Evaluations = slices.Clone(subm.Evaluations)
	m.subms.Store(subm.SubmUUID, subm)
	return nil
}

func (m *InMemRepo) GetTaskScoring(_ context.Context, taskID string) (taskconf.TaskScoring, error) {
	ts, ok := m.tasks.Load(taskID)
	if !ok {
		return taskconf.TaskScoring{}, srvcerror.ErrTaskNotFound(taskID)
	}
	return ts, nil
}

func (m *InMemRepo) GetSubmResult(_ context.Context, submUUID uuid.UUID) (SubmSnapshot, error) {
	s, ok := m.subms.Load(submUUID)
	if !ok {
		return SubmSnapshot{}, srvcerror.ErrSubmNotFound(submUUID)
	}
	s.Evaluations = slices.Clone(s.Evaluations)
	return s, nil
}

func (m *InMemRepo) StoreReport(_ context.Context, submUUID uuid.UUID, report scoring.ScoreReport) error {
	if _, ok := m.subms.Load(submUUID); !ok {
		return srvcerror.ErrSubmNotFound(submUUID)
	}
	m.reports.Store(submUUID, report)
	return nil
}

func (m *InMemRepo) GetReport(_ context.Context, submUUID uuid.UUID) (scoring.ScoreReport, error) {
	report, ok := m.reports.Load(submUUID)
	if !ok {
		return scoring.ScoreReport{}, srvcerror.ErrReportNotFound()
	}
	return report, nil
}

func (m *InMemRepo) ListTaskSubms(_ context.Context, taskID string) ([]uuid.UUID, error) {
	var subms []SubmSnapshot
	m.subms.Range(func(_ uuid.UUID, s SubmSnapshot) bool {
		if s.TaskID == taskID {
			subms = append(subms, s)
		}
		return true
	})
	sortByCreation(subms)

	ids := make([]uuid.UUID, 0, len(subms))
	for _, s := range subms {
		ids = append(ids, s.SubmUUID)
	}
	return ids, nil
}

func (m *InMemRepo) ListUserReports(_ context.Context, authorUUID uuid.UUID) ([]UserTaskReport, error) {
	var subms []SubmSnapshot
	m.subms.Range(func(_ uuid.UUID, s SubmSnapshot) bool {
		if s.AuthorUUID == authorUUID {
			subms = append(subms, s)
		}
		return true
	})
	sortByCreation(subms)

	res := make([]UserTaskReport, 0, len(subms))
	for _, s := range subms {
		rep := UserTaskReport{
			SubmUUID:  s.SubmUUID,
			TaskID:    s.TaskID,
			Evaluated: s.Evaluated,
			CreatedAt: s.CreatedAt,
		}
		if report, ok := m.reports.Load(s.SubmUUID); ok {
			rep.Scored = true
			rep.Score = report.Score
			rep.PublicScore = report.PublicScore
		}
		res = append(res, rep)
	}
	return res, nil
}

func sortByCreation(subms []SubmSnapshot) {
	sort.Slice(subms, func(i, j int) bool {
		if subms[i].CreatedAt.Equal(subms[j].CreatedAt) {
			return subms[i].SubmUUID.String() < subms[j].SubmUUID.String()
		}
		return subms[i].CreatedAt.Before(subms[j].CreatedAt)
	})
}
