package scoresrvc_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/programme-lv/scorer/scorerepo"
	"github.com/programme-lv/scorer/scoresrvc"
	"github.com/programme-lv/scorer/scoring"
	"github.com/programme-lv/scorer/srvcerror"
	"github.com/programme-lv/scorer/taskconf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const taskID = "kvadrputekl"

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

var taskScoring = taskconf.TaskScoring{
	ScoreType: scoring.PolicySharedGroupThreshold,
	Precision: 2,
	Params: []scoring.SubtaskParam{
		{MaxScore: 30, TestcaseCodes: []string{"t1", "t2"}, Threshold: 1},
		{MaxScore: 70, TestcaseCodes: []string{"t3", "t4"}, Threshold: 0.5},
	},
	PublicTestcases: map[string]bool{"t1": true, "t2": true},
}

func evals(outcomes ...float64) []scoring.Evaluation {
	res := make([]scoring.Evaluation, len(outcomes))
	for i, o := range outcomes {
		res[i] = scoring.Evaluation{
			Codename: "t" + string(rune('1'+i)),
			Outcome:  o,
			Text:     scoring.Text{Template: "Output is correct"},
		}
	}
	return res
}

type fakeArchive struct {
	mu   sync.Mutex
	puts map[uuid.UUID]scoring.ScoreReport
	err  error
}

func (a *fakeArchive) Put(_ context.Context, submUUID uuid.UUID, report scoring.ScoreReport) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.puts[submUUID] = report
	return nil
}

func newSrvc(t *testing.T, opts ...scoresrvc.Option) (*scoresrvc.ScoreSrvc, *scorerepo.InMemRepo) {
	t.Helper()
	repo := scorerepo.NewInMemRepo()
	require.NoError(t, repo.PutTaskScoring(context.Background(), taskID, taskScoring))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]scoresrvc.Option{scoresrvc.WithLogger(logger)}, opts...)
	return scoresrvc.NewScoreSrvc(repo, opts...), repo
}

func addSubm(t *testing.T, repo *scorerepo.InMemRepo, author uuid.UUID, createdAt time.Time, evaluated bool, ev []scoring.Evaluation) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, repo.StoreSubm(context.Background(), scorerepo.SubmSnapshot{
		SubmUUID:    id,
		TaskID:      taskID,
		AuthorUUID:  author,
		Evaluated:   evaluated,
		Evaluations: ev,
		CreatedAt:   createdAt,
	}))
	return id
}

func TestScoreSubm(t *testing.T) {
	archive := &fakeArchive{puts: map[uuid.UUID]scoring.ScoreReport{}}
	srvc, repo := newSrvc(t, scoresrvc.WithArchive(archive))
	ctx := context.Background()

	id := addSubm(t, repo, uuid.New(), t0, true, evals(1, 1, 1, 0.5))
	report, err := srvc.ScoreSubm(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 65.0, report.Score)
	assert.Equal(t, 30.0, report.PublicScore)
	assert.Equal(t, []string{"30", "35"}, report.RankingDetails)

	stored, err := repo.GetReport(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, report, stored)
	assert.Equal(t, report, archive.puts[id])
}

func TestScoreSubmArchiveFailureIsNotFatal(t *testing.T) {
	archive := &fakeArchive{err: errors.New("bucket unavailable")}
	srvc, repo := newSrvc(t, scoresrvc.WithArchive(archive))

	id := addSubm(t, repo, uuid.New(), t0, true, evals(1, 1, 1, 1))
	report, err := srvc.ScoreSubm(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 100.0, report.Score)
}

func TestScoreSubmErrors(t *testing.T) {
	srvc, repo := newSrvc(t)
	ctx := context.Background()

	_, err := srvc.ScoreSubm(ctx, uuid.New())
	var srvcErr *srvcerror.Error
	require.True(t, errors.As(err, &srvcErr))
	assert.Equal(t, srvcerror.ErrCodeSubmNotFound, srvcErr.ErrorCode())

	// t4 was never evaluated
	id := addSubm(t, repo, uuid.New(), t0, true, evals(1, 1, 1))
	_, err = srvc.ScoreSubm(ctx, id)
	require.True(t, errors.As(err, &srvcErr))
	assert.Equal(t, srvcerror.ErrCodeScoringMisconfigured, srvcErr.ErrorCode())
	var missing *scoring.MissingEvaluationError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "t4", missing.Codename)
	assert.Equal(t, 2, missing.Subtask)

	_, err = repo.GetReport(ctx, id)
	assert.Error(t, err, "nothing is stored on failure")
}

func TestScoreSubmNotEvaluated(t *testing.T) {
	srvc, repo := newSrvc(t)
	id := addSubm(t, repo, uuid.New(), t0, false, nil)

	report, err := srvc.ScoreSubm(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 0.0, report.Score)
	assert.Empty(t, report.Subtasks)
	assert.Equal(t, []string{"0", "0"}, report.RankingDetails)
}

func TestGetReportViews(t *testing.T) {
	srvc, repo := newSrvc(t)
	ctx := context.Background()
	author := uuid.New()
	id := addSubm(t, repo, author, t0, true, evals(1, 1, 0, 1))

	_, err := srvc.GetReport(ctx, id, true)
	var srvcErr *srvcerror.Error
	require.True(t, errors.As(err, &srvcErr))
	assert.Equal(t, srvcerror.ErrCodeReportNotFound, srvcErr.ErrorCode())

	_, err = srvc.ScoreSubm(ctx, id)
	require.NoError(t, err)

	private, err := srvc.GetReport(ctx, id, true)
	require.NoError(t, err)
	require.NotNil(t, private.Score)
	assert.Equal(t, 30.0, *private.Score)
	assert.Equal(t, 100.0, private.MaxScore)
	assert.Equal(t, 30.0, private.PublicMaxScore)
	assert.Equal(t, []string{"30", "0"}, private.RankingDetails)
	assert.Equal(t, []string{"Subtask 1 (30)", "Subtask 2 (70)"}, private.Headers)
	require.Len(t, private.Subtasks, 2)
	assert.True(t, private.Subtasks[1].HasScore())

	public, err := srvc.GetReport(ctx, id, false)
	require.NoError(t, err)
	assert.Nil(t, public.Score)
	assert.Equal(t, 0.0, public.MaxScore)
	assert.Equal(t, 30.0, public.PublicScore)
	assert.Empty(t, public.RankingDetails)
	require.Len(t, public.Subtasks, 2)
	assert.True(t, public.Subtasks[0].HasScore())
	assert.False(t, public.Subtasks[1].HasScore())
	for _, tc := range public.Subtasks[1].Testcases {
		assert.True(t, tc.IsStub())
	}

	gotAuthor, err := srvc.SubmAuthor(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, author, gotAuthor)
}

func TestTaskMaxScoresCache(t *testing.T) {
	srvc, repo := newSrvc(t)
	ctx := context.Background()

	info, err := srvc.TaskMaxScores(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, info.Total)
	assert.Equal(t, 30.0, info.Public)

	info.Headers[0] = "mutated"

	changed := taskScoring
	changed.Params = []scoring.SubtaskParam{{MaxScore: 10, TestcaseCodes: []string{"t1"}, Threshold: 1}}
	changed.PublicTestcases = map[string]bool{}
	require.NoError(t, repo.PutTaskScoring(ctx, taskID, changed))

	cached, err := srvc.TaskMaxScores(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, cached.Total)
	assert.Equal(t, "Subtask 1 (30)", cached.Headers[0])

	srvc.InvalidateTask(taskID)
	fresh, err := srvc.TaskMaxScores(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, fresh.Total)
	assert.Equal(t, 0.0, fresh.Public)

	_, err = srvc.TaskMaxScores(ctx, "nav")
	var srvcErr *srvcerror.Error
	require.True(t, errors.As(err, &srvcErr))
	assert.Equal(t, srvcerror.ErrCodeTaskNotFound, srvcErr.ErrorCode())
}

func TestTaskMaxScoresConcurrent(t *testing.T) {
	srvc, _ := newSrvc(t)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			info, err := srvc.TaskMaxScores(context.Background(), taskID)
			assert.NoError(t, err)
			assert.Equal(t, 100.0, info.Total)
		}()
	}
	wg.Wait()
}

func TestRescoreTask(t *testing.T) {
	srvc, repo := newSrvc(t, scoresrvc.WithRescoreParallelism(2))
	ctx := context.Background()
	author := uuid.New()

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		ids = append(ids, addSubm(t, repo, author, t0.Add(time.Duration(i)*time.Minute), true, evals(1, 1, 1, 1)))
	}

	n, err := srvc.RescoreTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	for _, id := range ids {
		report, err := repo.GetReport(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 100.0, report.Score)
	}

	changed := taskScoring
	changed.Params = []scoring.SubtaskParam{
		{MaxScore: 50, TestcaseCodes: []string{"t1", "t2"}, Threshold: 1},
		{MaxScore: 50, TestcaseCodes: []string{"t3", "t4"}, Threshold: 1},
	}
	require.NoError(t, repo.PutTaskScoring(ctx, taskID, changed))
	_, err = srvc.RescoreTask(ctx, taskID)
	require.NoError(t, err)

	info, err := srvc.TaskMaxScores(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Subtask 1 (50)", "Subtask 2 (50)"}, info.Headers)

	_, err = srvc.RescoreTask(ctx, "nav")
	assert.Error(t, err)
}

func TestUserScoreboard(t *testing.T) {
	srvc, repo := newSrvc(t)
	ctx := context.Background()
	author := uuid.New()

	weak := addSubm(t, repo, author, t0, true, evals(1, 1, 0, 0))
	strong := addSubm(t, repo, author, t0.Add(time.Minute), true, evals(1, 1, 1, 0.5))
	addSubm(t, repo, author, t0.Add(2*time.Minute), false, nil)
	addSubm(t, repo, uuid.New(), t0, true, evals(1, 1, 1, 1))

	for _, id := range []uuid.UUID{weak, strong} {
		_, err := srvc.ScoreSubm(ctx, id)
		require.NoError(t, err)
	}

	row, err := srvc.UserScoreboard(ctx, author, true)
	require.NoError(t, err)
	require.Contains(t, row.Tasks, taskID)
	assert.Equal(t, strong, row.Tasks[taskID].SubmUUID)
	assert.Equal(t, 65.0, row.Total)
	assert.True(t, row.Partial)

	// both reach 30 on public tests, so the earlier one wins
	row, err = srvc.UserScoreboard(ctx, author, false)
	require.NoError(t, err)
	require.Contains(t, row.Tasks, taskID)
	assert.Equal(t, weak, row.Tasks[taskID].SubmUUID)
	assert.Equal(t, 30.0, row.Total)
	assert.True(t, row.Partial)
}

// blockingRepo holds GetTaskScoring until released and then fails if
// the context it was given has been cancelled.
type blockingRepo struct {
	*scorerepo.InMemRepo
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (r *blockingRepo) GetTaskScoring(ctx context.Context, id string) (taskconf.TaskScoring, error) {
	r.once.Do(func() { close(r.entered) })
	<-r.release
	if err := ctx.Err(); err != nil {
		return taskconf.TaskScoring{}, err
	}
	return r.InMemRepo.GetTaskScoring(ctx, id)
}

func TestTaskMaxScoresFirstCallerCancelled(t *testing.T) {
	mem := scorerepo.NewInMemRepo()
	require.NoError(t, mem.PutTaskScoring(context.Background(), taskID, taskScoring))
	repo := &blockingRepo{InMemRepo: mem, entered: make(chan struct{}), release: make(chan struct{})}
	srvc := scoresrvc.NewScoreSrvc(repo, scoresrvc.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := srvc.TaskMaxScores(ctx, taskID)
		firstErr <- err
	}()
	<-repo.entered

	secondErr := make(chan error, 1)
	var second scoring.MaxScoreInfo
	go func() {
		var err error
		second, err = srvc.TaskMaxScores(context.Background(), taskID)
		secondErr <- err
	}()

	cancel()
	close(repo.release)

	require.NoError(t, <-firstErr)
	require.NoError(t, <-secondErr)
	assert.Equal(t, 100.0, second.Total)
}

func TestCompute(t *testing.T) {
	srvc, _ := newSrvc(t)
	ctx := context.Background()

	req := scoresrvc.ComputeRequest{
		ScoreType: scoring.PolicyGroupMin,
		Params:    taskScoring.Params,
		Result: scoring.SubmissionResult{
			Evaluated:      true,
			Evaluations:    evals(1, 1, 0.5, 1),
			ScorePrecision: 2,
		},
	}
	report, err := srvc.Compute(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 65.0, report.Score)

	var srvcErr *srvcerror.Error

	req.ScoreType = "Sum"
	_, err = srvc.Compute(ctx, req)
	require.True(t, errors.As(err, &srvcErr))
	assert.Equal(t, srvcerror.ErrCodeInvalidRequest, srvcErr.ErrorCode())

	req.ScoreType = ""
	req.Result.Evaluations = evals(1)
	_, err = srvc.Compute(ctx, req)
	require.True(t, errors.As(err, &srvcErr))
	assert.Equal(t, srvcerror.ErrCodeInvalidRequest, srvcErr.ErrorCode())

	req.Params = []scoring.SubtaskParam{{MaxScore: 10, TestcaseCodes: []string{"t1"}, Threshold: 2}}
	_, err = srvc.Compute(ctx, req)
	require.True(t, errors.As(err, &srvcErr))
	assert.Equal(t, srvcerror.ErrCodeInvalidRequest, srvcErr.ErrorCode())
}
