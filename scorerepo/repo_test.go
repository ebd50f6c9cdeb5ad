package scorerepo_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/peterldowns/pgtestdb"
	"github.com/peterldowns/pgtestdb/migrators/golangmigrator"
	"github.com/programme-lv/scorer/scorerepo"
	"github.com/programme-lv/scorer/scoring"
	"github.com/programme-lv/scorer/srvcerror"
	"github.com/programme-lv/scorer/taskconf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type writableRepo interface {
	scorerepo.Repo
	PutTaskScoring(ctx context.Context, taskID string, ts taskconf.TaskScoring) error
	StoreSubm(ctx context.Context, subm scorerepo.SubmSnapshot) error
}

// newPgRepo returns a repo backed by a unique, fully migrated test
// database. Needs a local postgres, enabled with SCORER_PG_TESTS=1.
func newPgRepo(t *testing.T) writableRepo {
	t.Helper()
	if os.Getenv("SCORER_PG_TESTS") == "" {
		t.Skip("SCORER_PG_TESTS not set")
	}
	conf := pgtestdb.Config{
		DriverName: "pgx",
		User:       "proglv", // local dev pg user
		Password:   "proglv", // local dev pg password
		Host:       "localhost",
		Port:       "5433",
		Options:    "sslmode=disable",
	}
	gm := golangmigrator.New("../migrate")
	config := pgtestdb.Custom(t, conf, gm)

	pool, err := pgxpool.New(context.Background(), config.URL())
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return scorerepo.NewPgRepo(pool)
}

func newInMemRepo(t *testing.T) writableRepo {
	return scorerepo.NewInMemRepo()
}

var sampleScoring = taskconf.TaskScoring{
	ScoreType: scoring.PolicySharedGroupThreshold,
	Precision: 2,
	Params: []scoring.SubtaskParam{
		{MaxScore: 40, TestcaseCodes: []string{"t1", "t2"}, Threshold: 1},
		{MaxScore: 60, TestcaseCodes: []string{"t3", "t4"}, Threshold: 0.5},
	},
	PublicTestcases: map[string]bool{"t1": true, "t2": true},
}

func forEachRepo(t *testing.T, f func(t *testing.T, repo writableRepo)) {
	t.Run("inmem", func(t *testing.T) { f(t, newInMemRepo(t)) })
	t.Run("pg", func(t *testing.T) { f(t, newPgRepo(t)) })
}

func TestTaskScoring(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo writableRepo) {
		ctx := context.Background()

		_, err := repo.GetTaskScoring(ctx, "summa")
		var srvcErr *srvcerror.Error
		require.True(t, errors.As(err, &srvcErr))
		assert.Equal(t, srvcerror.ErrCodeTaskNotFound, srvcErr.ErrorCode())

		require.NoError(t, repo.PutTaskScoring(ctx, "summa", sampleScoring))
		got, err := repo.GetTaskScoring(ctx, "summa")
		require.NoError(t, err)
		assert.Equal(t, sampleScoring, got)
	})
}

func TestSubmResultAndReport(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo writableRepo) {
		ctx := context.Background()
		subm := scorerepo.SubmSnapshot{
			SubmUUID:   uuid.New(),
			TaskID:     "summa",
			AuthorUUID: uuid.New(),
			Evaluated:  true,
			Evaluations: []scoring.Evaluation{
				{Codename: "t1", Outcome: 1, Text: scoring.Text{Template: "Output is correct"}, ExecTime: 0.1, ExecMemory: 1 << 20},
				{Codename: "t2", Outcome: 0.5, Text: scoring.Text{Template: "Partial %s", Args: []string{"x"}}},
			},
			CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		}

		_, err := repo.GetSubmResult(ctx, subm.SubmUUID)
		var srvcErr *srvcerror.Error
		require.True(t, errors.As(err, &srvcErr))
		assert.Equal(t, srvcerror.ErrCodeSubmNotFound, srvcErr.ErrorCode())

		require.NoError(t, repo.StoreSubm(ctx, subm))
		got, err := repo.GetSubmResult(ctx, subm.SubmUUID)
		require.NoError(t, err)
		assert.Equal(t, subm.SubmUUID, got.SubmUUID)
		assert.Equal(t, subm.AuthorUUID, got.AuthorUUID)
		assert.True(t, got.Evaluated)
		assert.Equal(t, subm.Evaluations, got.Evaluations)
		assert.True(t, subm.CreatedAt.Equal(got.CreatedAt))

		_, err = repo.GetReport(ctx, subm.SubmUUID)
		require.True(t, errors.As(err, &srvcErr))
		assert.Equal(t, srvcerror.ErrCodeReportNotFound, srvcErr.ErrorCode())

		report, err := scoring.BuildReport(scoring.SharedGroupThreshold{},
			sampleScoring.Result(true, got.Evaluations), sampleScoring.Params)
		require.Error(t, err, "t3 and t4 are not evaluated")

		report, err = scoring.BuildReport(scoring.SharedGroupThreshold{},
			sampleScoring.Result(false, nil), sampleScoring.Params)
		require.NoError(t, err)
		require.NoError(t, repo.StoreReport(ctx, subm.SubmUUID, report))

		stored, err := repo.GetReport(ctx, subm.SubmUUID)
		require.NoError(t, err)
		assert.Equal(t, report, stored)
	})
}

func TestListings(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo writableRepo) {
		ctx := context.Background()
		author := uuid.New()
		t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

		first := scorerepo.SubmSnapshot{SubmUUID: uuid.New(), TaskID: "summa", AuthorUUID: author, CreatedAt: t0}
		second := scorerepo.SubmSnapshot{SubmUUID: uuid.New(), TaskID: "summa", AuthorUUID: author, Evaluated: true, CreatedAt: t0.Add(time.Minute)}
		other := scorerepo.SubmSnapshot{SubmUUID: uuid.New(), TaskID: "reiz", AuthorUUID: uuid.New(), CreatedAt: t0}
		for _, s := range []scorerepo.SubmSnapshot{second, other, first} {
			require.NoError(t, repo.StoreSubm(ctx, s))
		}

		ids, err := repo.ListTaskSubms(ctx, "summa")
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{first.SubmUUID, second.SubmUUID}, ids)

		require.NoError(t, repo.StoreReport(ctx, second.SubmUUID, scoring.ScoreReport{Score: 42.5, PublicScore: 12.5}))

		reports, err := repo.ListUserReports(ctx, author)
		require.NoError(t, err)
		require.Len(t, reports, 2)
		assert.Equal(t, first.SubmUUID, reports[0].SubmUUID)
		assert.False(t, reports[0].Scored)
		assert.False(t, reports[0].Evaluated)
		assert.Equal(t, second.SubmUUID, reports[1].SubmUUID)
		assert.True(t, reports[1].Scored)
		assert.Equal(t, 42.5, reports[1].Score)
		assert.Equal(t, 12.5, reports[1].PublicScore)
		assert.True(t, reports[1].Evaluated)
		assert.Equal(t, "summa", reports[1].TaskID)
	})
}
