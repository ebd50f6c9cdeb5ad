package scoresrvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/programme-lv/scorer/logger"
	"github.com/programme-lv/scorer/scoreboard"
	"github.com/programme-lv/scorer/scorerepo"
	"github.com/programme-lv/scorer/scoring"
	"github.com/programme-lv/scorer/srvcerror"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	defaultRescoreParallelism = 8
	defaultBoardPrecision     = 2
	maxScoresCacheTTL         = 5 * time.Minute
	maxScoresCacheKeyPrefix   = "max_scores:"
)

// ReportArchive keeps a durable copy of every computed report.
type ReportArchive interface {
	Put(ctx context.Context, submUUID uuid.UUID, report scoring.ScoreReport) error
}

type ScoreSrvc struct {
	repo    scorerepo.Repo
	archive ReportArchive // optional
	logger  *slog.Logger

	cache   *cache.Cache
	sfGroup singleflight.Group

	rescoreParallelism int
	boardPrecision     int
}

type Option func(*ScoreSrvc)

func WithArchive(archive ReportArchive) Option {
	return func(s *ScoreSrvc) { s.archive = archive }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *ScoreSrvc) { s.logger = logger }
}

func WithRescoreParallelism(n int) Option {
	return func(s *ScoreSrvc) {
		if n > 0 {
			s.rescoreParallelism = n
		}
	}
}

// WithBoardPrecision sets the precision of scoreboard totals.
func WithBoardPrecision(precision int) Option {
	return func(s *ScoreSrvc) { s.boardPrecision = precision }
}

func NewScoreSrvc(repo scorerepo.Repo, opts ...Option) *ScoreSrvc {
	s := &ScoreSrvc{
		repo:               repo,
		logger:             slog.Default(),
		cache:              cache.New(maxScoresCacheTTL, 2*maxScoresCacheTTL),
		rescoreParallelism: defaultRescoreParallelism,
		boardPrecision:     defaultBoardPrecision,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScoreSubm computes the report of a submission from its current
// evaluation state and stores it.
func (s *ScoreSrvc) ScoreSubm(ctx context.Context, submUUID uuid.UUID) (scoring.ScoreReport, error) {
	ctx = logger.WithSubm(s.withLogger(ctx), submUUID.String())
	log := logger.FromContext(ctx)

	subm, err := s.repo.GetSubmResult(ctx, submUUID)
	if err != nil {
		return scoring.ScoreReport{}, err
	}
	task, err := s.repo.GetTaskScoring(ctx, subm.TaskID)
	if err != nil {
		return scoring.ScoreReport{}, err
	}
	policy, err := task.Policy()
	if err != nil {
		return scoring.ScoreReport{}, srvcerror.ErrScoringMisconfigured(err)
	}

	report, err := scoring.BuildReport(policy, task.Result(subm.Evaluated, subm.Evaluations), task.Params)
	if err != nil {
		var missing *scoring.MissingEvaluationError
		if errors.As(err, &missing) {
			return scoring.ScoreReport{}, srvcerror.ErrScoringMisconfigured(err)
		}
		return scoring.ScoreReport{}, fmt.Errorf("failed to build score report: %w", err)
	}

	if err := s.repo.StoreReport(ctx, submUUID, report); err != nil {
		return scoring.ScoreReport{}, err
	}

	if s.archive != nil {
		if err := s.archive.Put(ctx, submUUID, report); err != nil {
			log.Error("failed to archive score report", "error", err)
		}
	}

	log.Info("scored submission",
		"task_id", subm.TaskID,
		"evaluated", subm.Evaluated,
		"score", report.Score,
		"public_score", report.PublicScore)
	return report, nil
}

// SubmAuthor returns the author of a submission.
func (s *ScoreSrvc) SubmAuthor(ctx context.Context, submUUID uuid.UUID) (uuid.UUID, error) {
	subm, err := s.repo.GetSubmResult(ctx, submUUID)
	if err != nil {
		return uuid.Nil, err
	}
	return subm.AuthorUUID, nil
}

// GetReport returns the stored report of a submission. Unless private
// is set only the public part is included.
func (s *ScoreSrvc) GetReport(ctx context.Context, submUUID uuid.UUID, private bool) (ReportView, error) {
	subm, err := s.repo.GetSubmResult(ctx, submUUID)
	if err != nil {
		return ReportView{}, err
	}
	report, err := s.repo.GetReport(ctx, submUUID)
	if err != nil {
		return ReportView{}, err
	}
	maxScores, err := s.TaskMaxScores(ctx, subm.TaskID)
	if err != nil {
		return ReportView{}, err
	}
	return newReportView(subm, report, maxScores, private), nil
}

func maxScoresCacheKey(taskID string) string {
	return maxScoresCacheKeyPrefix + taskID
}

// TaskMaxScores returns the maximum total and public scores of a task.
// Results are cached until InvalidateTask or expiry.
func (s *ScoreSrvc) TaskMaxScores(ctx context.Context, taskID string) (scoring.MaxScoreInfo, error) {
	cacheKey := maxScoresCacheKey(taskID)
	if cached, found := s.cache.Get(cacheKey); found {
		if info, ok := cached.(scoring.MaxScoreInfo); ok {
			return cloneMaxScores(info), nil
		}
	}

	result, err, _ := s.sfGroup.Do(cacheKey, func() (any, error) {
		if cached, found := s.cache.Get(cacheKey); found {
			if info, ok := cached.(scoring.MaxScoreInfo); ok {
				return info, nil
			}
		}

		// the result is shared with callers other than the first
		task, err := s.repo.GetTaskScoring(context.WithoutCancel(ctx), taskID)
		if err != nil {
			return nil, err
		}
		info := task.MaxScores()
		s.cache.Set(cacheKey, info, cache.DefaultExpiration)
		return info, nil
	})
	if err != nil {
		return scoring.MaxScoreInfo{}, err
	}

	info, _ := result.(scoring.MaxScoreInfo)
	return cloneMaxScores(info), nil
}

// InvalidateTask drops cached data of a task after its scoring
// configuration changed.
func (s *ScoreSrvc) InvalidateTask(taskID string) {
	s.cache.Delete(maxScoresCacheKey(taskID))
}

// RescoreTask recomputes the reports of all submissions of a task and
// returns how many were rescored.
func (s *ScoreSrvc) RescoreTask(ctx context.Context, taskID string) (int, error) {
	s.InvalidateTask(taskID)
	if _, err := s.repo.GetTaskScoring(ctx, taskID); err != nil {
		return 0, err
	}

	subms, err := s.repo.ListTaskSubms(ctx, taskID)
	if err != nil {
		return 0, err
	}

	var rescored atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.rescoreParallelism)
	for _, submUUID := range subms {
		g.Go(func() error {
			if _, err := s.ScoreSubm(gctx, submUUID); err != nil {
				return fmt.Errorf("failed to rescore %s: %w", submUUID, err)
			}
			rescored.Add(1)
			return nil
		})
	}
	err = g.Wait()

	s.logger.Info("rescored task",
		"task_id", taskID,
		"submissions", len(subms),
		"rescored", rescored.Load())
	return int(rescored.Load()), err
}

// UserScoreboard returns the best score of a user for every task they
// have submitted to. Unless private is set the rows are built from
// public scores only.
func (s *ScoreSrvc) UserScoreboard(ctx context.Context, authorUUID uuid.UUID, private bool) (scoreboard.Row, error) {
	reports, err := s.repo.ListUserReports(ctx, authorUUID)
	if err != nil {
		return scoreboard.Row{}, err
	}

	entries := make([]scoreboard.Entry, 0, len(reports))
	for _, r := range reports {
		score := r.PublicScore
		if private {
			score = r.Score
		}
		entries = append(entries, scoreboard.Entry{
			SubmUUID:  r.SubmUUID,
			TaskID:    r.TaskID,
			Evaluated: r.Evaluated,
			Scored:    r.Scored,
			Score:     score,
			CreatedAt: r.CreatedAt,
		})
	}
	return scoreboard.BuildRow(entries, s.boardPrecision), nil
}

// withLogger falls back to the service logger when the caller did not
// attach a request scoped one.
func (s *ScoreSrvc) withLogger(ctx context.Context) context.Context {
	if _, ok := ctx.Value(logger.LoggerKey).(*slog.Logger); ok {
		return ctx
	}
	return logger.WithLogger(ctx, s.logger)
}

func cloneMaxScores(info scoring.MaxScoreInfo) scoring.MaxScoreInfo {
	info.Headers = slices.Clone(info.Headers)
	return info
}
