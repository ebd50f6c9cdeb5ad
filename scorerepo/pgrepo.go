package scorerepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/programme-lv/scorer/scoring"
	"github.com/programme-lv/scorer/srvcerror"
	"github.com/programme-lv/scorer/taskconf"
)

type PgRepo struct {
	pool *pgxpool.Pool
}

func NewPgRepo(pool *pgxpool.Pool) *PgRepo {
	return &PgRepo{pool: pool}
}

var _ Repo = (*PgRepo)(nil)

// PutTaskScoring inserts or replaces the scoring configuration of a task.
func (r *PgRepo) PutTaskScoring(ctx context.Context, taskID string, ts taskconf.TaskScoring) error {
	params, err := json.Marshal(ts.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal subtask params: %w", err)
	}
	public := make([]string, 0, len(ts.PublicTestcases))
	for code, isPublic := range ts.PublicTestcases {
		if isPublic {
			public = append(public, code)
		}
	}
	sort.Strings(public)

	query := `
		INSERT INTO task_scoring (
			task_id, score_type, score_precision, params, public_testcases, updated_at
		) VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (task_id) DO UPDATE SET
			score_type = EXCLUDED.score_type,
			score_precision = EXCLUDED.score_precision,
			params = EXCLUDED.params,
			public_testcases = EXCLUDED.public_testcases,
			updated_at = NOW()
	`
	_, err = r.pool.Exec(ctx, query, taskID, ts.ScoreType, ts.Precision, string(params), public)
	if err != nil {
		return fmt.Errorf("failed to upsert task scoring: %w", err)
	}
	return nil
}

func (r *PgRepo) GetTaskScoring(ctx context.Context, taskID string) (taskconf.TaskScoring, error) {
	query := `
		SELECT score_type, score_precision, params, public_testcases
		FROM task_scoring
		WHERE task_id = $1
	`
	var ts taskconf.TaskScoring
	var params []byte
	var public []string
	err := r.pool.QueryRow(ctx, query, taskID).Scan(&ts.ScoreType, &ts.Precision, &params, &public)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return taskconf.TaskScoring{}, srvcerror.ErrTaskNotFound(taskID)
		}
		return taskconf.TaskScoring{}, fmt.Errorf("failed to query task scoring: %w", err)
	}
	if err := json.Unmarshal(params, &ts.Params); err != nil {
		return taskconf.TaskScoring{}, fmt.Errorf("failed to unmarshal subtask params: %w", err)
	}
	ts.PublicTestcases = make(map[string]bool, len(public))
	for _, code := range public {
		ts.PublicTestcases[code] = true
	}
	return ts, nil
}

// StoreSubm inserts a submission together with its evaluations. An
// existing submission has its evaluations replaced.
func (r *PgRepo) StoreSubm(ctx context.Context, subm SubmSnapshot) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	submInsertQuery := `
		INSERT INTO submissions (
			uuid, task_id, author_uuid, evaluated, created_at
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (uuid) DO UPDATE SET evaluated = EXCLUDED.evaluated
	`
	createdAt := subm.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = tx.Exec(ctx, submInsertQuery,
		subm.SubmUUID,
		subm.TaskID,
		subm.AuthorUUID,
		subm.Evaluated,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}

	_, err = tx.Exec(ctx, `DELETE FROM evaluations WHERE subm_uuid = $1`, subm.SubmUUID)
	if err != nil {
		return fmt.Errorf("failed to clear evaluations: %w", err)
	}

	for _, ev := range subm.Evaluations {
		evalInsertQuery := `
			INSERT INTO evaluations (
				subm_uuid, codename, outcome, text_template, text_args, exec_time, exec_memory
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		args := ev.Text.Args
		if args == nil {
			args = []string{}
		}
		_, err = tx.Exec(ctx, evalInsertQuery,
			subm.SubmUUID,
			ev.Codename,
			ev.Outcome,
			ev.Text.Template,
			args,
			ev.ExecTime,
			ev.ExecMemory,
		)
		if err != nil {
			return fmt.Errorf("failed to insert evaluation %s: %w", ev.Codename, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *PgRepo) GetSubmResult(ctx context.Context, submUUID uuid.UUID) (SubmSnapshot, error) {
	submQuery := `
		SELECT uuid, task_id, author_uuid, evaluated, created_at
		FROM submissions
		WHERE uuid = $1
	`
	var s SubmSnapshot
	err := r.pool.QueryRow(ctx, submQuery, submUUID).Scan(
		&s.SubmUUID,
		&s.TaskID,
		&s.AuthorUUID,
		&s.Evaluated,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SubmSnapshot{}, srvcerror.ErrSubmNotFound(submUUID)
		}
		return SubmSnapshot{}, fmt.Errorf("failed to query submission: %w", err)
	}

	evalQuery := `
		SELECT codename, outcome, text_template, text_args, exec_time, exec_memory
		FROM evaluations
		WHERE subm_uuid = $1
		ORDER BY codename
	`
	rows, err := r.pool.Query(ctx, evalQuery, submUUID)
	if err != nil {
		return SubmSnapshot{}, fmt.Errorf("failed to query evaluations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ev scoring.Evaluation
		err := rows.Scan(
			&ev.Codename,
			&ev.Outcome,
			&ev.Text.Template,
			&ev.Text.Args,
			&ev.ExecTime,
			&ev.ExecMemory,
		)
		if err != nil {
			return SubmSnapshot{}, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		if len(ev.Text.Args) == 0 {
			ev.Text.Args = nil
		}
		s.Evaluations = append(s.Evaluations, ev)
	}
	if err := rows.Err(); err != nil {
		return SubmSnapshot{}, fmt.Errorf("error iterating evaluations: %w", err)
	}

	return s, nil
}

func (r *PgRepo) StoreReport(ctx context.Context, submUUID uuid.UUID, report scoring.ScoreReport) error {
	content, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal score report: %w", err)
	}
	query := `
		INSERT INTO score_reports (
			subm_uuid, score, public_score, report, scored_at
		) VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (subm_uuid) DO UPDATE SET
			score = EXCLUDED.score,
			public_score = EXCLUDED.public_score,
			report = EXCLUDED.report,
			scored_at = NOW()
	`
	_, err = r.pool.Exec(ctx, query, submUUID, report.Score, report.PublicScore, string(content))
	if err != nil {
		return fmt.Errorf("failed to store score report: %w", err)
	}
	return nil
}

func (r *PgRepo) GetReport(ctx context.Context, submUUID uuid.UUID) (scoring.ScoreReport, error) {
	var content []byte
	err := r.pool.QueryRow(ctx,
		`SELECT report FROM score_reports WHERE subm_uuid = $1`,
		submUUID,
	).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return scoring.ScoreReport{}, srvcerror.ErrReportNotFound()
		}
		return scoring.ScoreReport{}, fmt.Errorf("failed to query score report: %w", err)
	}
	var report scoring.ScoreReport
	if err := json.Unmarshal(content, &report); err != nil {
		return scoring.ScoreReport{}, fmt.Errorf("failed to unmarshal score report: %w", err)
	}
	return report, nil
}

func (r *PgRepo) ListTaskSubms(ctx context.Context, taskID string) ([]uuid.UUID, error) {
	query := `
		SELECT uuid FROM submissions
		WHERE task_id = $1
		ORDER BY created_at, uuid
	`
	rows, err := r.pool.Query(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query task submissions: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("failed to collect task submissions: %w", err)
	}
	return ids, nil
}

func (r *PgRepo) ListUserReports(ctx context.Context, authorUUID uuid.UUID) ([]UserTaskReport, error) {
	query := `
		SELECT s.uuid, s.task_id, s.evaluated, r.score, r.public_score, s.created_at
		FROM submissions s
		LEFT JOIN score_reports r ON r.subm_uuid = s.uuid
		WHERE s.author_uuid = $1
		ORDER BY s.created_at, s.uuid
	`
	rows, err := r.pool.Query(ctx, query, authorUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user reports: %w", err)
	}
	defer rows.Close()

	var res []UserTaskReport
	for rows.Next() {
		var rep UserTaskReport
		var score, publicScore *float64
		if err := rows.Scan(&rep.SubmUUID, &rep.TaskID, &rep.Evaluated, &score, &publicScore, &rep.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user report: %w", err)
		}
		if score != nil && publicScore != nil {
			rep.Scored = true
			rep.Score = *score
			rep.PublicScore = *publicScore
		}
		res = append(res, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user reports: %w", err)
	}
	return res, nil
}
