package scoreboard

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/programme-lv/scorer/scoring"
)

// Entry is one submission of a user as seen by the scoreboard.
type Entry struct {
	SubmUUID  uuid.UUID
	TaskID    string
	Evaluated bool    // false while the tester is still running
	Scored    bool    // false while the submission has no report yet
	Score     float64 // report score, already rounded to task precision
	CreatedAt time.Time
}

// TaskScore is the best score the user has received on a task.
type TaskScore struct {
	SubmUUID  uuid.UUID `json:"subm_uuid"`
	Score     float64   `json:"score"`
	Partial   bool      `json:"partial"` // some submissions are not evaluated yet
	CreatedAt time.Time `json:"created_at"`
}

type Row struct {
	Tasks   map[string]TaskScore `json:"tasks"`
	Total   float64              `json:"total"`
	Partial bool                 `json:"partial"`
}

// BestPerTask returns a map of task ids to the best scored submission
// for that task. Ties go to the earlier submission. A task is partial
// while any of its submissions is unevaluated or unscored; reports of
// unevaluated submissions still compete for the best score.
func BestPerTask(entries []Entry) map[string]TaskScore {
	best := make(map[string]TaskScore)
	partial := make(map[string]bool)

	for _, e := range entries {
		if !e.Evaluated {
			partial[e.TaskID] = true
		}
		if !e.Scored {
			partial[e.TaskID] = true
			if _, exists := best[e.TaskID]; !exists {
				best[e.TaskID] = TaskScore{}
			}
			continue
		}
		current := TaskScore{
			SubmUUID:  e.SubmUUID,
			Score:     e.Score,
			CreatedAt: e.CreatedAt,
		}
		existing, exists := best[e.TaskID]
		if !exists || existing.SubmUUID == uuid.Nil {
			best[e.TaskID] = current
		} else if current.Score > existing.Score {
			best[e.TaskID] = current
		} else if current.Score == existing.Score && current.CreatedAt.Before(existing.CreatedAt) {
			best[e.TaskID] = current
		}
	}

	for taskID := range partial {
		ts := best[taskID]
		ts.Partial = true
		best[taskID] = ts
	}
	return best
}

// BuildRow sums the best task scores of a user, rounded once to the
// contest precision.
func BuildRow(entries []Entry, precision int) Row {
	row := Row{Tasks: BestPerTask(entries)}

	taskIDs := make([]string, 0, len(row.Tasks))
	for id := range row.Tasks {
		taskIDs = append(taskIDs, id)
	}
	// fixed summation order keeps totals reproducible
	sort.Strings(taskIDs)

	total := 0.0
	for _, id := range taskIDs {
		ts := row.Tasks[id]
		total += ts.Score
		row.Partial = row.Partial || ts.Partial
	}
	row.Total = scoring.Round(total, precision)
	return row
}
