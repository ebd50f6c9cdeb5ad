package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/programme-lv/scorer/logger"
	"github.com/programme-lv/scorer/scoring"
	"github.com/programme-lv/scorer/taskconf"
	"github.com/programme-lv/scorer/translations"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "scorecli",
		Usage: "compute submission scores from task configuration and test results",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "debug logging"},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			level := slog.LevelInfo
			if cmd.Bool("verbose") {
				level = slog.LevelDebug
			}
			slog.SetDefault(logger.NewTerminal(os.Stderr, level))
			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:  "score",
				Usage: "score a submission",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "task", Required: true, Usage: "task directory or problem.toml"},
					&cli.StringFlag{Name: "results", Required: true, Usage: "evaluation results JSON"},
					&cli.BoolFlag{Name: "json", Usage: "print the report as JSON"},
					&cli.StringFlag{Name: "lang", Value: "en", Usage: "language of labels (en, lv)"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return scoreCmd(ctx, os.Stdout, cmd.String("task"), cmd.String("results"),
						cmd.Bool("json"), cmd.String("lang"))
				},
			},
			{
				Name:  "max",
				Usage: "print maximum scores of a task",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "task", Required: true, Usage: "task directory or problem.toml"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return maxCmd(os.Stdout, cmd.String("task"))
				},
			},
			{
				Name:  "validate",
				Usage: "check the scoring configuration of a task",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "task", Required: true, Usage: "task directory or problem.toml"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return validateCmd(os.Stdout, cmd.String("task"))
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// loadTask accepts a task directory or a path to its problem.toml.
func loadTask(path string) (taskconf.TaskScoring, error) {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		content, err := os.ReadFile(path)
		if err != nil {
			return taskconf.TaskScoring{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return taskconf.ParseTaskScoring(content)
	}
	return taskconf.ReadTaskScoring(path)
}

type resultsFile struct {
	Evaluated   bool                 `json:"evaluated"`
	Evaluations []scoring.Evaluation `json:"evaluations"`
}

func readResults(path string) (resultsFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return resultsFile{}, fmt.Errorf("failed to read results: %w", err)
	}
	var res resultsFile
	if err := json.Unmarshal(content, &res); err != nil {
		return resultsFile{}, fmt.Errorf("failed to parse results: %w", err)
	}
	return res, nil
}

func scoreCmd(ctx context.Context, w io.Writer, taskPath, resultsPath string, asJson bool, lang string) error {
	task, err := loadTask(taskPath)
	if err != nil {
		return err
	}
	res, err := readResults(resultsPath)
	if err != nil {
		return err
	}
	policy, err := task.Policy()
	if err != nil {
		return err
	}
	slog.Debug("scoring",
		"policy", policy.Name(),
		"subtasks", len(task.Params),
		"evaluations", len(res.Evaluations))

	report, err := scoring.BuildReportParallel(ctx, policy, task.Result(res.Evaluated, res.Evaluations), task.Params)
	if err != nil {
		return err
	}

	if asJson {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printer := translations.NewPrinter(translations.Match(lang))
	_, err = fmt.Fprintln(w, renderReport(report, task.MaxScores(), printer))
	return err
}

func maxCmd(w io.Writer, taskPath string) error {
	task, err := loadTask(taskPath)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, renderMaxScores(task.MaxScores()))
	return err
}
