package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
	"github.com/programme-lv/scorer/scoring"
	"github.com/programme-lv/scorer/translations"
)

var (
	labelStyle = lipgloss.NewStyle().Bold(true)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#3498db"))
	cellStyle  = lipgloss.NewStyle().Padding(0, 1)
	border     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func renderReport(report scoring.ScoreReport, maxScores scoring.MaxScoreInfo, p translations.Printer) string {
	lines := []string{
		fmt.Sprintf("%s %s",
			labelStyle.Render(p.T("Score")+":"),
			valueStyle.Render(fmt.Sprintf("%s / %s",
				scoring.FormatCompact(report.Score), scoring.FormatCompact(maxScores.Total)))),
		fmt.Sprintf("%s %s",
			labelStyle.Render(p.T("Public score")+":"),
			valueStyle.Render(fmt.Sprintf("%s / %s",
				scoring.FormatCompact(report.PublicScore), scoring.FormatCompact(maxScores.Public)))),
	}

	if len(report.Subtasks) == 0 {
		return strings.Join(lines, "\n")
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(border).
		StyleFunc(func(row, col int) lipgloss.Style { return cellStyle }).
		Headers(p.T("Subtask"), p.T("Score"), "", "")

	for _, st := range report.Subtasks {
		t.Row(
			strconv.Itoa(st.Idx),
			fmt.Sprintf("%s / %s", formatPtr(st.Score), formatPtr(st.MaxScore)),
			p.T(st.Status),
			testcaseSummary(st.Testcases),
		)
	}
	lines = append(lines, t.String())
	return strings.Join(lines, "\n")
}

// testcaseSummary lists the outcome of every test case as one letter.
func testcaseSummary(tcs []scoring.TestcaseDetail) string {
	var sb strings.Builder
	for _, tc := range tcs {
		switch tc.Outcome {
		case scoring.LabelCorrect:
			sb.WriteByte('+')
		case scoring.LabelPartiallyCorrect:
			sb.WriteByte('~')
		default:
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

func renderMaxScores(info scoring.MaxScoreInfo) string {
	lines := []string{
		fmt.Sprintf("%s %s", labelStyle.Render("Total:"), valueStyle.Render(scoring.FormatCompact(info.Total))),
		fmt.Sprintf("%s %s", labelStyle.Render("Public:"), valueStyle.Render(scoring.FormatCompact(info.Public))),
	}
	for _, h := range info.Headers {
		lines = append(lines, "\t"+h)
	}
	return strings.Join(lines, "\n")
}

func formatPtr(v *float64) string {
	if v == nil {
		return "?"
	}
	return scoring.FormatCompact(*v)
}

func validateCmd(w io.Writer, taskPath string) error {
	task, err := loadTask(taskPath)
	if err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(w, "invalid: %v\n", err)
		return err
	}
	if _, err := task.Policy(); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(w, "invalid: %v\n", err)
		return err
	}

	info := task.MaxScores()
	color.New(color.FgGreen, color.Bold).Fprint(w, "ok")
	fmt.Fprintf(w, ": %d subtasks, %s points, %s public\n",
		len(task.Params), scoring.FormatCompact(info.Total), scoring.FormatCompact(info.Public))
	return nil
}
