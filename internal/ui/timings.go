package ui

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"lirc/internal/pipeline"
)

// TimingsTable renders per-bundle stage durations in milliseconds, with a
// total row when there is more than one bundle.
func TimingsTable(results []pipeline.Result) string {
	headers := []string{"bundle"}
	for _, st := range pipeline.Stages {
		headers = append(headers, string(st))
	}
	headers = append(headers, "total", "monomorphs")

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers(headers...)

	var sum pipeline.Timings
	instances := 0
	for _, res := range results {
		row := []string{truncate(filepath.Base(res.Path), 32)}
		for _, st := range pipeline.Stages {
			row = append(row, stageCell(res.Timings, st))
		}
		row = append(row, millis(res.Timings.Sum()), fmt.Sprint(res.Stats.Instantiations))
		t.Row(row...)
		sum.Merge(res.Timings)
		instances += res.Stats.Instantiations
	}
	if len(results) > 1 {
		row := []string{"total"}
		for _, st := range pipeline.Stages {
			row = append(row, stageCell(sum, st))
		}
		row = append(row, millis(sum.Sum()), fmt.Sprint(instances))
		t.Row(row...)
	}
	return t.String()
}

func stageCell(t pipeline.Timings, st pipeline.Stage) string {
	if !t.Has(st) {
		return "-"
	}
	return millis(t.Duration(st))
}

func millis(d time.Duration) string {
	return fmt.Sprintf("%.2f", float64(d)/float64(time.Millisecond))
}
