package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"lirc/internal/pipeline"
	"lirc/internal/ui"
)

type checkOutcome struct {
	results []pipeline.Result
	err     error
}

func runCheckWithUI(ctx context.Context, title string, paths []string, opts pipeline.Options) ([]pipeline.Result, error) {
	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan checkOutcome, 1)

	go func() {
		opts.Progress = pipeline.ChannelSink{Ch: events}
		res, err := pipeline.Check(ctx, paths, opts)
		outcomeCh <- checkOutcome{results: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, paths, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// the view may quit early (ctrl+c); keep the pipeline from blocking on a full channel
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
