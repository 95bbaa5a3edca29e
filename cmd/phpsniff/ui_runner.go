package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"phpsniff/internal/ui"
)

// runWithUI drives work while a progress view renders its events. work
// must return once ctx is done; the channel is closed after it returns.
// Quitting the view cancels the remaining work.
func runWithUI(ctx context.Context, title string, files []string, work func(context.Context, ui.ProgressSink) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events := make(chan ui.Event, 256)
	outcome := make(chan error, 1)

	go func() {
		err := work(ctx, ui.ChannelSink{Ch: events})
		close(events)
		outcome <- err
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	cancel()
	// The view may have stopped reading; keep draining so work can finish.
	go func() {
		for range events {
		}
	}()
	err := <-outcome
	if uiErr != nil {
		return uiErr
	}
	return err
}
