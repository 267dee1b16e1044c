package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gamc/sensorwatch/internal/ui"
)

// forwardUpdates turns controller change notifications into UI messages. It
// returns when ctx is done or the controller closes its channel.
func forwardUpdates(ctx context.Context, updates <-chan struct{}, send func(tea.Msg)) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-updates:
			if !ok {
				return
			}
			send(ui.ChangedMsg{})
		}
	}
}
