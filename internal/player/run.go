package player

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Run plays the track full screen until the user quits or ctx ends.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
