// Package screen defines what the router needs from every full-terminal
// view, plus the optional hooks the app frame looks for.
package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/learnloop/internal/ui/layout"
)

// Screen is one routed view. View renders the body only; the app draws the
// header and footer around it.
type Screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Screen, tea.Cmd)
	View(width, height int) string
	Title() string
}

// KeyHintProvider replaces the default footer hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// StatusProvider supplies the text on the right of the header, such as the
// signed-in e-mail.
type StatusProvider interface {
	Status() string
}

// Resumer reloads state when the screen is uncovered by a pop, e.g. module
// progress after leaving the player.
type Resumer interface {
	Resume() tea.Cmd
}
