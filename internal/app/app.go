package app

import (
	"context"
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/learnloop/internal/router"
	"github.com/abhisek/learnloop/internal/screen"
	"github.com/abhisek/learnloop/internal/screens/home"
	"github.com/abhisek/learnloop/internal/screens/player"
	"github.com/abhisek/learnloop/internal/ui/layout"
)

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router *router.Router
	width  int
	height int
}

// PlayerDeps returns the services the course player needs.
func (s *Services) PlayerDeps() player.Deps {
	return player.Deps{
		Progress:  s.Progress,
		Quiz:      s.Quiz,
		Tutor:     s.Tutor,
		Skills:    s.Skills,
		Summaries: s.Effects,
		Effects:   s.Effects,
		Metrics:   s.Metrics,
		Log:       s.Log,
	}
}

// newAppModel creates a new AppModel with the course list as home screen.
func newAppModel(ctx context.Context, s *Services) AppModel {
	user := ""
	if sess, err := s.Sessions.Current(ctx); err == nil {
		user = sess.Email
	}
	return AppModel{
		router: router.New(home.New(s.Catalog, s.PlayerDeps(), s.Store.EventRepo(), user)),
	}
}

func (m AppModel) Init() tea.Cmd {
	return nil
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		// Screens handle esc themselves; the player uses it to stop typing.
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	title, status := "", ""
	if active != nil {
		title = active.Title()
		if sp, ok := active.(screen.StatusProvider); ok {
			status = sp.Status()
		}
	}

	header := layout.RenderHeader(title, status, m.width)

	footerHints := []layout.KeyHint{
		{Key: "Ctrl+C", Description: "Quit"},
	}
	if hp, ok := active.(screen.KeyHintProvider); ok {
		footerHints = append(hp.KeyHints(), footerHints...)
	}
	footer := layout.RenderFooter(footerHints, m.width)

	contentHeight := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 0)

	content := m.router.View(m.width, contentHeight)
	v.SetContent(layout.RenderFrame(header, content, footer, m.width, m.height))
	return v
}

// Run starts the Bubble Tea program and waits for background effects to
// finish once it exits.
func Run(ctx context.Context, s *Services) error {
	p := tea.NewProgram(newAppModel(ctx, s), tea.WithContext(ctx))
	_, err := p.Run()
	s.Effects.Wait()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
