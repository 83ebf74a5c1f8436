package home

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/learnloop/internal/course"
	"github.com/abhisek/learnloop/internal/router"
	"github.com/abhisek/learnloop/internal/screen"
	"github.com/abhisek/learnloop/internal/screens/history"
	"github.com/abhisek/learnloop/internal/screens/modules"
	"github.com/abhisek/learnloop/internal/screens/player"
	"github.com/abhisek/learnloop/internal/store"
	"github.com/abhisek/learnloop/internal/ui/components"
	"github.com/abhisek/learnloop/internal/ui/layout"
	"github.com/abhisek/learnloop/internal/ui/theme"
)

// HomeScreen lists the courses with their progress.
type HomeScreen struct {
	catalog *course.Catalog
	deps    player.Deps
	events  store.EventRepo
	user    string
	menu    components.Menu
}

var _ screen.Screen = (*HomeScreen)(nil)
var _ screen.KeyHintProvider = (*HomeScreen)(nil)
var _ screen.Resumer = (*HomeScreen)(nil)
var _ screen.StatusProvider = (*HomeScreen)(nil)

// New creates a new HomeScreen. user is shown in the header; "" means
// progress is kept only on this device.
func New(catalog *course.Catalog, deps player.Deps, events store.EventRepo, user string) *HomeScreen {
	h := &HomeScreen{catalog: catalog, deps: deps, events: events, user: user}
	h.menu = components.NewMenu(h.items())
	return h
}

func (h *HomeScreen) items() []components.MenuItem {
	courses := h.catalog.Courses()
	items := make([]components.MenuItem, 0, len(courses))
	for _, c := range courses {
		percent := 0
		if h.deps.Progress != nil {
			percent = h.deps.Progress.CourseProgress(c.ID)
		}
		items = append(items, components.MenuItem{
			Label:  c.Title,
			Detail: components.NewProgressBar("", percent, true, 30).View(),
			Action: func() tea.Cmd {
				return func() tea.Msg {
					return router.PushScreenMsg{Screen: modules.New(c, h.deps)}
				}
			},
		})
	}
	return items
}

func (h *HomeScreen) Init() tea.Cmd {
	return nil
}

// Resume refreshes course progress after returning from a course.
func (h *HomeScreen) Resume() tea.Cmd {
	selected := h.menu.Selected
	h.menu = components.NewMenu(h.items())
	if selected < len(h.menu.Items) {
		h.menu.Selected = selected
	}
	return nil
}

func (h *HomeScreen) Title() string {
	return "Courses"
}

func (h *HomeScreen) Status() string {
	if h.user == "" {
		return "offline"
	}
	return h.user
}

func (h *HomeScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Open"},
	}
	if h.events != nil {
		hints = append(hints, layout.KeyHint{Key: "H", Description: "Activity"})
	}
	return append(hints, layout.KeyHint{Key: "Q", Description: "Quit"})
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch kmsg.String() {
		case "q":
			return h, tea.Quit
		case "h":
			if h.events != nil {
				return h, func() tea.Msg {
					return router.PushScreenMsg{Screen: history.New(h.events, h.catalog)}
				}
			}
		}
	}
	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) View(width, height int) string {
	cw := min(width-4, 100)

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(theme.Title.Render("  Your courses"))
	b.WriteString("\n\n")
	if len(h.menu.Items) == 0 {
		b.WriteString(theme.Hint.Render("  No courses found."))
		return b.String()
	}
	b.WriteString(h.menu.View(cw))

	if c := h.selected(); c != nil && c.Description != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().
			Width(cw).
			PaddingLeft(4).
			Foreground(theme.TextDim).
			Render(c.Description))
		b.WriteString("\n")
		b.WriteString(theme.Hint.Render(fmt.Sprintf("    %d modules", len(c.Modules))))
	}
	return b.String()
}

func (h *HomeScreen) selected() *course.Course {
	courses := h.catalog.Courses()
	if h.menu.Selected < 0 || h.menu.Selected >= len(courses) {
		return nil
	}
	return courses[h.menu.Selected]
}
