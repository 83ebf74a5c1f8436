package modules

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/learnloop/internal/course"
	"github.com/abhisek/learnloop/internal/router"
	"github.com/abhisek/learnloop/internal/screen"
	"github.com/abhisek/learnloop/internal/screens/player"
	"github.com/abhisek/learnloop/internal/screens/summary"
	"github.com/abhisek/learnloop/internal/ui/components"
	"github.com/abhisek/learnloop/internal/ui/layout"
	"github.com/abhisek/learnloop/internal/ui/theme"
)

// ModulesScreen lists the modules of a course. A module whose required
// modules are unfinished is shown locked.
type ModulesScreen struct {
	course *course.Course
	deps   player.Deps
	menu   components.Menu
}

var _ screen.Screen = (*ModulesScreen)(nil)
var _ screen.KeyHintProvider = (*ModulesScreen)(nil)
var _ screen.Resumer = (*ModulesScreen)(nil)
var _ screen.StatusProvider = (*ModulesScreen)(nil)

// New creates a new ModulesScreen.
func New(c *course.Course, deps player.Deps) *ModulesScreen {
	s := &ModulesScreen{course: c, deps: deps}
	s.menu = components.NewMenu(s.items())
	return s
}

func (s *ModulesScreen) moduleProgress(moduleID string) int {
	if s.deps.Progress == nil {
		return 0
	}
	return s.deps.Progress.ModuleProgress(s.course.ID, moduleID)
}

func (s *ModulesScreen) items() []components.MenuItem {
	done := func(moduleID string) bool { return s.moduleProgress(moduleID) >= 100 }

	items := make([]components.MenuItem, 0, len(s.course.Modules))
	for i := range s.course.Modules {
		m := &s.course.Modules[i]
		locked := s.course.Locked(m.ID, done)
		detail := components.NewProgressBar("", s.moduleProgress(m.ID), true, 30).View()
		if locked {
			detail = theme.Disabled.Render("locked: finish " + strings.Join(m.Requires, ", "))
		}
		items = append(items, components.MenuItem{
			Label:    fmt.Sprintf("%d. %s", i+1, m.Title),
			Detail:   detail,
			Disabled: locked,
			Action: func() tea.Cmd {
				return func() tea.Msg {
					return router.PushScreenMsg{Screen: player.New(s.deps, s.course, m)}
				}
			},
		})
	}
	return items
}

func (s *ModulesScreen) Init() tea.Cmd {
	return nil
}

// Resume refreshes progress and locks after leaving the player.
func (s *ModulesScreen) Resume() tea.Cmd {
	selected := s.menu.Selected
	s.menu = components.NewMenu(s.items())
	if selected < len(s.menu.Items) && !s.menu.Items[selected].Disabled {
		s.menu.Selected = selected
	}
	return nil
}

func (s *ModulesScreen) Title() string {
	return s.course.Title
}

func (s *ModulesScreen) Status() string {
	if s.deps.Progress == nil {
		return ""
	}
	return fmt.Sprintf("%d%%", s.deps.Progress.CourseProgress(s.course.ID))
}

func (s *ModulesScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Play"},
		{Key: "S", Description: "Summary"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *ModulesScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch kmsg.String() {
		case "esc", "q":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "s":
			return s, s.openSummary()
		}
	}
	var cmd tea.Cmd
	s.menu, cmd = s.menu.Update(msg)
	return s, cmd
}

func (s *ModulesScreen) openSummary() tea.Cmd {
	if s.deps.Summaries == nil || s.menu.Selected >= len(s.course.Modules) {
		return nil
	}
	src, courseID, moduleID := s.deps.Summaries, s.course.ID, s.course.Modules[s.menu.Selected].ID
	return func() tea.Msg {
		d := src.Summary(context.Background(), courseID, moduleID)
		return router.PushScreenMsg{Screen: summary.New(d)}
	}
}

func (s *ModulesScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(theme.Title.Render("  " + s.course.Title))
	b.WriteString("\n")
	if s.course.Description != "" {
		b.WriteString(theme.Subtitle.Render("  " + s.course.Description))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(s.menu.View(min(width-4, 100)))
	return b.String()
}
