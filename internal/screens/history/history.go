package history

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/learnloop/internal/course"
	"github.com/abhisek/learnloop/internal/router"
	"github.com/abhisek/learnloop/internal/screen"
	"github.com/abhisek/learnloop/internal/store"
	"github.com/abhisek/learnloop/internal/ui/layout"
	"github.com/abhisek/learnloop/internal/ui/theme"
)

// pageSize is the number of recent events shown.
const pageSize = 100

type historyLoadedMsg struct {
	Events []store.Event
	Err    error
}

// HistoryScreen shows recent learning activity from the local event log.
type HistoryScreen struct {
	eventRepo store.EventRepo
	catalog   *course.Catalog
	events    []store.Event
	selected  int
	expanded  map[int]bool
	loaded    bool
	errMsg    string
}

var _ screen.Screen = (*HistoryScreen)(nil)
var _ screen.KeyHintProvider = (*HistoryScreen)(nil)

// New creates a new HistoryScreen. catalog resolves titles and may be nil.
func New(eventRepo store.EventRepo, catalog *course.Catalog) *HistoryScreen {
	return &HistoryScreen{
		eventRepo: eventRepo,
		catalog:   catalog,
		expanded:  make(map[int]bool),
	}
}

func (s *HistoryScreen) Init() tea.Cmd {
	return func() tea.Msg {
		events, err := s.eventRepo.QueryEvents(context.Background(), "", store.QueryOpts{Limit: pageSize})
		if err != nil {
			return historyLoadedMsg{Err: err}
		}
		// Model calls are listed by `learnloop llm`, not here.
		activity := events[:0]
		for _, e := range events {
			if e.Kind != store.KindLLMRequest {
				activity = append(activity, e)
			}
		}
		return historyLoadedMsg{Events: activity}
	}
}

func (s *HistoryScreen) Title() string {
	return "Activity"
}

func (s *HistoryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Details"},
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *HistoryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
		} else {
			s.events = msg.Events
		}
		s.loaded = true
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "q":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
			return s, nil
		case "down", "j":
			if s.selected < len(s.events)-1 {
				s.selected++
			}
			return s, nil
		case "enter":
			s.expanded[s.selected] = !s.expanded[s.selected]
			return s, nil
		}
	}
	return s, nil
}

func (s *HistoryScreen) View(width, height int) string {
	if s.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.Error).
			Render(fmt.Sprintf("\n\nError: %s", s.errMsg))
	}
	if !s.loaded {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n  Loading activity...")
	}
	if len(s.events) == 0 {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).Italic(true).
			Render("\n\n  No activity yet. Open a course to get started!")
	}

	var lines []string
	selectedLine := 0
	for i, e := range s.events {
		prefix := "  "
		style := lipgloss.NewStyle().Foreground(theme.Text)
		if i == s.selected {
			prefix = "> "
			style = style.Foreground(theme.Primary).Bold(true)
			selectedLine = len(lines)
		}
		lines = append(lines, style.Render(fmt.Sprintf("%s%s  %s",
			prefix, e.Timestamp.Local().Format("Jan 02 15:04"), s.describe(e))))

		if s.expanded[i] {
			for _, d := range details(e) {
				lines = append(lines, theme.Hint.Render("      "+d))
			}
		}
	}

	// Keep the selection inside the window.
	offset := max(0, selectedLine-height+2)
	visible, _ := layout.Window(strings.Join(lines, "\n"), offset, height-1)
	return "\n" + visible
}

func (s *HistoryScreen) moduleTitle(courseID, moduleID string) string {
	if s.catalog != nil {
		if _, m, err := s.catalog.Module(courseID, moduleID); err == nil {
			return m.Title
		}
	}
	return moduleID
}

func (s *HistoryScreen) describe(e store.Event) string {
	module := s.moduleTitle(e.CourseID, e.ModuleID)
	switch e.Kind {
	case store.KindSlideView:
		var d store.SlideViewEventData
		if e.Decode(&d) == nil {
			return fmt.Sprintf("Viewed slide %d of %s (%d%%)", d.SlideIndex+1, module, d.Progress)
		}
	case store.KindQuizAnswer:
		var d store.QuizAnswerEventData
		if e.Decode(&d) == nil {
			verdict := "incorrect"
			if d.IsCorrect {
				verdict = "correct"
			}
			return fmt.Sprintf("Answered a quiz in %s: %s", module, verdict)
		}
	case store.KindModuleCompleted:
		return "Completed " + module
	}
	return e.Kind
}

func details(e store.Event) []string {
	out := []string{fmt.Sprintf("#%d  %s", e.Sequence, e.Kind)}
	if e.SlideID != "" {
		out = append(out, "slide: "+e.SlideID)
	}
	if e.Kind == store.KindModuleCompleted {
		var d store.CompletionEventData
		if e.Decode(&d) == nil {
			if d.QuizScore != nil {
				out = append(out, fmt.Sprintf("quiz score: %.1f%%", *d.QuizScore))
			}
			if d.AverageScore != nil {
				out = append(out, fmt.Sprintf("average skill score: %.1f / 5", *d.AverageScore))
			}
			if d.Dispatched {
				out = append(out, "summary e-mail sent")
			} else if d.ErrorMessage != "" {
				out = append(out, "summary e-mail not sent: "+d.ErrorMessage)
			}
		}
	}
	return out
}
