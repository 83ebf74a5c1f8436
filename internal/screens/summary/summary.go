package summary

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/learnloop/internal/router"
	"github.com/abhisek/learnloop/internal/screen"
	"github.com/abhisek/learnloop/internal/skills"
	"github.com/abhisek/learnloop/internal/ui/components"
	"github.com/abhisek/learnloop/internal/ui/layout"
	"github.com/abhisek/learnloop/internal/ui/theme"
)

// Data is what a module summary shows.
type Data struct {
	CourseTitle  string
	ModuleTitle  string
	Progress     int
	QuizScore    *float64
	AverageScore *float64
	Skills       []skills.SkillScore // raw observations; merged for display
	Email        string              // where the summary e-mail goes, "" when signed out
}

// Render draws the summary body. It is shared by the summary screen and the
// player's dashboard slide.
func Render(d Data, width int) string {
	center := func(s string) string {
		return lipgloss.PlaceHorizontal(width, lipgloss.Center, s)
	}
	var b strings.Builder

	b.WriteString(center(theme.Title.Render(d.ModuleTitle)))
	b.WriteString("\n")
	if d.CourseTitle != "" {
		b.WriteString(center(theme.Subtitle.Render(d.CourseTitle)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	barWidth := min(width-8, 60)
	b.WriteString(center(components.NewProgressBar("Progress", d.Progress, true, barWidth).View()))
	b.WriteString("\n\n")

	stats := []string{"Quiz: " + formatScore(d.QuizScore, "%")}
	stats = append(stats, "Average: "+formatScore(d.AverageScore, " / 5"))
	b.WriteString(center(theme.Body.Render(strings.Join(stats, "        "))))
	b.WriteString("\n\n")

	merged := skills.Dedupe(d.Skills)
	if len(merged) > 0 {
		divider := lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", max(barWidth, 0)))
		b.WriteString(center(theme.Subtitle.Render("Skills")))
		b.WriteString("\n")
		b.WriteString(center(divider))
		b.WriteString("\n")
		for _, s := range merged {
			line := fmt.Sprintf("%-28s %.1f", s.Name, s.Score)
			style := theme.Body
			if s.Score >= 4 {
				style = theme.Correct
			}
			b.WriteString(center(style.Render(line)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if d.Email != "" {
		b.WriteString(center(theme.Hint.Render("A summary will be sent to " + d.Email)))
	} else {
		b.WriteString(center(theme.Hint.Render("Sign in to receive this summary by e-mail")))
	}
	return b.String()
}

func formatScore(v *float64, unit string) string {
	if v == nil {
		return "–"
	}
	return fmt.Sprintf("%.1f%s", *v, unit)
}

// SummaryScreen displays a module summary.
type SummaryScreen struct {
	data Data
}

var _ screen.Screen = (*SummaryScreen)(nil)
var _ screen.KeyHintProvider = (*SummaryScreen)(nil)

// New creates a new SummaryScreen.
func New(d Data) *SummaryScreen {
	return &SummaryScreen{data: d}
}

func (s *SummaryScreen) Init() tea.Cmd {
	return nil
}

func (s *SummaryScreen) Title() string {
	return "Module Summary"
}

func (s *SummaryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Continue"},
		{Key: "h", Description: "All courses"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *SummaryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch kmsg.String() {
		case "enter", "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "h":
			return s, func() tea.Msg { return router.PopToRootMsg{} }
		}
	}
	return s, nil
}

func (s *SummaryScreen) View(width, height int) string {
	return "\n" + Render(s.data, width)
}
