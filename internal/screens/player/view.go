package player

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/learnloop/internal/course"
	"github.com/abhisek/learnloop/internal/navigator"
	"github.com/abhisek/learnloop/internal/screens/summary"
	"github.com/abhisek/learnloop/internal/tutor"
	"github.com/abhisek/learnloop/internal/ui/components"
	"github.com/abhisek/learnloop/internal/ui/layout"
	"github.com/abhisek/learnloop/internal/ui/theme"
)

// View renders the info line, the slide body in its scroll window and a
// status line. It also reports the body geometry to the navigator.
func (p *PlayerScreen) View(width, height int) string {
	bodyWidth := max(width-6, 20)

	info := p.renderInfo(width)
	status := p.renderStatus(width)
	bodyHeight := max(height-lipgloss.Height(info)-lipgloss.Height(status)-2, 1)

	body := p.renderSlide(p.slide(), bodyWidth)
	_, total := layout.Window(body, 0, bodyHeight)
	p.offset = max(0, min(p.offset, total-bodyHeight))
	visible, _ := layout.Window(body, p.offset, bodyHeight)

	p.nav.SetInnerScroll(navigator.ScrollState{
		Offset:          float64(p.offset) * rowHeight,
		ContentHeight:   float64(total) * rowHeight,
		ContainerHeight: float64(bodyHeight) * rowHeight,
	})

	padded := lipgloss.NewStyle().
		PaddingLeft(3).
		Height(bodyHeight).
		Render(visible)

	return info + "\n\n" + padded + "\n" + status
}

func (p *PlayerScreen) renderInfo(width int) string {
	left := lipgloss.NewStyle().
		Foreground(theme.Secondary).
		Bold(true).
		Render("  " + p.course.Title)

	percent := 0
	if p.deps.Progress != nil {
		percent = p.deps.Progress.ModuleProgress(p.course.ID, p.module.ID)
	}
	barWidth := min(36, max(width/3, 16))
	right := components.NewProgressBar("", percent, true, barWidth).View()

	pad := max(width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	line := left + strings.Repeat(" ", pad) + right

	divider := lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", max(width-4, 0)))
	return line + "\n  " + divider
}

func (p *PlayerScreen) renderStatus(width int) string {
	var text string
	switch {
	case p.waiting:
		text = theme.Hint.Render("Thinking…")
	case p.notice != "":
		text = theme.Warning.Render(p.notice)
	case p.nav.IsLocked():
		text = theme.Hint.Render("This slide must be completed before moving on.")
	case p.nav.InnerScroll().IsScrollable() && !p.nav.InnerScroll().AtBottom():
		text = theme.Hint.Render("More below ↓")
	}
	return lipgloss.NewStyle().Width(width).PaddingLeft(3).Render(text)
}

func (p *PlayerScreen) renderSlide(s course.Slide, width int) string {
	wrap := lipgloss.NewStyle().Width(width).Foreground(theme.Text)

	var b strings.Builder
	if s.Title != "" {
		b.WriteString(theme.Title.Render(s.Title))
		b.WriteString("\n\n")
	}

	switch s.Type {
	case course.SlideVideo:
		if s.Body != "" {
			b.WriteString(wrap.Render(s.Body))
			b.WriteString("\n\n")
		}
		b.WriteString(theme.Selected.Render("▶ " + s.VideoURL))
		b.WriteString("\n")
		b.WriteString(theme.Hint.Render("Open the link to watch the video."))

	case course.SlideQuiz:
		b.WriteString(p.renderQuiz(s))

	case course.SlideCaseStudy:
		b.WriteString(p.renderCaseStudy(s, width))

	case course.SlideChat:
		b.WriteString(p.renderChat(s, width))

	case course.SlideDashboard:
		if p.dashboard == nil {
			b.WriteString(theme.Hint.Render("Loading summary…"))
		} else {
			b.WriteString(summary.Render(*p.dashboard, width))
		}

	default:
		b.WriteString(wrap.Render(strings.TrimSpace(s.Body)))
	}
	return b.String()
}

func (p *PlayerScreen) renderQuiz(s course.Slide) string {
	mc, ok := p.choices[s.ID]
	if !ok {
		return ""
	}
	out := mc.View()
	if mc.Submitted {
		if mc.IsCorrect() {
			out += "\n" + theme.Correct.Render("Correct!")
		} else {
			out += "\n" + theme.Incorrect.Render(fmt.Sprintf("Not quite. The answer was %c.", 'A'+mc.CorrectIndex))
		}
	}
	return out
}

func (p *PlayerScreen) renderCaseStudy(s course.Slide, width int) string {
	wrap := lipgloss.NewStyle().Width(width).Foreground(theme.Text)
	var b strings.Builder
	if cs := s.CaseStudy; cs != nil {
		b.WriteString(wrap.Render(strings.TrimSpace(cs.Scenario)))
		b.WriteString("\n\n")
		b.WriteString(theme.Selected.Render(cs.Question))
		b.WriteString("\n")
		if len(cs.Criteria) > 0 {
			b.WriteString(theme.Hint.Render("Scored on: " + strings.Join(cs.Criteria, ", ")))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if ev, ok := p.evaluated[s.ID]; ok {
		for _, sk := range ev.Skills {
			b.WriteString(theme.Body.Render(fmt.Sprintf("  %-24s %.1f / 5", sk.Name, sk.Score)))
			b.WriteString("\n")
		}
		if ev.Rating.Comment != "" {
			b.WriteString("\n")
			b.WriteString(wrap.Render(ev.Rating.Comment))
		}
		return b.String()
	}

	if !p.aiReady() {
		b.WriteString(theme.Hint.Render("AI scoring is not configured; you may continue."))
		return b.String()
	}
	b.WriteString(p.renderInput())
	return b.String()
}

func (p *PlayerScreen) renderChat(s course.Slide, width int) string {
	wrap := lipgloss.NewStyle().Width(width).Foreground(theme.Text)
	var b strings.Builder
	if s.Body != "" {
		b.WriteString(wrap.Render(strings.TrimSpace(s.Body)))
		b.WriteString("\n\n")
	}
	if !p.aiReady() {
		b.WriteString(theme.Hint.Render("The AI tutor is not configured."))
		return b.String()
	}
	for _, t := range p.chat {
		label := theme.TutorLabel.Render("Tutor")
		if t.Role == tutor.RoleUser {
			label = theme.LearnerLabel.Render("You")
		}
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(wrap.Render(t.Content))
		b.WriteString("\n\n")
	}
	b.WriteString(p.renderInput())
	return b.String()
}

func (p *PlayerScreen) renderInput() string {
	if p.typing {
		return p.input.View()
	}
	return theme.Hint.Render("Press Tab to write your answer.")
}
