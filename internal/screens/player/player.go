package player

import (
	"context"
	"fmt"

	tea "charm.land/bubbletea/v2"
	"go.uber.org/zap"

	"github.com/abhisek/learnloop/internal/course"
	"github.com/abhisek/learnloop/internal/llm"
	"github.com/abhisek/learnloop/internal/logging"
	"github.com/abhisek/learnloop/internal/metrics"
	"github.com/abhisek/learnloop/internal/navigator"
	"github.com/abhisek/learnloop/internal/progress"
	"github.com/abhisek/learnloop/internal/quiz"
	"github.com/abhisek/learnloop/internal/router"
	"github.com/abhisek/learnloop/internal/screen"
	"github.com/abhisek/learnloop/internal/screens/summary"
	"github.com/abhisek/learnloop/internal/skills"
	"github.com/abhisek/learnloop/internal/tutor"
	"github.com/abhisek/learnloop/internal/ui/components"
	"github.com/abhisek/learnloop/internal/ui/layout"
)

// rowHeight converts terminal rows into navigator scroll units, so that the
// boundary tolerance is a fraction of a row.
const rowHeight = 16.0

// pageHeight is one slide page in scroll units, a full terminal screen.
const pageHeight = 24 * rowHeight

// SkillRecorder collects skill scores observed while playing a module.
type SkillRecorder interface {
	Add(ctx context.Context, courseID, moduleID string, scores ...skills.SkillScore)
}

// SummarySource builds the dashboard of a module.
type SummarySource interface {
	Summary(ctx context.Context, courseID, moduleID string) summary.Data
}

// Deps are the services the player works with. Tutor may be nil, which
// turns AI slides into read-only pages.
type Deps struct {
	Progress  *progress.Store
	Quiz      *quiz.Tracker
	Tutor     *tutor.Tutor
	Skills    SkillRecorder
	Summaries SummarySource
	Effects   navigator.Effects
	Metrics   *metrics.Metrics
	Log       *zap.Logger
}

// PlayerScreen pages through the slides of one module.
type PlayerScreen struct {
	deps   Deps
	course *course.Course
	module *course.Module
	nav    *navigator.Controller
	log    *zap.Logger

	resumed   int // slides up to here were passed in an earlier visit
	choices   map[string]components.MultiChoice
	evaluated map[string]tutor.Evaluation
	chat      []tutor.Turn
	chatReady bool
	dashboard *summary.Data

	input   components.TextInput
	typing  bool
	waiting bool
	offset  int     // inner scroll, in rows
	page    float64 // page scroll, in scroll units
	notice  string
}

var _ screen.Screen = (*PlayerScreen)(nil)
var _ screen.KeyHintProvider = (*PlayerScreen)(nil)
var _ screen.StatusProvider = (*PlayerScreen)(nil)

// New creates a player for one module of c.
func New(deps Deps, c *course.Course, m *course.Module) *PlayerScreen {
	p := &PlayerScreen{
		deps:      deps,
		course:    c,
		module:    m,
		log:       logging.OrNop(deps.Log).Named("player"),
		resumed:   -1,
		choices:   make(map[string]components.MultiChoice),
		evaluated: make(map[string]tutor.Evaluation),
		input:     components.NewTextInput("Type here…", 2000),
	}
	p.input.Blur()
	var writer navigator.ProgressWriter
	if deps.Progress != nil {
		writer = deps.Progress
	}
	p.nav = navigator.New(navigator.Config{
		CourseID: c.ID,
		ModuleID: m.ID,
		SlideIDs: m.SlideIDs(),
		Progress: writer,
		Effects:  deps.Effects,
		Logger:   deps.Log,
		Metrics:  deps.Metrics,
	})
	return p
}

// Init positions the player. An unfinished module resumes at its last
// slide; a finished one starts over from the first slide without lowering
// the stored progress.
func (p *PlayerScreen) Init() tea.Cmd {
	start, done := p.lastPosition()
	if start >= 0 {
		p.resumed = start
		p.nav.SeedWatermark(start)
	}
	if done {
		start = 0
	}
	p.scrollTo(context.Background(), max(start, 0))
	p.log.Debug("module opened",
		zap.String("mount_id", p.nav.MountID()), zap.String("module_id", p.module.ID), zap.Int("slide", p.nav.Current()))
	return p.enterSlide()
}

func (p *PlayerScreen) lastPosition() (index int, done bool) {
	if p.deps.Progress == nil {
		return -1, false
	}
	cp, ok := p.deps.Progress.Course(p.course.ID)
	if !ok {
		return -1, false
	}
	for _, mp := range cp.Modules {
		if mp.ModuleID != p.module.ID || mp.LastSlideID == nil {
			continue
		}
		if i := p.module.SlideIndex(*mp.LastSlideID); i >= 0 {
			return i, mp.Progress >= 100
		}
	}
	return -1, false
}

func (p *PlayerScreen) Title() string {
	return p.module.Title
}

// Status shows the slide position in the header.
func (p *PlayerScreen) Status() string {
	return fmt.Sprintf("%d / %d", p.nav.Current()+1, p.nav.Total())
}

// Controller exposes the navigation state.
func (p *PlayerScreen) Controller() *navigator.Controller {
	return p.nav
}

func (p *PlayerScreen) slide() course.Slide {
	return p.module.Slides[p.nav.Current()]
}

func (p *PlayerScreen) aiReady() bool {
	return p.deps.Tutor != nil
}

// passed reports whether a gating slide no longer blocks forward paging.
func (p *PlayerScreen) passed(idx int, s course.Slide) bool {
	if idx <= p.resumed {
		return true
	}
	switch s.Type {
	case course.SlideQuiz:
		return p.choices[s.ID].Submitted
	case course.SlideCaseStudy:
		if !p.aiReady() {
			return true
		}
		_, ok := p.evaluated[s.ID]
		return ok
	}
	return true
}

// enterSlide prepares the displayed slide and returns its loading command.
func (p *PlayerScreen) enterSlide() tea.Cmd {
	ctx := context.Background()
	idx := p.nav.Current()
	s := p.slide()

	p.offset = 0
	p.typing = false
	p.input.Blur()
	p.notice = ""

	if s.Type == course.SlideQuiz && s.Quiz != nil {
		if _, ok := p.choices[s.ID]; !ok {
			mc := components.NewMultiChoice(s.Quiz.Question, s.Quiz.Options, s.Quiz.Answer)
			if p.deps.Quiz != nil {
				if rec, ok := p.deps.Quiz.Answered(ctx, p.course.ID, s.ID); ok {
					mc = mc.Answered(rec.Selected)
				}
			}
			p.choices[s.ID] = mc
		}
	}

	p.nav.SetLocked(s.Type.Gating() && !p.passed(idx, s))

	switch s.Type {
	case course.SlideChat:
		if p.aiReady() && !p.chatReady {
			return p.loadChat()
		}
	case course.SlideDashboard:
		p.dashboard = nil
		return p.loadSummary()
	}
	return nil
}

func (p *PlayerScreen) loadChat() tea.Cmd {
	t, courseID := p.deps.Tutor, p.course.ID
	return func() tea.Msg {
		turns, err := t.History(context.Background(), courseID)
		return chatLoadedMsg{Turns: turns, Err: err}
	}
}

func (p *PlayerScreen) loadSummary() tea.Cmd {
	src, courseID, moduleID := p.deps.Summaries, p.course.ID, p.module.ID
	return func() tea.Msg {
		var d summary.Data
		if src != nil {
			d = src.Summary(context.Background(), courseID, moduleID)
		}
		return summaryLoadedMsg{Data: d}
	}
}

func (p *PlayerScreen) KeyHints() []layout.KeyHint {
	if p.typing {
		return []layout.KeyHint{
			{Key: "Enter", Description: "Send"},
			{Key: "Esc", Description: "Stop typing"},
		}
	}
	hints := []layout.KeyHint{
		{Key: "↑↓", Description: "Scroll / page"},
	}
	s := p.slide()
	switch {
	case s.Type == course.SlideQuiz && s.Quiz != nil && !p.choices[s.ID].Submitted:
		hints = append(hints, layout.KeyHint{Key: "A-" + string(rune('A'+max(len(s.Quiz.Options)-1, 0))), Description: "Answer"})
	case p.canType(s):
		hints = append(hints, layout.KeyHint{Key: "Tab", Description: "Write"})
	}
	return append(hints, layout.KeyHint{Key: "Esc", Description: "Back"})
}

func (p *PlayerScreen) canType(s course.Slide) bool {
	if !p.aiReady() || p.waiting {
		return false
	}
	switch s.Type {
	case course.SlideChat:
		return true
	case course.SlideCaseStudy:
		_, done := p.evaluated[s.ID]
		return !done
	}
	return false
}

func (p *PlayerScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case chatLoadedMsg:
		if msg.Err != nil {
			p.log.Warn("load chat history", zap.Error(msg.Err))
		}
		p.chat = msg.Turns
		p.chatReady = true
		return p, nil

	case chatReplyMsg:
		return p.handleChatReply(msg)

	case evaluatedMsg:
		return p.handleEvaluated(msg)

	case summaryLoadedMsg:
		d := msg.Data
		p.dashboard = &d
		return p, nil

	case tea.KeyMsg:
		return p.handleKey(msg)
	}

	if p.typing {
		var cmd tea.Cmd
		p.input, cmd = p.input.Update(msg)
		return p, cmd
	}
	return p, nil
}

func (p *PlayerScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()

	if p.typing {
		switch key {
		case "esc":
			p.typing = false
			p.input.Blur()
			return p, nil
		case "enter":
			return p.submitText()
		}
		var cmd tea.Cmd
		p.input, cmd = p.input.Update(msg)
		return p, cmd
	}

	switch key {
	case "esc", "q":
		return p, func() tea.Msg { return router.PopScreenMsg{} }
	case "down", "pgdown", "space":
		return p.swipe(navigator.Forward)
	case "up", "pgup":
		return p.swipe(navigator.Backward)
	case "tab", "i":
		if s := p.slide(); p.canType(s) {
			p.typing = true
			return p, p.input.Focus()
		}
	}

	s := p.slide()
	if s.Type == course.SlideQuiz && s.Quiz != nil {
		return p.handleQuizKey(s, msg)
	}
	return p, nil
}

func (p *PlayerScreen) handleQuizKey(s course.Slide, msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	mc := p.choices[s.ID]
	if mc.Submitted {
		return p, nil
	}
	mc, _ = mc.Update(msg)
	p.choices[s.ID] = mc
	if !mc.Submitted {
		return p, nil
	}

	if p.deps.Quiz != nil {
		rec, fresh := p.deps.Quiz.Answer(context.Background(), p.course.ID, p.module.ID, s.ID, mc.ChosenIndex, s.Quiz.Answer)
		if !fresh {
			// Answered on another screen or device; keep the first answer.
			p.choices[s.ID] = components.NewMultiChoice(s.Quiz.Question, s.Quiz.Options, s.Quiz.Answer).Answered(rec.Selected)
		}
	}
	p.nav.SetLocked(false)
	return p, nil
}

func (p *PlayerScreen) swipe(dir navigator.Direction) (screen.Screen, tea.Cmd) {
	ctx := context.Background()
	switch p.nav.Gate(dir) {
	case navigator.Consumed:
		p.offset = max(p.offset+int(dir), 0)
		st := p.nav.InnerScroll()
		st.Offset = min(float64(p.offset)*rowHeight, st.MaxOffset())
		p.nav.SetInnerScroll(st)
		return p, nil
	case navigator.Locked:
		if p.slide().Type == course.SlideQuiz {
			p.notice = "Answer the question to continue."
		} else {
			p.notice = "Submit your answer to continue."
		}
		return p, nil
	case navigator.Accepted:
		p.scrollTo(ctx, p.nav.Current()+int(dir))
		return p, p.enterSlide()
	case navigator.AtEdge:
		if dir == navigator.Forward {
			p.notice = "You have reached the end of this module."
		}
	}
	return p, nil
}

// scrollTo moves the page to a slide and lets the navigator observe the
// new offset.
func (p *PlayerScreen) scrollTo(ctx context.Context, index int) {
	p.page = float64(index) * pageHeight
	p.nav.OnScroll(ctx, p.page, pageHeight)
}

func (p *PlayerScreen) submitText() (screen.Screen, tea.Cmd) {
	text := p.input.Value()
	if text == "" || p.waiting || !p.aiReady() {
		return p, nil
	}
	s := p.slide()
	p.waiting = true
	p.notice = ""
	t := p.deps.Tutor

	switch s.Type {
	case course.SlideCaseStudy:
		p.typing = false
		p.input.Blur()
		cs := tutor.CaseStudy{Title: s.Title}
		if s.CaseStudy != nil {
			cs.Scenario = s.CaseStudy.Scenario
			cs.Question = s.CaseStudy.Question
			cs.Criteria = s.CaseStudy.Criteria
		}
		slideID := s.ID
		return p, func() tea.Msg {
			ev, err := t.Evaluate(context.Background(), cs, text)
			return evaluatedMsg{SlideID: slideID, Evaluation: ev, Err: err}
		}

	case course.SlideChat:
		p.input.Reset()
		courseID, title := p.course.ID, p.course.Title
		return p, func() tea.Msg {
			reply, err := t.Ask(context.Background(), courseID, title, text)
			return chatReplyMsg{Question: text, Reply: reply, Err: err}
		}
	}
	p.waiting = false
	return p, nil
}

func (p *PlayerScreen) handleChatReply(msg chatReplyMsg) (screen.Screen, tea.Cmd) {
	p.waiting = false
	if msg.Err != nil {
		p.notice = llm.LearnerMessage(msg.Err)
		return p, nil
	}
	p.chat = append(p.chat,
		tutor.Turn{Role: tutor.RoleUser, Content: msg.Question},
		tutor.Turn{Role: tutor.RoleAssistant, Content: msg.Reply.Text, Rating: msg.Reply.Rating},
	)
	if scores := msg.Reply.Rating.Skills(); len(scores) > 0 && p.deps.Skills != nil {
		p.deps.Skills.Add(context.Background(), p.course.ID, p.module.ID, scores...)
	}
	return p, nil
}

func (p *PlayerScreen) handleEvaluated(msg evaluatedMsg) (screen.Screen, tea.Cmd) {
	p.waiting = false
	if msg.Err != nil {
		p.notice = "Your answer could not be scored. " + llm.LearnerMessage(msg.Err)
		return p, nil
	}
	p.evaluated[msg.SlideID] = msg.Evaluation
	p.input.Reset()
	if p.deps.Skills != nil && len(msg.Evaluation.Skills) > 0 {
		p.deps.Skills.Add(context.Background(), p.course.ID, p.module.ID, msg.Evaluation.Skills...)
	}
	if p.slide().ID == msg.SlideID {
		p.nav.SetLocked(false)
	}
	return p, nil
}
