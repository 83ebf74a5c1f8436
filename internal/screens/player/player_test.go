package player

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/learnloop/internal/course"
	"github.com/abhisek/learnloop/internal/llm"
	"github.com/abhisek/learnloop/internal/navigator"
	"github.com/abhisek/learnloop/internal/progress"
	"github.com/abhisek/learnloop/internal/quiz"
	"github.com/abhisek/learnloop/internal/router"
	"github.com/abhisek/learnloop/internal/screens/summary"
	"github.com/abhisek/learnloop/internal/skills"
	"github.com/abhisek/learnloop/internal/store"
	"github.com/abhisek/learnloop/internal/tutor"
)

var dbSeq atomic.Int64

type recordedEffects struct {
	mu        sync.Mutex
	views     []navigator.View
	completed []navigator.View
}

func (r *recordedEffects) SlideViewed(_ context.Context, v navigator.View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
}

func (r *recordedEffects) ModuleCompleted(_ context.Context, v navigator.View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, v)
}

type skillSink struct {
	scores []skills.SkillScore
}

func (s *skillSink) Add(_ context.Context, _, _ string, scores ...skills.SkillScore) {
	s.scores = append(s.scores, scores...)
}

type fixedSummary struct{}

func (fixedSummary) Summary(_ context.Context, _, moduleID string) summary.Data {
	return summary.Data{ModuleTitle: "summary of " + moduleID, Progress: 100}
}

type fixture struct {
	deps    Deps
	effects *recordedEffects
	skills  *skillSink
	mock    *llm.MockProvider
	catalog *course.Catalog
}

func newFixture(t *testing.T, responses ...llm.MockResponse) *fixture {
	t.Helper()
	st, err := store.Open(fmt.Sprintf("file:player%d?mode=memory&cache=shared", dbSeq.Add(1)))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	catalog, err := course.Load("")
	if err != nil {
		t.Fatalf("course.Load: %v", err)
	}

	prog := progress.New(progress.Options{Cache: progress.NewCache(st.KV())})
	t.Cleanup(prog.Close)
	prog.SignIn(context.Background(), "learner-1")

	f := &fixture{
		effects: &recordedEffects{},
		skills:  &skillSink{},
		mock:    llm.NewMockProvider(responses...),
		catalog: catalog,
	}
	f.deps = Deps{
		Progress:  prog,
		Quiz:      quiz.NewTracker(quiz.Options{KV: st.KV(), Users: prog}),
		Tutor:     tutor.New(f.mock, st.KV(), tutor.DefaultConfig(), nil),
		Skills:    f.skills,
		Summaries: fixedSummary{},
		Effects:   f.effects,
	}
	return f
}

func (f *fixture) open(t *testing.T, moduleID string) (*PlayerScreen, tea.Cmd) {
	t.Helper()
	c, m, err := f.catalog.Module("workplace-communication", moduleID)
	if err != nil {
		t.Fatalf("Module: %v", err)
	}
	p := New(f.deps, c, m)
	return p, p.Init()
}

func press(p *PlayerScreen, keys ...tea.KeyPressMsg) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = p.Update(k)
	}
	return cmd
}

var (
	keyDown  = tea.KeyPressMsg{Code: tea.KeyDown}
	keyUp    = tea.KeyPressMsg{Code: tea.KeyUp}
	keyTab   = tea.KeyPressMsg{Code: tea.KeyTab}
	keyEnter = tea.KeyPressMsg{Code: tea.KeyEnter}
	keyEsc   = tea.KeyPressMsg{Code: tea.KeyEscape}
)

func letter(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

// deliver runs cmd and feeds its message back into the player.
func deliver(t *testing.T, p *PlayerScreen, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	p.Update(cmd())
}

func TestQuizGatesForwardPaging(t *testing.T) {
	f := newFixture(t)
	p, _ := f.open(t, "wc-listening")

	press(p, keyDown, keyDown, keyDown)
	if got := p.nav.Current(); got != 3 {
		t.Fatalf("Current = %d, want the quiz at 3", got)
	}
	if !p.nav.IsLocked() {
		t.Fatal("quiz slide is not locked before answering")
	}

	press(p, keyDown)
	if got := p.nav.Current(); got != 3 {
		t.Fatalf("locked swipe moved to %d", got)
	}
	if p.notice == "" {
		t.Error("no notice after a locked swipe")
	}

	// Backward paging is never gated.
	press(p, keyUp)
	if got := p.nav.Current(); got != 2 {
		t.Fatalf("backward swipe from a locked slide: Current = %d, want 2", got)
	}
	press(p, keyDown, letter('b'))

	if p.nav.IsLocked() {
		t.Fatal("quiz still locked after answering")
	}
	rec, ok := f.deps.Quiz.Answered(context.Background(), "workplace-communication", "wc-listening-quiz")
	if !ok || !rec.IsCorrect() {
		t.Fatalf("quiz record = %+v, %v", rec, ok)
	}
	if !strings.Contains(p.View(100, 30), "Correct!") {
		t.Error("view lacks the correct-answer feedback")
	}

	cmd := press(p, keyDown)
	if got := p.nav.Current(); got != 4 {
		t.Fatalf("Current = %d, want the dashboard at 4", got)
	}
	if len(f.effects.completed) != 1 {
		t.Fatalf("completions = %d, want 1", len(f.effects.completed))
	}
	deliver(t, p, cmd)
	if !strings.Contains(p.View(100, 30), "summary of wc-listening") {
		t.Error("dashboard does not show the loaded summary")
	}
	if got := f.deps.Progress.ModuleProgress("workplace-communication", "wc-listening"); got != 100 {
		t.Errorf("ModuleProgress = %d, want 100", got)
	}
}

func TestResumesAtLastSlide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	last := "wc-listening-reflect"
	f.deps.Progress.SetModuleProgressSafe(ctx, "workplace-communication", "wc-listening", 2, 5, &last)

	p, _ := f.open(t, "wc-listening")

	if got := p.nav.Current(); got != 2 {
		t.Fatalf("Current = %d, want 2", got)
	}
	if got := p.nav.Watermark(); got != 2 {
		t.Errorf("Watermark = %d, want 2", got)
	}

	press(p, keyUp, keyUp)
	if got := f.deps.Progress.ModuleProgress("workplace-communication", "wc-listening"); got != 60 {
		t.Errorf("paging back changed progress to %d, want 60", got)
	}
}

func TestPageOffsetFollowsSlides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	last := "wc-listening-reflect"
	f.deps.Progress.SetModuleProgressSafe(ctx, "workplace-communication", "wc-listening", 2, 5, &last)

	p, _ := f.open(t, "wc-listening")
	if p.page != 2*pageHeight {
		t.Fatalf("page = %v after resume, want %v", p.page, 2*pageHeight)
	}

	press(p, keyUp)
	if p.nav.Current() != 1 || p.page != pageHeight {
		t.Errorf("after paging back: current=%d page=%v", p.nav.Current(), p.page)
	}

	// The navigator maps the player's offset back to the same slide.
	if p.nav.OnScroll(ctx, p.page, pageHeight) {
		t.Error("re-reporting the current offset changed the slide")
	}

	f.effects.mu.Lock()
	defer f.effects.mu.Unlock()
	if n := len(f.effects.views); n != 2 || f.effects.views[1].Index != 1 {
		t.Errorf("views = %+v, want slides 2 then 1", f.effects.views)
	}
}

func TestCompletedModuleStartsOver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	last := "wc-listening-wrap"
	f.deps.Progress.SetModuleProgressSafe(ctx, "workplace-communication", "wc-listening", 4, 5, &last)

	p, _ := f.open(t, "wc-listening")

	if got := p.nav.Current(); got != 0 {
		t.Fatalf("Current = %d, want 0", got)
	}
	// Passed in an earlier visit, so the quiz no longer gates.
	press(p, keyDown, keyDown, keyDown, keyDown)
	if got := p.nav.Current(); got != 4 {
		t.Fatalf("Current = %d, want 4", got)
	}
	if got := f.deps.Progress.ModuleProgress("workplace-communication", "wc-listening"); got != 100 {
		t.Errorf("ModuleProgress = %d, want 100", got)
	}
}

func TestCaseStudyUnlocksAfterScoring(t *testing.T) {
	f := newFixture(t, llm.MockJSON(map[string]any{
		"criteria": []any{
			map[string]any{"criterion": "Empathy", "score": 4},
			map[string]any{"criterion": "Clarity", "score": 3.5},
			map[string]any{"criterion": "Problem Solving", "score": 5},
		},
		"comment": "Clear and kind.",
	}))
	f.deps.Quiz.Answer(context.Background(), "workplace-communication", "wc-feedback", "wc-feedback-quiz", 2, 2)

	p, _ := f.open(t, "wc-feedback")
	press(p, keyDown, keyDown)
	if got := p.slide().Type; got != course.SlideCaseStudy {
		t.Fatalf("slide type = %s, want case_study", got)
	}
	if !p.nav.IsLocked() {
		t.Fatal("case study not locked before scoring")
	}

	press(p, keyTab)
	if !p.typing {
		t.Fatal("tab did not start typing")
	}
	// Keys go to the input while typing, not to the pager.
	press(p, keyDown)
	if got := p.nav.Current(); got != 2 {
		t.Fatalf("typing let the pager move to %d", got)
	}

	p.input.Model.SetValue("I would ask how they saw the meeting first.")
	cmd := press(p, keyEnter)
	if !p.waiting {
		t.Error("not waiting for the score")
	}
	deliver(t, p, cmd)

	if p.nav.IsLocked() {
		t.Fatal("case study still locked after scoring")
	}
	if len(f.skills.scores) != 3 || f.skills.scores[0].Name != "Empathy" {
		t.Errorf("recorded skills = %+v", f.skills.scores)
	}
	view := p.View(100, 40)
	if !strings.Contains(view, "Clear and kind.") {
		t.Error("view lacks the rubric comment")
	}
}

func TestCaseStudyStaysLockedWhenScoringFails(t *testing.T) {
	f := newFixture(t) // no scripted replies: the provider fails
	f.deps.Quiz.Answer(context.Background(), "workplace-communication", "wc-feedback", "wc-feedback-quiz", 0, 2)

	p, _ := f.open(t, "wc-feedback")
	press(p, keyDown, keyDown, keyTab)
	p.input.Model.SetValue("An answer")
	deliver(t, p, press(p, keyEnter))

	if !p.nav.IsLocked() {
		t.Fatal("failed scoring unlocked the slide")
	}
	if !strings.Contains(p.notice, "could not be scored") {
		t.Errorf("notice = %q", p.notice)
	}
	if len(f.skills.scores) != 0 {
		t.Errorf("skills recorded on failure: %+v", f.skills.scores)
	}
}

func TestChatRecordsRatingSkills(t *testing.T) {
	f := newFixture(t, llm.MockJSON(map[string]any{
		"reply": "That opening works.",
		"rating": map[string]any{
			"criteria": []any{map[string]any{"criterion": "Empathy", "score": 4.5}},
			"comment":  "Warm.",
		},
	}))
	last := "wc-feedback-case"
	f.deps.Progress.SetModuleProgressSafe(context.Background(), "workplace-communication", "wc-feedback", 2, 5, &last)

	p, _ := f.open(t, "wc-feedback")
	cmd := press(p, keyDown)
	if got := p.slide().Type; got != course.SlideChat {
		t.Fatalf("slide type = %s, want chat", got)
	}
	deliver(t, p, cmd) // history

	press(p, keyTab)
	p.input.Model.SetValue("How should I open the conversation?")
	deliver(t, p, press(p, keyEnter))

	if len(p.chat) != 2 || p.chat[1].Content != "That opening works." {
		t.Fatalf("chat = %+v", p.chat)
	}
	if len(f.skills.scores) != 1 || f.skills.scores[0].Score != 4.5 {
		t.Errorf("recorded skills = %+v", f.skills.scores)
	}
	turns, err := f.deps.Tutor.History(context.Background(), "workplace-communication")
	if err != nil || len(turns) != 2 {
		t.Errorf("stored history = %d turns, %v", len(turns), err)
	}

	press(p, keyEsc)
	if p.typing {
		t.Error("esc did not stop typing")
	}
}

func TestInnerScrollConsumesSwipes(t *testing.T) {
	f := newFixture(t)
	p, _ := f.open(t, "wc-listening")

	p.nav.SetInnerScroll(navigator.ScrollState{Offset: 0, ContentHeight: 40 * rowHeight, ContainerHeight: 10 * rowHeight})
	press(p, keyDown)
	if got := p.nav.Current(); got != 0 {
		t.Fatalf("swipe paged away from scrollable content: %d", got)
	}
	if p.offset != 1 {
		t.Fatalf("offset = %d, want 1", p.offset)
	}

	p.nav.SetInnerScroll(navigator.ScrollState{Offset: 30 * rowHeight, ContentHeight: 40 * rowHeight, ContainerHeight: 10 * rowHeight})
	press(p, keyDown)
	if got := p.nav.Current(); got != 1 {
		t.Fatalf("swipe at the bottom did not page: %d", got)
	}
	if p.offset != 0 {
		t.Errorf("offset not reset on a new slide: %d", p.offset)
	}
}

func TestEscPopsWhenNotTyping(t *testing.T) {
	f := newFixture(t)
	p, _ := f.open(t, "wc-listening")

	cmd := press(p, keyEsc)
	if cmd == nil {
		t.Fatal("esc returned no command")
	}
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Error("esc did not pop the player")
	}
}

func TestWithoutTutorCaseStudyDoesNotGate(t *testing.T) {
	f := newFixture(t)
	f.deps.Tutor = nil
	f.deps.Quiz.Answer(context.Background(), "workplace-communication", "wc-feedback", "wc-feedback-quiz", 2, 2)

	p, _ := f.open(t, "wc-feedback")
	press(p, keyDown, keyDown)
	if p.nav.IsLocked() {
		t.Fatal("case study gates without an AI tutor")
	}
	press(p, keyTab)
	if p.typing {
		t.Error("typing enabled without an AI tutor")
	}
}
