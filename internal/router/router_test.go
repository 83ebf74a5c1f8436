package router

import (
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/learnloop/internal/screen"
)

type stubScreen struct {
	title   string
	inits   int
	resumed int
	seen    []tea.Msg
}

type resumedMsg struct{ title string }

func (s *stubScreen) Init() tea.Cmd {
	s.inits++
	return nil
}

func (s *stubScreen) Resume() tea.Cmd {
	s.resumed++
	return func() tea.Msg { return resumedMsg{s.title} }
}

func (s *stubScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	s.seen = append(s.seen, msg)
	return s, nil
}

func (s *stubScreen) View(int, int) string { return "view:" + s.title }
func (s *stubScreen) Title() string        { return s.title }

// plainScreen does not implement screen.Resumer.
type plainScreen struct{ stubScreen }

func (p *plainScreen) Resume() {}

func stack(titles ...string) (*Router, []*stubScreen) {
	screens := make([]*stubScreen, len(titles))
	for i, title := range titles {
		screens[i] = &stubScreen{title: title}
	}
	r := New(screens[0])
	for _, s := range screens[1:] {
		r.Push(s)
	}
	return r, screens
}

func TestPushInitsAndActivates(t *testing.T) {
	r, screens := stack("courses", "modules")
	if r.Depth() != 2 || r.Active().Title() != "modules" {
		t.Fatalf("depth %d active %q", r.Depth(), r.Active().Title())
	}
	if screens[1].inits != 1 {
		t.Fatalf("Init ran %d times on the pushed screen", screens[1].inits)
	}
	if screens[0].inits != 0 {
		t.Fatal("New must not init the root, the app does")
	}
}

func TestPopResumesUncoveredScreen(t *testing.T) {
	r, screens := stack("courses", "modules", "player")

	cmd := r.Update(PopScreenMsg{})
	if r.Active().Title() != "modules" || screens[1].resumed != 1 {
		t.Fatalf("active %q resumed %d", r.Active().Title(), screens[1].resumed)
	}
	if msg, ok := cmd().(resumedMsg); !ok || msg.title != "modules" {
		t.Fatalf("resume command returned %#v", cmd())
	}
	if screens[0].resumed != 0 {
		t.Fatal("screens further down must not be resumed")
	}
}

func TestPopKeepsRoot(t *testing.T) {
	r, screens := stack("courses")
	if cmd := r.Pop(); cmd != nil {
		t.Fatal("popping the root should be a no-op")
	}
	if r.Depth() != 1 || screens[0].resumed != 0 {
		t.Fatalf("depth %d resumed %d", r.Depth(), screens[0].resumed)
	}
}

func TestPopToRoot(t *testing.T) {
	r, screens := stack("courses", "modules", "player", "summary")

	cmd := r.Update(PopToRootMsg{})
	if r.Depth() != 1 || r.Active().Title() != "courses" {
		t.Fatalf("depth %d active %q", r.Depth(), r.Active().Title())
	}
	if screens[0].resumed != 1 || cmd == nil {
		t.Fatalf("root resumed %d times", screens[0].resumed)
	}
	if screens[1].resumed != 0 || screens[2].resumed != 0 {
		t.Fatal("intermediate screens must not be resumed")
	}

	if r.PopToRoot() != nil {
		t.Fatal("PopToRoot at the root should be a no-op")
	}
}

func TestPopWithoutResumer(t *testing.T) {
	root := &plainScreen{stubScreen{title: "history"}}
	r := New(root)
	r.Push(&stubScreen{title: "detail"})

	if cmd := r.Pop(); cmd != nil {
		t.Fatal("expected no command from a screen without Resume() tea.Cmd")
	}
}

func TestUpdateForwardsToActiveOnly(t *testing.T) {
	r, screens := stack("courses", "modules")
	r.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	if len(screens[1].seen) != 1 || len(screens[0].seen) != 0 {
		t.Fatalf("active saw %d, root saw %d", len(screens[1].seen), len(screens[0].seen))
	}
	if got := r.View(80, 24); got != "view:modules" {
		t.Fatalf("View = %q", got)
	}
}
