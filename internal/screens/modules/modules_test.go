package modules

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/learnloop/internal/course"
	"github.com/abhisek/learnloop/internal/progress"
	"github.com/abhisek/learnloop/internal/quiz"
	"github.com/abhisek/learnloop/internal/router"
	"github.com/abhisek/learnloop/internal/screens/player"
	"github.com/abhisek/learnloop/internal/screens/summary"
	"github.com/abhisek/learnloop/internal/store"
)

var dbSeq atomic.Int64

type staticSummary struct{}

func (staticSummary) Summary(_ context.Context, _, moduleID string) summary.Data {
	return summary.Data{ModuleTitle: moduleID}
}

func newScreen(t *testing.T) (*ModulesScreen, *progress.Store) {
	t.Helper()
	st, err := store.Open(fmt.Sprintf("file:modules%d?mode=memory&cache=shared", dbSeq.Add(1)))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	catalog, err := course.Load("")
	if err != nil {
		t.Fatalf("course.Load: %v", err)
	}
	c, err := catalog.Course("workplace-communication")
	if err != nil {
		t.Fatalf("Course: %v", err)
	}

	prog := progress.New(progress.Options{Cache: progress.NewCache(st.KV())})
	t.Cleanup(prog.Close)
	prog.SignIn(context.Background(), "learner-1")

	deps := player.Deps{
		Progress:  prog,
		Quiz:      quiz.NewTracker(quiz.Options{KV: st.KV(), Users: prog}),
		Summaries: staticSummary{},
	}
	return New(c, deps), prog
}

func pushed(t *testing.T, cmd tea.Cmd) router.PushScreenMsg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg, ok := cmd().(router.PushScreenMsg)
	if !ok {
		t.Fatalf("command did not push a screen")
	}
	return msg
}

func TestRequiredModuleLocksFollowers(t *testing.T) {
	s, _ := newScreen(t)

	if !s.menu.Items[1].Disabled {
		t.Fatal("second module is selectable before the first is finished")
	}
	if view := s.View(100, 30); !strings.Contains(view, "locked: finish wc-listening") {
		t.Errorf("view lacks the lock reason:\n%s", view)
	}

	s.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	if s.menu.Selected != 0 {
		t.Errorf("selected = %d, want 0", s.menu.Selected)
	}
}

func TestResumeUnlocksFinishedRequirement(t *testing.T) {
	s, prog := newScreen(t)

	last := "wc-listening-wrap"
	prog.SetModuleProgressSafe(context.Background(), "workplace-communication", "wc-listening", 4, 5, &last)
	s.Resume()

	if s.menu.Items[1].Disabled {
		t.Fatal("second module still locked after the first reached 100%")
	}
	if got := s.Status(); got != "100%" {
		t.Errorf("status = %q, want 100%%", got)
	}

	s.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	msg := pushed(t, cmd)
	if _, ok := msg.Screen.(*player.PlayerScreen); !ok {
		t.Fatalf("pushed %T, want the player", msg.Screen)
	}
	if got := msg.Screen.Title(); !strings.Contains(got, "Feedback") {
		t.Errorf("player title = %q", got)
	}
}

func TestSummaryKeyOpensSummary(t *testing.T) {
	s, _ := newScreen(t)

	_, cmd := s.Update(tea.KeyPressMsg{Code: 's', Text: "s"})
	msg := pushed(t, cmd)
	if got := msg.Screen.Title(); got != "Module Summary" {
		t.Errorf("title = %q", got)
	}
}

func TestEscPops(t *testing.T) {
	s, _ := newScreen(t)

	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	if cmd == nil {
		t.Fatal("esc returned no command")
	}
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Error("esc did not pop")
	}
}
