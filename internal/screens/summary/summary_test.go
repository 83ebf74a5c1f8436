package summary

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/learnloop/internal/router"
	"github.com/abhisek/learnloop/internal/skills"
)

func ptr(v float64) *float64 { return &v }

func testData() Data {
	return Data{
		CourseTitle:  "Workplace Communication",
		ModuleTitle:  "Active Listening",
		Progress:     100,
		QuizScore:    ptr(66.7),
		AverageScore: ptr(3.8),
		Skills: []skills.SkillScore{
			{Name: "Listening", Score: 4, IndividualScores: []float64{4}},
			{Name: "listening", Score: 5, IndividualScores: []float64{5}},
			{Name: "Empathy", Score: 3, IndividualScores: []float64{3}},
		},
		Email: "ada@example.com",
	}
}

func TestSummaryScreen_Title(t *testing.T) {
	s := New(testData())
	if s.Title() != "Module Summary" {
		t.Errorf("Title = %q, want %q", s.Title(), "Module Summary")
	}
}

func TestRender_MergesSkills(t *testing.T) {
	view := Render(testData(), 100)
	for _, want := range []string{"Active Listening", "66.7%", "3.8 / 5", "Empathy", "ada@example.com", "100%"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q", want)
		}
	}
	if !strings.Contains(view, "4.5") {
		t.Errorf("Listening scores not merged into 4.5:\n%s", view)
	}
	if strings.Contains(view, "5.0") {
		t.Errorf("unmerged Listening score rendered:\n%s", view)
	}
}

func TestRender_MissingScores(t *testing.T) {
	view := Render(Data{ModuleTitle: "Empty"}, 80)
	if !strings.Contains(view, "Quiz: –") {
		t.Errorf("missing quiz score not shown as a dash:\n%s", view)
	}
	if !strings.Contains(view, "Sign in") {
		t.Error("signed-out hint missing")
	}
}

func TestSummaryScreen_Navigation(t *testing.T) {
	for _, key := range []tea.KeyPressMsg{{Code: tea.KeyEnter}, {Code: tea.KeyEscape}} {
		s := New(testData())
		_, cmd := s.Update(key)
		if cmd == nil {
			t.Fatalf("%s: expected a pop command", key.String())
		}
		if _, ok := cmd().(router.PopScreenMsg); !ok {
			t.Errorf("%s: expected PopScreenMsg", key.String())
		}
	}
}

func TestSummaryScreen_HomeKey(t *testing.T) {
	_, cmd := New(testData()).Update(tea.KeyPressMsg{Code: 'h', Text: "h"})
	if cmd == nil {
		t.Fatal("expected a command for h")
	}
	if _, ok := cmd().(router.PopToRootMsg); !ok {
		t.Errorf("h: expected PopToRootMsg, got %#v", cmd())
	}
}

func TestSummaryScreen_KeyHints(t *testing.T) {
	s := New(testData())
	if hints := s.KeyHints(); len(hints) != 3 {
		t.Errorf("KeyHints length = %d, want 3", len(hints))
	}
}
