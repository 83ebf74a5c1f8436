// Package course loads the course catalog: courses made of modules made of
// slides, defined in YAML.
package course

import "slices"

// SlideType selects how the player renders a slide and whether it gates
// forward navigation.
type SlideType string

const (
	SlideText      SlideType = "text"
	SlideVideo     SlideType = "video"
	SlideQuiz      SlideType = "quiz"
	SlideCaseStudy SlideType = "case_study"
	SlideChat      SlideType = "chat"
	SlideDashboard SlideType = "dashboard"
)

// Gating reports whether the slide locks forward navigation until the
// learner completes it.
func (t SlideType) Gating() bool {
	return t == SlideQuiz || t == SlideCaseStudy
}

type Course struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Modules     []Module `yaml:"modules"`
}

type Module struct {
	ID       string   `yaml:"id"`
	Title    string   `yaml:"title"`
	Requires []string `yaml:"requires,omitempty"`
	Slides   []Slide  `yaml:"slides"`
}

type Slide struct {
	ID        string     `yaml:"id"`
	Type      SlideType  `yaml:"type"`
	Title     string     `yaml:"title"`
	Body      string     `yaml:"body"`
	VideoURL  string     `yaml:"video_url,omitempty"`
	Quiz      *Quiz      `yaml:"quiz,omitempty"`
	CaseStudy *CaseStudy `yaml:"case_study,omitempty"`
}

// Quiz is a single-choice question. Answer indexes Options.
type Quiz struct {
	Question string   `yaml:"question"`
	Options  []string `yaml:"options"`
	Answer   int      `yaml:"answer"`
	Skill    string   `yaml:"skill,omitempty"`
}

type CaseStudy struct {
	Scenario string   `yaml:"scenario"`
	Question string   `yaml:"question"`
	Criteria []string `yaml:"criteria"`
}

// Module returns the module with id.
func (c *Course) Module(id string) (*Module, bool) {
	i := slices.IndexFunc(c.Modules, func(m Module) bool { return m.ID == id })
	if i < 0 {
		return nil, false
	}
	return &c.Modules[i], true
}

// SlideIDs returns the ids of the module's slides in order.
func (m *Module) SlideIDs() []string {
	ids := make([]string, len(m.Slides))
	for i, s := range m.Slides {
		ids[i] = s.ID
	}
	return ids
}

// SlideIndex returns the position of slideID, or -1.
func (m *Module) SlideIndex(slideID string) int {
	return slices.IndexFunc(m.Slides, func(s Slide) bool { return s.ID == slideID })
}

// Locked reports whether a module still waits on a required module that
// done does not report as finished.
func (c *Course) Locked(moduleID string, done func(moduleID string) bool) bool {
	m, ok := c.Module(moduleID)
	if !ok {
		return false
	}
	for _, req := range m.Requires {
		if !done(req) {
			return true
		}
	}
	return false
}
