// Package tutor runs the per-course AI chat and scores case-study answers
// against a rubric.
package tutor

import (
	"sort"
	"time"

	"github.com/abhisek/learnloop/internal/skills"
)

// Rating is the optional rubric attached to a tutor reply.
type Rating struct {
	CriteriaScores map[string]float64 `json:"criteriaScores,omitempty"`
	Comment        string             `json:"comment,omitempty"`
}

// Skills converts the rating into skill scores, one per criterion, ordered
// by criterion name. Non-finite scores are dropped.
func (r *Rating) Skills() []skills.SkillScore {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.CriteriaScores))
	for name := range r.CriteriaScores {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]skills.SkillScore, 0, len(names))
	for _, name := range names {
		if s, ok := criterionSkill(name, r.CriteriaScores[name]); ok {
			out = append(out, s)
		}
	}
	return out
}

func criterionSkill(name string, score float64) (skills.SkillScore, bool) {
	v, ok := skills.NormalizeScore(min(max(score, 0), 5))
	if !ok || name == "" {
		return skills.SkillScore{}, false
	}
	return skills.SkillScore{Name: name, Key: name, Score: v, IndividualScores: []float64{v}}, true
}

// Turn is one message of a course chat.
type Turn struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	Rating  *Rating   `json:"rating,omitempty"`
	At      time.Time `json:"at"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Reply is the tutor's answer to one question.
type Reply struct {
	Text   string
	Rating *Rating
}

// CaseStudy is a scenario the learner answers in free text.
type CaseStudy struct {
	Title    string
	Scenario string
	Question string
	Criteria []string
}

// Evaluation is the scored answer to a case study. Skills follow the order
// of CaseStudy.Criteria.
type Evaluation struct {
	Rating Rating
	Skills []skills.SkillScore
}
