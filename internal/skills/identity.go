package skills

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SkillScore is a single named competency observation on the 0-5 scale.
type SkillScore struct {
	Name             string    `json:"name"`
	Key              string    `json:"key,omitempty"`
	Score            float64   `json:"score"`
	IndividualScores []float64 `json:"individualScores,omitempty"`
}

// Identity returns the normalized identity of a skill record: its key when
// set, otherwise its name. Two records with the same non-empty identity refer
// to the same skill.
func Identity(s SkillScore) string {
	if s.Key != "" {
		return NormalizeLabel(s.Key)
	}
	return NormalizeLabel(s.Name)
}

// NormalizeLabel folds a label for comparison: compatibility decomposition,
// combining marks stripped, runs of anything that is not a letter or digit
// collapsed to one space, trimmed and lowercased.
func NormalizeLabel(label string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, label)
	if err != nil {
		folded = label
	}

	var b strings.Builder
	b.Grow(len(folded))
	gap := false
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if gap && b.Len() > 0 {
				b.WriteByte(' ')
			}
			gap = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		gap = true
	}
	return b.String()
}
