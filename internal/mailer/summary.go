package mailer

import (
	"bytes"
	"embed"
	"fmt"
	htmltmpl "html/template"
	"strings"
	texttmpl "text/template"

	"github.com/abhisek/learnloop/internal/skills"
)

//go:embed templates/*
var templateFS embed.FS

var (
	htmlTemplate = htmltmpl.Must(htmltmpl.New("summary.gohtml").Funcs(htmltmpl.FuncMap{
		"score": formatScore,
	}).ParseFS(templateFS, "templates/summary.gohtml"))

	textTemplate = texttmpl.Must(texttmpl.New("summary.txt").Funcs(texttmpl.FuncMap{
		"score": formatScore,
	}).ParseFS(templateFS, "templates/summary.txt"))
)

// Summary is the aggregated content of a module summary e-mail.
type Summary struct {
	UserName     string
	CourseTitle  string
	ModuleTitle  string
	Slide        int
	Skills       []skills.SkillScore
	AverageScore *float64
	QuizScore    *float64
}

// BuildSummary dedupes the payload's skills and fills in the average score
// from them when the client sent none.
func BuildSummary(p Payload) Summary {
	merged := skills.Dedupe(p.Skills)
	avg := skills.NormalizeOptional(p.AverageScore)
	if avg == nil {
		if v, ok := skills.Average(merged); ok {
			avg = &v
		}
	}
	name := strings.TrimSpace(p.UserName)
	if name == "" {
		name = "there"
	}
	return Summary{
		UserName:     name,
		CourseTitle:  p.CourseTitle,
		ModuleTitle:  p.ModuleTitle,
		Slide:        p.Slide,
		Skills:       merged,
		AverageScore: avg,
		QuizScore:    skills.NormalizeOptional(p.QuizScore),
	}
}

// Subject returns the e-mail subject line.
func (s Summary) Subject() string {
	if s.ModuleTitle == "" {
		return "Your module summary"
	}
	return fmt.Sprintf("Your summary for %q", s.ModuleTitle)
}

// Render produces the HTML and plain text bodies.
func (s Summary) Render() (html, text string, err error) {
	var hb, tb bytes.Buffer
	if err := htmlTemplate.Execute(&hb, s); err != nil {
		return "", "", fmt.Errorf("render html: %w", err)
	}
	if err := textTemplate.Execute(&tb, s); err != nil {
		return "", "", fmt.Errorf("render text: %w", err)
	}
	return hb.String(), tb.String(), nil
}

func formatScore(v any) string {
	switch x := v.(type) {
	case *float64:
		if x == nil {
			return "n/a"
		}
		return fmt.Sprintf("%.1f", *x)
	case float64:
		return fmt.Sprintf("%.1f", x)
	default:
		return fmt.Sprint(v)
	}
}
