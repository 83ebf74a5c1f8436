package tutor

import "github.com/abhisek/learnloop/internal/llm"

var criterionItem = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"criterion": map[string]any{"type": "string"},
		"score": map[string]any{
			"type":        "number",
			"minimum":     0,
			"maximum":     5,
			"description": "0 (absent) to 5 (excellent)",
		},
	},
	"required":             []any{"criterion", "score"},
	"additionalProperties": false,
}

// chatSchema is the shape of a chat reply. rating is null unless the
// learner asked for feedback on their own work.
var chatSchema = &llm.Schema{
	Name:        "tutor-reply",
	Description: "A tutoring reply with an optional rubric rating",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"reply": map[string]any{"type": "string"},
			"rating": map[string]any{
				"type": []any{"object", "null"},
				"properties": map[string]any{
					"criteria": map[string]any{"type": "array", "items": criterionItem},
					"comment":  map[string]any{"type": "string"},
				},
				"required":             []any{"criteria", "comment"},
				"additionalProperties": false,
			},
		},
		"required":             []any{"reply", "rating"},
		"additionalProperties": false,
	},
}

var rubricSchema = &llm.Schema{
	Name:        "case-study-rubric",
	Description: "Per-criterion scores for a case-study answer",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"criteria": map[string]any{"type": "array", "items": criterionItem},
			"comment":  map[string]any{"type": "string"},
		},
		"required":             []any{"criteria", "comment"},
		"additionalProperties": false,
	},
}

type criterionScore struct {
	Criterion string  `json:"criterion"`
	Score     float64 `json:"score"`
}

type ratingOutput struct {
	Criteria []criterionScore `json:"criteria"`
	Comment  string           `json:"comment"`
}

func (o *ratingOutput) rating() *Rating {
	if o == nil {
		return nil
	}
	r := &Rating{Comment: o.Comment}
	for _, c := range o.Criteria {
		if c.Criterion == "" {
			continue
		}
		if r.CriteriaScores == nil {
			r.CriteriaScores = make(map[string]float64, len(o.Criteria))
		}
		r.CriteriaScores[c.Criterion] = c.Score
	}
	return r
}

type chatOutput struct {
	Reply  string        `json:"reply"`
	Rating *ratingOutput `json:"rating"`
}
