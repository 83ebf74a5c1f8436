package tutor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"text/template"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/learnloop/internal/llm"
	"github.com/abhisek/learnloop/internal/logging"
	"github.com/abhisek/learnloop/internal/skills"
	"github.com/abhisek/learnloop/internal/store"
)

// ErrEmptyQuestion is returned by Ask for a blank question.
var ErrEmptyQuestion = errors.New("tutor: empty question")

// Config tunes requests sent to the provider.
type Config struct {
	MaxTokens   int
	Temperature float64

	// HistoryLimit caps how many earlier turns are sent with a question.
	HistoryLimit int
}

func DefaultConfig() Config {
	return Config{
		MaxTokens:    1024,
		Temperature:  0.4,
		HistoryLimit: 20,
	}
}

// Tutor answers questions within a course and keeps each course's
// conversation in the device cache.
type Tutor struct {
	mu       sync.Mutex
	provider llm.Provider
	kv       store.KVRepo
	cfg      Config
	log      *zap.Logger
	now      func() time.Time
}

func New(provider llm.Provider, kv store.KVRepo, cfg Config, log *zap.Logger) *Tutor {
	return &Tutor{
		provider: provider,
		kv:       kv,
		cfg:      cfg,
		log:      logging.OrNop(log).Named("tutor"),
		now:      time.Now,
	}
}

// HistoryKey is the device cache key of a course's conversation.
func HistoryKey(courseID string) string {
	return "course-chat-" + courseID
}

// History returns the stored conversation of a course, oldest first.
func (t *Tutor) History(ctx context.Context, courseID string) ([]Turn, error) {
	var turns []Turn
	if _, err := store.GetJSON(ctx, t.kv, HistoryKey(courseID), &turns); err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}
	return turns, nil
}

// Ask sends question with the course's recent history. Both turns are stored
// only when the provider answers; a failed call leaves the history as it was.
func (t *Tutor) Ask(ctx context.Context, courseID, courseTitle, question string) (Reply, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Reply{}, ErrEmptyQuestion
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	history, err := t.History(ctx, courseID)
	if err != nil {
		t.log.Warn("chat history unreadable, starting fresh", zap.String("course_id", courseID), zap.Error(err))
		history = nil
	}

	system, err := render(chatSystemTemplate, struct{ CourseTitle string }{courseTitle})
	if err != nil {
		return Reply{}, fmt.Errorf("build chat prompt: %w", err)
	}

	recent := history
	if n := t.cfg.HistoryLimit; n > 0 && len(recent) > n {
		recent = recent[len(recent)-n:]
	}
	msgs := make([]llm.Message, 0, len(recent)+1)
	for _, turn := range recent {
		role := llm.RoleUser
		if turn.Role == RoleAssistant {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: turn.Content})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: question})

	resp, err := t.provider.Generate(llm.WithPurpose(ctx, llm.PurposeTutorChat), llm.Request{
		System:      system,
		Messages:    msgs,
		Schema:      chatSchema,
		MaxTokens:   t.cfg.MaxTokens,
		Temperature: t.cfg.Temperature,
	})
	if err != nil {
		return Reply{}, fmt.Errorf("tutor reply: %w", err)
	}

	var out chatOutput
	if err := llm.DecodeJSON(resp, &out); err != nil {
		return Reply{}, fmt.Errorf("parse tutor reply: %w", err)
	}
	reply := Reply{Text: strings.TrimSpace(out.Reply), Rating: out.Rating.rating()}

	now := t.now()
	history = append(history,
		Turn{Role: RoleUser, Content: question, At: now},
		Turn{Role: RoleAssistant, Content: reply.Text, Rating: reply.Rating, At: now},
	)
	if err := store.PutJSON(ctx, t.kv, HistoryKey(courseID), history); err != nil {
		t.log.Warn("save chat history", zap.String("course_id", courseID), zap.Error(err))
	}
	return reply, nil
}

// Clear forgets a course's conversation.
func (t *Tutor) Clear(ctx context.Context, courseID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.kv.Delete(ctx, HistoryKey(courseID)); err != nil {
		t.log.Warn("clear chat history", zap.String("course_id", courseID), zap.Error(err))
	}
}

// Forget drops the conversations of every course.
func (t *Tutor) Forget(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := store.DeletePrefix(ctx, t.kv, HistoryKey("")); err != nil {
		t.log.Warn("forget chat history", zap.Error(err))
	}
}

// Evaluate scores answer against the case study's criteria. Criteria the
// model skipped score 0; criteria it invented are dropped.
func (t *Tutor) Evaluate(ctx context.Context, cs CaseStudy, answer string) (Evaluation, error) {
	if len(cs.Criteria) == 0 {
		return Evaluation{}, errors.New("tutor: case study has no criteria")
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return Evaluation{}, ErrEmptyQuestion
	}

	msg, err := render(rubricUserTemplate, struct {
		CaseStudy
		Answer string
	}{cs, answer})
	if err != nil {
		return Evaluation{}, fmt.Errorf("build rubric prompt: %w", err)
	}

	resp, err := t.provider.Generate(llm.WithPurpose(ctx, llm.PurposeCaseStudyEval), llm.Request{
		System:      rubricSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: msg}},
		Schema:      rubricSchema,
		MaxTokens:   t.cfg.MaxTokens,
		Temperature: 0,
	})
	if err != nil {
		return Evaluation{}, fmt.Errorf("case study evaluation: %w", err)
	}

	var out ratingOutput
	if err := llm.DecodeJSON(resp, &out); err != nil {
		return Evaluation{}, fmt.Errorf("parse rubric: %w", err)
	}
	scored := out.rating()

	ev := Evaluation{Rating: Rating{Comment: scored.Comment, CriteriaScores: make(map[string]float64, len(cs.Criteria))}}
	for _, name := range cs.Criteria {
		score := scoreFor(scored.CriteriaScores, name)
		s, ok := criterionSkill(name, score)
		if !ok {
			continue
		}
		ev.Rating.CriteriaScores[name] = s.Score
		ev.Skills = append(ev.Skills, s)
	}
	return ev, nil
}

// scoreFor finds a criterion's score, tolerating case and punctuation
// differences in how the model echoed its name.
func scoreFor(scores map[string]float64, name string) float64 {
	if v, ok := scores[name]; ok {
		return v
	}
	want := skills.NormalizeLabel(name)
	for k, v := range scores {
		if skills.NormalizeLabel(k) == want {
			return v
		}
	}
	return 0
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
