// Package quiz records quiz answers per slide and scores them.
package quiz

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/learnloop/internal/logging"
	"github.com/abhisek/learnloop/internal/remote"
	"github.com/abhisek/learnloop/internal/skills"
	"github.com/abhisek/learnloop/internal/store"
)

// Record is one answered quiz slide.
type Record struct {
	SlideID    string    `json:"slideId"`
	ModuleID   string    `json:"moduleId,omitempty"`
	Selected   int       `json:"selectedAnswer"`
	Correct    int       `json:"correctAnswer"`
	AnsweredAt time.Time `json:"answeredAt"`
}

// IsCorrect reports whether the selected option was the right one.
func (r Record) IsCorrect() bool {
	return r.Selected == r.Correct
}

// CacheKey is the device cache key of a course's answers.
func CacheKey(courseID string) string {
	return "quiz-progress-" + courseID
}

// UserSource yields the signed-in user id, "" when signed out.
type UserSource interface {
	UserID() string
}

// Options configures a Tracker. Only KV is required.
type Options struct {
	KV      store.KVRepo
	Users   UserSource
	Gateway remote.Gateway
	Events  store.EventRepo
	Logger  *zap.Logger
}

// Tracker keeps answers per course in memory, backed by the device cache.
type Tracker struct {
	mu      sync.Mutex
	courses map[string]map[string]Record

	kv      store.KVRepo
	users   UserSource
	gateway remote.Gateway
	events  store.EventRepo
	log     *zap.Logger
}

// NewTracker creates a Tracker.
func NewTracker(opts Options) *Tracker {
	return &Tracker{
		courses: make(map[string]map[string]Record),
		kv:      opts.KV,
		users:   opts.Users,
		gateway: opts.Gateway,
		events:  opts.Events,
		log:     logging.OrNop(opts.Logger).Named("quiz"),
	}
}

// Answer records the answer for a slide. A slide is answered once: later
// calls return the first record and false.
func (t *Tracker) Answer(ctx context.Context, courseID, moduleID, slideID string, selected, correct int) (Record, bool) {
	if courseID == "" || slideID == "" {
		t.log.Warn("answer ignored: missing id", zap.String("course_id", courseID), zap.String("slide_id", slideID))
		return Record{}, false
	}

	t.mu.Lock()
	answers := t.loadLocked(ctx, courseID)
	if prev, ok := answers[slideID]; ok {
		t.mu.Unlock()
		return prev, false
	}
	rec := Record{
		SlideID:    slideID,
		ModuleID:   moduleID,
		Selected:   selected,
		Correct:    correct,
		AnsweredAt: time.Now().UTC(),
	}
	answers[slideID] = rec
	if err := store.PutJSON(ctx, t.kv, CacheKey(courseID), answers); err != nil {
		t.log.Warn("persist quiz answers failed", zap.String("course_id", courseID), zap.Error(err))
	}
	t.mu.Unlock()

	userID := ""
	if t.users != nil {
		userID = t.users.UserID()
	}

	if t.gateway != nil && userID != "" {
		err := t.gateway.UpsertInteraction(ctx, remote.InteractionRow{
			UserID:          userID,
			CourseID:        courseID,
			SlideID:         slideID,
			InteractionType: remote.InteractionQuiz,
			Selected:        selected,
			Correct:         correct,
			UpdatedAt:       rec.AnsweredAt,
		})
		if err != nil {
			t.log.Warn("remote quiz upsert failed", zap.String("slide_id", slideID), zap.Error(err))
		}
	}

	if t.events != nil {
		err := t.events.AppendQuizAnswer(ctx, store.QuizAnswerEventData{
			UserID:    userID,
			CourseID:  courseID,
			ModuleID:  moduleID,
			SlideID:   slideID,
			Selected:  selected,
			Correct:   correct,
			IsCorrect: rec.IsCorrect(),
		})
		if err != nil {
			t.log.Warn("record quiz event failed", zap.String("slide_id", slideID), zap.Error(err))
		}
	}
	return rec, true
}

// Answered returns the record for a slide, if any.
func (t *Tracker) Answered(ctx context.Context, courseID, slideID string) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.loadLocked(ctx, courseID)[slideID]
	return rec, ok
}

// Score counts correct answers and answered slides of a course. A non-empty
// moduleID restricts the count to that module.
func (t *Tracker) Score(ctx context.Context, courseID, moduleID string) (correct, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range t.loadLocked(ctx, courseID) {
		if moduleID != "" && r.ModuleID != moduleID {
			continue
		}
		total++
		if r.IsCorrect() {
			correct++
		}
	}
	return correct, total
}

// Percent is the share of correct answers as a 0..100 score rounded to one
// decimal, nil when nothing was answered.
func (t *Tracker) Percent(ctx context.Context, courseID, moduleID string) *float64 {
	correct, total := t.Score(ctx, courseID, moduleID)
	if total == 0 {
		return nil
	}
	v := float64(correct) / float64(total) * 100
	return skills.NormalizeOptional(&v)
}

// Clear forgets every answer of a course. Its signature matches a progress
// reset hook.
func (t *Tracker) Clear(ctx context.Context, courseID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.courses[courseID] = make(map[string]Record)
	if err := t.kv.Delete(ctx, CacheKey(courseID)); err != nil {
		t.log.Warn("clear quiz answers failed", zap.String("course_id", courseID), zap.Error(err))
	}
}

// Forget drops the answers of every course, in memory and on the device.
// It runs when the signed-in user changes.
func (t *Tracker) Forget(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.courses = make(map[string]map[string]Record)
	if err := store.DeletePrefix(ctx, t.kv, CacheKey("")); err != nil {
		t.log.Warn("forget quiz answers failed", zap.Error(err))
	}
}

// loadLocked returns the course answers, reading the cache on first use.
// Must hold mu.
func (t *Tracker) loadLocked(ctx context.Context, courseID string) map[string]Record {
	if answers, ok := t.courses[courseID]; ok {
		return answers
	}
	answers := make(map[string]Record)
	if _, err := store.GetJSON(ctx, t.kv, CacheKey(courseID), &answers); err != nil {
		t.log.Warn("load quiz answers failed", zap.String("course_id", courseID), zap.Error(err))
		answers = make(map[string]Record)
	}
	t.courses[courseID] = answers
	return answers
}
