package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/abhisek/learnloop/internal/logging"
	"github.com/abhisek/learnloop/internal/skills"
	"github.com/abhisek/learnloop/internal/store"
)

// SkillBookKey is the device cache key of a course's collected skill scores.
func SkillBookKey(courseID string) string {
	return "module-skills-" + courseID
}

// SkillBook collects skill scores per module (case-study ratings, chat
// ratings) until the module summary is sent.
type SkillBook struct {
	mu  sync.Mutex
	kv  store.KVRepo
	log *zap.Logger
}

func NewSkillBook(kv store.KVRepo, log *zap.Logger) *SkillBook {
	return &SkillBook{kv: kv, log: logging.OrNop(log).Named("skills")}
}

// Add appends scores to a module. Scores are kept as observed; merging
// happens when they are read.
func (b *SkillBook) Add(ctx context.Context, courseID, moduleID string, scores ...skills.SkillScore) {
	if len(scores) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	book := b.loadLocked(ctx, courseID)
	book[moduleID] = append(book[moduleID], scores...)
	if err := store.PutJSON(ctx, b.kv, SkillBookKey(courseID), book); err != nil {
		b.log.Warn("save skill scores", zap.String("course_id", courseID), zap.Error(err))
	}
}

// Module returns the raw scores collected for a module.
func (b *SkillBook) Module(ctx context.Context, courseID, moduleID string) []skills.SkillScore {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]skills.SkillScore(nil), b.loadLocked(ctx, courseID)[moduleID]...)
}

// Clear drops a course's scores. It matches a progress reset hook.
func (b *SkillBook) Clear(ctx context.Context, courseID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.kv.Delete(ctx, SkillBookKey(courseID)); err != nil {
		b.log.Warn("clear skill scores", zap.String("course_id", courseID), zap.Error(err))
	}
}

// Forget drops the scores of every course.
func (b *SkillBook) Forget(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := store.DeletePrefix(ctx, b.kv, SkillBookKey("")); err != nil {
		b.log.Warn("forget skill scores", zap.Error(err))
	}
}

func (b *SkillBook) loadLocked(ctx context.Context, courseID string) map[string][]skills.SkillScore {
	book := make(map[string][]skills.SkillScore)
	if _, err := store.GetJSON(ctx, b.kv, SkillBookKey(courseID), &book); err != nil {
		b.log.Warn("load skill scores", zap.String("course_id", courseID), zap.Error(err))
		return make(map[string][]skills.SkillScore)
	}
	return book
}
