package remote

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryGateway is an in-process Gateway. Errors can be injected per
// operation to exercise best-effort paths.
type MemoryGateway struct {
	mu           sync.Mutex
	progress     map[progressKey]ProgressRow
	interactions map[interactionKey]InteractionRow
	failures     map[string]error
	calls        map[string]int
}

type progressKey struct{ userID, moduleID string }

type interactionKey struct{ userID, slideID, kind string }

// Operation names accepted by FailOn and Calls.
const (
	OpUpsertProgress    = "upsert_progress"
	OpFetchProgress     = "fetch_progress"
	OpDeleteCourse      = "delete_course"
	OpUpsertInteraction = "upsert_interaction"
	OpFetchInteractions = "fetch_interactions"
)

// NewMemoryGateway returns an empty gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		progress:     make(map[progressKey]ProgressRow),
		interactions: make(map[interactionKey]InteractionRow),
		failures:     make(map[string]error),
		calls:        make(map[string]int),
	}
}

// FailOn makes every later call of op return err. A nil err clears it.
func (g *MemoryGateway) FailOn(op string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.failures, op)
		return
	}
	g.failures[op] = err
}

// Calls reports how many times op was invoked, failed calls included.
func (g *MemoryGateway) Calls(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

func (g *MemoryGateway) enter(op string) error {
	g.calls[op]++
	return g.failures[op]
}

func (g *MemoryGateway) UpsertModuleProgress(_ context.Context, row ProgressRow) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enter(OpUpsertProgress); err != nil {
		return err
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now()
	}
	if row.LastSlideID != nil {
		s := *row.LastSlideID
		row.LastSlideID = &s
	}
	g.progress[progressKey{row.UserID, row.ModuleID}] = row
	return nil
}

func (g *MemoryGateway) FetchProgress(_ context.Context, userID string) ([]ProgressRow, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enter(OpFetchProgress); err != nil {
		return nil, err
	}
	var out []ProgressRow
	for k, r := range g.progress {
		if k.userID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CourseID != out[j].CourseID {
			return out[i].CourseID < out[j].CourseID
		}
		return out[i].ModuleID < out[j].ModuleID
	})
	return out, nil
}

func (g *MemoryGateway) DeleteCourseProgress(_ context.Context, userID, courseID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enter(OpDeleteCourse); err != nil {
		return err
	}
	for k, r := range g.progress {
		if k.userID == userID && r.CourseID == courseID {
			delete(g.progress, k)
		}
	}
	return nil
}

func (g *MemoryGateway) UpsertInteraction(_ context.Context, row InteractionRow) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enter(OpUpsertInteraction); err != nil {
		return err
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now()
	}
	g.interactions[interactionKey{row.UserID, row.SlideID, row.InteractionType}] = row
	return nil
}

func (g *MemoryGateway) FetchInteractions(_ context.Context, userID, courseID string) ([]InteractionRow, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enter(OpFetchInteractions); err != nil {
		return nil, err
	}
	var out []InteractionRow
	for k, r := range g.interactions {
		if k.userID == userID && r.CourseID == courseID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlideID < out[j].SlideID })
	return out, nil
}
