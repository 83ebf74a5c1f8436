// Package navigator turns scroll positions and swipe gestures of the course
// player into slide visits, progress writes and one-shot completion effects.
package navigator

import (
	"context"
	"math"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/learnloop/internal/logging"
	"github.com/abhisek/learnloop/internal/metrics"
)

// ProgressWriter receives forward progress. progress.Store implements it.
type ProgressWriter interface {
	SetModuleProgressSafe(ctx context.Context, courseID, moduleID string, currentSlideIndex, totalSlides int, lastSlideID *string)
}

// View identifies an observed slide.
type View struct {
	MountID  string
	CourseID string
	ModuleID string
	SlideID  string
	Index    int
	Total    int
}

// Effects receives navigation side effects. Implementations must not block:
// slow work (e-mail, analytics) belongs in the background.
type Effects interface {
	SlideViewed(ctx context.Context, v View)
	ModuleCompleted(ctx context.Context, v View)
}

// NopEffects ignores every effect.
type NopEffects struct{}

func (NopEffects) SlideViewed(context.Context, View)     {}
func (NopEffects) ModuleCompleted(context.Context, View) {}

// Direction of a swipe gesture.
type Direction int

const (
	Backward Direction = -1
	Forward  Direction = 1
)

// SwipeResult is the outcome of a swipe gesture.
type SwipeResult int

const (
	// Accepted moved to the adjacent slide.
	Accepted SwipeResult = iota
	// Locked rejected a forward swipe on a gated slide.
	Locked
	// Consumed scrolled the slide's inner content instead of paging.
	Consumed
	// AtEdge had nowhere to go.
	AtEdge
)

func (r SwipeResult) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case Locked:
		return "locked"
	case Consumed:
		return "consumed"
	case AtEdge:
		return "at-edge"
	default:
		return "unknown"
	}
}

// Config configures a Controller for one module.
type Config struct {
	CourseID string
	ModuleID string
	SlideIDs []string

	Progress ProgressWriter
	Effects  Effects
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

// Controller is the per-mount navigation state of one module. Its guards
// live only as long as the controller: a new mount starts fresh.
type Controller struct {
	mu              sync.Mutex
	mountID         string
	cfg             Config
	lastObserved    int
	lastSaved       int
	completionFired bool
	locked          bool
	inner           ScrollState
	log             *zap.Logger
}

// New creates a Controller positioned before the first slide.
func New(cfg Config) *Controller {
	if cfg.Effects == nil {
		cfg.Effects = NopEffects{}
	}
	return &Controller{
		mountID:      uuid.NewString(),
		cfg:          cfg,
		lastObserved: -1,
		lastSaved:    -1,
		log:          logging.OrNop(cfg.Logger).Named("navigator"),
	}
}

// MountID identifies this controller instance.
func (c *Controller) MountID() string {
	return c.mountID
}

// Total is the number of slides in the module.
func (c *Controller) Total() int {
	return len(c.cfg.SlideIDs)
}

// Current returns the displayed slide index, 0 before any observation.
func (c *Controller) Current() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentLocked()
}

func (c *Controller) currentLocked() int {
	if c.lastObserved < 0 {
		return 0
	}
	return c.lastObserved
}

// SeedWatermark marks slides up to index as already persisted, so resuming
// a module does not rewrite lower progress. It never lowers the watermark.
func (c *Controller) SeedWatermark(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index > c.lastSaved {
		c.lastSaved = min(index, c.Total()-1)
	}
}

// Watermark returns the highest index whose progress was written.
func (c *Controller) Watermark() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSaved
}

// CompletionFired reports whether the completion effect already ran.
func (c *Controller) CompletionFired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completionFired
}

// SetLocked is called by the active slide to gate forward navigation.
func (c *Controller) SetLocked(locked bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locked = locked
}

// IsLocked reports whether forward navigation is gated.
func (c *Controller) IsLocked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.locked
}

// SetInnerScroll records the active slide's inner scroll geometry.
func (c *Controller) SetInnerScroll(s ScrollState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner = s
}

// InnerScroll returns the active slide's inner scroll geometry.
func (c *Controller) InnerScroll() ScrollState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner
}

// OnScroll maps a page scroll sample to a slide index and observes it.
// Samples with a non-positive page height are ignored. It reports whether
// the displayed slide changed.
func (c *Controller) OnScroll(ctx context.Context, offset, pageHeight float64) bool {
	if pageHeight <= 0 || math.IsNaN(offset) || math.IsInf(offset, 0) {
		return false
	}
	// Clamp before converting; huge offsets overflow int.
	pos := math.Round(offset / pageHeight)
	pos = max(-1, min(pos, float64(c.Total())))
	return c.Observe(ctx, int(pos))
}

// Observe makes index the displayed slide. On a change it advances progress
// past the watermark, emits a slide view and, the first time the final
// slide is seen, the completion effect.
func (c *Controller) Observe(ctx context.Context, index int) bool {
	c.mu.Lock()
	total := c.Total()
	if total == 0 {
		c.mu.Unlock()
		return false
	}
	index = max(0, min(index, total-1))
	if index == c.lastObserved {
		c.mu.Unlock()
		return false
	}
	c.lastObserved = index
	c.inner = ScrollState{}

	advance := index > c.lastSaved
	if advance {
		c.lastSaved = index
	}
	complete := index == total-1 && !c.completionFired
	if complete {
		c.completionFired = true
	}
	view := View{
		MountID:  c.mountID,
		CourseID: c.cfg.CourseID,
		ModuleID: c.cfg.ModuleID,
		SlideID:  c.cfg.SlideIDs[index],
		Index:    index,
		Total:    total,
	}
	c.mu.Unlock()

	if advance && c.cfg.Progress != nil {
		slideID := view.SlideID
		c.cfg.Progress.SetModuleProgressSafe(ctx, view.CourseID, view.ModuleID, index, total, &slideID)
	}
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.SlideViews.Inc()
	}
	c.cfg.Effects.SlideViewed(ctx, view)
	if complete {
		if c.cfg.Metrics != nil {
			c.cfg.Metrics.Completions.Inc()
		}
		c.log.Debug("module completed",
			zap.String("course_id", view.CourseID), zap.String("module_id", view.ModuleID))
		c.cfg.Effects.ModuleCompleted(ctx, view)
	}
	return true
}

// Swipe applies a page-level gesture. Inner scrolling consumes swipes until
// the slide's region reaches the matching boundary; a locked slide rejects
// forward swipes; backward swipes are never gated by the lock.
func (c *Controller) Swipe(ctx context.Context, dir Direction) SwipeResult {
	r := c.Gate(dir)
	if r == Accepted {
		c.Observe(ctx, c.Current()+int(dir))
	}
	return r
}

// Gate reports what a swipe in dir would do without applying it. A caller
// that moves the page itself scrolls on Accepted and reports the new offset
// through OnScroll.
func (c *Controller) Gate(dir Direction) SwipeResult {
	c.mu.Lock()
	inner := c.inner
	locked := c.locked
	target := c.currentLocked() + int(dir)
	total := c.Total()
	c.mu.Unlock()

	if inner.IsScrollable() {
		if dir == Forward && !inner.AtBottom() {
			return Consumed
		}
		if dir == Backward && !inner.AtTop() {
			return Consumed
		}
	}
	if dir == Forward && locked {
		return Locked
	}
	if target < 0 || target >= total {
		return AtEdge
	}
	return Accepted
}
