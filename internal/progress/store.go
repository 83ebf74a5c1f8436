package progress

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/learnloop/internal/logging"
	"github.com/abhisek/learnloop/internal/metrics"
	"github.com/abhisek/learnloop/internal/remote"
)

// DefaultQueueSize bounds the pending remote operations.
const DefaultQueueSize = 64

// Options configures a Store.
type Options struct {
	Cache LocalCache

	// Gateway mirrors progress remotely. Nil keeps the store local-only.
	Gateway remote.Gateway

	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	QueueSize int
}

// ResetHook runs after a course is reset, e.g. to clear quiz markers.
type ResetHook func(ctx context.Context, courseID string)

// SignOutHook runs when a user's session ends, either by SignOut or by a
// different user signing in. It drops per-user device data.
type SignOutHook func(ctx context.Context)

type remoteOp int

const (
	opUpsert remoteOp = iota
	opDeleteCourse
)

type remoteJob struct {
	op  remoteOp
	row remote.ProgressRow
}

// Store is the authoritative in-memory progress of the signed-in user.
// All mutations are serialized by one mutex; remote writes are queued to a
// single worker so they reach the gateway in mutation order.
type Store struct {
	mu      sync.Mutex
	userID  string
	courses []CourseProgressSummary
	hooks   []ResetHook
	leave   []SignOutHook
	closed  bool

	cache   LocalCache
	gateway remote.Gateway
	log     *zap.Logger
	metrics *metrics.Metrics

	pending chan remoteJob
	done    chan struct{}
	once    sync.Once
}

// New creates a Store and starts its remote worker when a gateway is set.
func New(opts Options) *Store {
	size := opts.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	s := &Store{
		cache:   opts.Cache,
		gateway: opts.Gateway,
		log:     logging.OrNop(opts.Logger).Named("progress"),
		metrics: opts.Metrics,
		pending: make(chan remoteJob, size),
		done:    make(chan struct{}),
	}
	if s.gateway != nil {
		go s.processLoop()
	} else {
		close(s.done)
	}
	return s
}

// UserID returns the signed-in user, or "" when signed out.
func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// OnReset registers a hook run by ResetCourseProgress.
func (s *Store) OnReset(h ResetHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, h)
}

// OnSignOut registers a hook run by SignOut and by a user switch in SignIn.
func (s *Store) OnSignOut(h SignOutHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leave = append(s.leave, h)
}

// SignIn makes userID current and hydrates memory from the device cache.
// Signing in over another user runs the sign-out hooks first.
func (s *Store) SignIn(ctx context.Context, userID string) {
	if userID == "" {
		s.log.Warn("sign in ignored: empty user id")
		return
	}
	s.mu.Lock()
	prev := s.userID
	if prev != userID {
		s.courses = nil
	}
	s.userID = userID
	hooks := append([]SignOutHook(nil), s.leave...)
	s.mu.Unlock()

	if prev != "" && prev != userID {
		s.log.Info("user switched", zap.String("from", prev), zap.String("to", userID))
		runSignOutHooks(ctx, hooks)
	}
	s.InitFromLocal(ctx)
}

// SignOut flushes all progress to the remote store, then clears the device
// cache and memory. The flush error, if any, is returned after clearing.
func (s *Store) SignOut(ctx context.Context) error {
	flushErr := s.SyncProgressToDB(ctx)

	s.mu.Lock()
	userID := s.userID
	s.userID = ""
	s.courses = nil
	hooks := append([]SignOutHook(nil), s.leave...)
	s.mu.Unlock()

	if userID != "" && s.cache != nil {
		if err := s.cache.Clear(ctx, userID); err != nil {
			s.log.Warn("clear local progress failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	runSignOutHooks(ctx, hooks)
	return flushErr
}

func runSignOutHooks(ctx context.Context, hooks []SignOutHook) {
	for _, h := range hooks {
		h(ctx)
	}
}

// InitFromLocal replaces memory with the cached snapshot of the current
// user, if one exists. It never contacts the remote store.
func (s *Store) InitFromLocal(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userID == "" || s.cache == nil {
		return
	}
	courses, ok, err := s.cache.Load(ctx, s.userID)
	if err != nil {
		s.log.Warn("load local progress failed", zap.String("user_id", s.userID), zap.Error(err))
		return
	}
	if !ok {
		return
	}
	s.courses = cloneCourses(courses)
	s.log.Debug("hydrated progress from local cache",
		zap.String("user_id", s.userID), zap.Int("courses", len(courses)))
}

// CourseProgress returns the course percent, 0 when the course is unknown.
func (s *Store) CourseProgress(courseID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.findCourse(courseID); c != nil {
		return c.Progress
	}
	return 0
}

// ModuleProgress returns the module percent, 0 when unknown.
func (s *Store) ModuleProgress(courseID, moduleID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.findCourse(courseID); c != nil {
		if m := findModule(c, moduleID); m != nil {
			return m.Progress
		}
	}
	return 0
}

// Course returns a copy of one course summary.
func (s *Store) Course(courseID string) (CourseProgressSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.findCourse(courseID); c != nil {
		return c.clone(), true
	}
	return CourseProgressSummary{}, false
}

// Courses returns a copy of every course summary.
func (s *Store) Courses() []CourseProgressSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneCourses(s.courses)
}

// SetModuleProgressSafe records that the learner is on currentSlideIndex of
// a module with totalSlides slides. Invalid input and a missing user make it
// a no-op. Memory and the device cache are updated before the remote upsert
// is queued; remote failures never roll the local state back.
func (s *Store) SetModuleProgressSafe(ctx context.Context, courseID, moduleID string, currentSlideIndex, totalSlides int, lastSlideID *string) {
	if courseID == "" || moduleID == "" {
		s.log.Warn("set module progress ignored: missing id",
			zap.String("course_id", courseID), zap.String("module_id", moduleID))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userID == "" {
		return
	}
	if totalSlides <= 0 {
		s.log.Warn("set module progress ignored: no slides",
			zap.String("course_id", courseID), zap.String("module_id", moduleID), zap.Int("total_slides", totalSlides))
		return
	}

	percent := ModulePercent(currentSlideIndex, totalSlides)

	c := s.ensureCourse(courseID)
	m := findModule(c, moduleID)
	if m == nil {
		c.Modules = append(c.Modules, ModuleProgress{ModuleID: moduleID})
		m = &c.Modules[len(c.Modules)-1]
	}
	m.Progress = percent
	m.LastSlideID = cloneString(lastSlideID)
	total := totalSlides
	m.TotalSlides = &total
	if lastSlideID != nil {
		c.LastSlideID = cloneString(lastSlideID)
	}
	c.Progress = CoursePercent(c.Modules)

	s.persistLocked(ctx)
	s.enqueueLocked(remoteJob{op: opUpsert, row: remote.ProgressRow{
		UserID:      s.userID,
		CourseID:    courseID,
		ModuleID:    moduleID,
		Progress:    percent,
		LastSlideID: cloneString(lastSlideID),
		UpdatedAt:   time.Now(),
	}})
}

// SetCourseProgress creates the course if needed and records the last slide.
// The percent (clamped to 0..100) only applies while the course has no
// modules; afterwards progress is always derived from the modules.
func (s *Store) SetCourseProgress(ctx context.Context, courseID string, percent int, lastSlideID *string) {
	if courseID == "" {
		s.log.Warn("set course progress ignored: missing course id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userID == "" {
		return
	}
	c := s.ensureCourse(courseID)
	if len(c.Modules) == 0 {
		c.Progress = clamp(percent, 0, 100)
	} else {
		c.Progress = CoursePercent(c.Modules)
	}
	if lastSlideID != nil {
		c.LastSlideID = cloneString(lastSlideID)
	}
	s.persistLocked(ctx)
}

// ResetCourseProgress empties the course, persists locally, runs reset
// hooks and queues a best-effort remote deletion.
func (s *Store) ResetCourseProgress(ctx context.Context, courseID string) {
	if courseID == "" {
		s.log.Warn("reset ignored: missing course id")
		return
	}

	s.mu.Lock()
	if s.userID == "" {
		s.mu.Unlock()
		return
	}
	if c := s.findCourse(courseID); c != nil {
		c.Modules = []ModuleProgress{}
		c.Progress = 0
	}
	s.persistLocked(ctx)
	s.enqueueLocked(remoteJob{op: opDeleteCourse, row: remote.ProgressRow{
		UserID:   s.userID,
		CourseID: courseID,
	}})
	hooks := append([]ResetHook(nil), s.hooks...)
	s.mu.Unlock()

	for _, h := range hooks {
		h(ctx, courseID)
	}
}

// SyncProgressToDB upserts every known module sequentially. A failing item
// is logged and the loop continues; all failures are returned joined.
func (s *Store) SyncProgressToDB(ctx context.Context) error {
	if s.gateway == nil {
		return nil
	}

	s.mu.Lock()
	userID := s.userID
	courses := cloneCourses(s.courses)
	s.mu.Unlock()

	if userID == "" {
		return nil
	}

	var errs []error
	for _, c := range courses {
		for _, m := range c.Modules {
			err := s.gateway.UpsertModuleProgress(ctx, remote.ProgressRow{
				UserID:      userID,
				CourseID:    c.CourseID,
				ModuleID:    m.ModuleID,
				Progress:    m.Progress,
				LastSlideID: m.LastSlideID,
				UpdatedAt:   time.Now(),
			})
			s.countRemote(remote.OpUpsertProgress, err)
			if err != nil {
				s.log.Warn("sync module progress failed",
					zap.String("course_id", c.CourseID), zap.String("module_id", m.ModuleID), zap.Error(err))
				errs = append(errs, fmt.Errorf("%s/%s: %w", c.CourseID, m.ModuleID, err))
			}
		}
	}
	return errors.Join(errs...)
}

// MergeFromRemote pulls the user's remote rows into memory. For modules
// present remotely the remote row wins; local-only modules are kept.
func (s *Store) MergeFromRemote(ctx context.Context) error {
	if s.gateway == nil {
		return errors.New("progress: no remote store configured")
	}

	userID := s.UserID()
	if userID == "" {
		return nil
	}

	rows, err := s.gateway.FetchProgress(ctx, userID)
	s.countRemote(remote.OpFetchProgress, err)
	if err != nil {
		return fmt.Errorf("fetch remote progress: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID != userID {
		// Signed out or switched user while fetching.
		return nil
	}

	touched := make(map[string]bool)
	for _, r := range rows {
		if r.CourseID == "" || r.ModuleID == "" {
			continue
		}
		c := s.ensureCourse(r.CourseID)
		m := findModule(c, r.ModuleID)
		if m == nil {
			c.Modules = append(c.Modules, ModuleProgress{ModuleID: r.ModuleID})
			m = &c.Modules[len(c.Modules)-1]
		}
		m.Progress = clamp(r.Progress, 0, 100)
		m.LastSlideID = cloneString(r.LastSlideID)
		if r.LastSlideID != nil {
			c.LastSlideID = cloneString(r.LastSlideID)
		}
		touched[r.CourseID] = true
	}
	for i := range s.courses {
		if touched[s.courses[i].CourseID] {
			s.courses[i].Progress = CoursePercent(s.courses[i].Modules)
		}
	}
	s.persistLocked(ctx)
	return nil
}

// Close stops accepting remote work and waits for queued operations.
func (s *Store) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.pending)
		s.mu.Unlock()
		<-s.done
	})
}

func (s *Store) processLoop() {
	defer close(s.done)
	for job := range s.pending {
		if s.metrics != nil {
			s.metrics.QueueDepth.Dec()
		}
		ctx := context.Background()
		switch job.op {
		case opUpsert:
			err := s.gateway.UpsertModuleProgress(ctx, job.row)
			s.countRemote(remote.OpUpsertProgress, err)
			if err != nil {
				s.log.Warn("remote progress upsert failed",
					zap.String("course_id", job.row.CourseID),
					zap.String("module_id", job.row.ModuleID),
					zap.Int("progress", job.row.Progress),
					zap.Error(err))
			}
		case opDeleteCourse:
			err := s.gateway.DeleteCourseProgress(ctx, job.row.UserID, job.row.CourseID)
			s.countRemote(remote.OpDeleteCourse, err)
			if err != nil {
				s.log.Warn("remote course reset failed",
					zap.String("course_id", job.row.CourseID), zap.Error(err))
			}
		}
	}
}

// enqueueLocked hands a job to the worker without blocking. Must hold mu.
func (s *Store) enqueueLocked(job remoteJob) {
	if s.gateway == nil || s.closed {
		return
	}
	// Counted before the send so the worker's Dec never runs first.
	if s.metrics != nil {
		s.metrics.QueueDepth.Inc()
	}
	select {
	case s.pending <- job:
	default:
		if s.metrics != nil {
			s.metrics.QueueDepth.Dec()
		}
		// Queue full; the next SyncProgressToDB repairs the remote copy.
		s.countRemote(opName(job.op), errDropped)
		s.log.Warn("remote queue full, operation dropped",
			zap.String("course_id", job.row.CourseID), zap.String("module_id", job.row.ModuleID))
	}
}

var errDropped = errors.New("dropped")

func opName(op remoteOp) string {
	if op == opDeleteCourse {
		return remote.OpDeleteCourse
	}
	return remote.OpUpsertProgress
}

func (s *Store) countRemote(op string, err error) {
	if s.metrics == nil {
		return
	}
	result := metrics.Result(err)
	if errors.Is(err, errDropped) {
		result = metrics.ResultDropped
	}
	s.metrics.RemoteOps.WithLabelValues(op, result).Inc()
}

// persistLocked writes the snapshot to the device cache. Must hold mu.
func (s *Store) persistLocked(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Save(ctx, s.userID, cloneCourses(s.courses)); err != nil {
		s.log.Warn("persist local progress failed", zap.String("user_id", s.userID), zap.Error(err))
	}
}

func (s *Store) findCourse(courseID string) *CourseProgressSummary {
	for i := range s.courses {
		if s.courses[i].CourseID == courseID {
			return &s.courses[i]
		}
	}
	return nil
}

// ensureCourse returns the course, creating it with progress 0.
func (s *Store) ensureCourse(courseID string) *CourseProgressSummary {
	if c := s.findCourse(courseID); c != nil {
		return c
	}
	s.courses = append(s.courses, CourseProgressSummary{CourseID: courseID, Modules: []ModuleProgress{}})
	return &s.courses[len(s.courses)-1]
}

func findModule(c *CourseProgressSummary, moduleID string) *ModuleProgress {
	for i := range c.Modules {
		if c.Modules[i].ModuleID == moduleID {
			return &c.Modules[i]
		}
	}
	return nil
}
