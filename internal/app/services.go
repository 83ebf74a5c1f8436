package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/abhisek/learnloop/internal/auth"
	"github.com/abhisek/learnloop/internal/config"
	"github.com/abhisek/learnloop/internal/course"
	"github.com/abhisek/learnloop/internal/llm"
	"github.com/abhisek/learnloop/internal/logging"
	"github.com/abhisek/learnloop/internal/mailer"
	"github.com/abhisek/learnloop/internal/metrics"
	"github.com/abhisek/learnloop/internal/progress"
	"github.com/abhisek/learnloop/internal/quiz"
	"github.com/abhisek/learnloop/internal/remote"
	"github.com/abhisek/learnloop/internal/store"
	"github.com/abhisek/learnloop/internal/tutor"
)

// Options configures Open.
type Options struct {
	Config *config.Config
	DBPath string
	Logger *zap.Logger

	// Metrics defaults to a fresh registry.
	Metrics *metrics.Metrics

	// Provider and Gateway replace the configured collaborators when set.
	Provider llm.Provider
	Gateway  remote.Gateway
}

// Services is everything a command or the player needs, built once from
// configuration. Tutor and Dispatcher are nil when not configured; Gateway
// is nil when progress stays on this device.
type Services struct {
	Config     *config.Config
	Log        *zap.Logger
	Metrics    *metrics.Metrics
	Store      *store.Store
	Catalog    *course.Catalog
	Gateway    remote.Gateway
	Progress   *progress.Store
	Quiz       *quiz.Tracker
	Skills     *SkillBook
	Sessions   *auth.Sessions
	Verifier   *auth.Verifier
	Tutor      *tutor.Tutor
	Dispatcher mailer.Dispatcher
	Effects    *Effects

	closers []func() error
}

// Open builds Services. The cached session, if still valid, is signed in
// and its progress hydrated from the device cache.
func Open(ctx context.Context, opts Options) (*Services, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	log := logging.OrNop(opts.Logger)
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}

	s := &Services{Config: cfg, Log: log, Metrics: m}

	st, err := store.Open(opts.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	s.Store = st
	s.closers = append(s.closers, st.Close)

	s.Catalog, err = course.Load(cfg.Course.Dir)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("load courses: %w", err)
	}

	s.Gateway = opts.Gateway
	if s.Gateway == nil && cfg.Remote.Driver != "" {
		gw, err := remote.Open(ctx, cfg.Remote.Driver, cfg.Remote.DSN)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open remote store: %w", err)
		}
		s.Gateway = gw
		s.closers = append(s.closers, gw.Close)
	}

	kv := st.KV()
	events := st.EventRepo()

	s.Progress = progress.New(progress.Options{
		Cache:     progress.NewCache(kv),
		Gateway:   s.Gateway,
		Logger:    log,
		Metrics:   m,
		QueueSize: cfg.Remote.QueueSize,
	})
	s.closers = append(s.closers, func() error { s.Progress.Close(); return nil })

	s.Quiz = quiz.NewTracker(quiz.Options{
		KV:      kv,
		Users:   s.Progress,
		Gateway: s.Gateway,
		Events:  events,
		Logger:  log,
	})
	s.Skills = NewSkillBook(kv, log)

	s.Verifier = auth.NewVerifier(cfg.Auth.JWTSecret)
	s.Sessions = auth.NewSessions(kv, s.Verifier)

	provider := opts.Provider
	if provider == nil {
		if llmCfg, ok := cfg.LLMConfig(); ok {
			provider, err = llm.NewProvider(ctx, llmCfg, llm.Options{Events: events, Logger: log, Metrics: m})
			if err != nil {
				log.Warn("AI provider unavailable", zap.Error(err))
				provider = nil
			}
		}
	}
	if provider != nil {
		s.Tutor = tutor.New(provider, kv, tutor.DefaultConfig(), log)
	}

	if cfg.Mail.Endpoint != "" {
		s.Dispatcher = mailer.NewHTTPDispatcher(cfg.Mail.Endpoint, cfg.Mail.Timeout)
	}

	s.Effects = &Effects{
		Catalog:         s.Catalog,
		Progress:        s.Progress,
		Quiz:            s.Quiz,
		Skills:          s.Skills,
		Sessions:        s.Sessions,
		Dispatcher:      s.Dispatcher,
		Events:          events,
		Metrics:         m,
		Log:             log,
		DispatchTimeout: cfg.Mail.Timeout,
	}

	s.Progress.OnReset(s.Quiz.Clear)
	s.Progress.OnReset(s.Skills.Clear)
	s.Progress.OnSignOut(s.Quiz.Forget)
	s.Progress.OnSignOut(s.Skills.Forget)
	if s.Tutor != nil {
		s.Progress.OnReset(s.Tutor.Clear)
		s.Progress.OnSignOut(s.Tutor.Forget)
	}

	s.restoreSession(ctx)
	return s, nil
}

func (s *Services) restoreSession(ctx context.Context) {
	sess, err := s.Sessions.Current(ctx)
	switch {
	case err == nil:
		s.Progress.SignIn(ctx, sess.UserID)
	case errors.Is(err, auth.ErrNoSession):
		s.Log.Debug("no active session", zap.Error(err))
	default:
		s.Log.Warn("restore session", zap.Error(err))
	}
}

// Login verifies token, stores the session and switches progress to its
// user.
func (s *Services) Login(ctx context.Context, token string) (auth.Session, error) {
	sess, err := s.Sessions.Login(ctx, token)
	if err != nil {
		return auth.Session{}, err
	}
	s.Progress.SignIn(ctx, sess.UserID)
	return sess, nil
}

// Logout flushes and clears local progress, then drops the session. The
// session is dropped even when the flush fails.
func (s *Services) Logout(ctx context.Context) error {
	flushErr := s.Progress.SignOut(ctx)
	if err := s.Sessions.Logout(ctx); err != nil {
		return errors.Join(flushErr, err)
	}
	return flushErr
}

// Close waits for background effects, drains the remote queue and closes
// the stores, in reverse order of opening.
func (s *Services) Close() error {
	if s.Effects != nil {
		s.Effects.Wait()
	}
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
