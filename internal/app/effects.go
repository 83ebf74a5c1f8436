package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/learnloop/internal/auth"
	"github.com/abhisek/learnloop/internal/course"
	"github.com/abhisek/learnloop/internal/logging"
	"github.com/abhisek/learnloop/internal/mailer"
	"github.com/abhisek/learnloop/internal/metrics"
	"github.com/abhisek/learnloop/internal/navigator"
	"github.com/abhisek/learnloop/internal/progress"
	"github.com/abhisek/learnloop/internal/quiz"
	"github.com/abhisek/learnloop/internal/screens/summary"
	"github.com/abhisek/learnloop/internal/skills"
	"github.com/abhisek/learnloop/internal/store"
)

// Quiz answers count as skill observations: full marks when correct.
const (
	quizCorrectScore   = 5.0
	quizIncorrectScore = 0.0
)

// Effects runs navigation side effects in the background: slide views go to
// the event log, and completing a module sends its summary e-mail.
type Effects struct {
	Catalog    *course.Catalog
	Progress   *progress.Store
	Quiz       *quiz.Tracker
	Skills     *SkillBook
	Sessions   *auth.Sessions
	Dispatcher mailer.Dispatcher
	Events     store.EventRepo
	Metrics    *metrics.Metrics
	Log        *zap.Logger

	// DispatchTimeout bounds one e-mail request. Zero means 30s.
	DispatchTimeout time.Duration

	wg sync.WaitGroup
}

var _ navigator.Effects = (*Effects)(nil)

func (e *Effects) log() *zap.Logger {
	return logging.OrNop(e.Log).Named("effects")
}

func (e *Effects) userID() string {
	if e.Progress == nil {
		return ""
	}
	return e.Progress.UserID()
}

func (e *Effects) SlideViewed(ctx context.Context, v navigator.View) {
	if e.Events == nil {
		return
	}
	data := store.SlideViewEventData{
		UserID:     e.userID(),
		CourseID:   v.CourseID,
		ModuleID:   v.ModuleID,
		SlideID:    v.SlideID,
		SlideIndex: v.Index,
		Progress:   progress.ModulePercent(v.Index, v.Total),
	}
	e.background(ctx, func(ctx context.Context) {
		if err := e.Events.AppendSlideView(ctx, data); err != nil {
			e.log().Warn("record slide view", zap.String("slide_id", v.SlideID), zap.Error(err))
		}
	})
}

func (e *Effects) ModuleCompleted(ctx context.Context, v navigator.View) {
	payload, ok := e.BuildPayload(ctx, v)
	e.background(ctx, func(ctx context.Context) {
		e.dispatch(ctx, v.CourseID, payload, ok)
	})
}

// BuildPayload assembles the summary e-mail of a completed module. ok is
// false when there is nobody to send it to.
func (e *Effects) BuildPayload(ctx context.Context, v navigator.View) (mailer.Payload, bool) {
	p := mailer.Payload{
		UserID:   e.userID(),
		ModuleID: v.ModuleID,
		Slide:    v.Index,
	}

	var mod *course.Module
	if e.Catalog != nil {
		if c, m, err := e.Catalog.Module(v.CourseID, v.ModuleID); err == nil {
			p.CourseTitle, p.ModuleTitle, mod = c.Title, m.Title, m
		}
	}

	var collected []skills.SkillScore
	if e.Skills != nil {
		collected = e.Skills.Module(ctx, v.CourseID, v.ModuleID)
	}
	if e.Quiz != nil {
		collected = append(collected, e.quizSkills(ctx, v.CourseID, mod)...)
		p.QuizScore = e.Quiz.Percent(ctx, v.CourseID, v.ModuleID)
	}
	if len(collected) > 0 {
		p.Skills = collected
		if avg, ok := skills.Average(skills.Dedupe(collected)); ok {
			p.AverageScore = &avg
		}
	}

	if e.Sessions == nil {
		return p, false
	}
	sess, err := e.Sessions.Current(ctx)
	if err != nil || sess.Email == "" {
		return p, false
	}
	p.UserEmail = sess.Email
	p.UserName = sess.Name
	return p, true
}

// Summary is the dashboard view of the e-mail a module completion sends.
func (e *Effects) Summary(ctx context.Context, courseID, moduleID string) summary.Data {
	p, deliverable := e.BuildPayload(ctx, navigator.View{CourseID: courseID, ModuleID: moduleID})
	d := summary.Data{
		CourseTitle:  p.CourseTitle,
		ModuleTitle:  p.ModuleTitle,
		QuizScore:    p.QuizScore,
		AverageScore: p.AverageScore,
		Skills:       p.Skills,
	}
	if d.ModuleTitle == "" {
		d.ModuleTitle = moduleID
	}
	if deliverable {
		d.Email = p.UserEmail
	}
	if e.Progress != nil {
		d.Progress = e.Progress.ModuleProgress(courseID, moduleID)
	}
	return d
}

func (e *Effects) quizSkills(ctx context.Context, courseID string, mod *course.Module) []skills.SkillScore {
	if mod == nil {
		return nil
	}
	var out []skills.SkillScore
	for _, s := range mod.Slides {
		if s.Quiz == nil || s.Quiz.Skill == "" {
			continue
		}
		rec, ok := e.Quiz.Answered(ctx, courseID, s.ID)
		if !ok {
			continue
		}
		score := quizIncorrectScore
		if rec.IsCorrect() {
			score = quizCorrectScore
		}
		out = append(out, skills.SkillScore{Name: s.Quiz.Skill, Score: score, IndividualScores: []float64{score}})
	}
	return out
}

func (e *Effects) dispatch(ctx context.Context, courseID string, p mailer.Payload, deliverable bool) {
	data := store.CompletionEventData{
		UserID:       p.UserID,
		CourseID:     courseID,
		ModuleID:     p.ModuleID,
		AverageScore: p.AverageScore,
		QuizScore:    p.QuizScore,
	}

	switch {
	case !deliverable:
		data.ErrorMessage = "no signed-in user with an e-mail address"
	case e.Dispatcher == nil:
		data.ErrorMessage = "mail endpoint not configured"
	default:
		timeout := e.DispatchTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		dctx, cancel := context.WithTimeout(ctx, timeout)
		err := e.Dispatcher.Dispatch(dctx, p)
		cancel()
		if e.Metrics != nil {
			e.Metrics.MailDispatches.WithLabelValues(metrics.Result(err)).Inc()
		}
		if err != nil {
			data.ErrorMessage = err.Error()
			e.log().Warn("module summary dispatch failed",
				zap.String("module_id", p.ModuleID), zap.Error(err))
		} else {
			data.Dispatched = true
			e.log().Info("module summary dispatched", zap.String("module_id", p.ModuleID))
		}
	}

	if e.Events != nil {
		if err := e.Events.AppendCompletion(ctx, data); err != nil {
			e.log().Warn("record completion", zap.String("module_id", p.ModuleID), zap.Error(err))
		}
	}
}

// background runs fn detached from the caller's cancellation.
func (e *Effects) background(ctx context.Context, fn func(context.Context)) {
	ctx = context.WithoutCancel(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		fn(ctx)
	}()
}

// Wait blocks until all background effects have finished.
func (e *Effects) Wait() {
	e.wg.Wait()
}
