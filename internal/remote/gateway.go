// Package remote is the boundary to the persistent relational store that
// mirrors learner progress and quiz interactions across devices.
package remote

import (
	"context"
	"time"
)

// InteractionQuiz is the interaction_type of quiz answer rows.
const InteractionQuiz = "quiz"

// ProgressRow is one (user, module) progress record.
type ProgressRow struct {
	UserID      string
	CourseID    string
	ModuleID    string
	Progress    int
	LastSlideID *string
	UpdatedAt   time.Time
}

// InteractionRow is one (user, slide, interaction type) record.
type InteractionRow struct {
	UserID          string
	CourseID        string
	SlideID         string
	InteractionType string
	Selected        int
	Correct         int
	UpdatedAt       time.Time
}

// Gateway is implemented by every remote store.
type Gateway interface {
	// UpsertModuleProgress inserts or replaces the row keyed by
	// (UserID, ModuleID).
	UpsertModuleProgress(ctx context.Context, row ProgressRow) error

	// FetchProgress returns every progress row of a user.
	FetchProgress(ctx context.Context, userID string) ([]ProgressRow, error)

	// DeleteCourseProgress removes the user's rows for one course.
	DeleteCourseProgress(ctx context.Context, userID, courseID string) error

	// UpsertInteraction inserts or replaces the row keyed by
	// (UserID, SlideID, InteractionType).
	UpsertInteraction(ctx context.Context, row InteractionRow) error

	// FetchInteractions returns a user's interaction rows for a course.
	FetchInteractions(ctx context.Context, userID, courseID string) ([]InteractionRow, error)
}
