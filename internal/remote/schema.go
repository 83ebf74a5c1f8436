package remote

import (
	"context"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	progressTable      = "user_progress"
	interactionsTable  = "user_interactions"
	colUserID          = "user_id"
	colCourseID        = "course_id"
	colModuleID        = "module_id"
	colProgress        = "progress"
	colLastSlideID     = "last_slide_id"
	colSlideID         = "slide_id"
	colInteractionType = "interaction_type"
	colSelected        = "selected_answer"
	colCorrect         = "correct_answer"
	colUpdatedAt       = "updated_at"
)

var (
	progressColumns = []*schema.Column{
		{Name: colUserID, Type: field.TypeString},
		{Name: colCourseID, Type: field.TypeString},
		{Name: colModuleID, Type: field.TypeString},
		{Name: colProgress, Type: field.TypeInt, Default: 0},
		{Name: colLastSlideID, Type: field.TypeString, Nullable: true},
		{Name: colUpdatedAt, Type: field.TypeInt64},
	}
	userProgressTable = &schema.Table{
		Name:       progressTable,
		Columns:    progressColumns,
		PrimaryKey: []*schema.Column{progressColumns[0], progressColumns[2]},
		Indexes: []*schema.Index{
			{Name: "user_progress_course", Columns: []*schema.Column{progressColumns[0], progressColumns[1]}},
		},
	}

	interactionColumns = []*schema.Column{
		{Name: colUserID, Type: field.TypeString},
		{Name: colCourseID, Type: field.TypeString},
		{Name: colSlideID, Type: field.TypeString},
		{Name: colInteractionType, Type: field.TypeString},
		{Name: colSelected, Type: field.TypeInt},
		{Name: colCorrect, Type: field.TypeInt},
		{Name: colUpdatedAt, Type: field.TypeInt64},
	}
	userInteractionsTable = &schema.Table{
		Name:       interactionsTable,
		Columns:    interactionColumns,
		PrimaryKey: []*schema.Column{interactionColumns[0], interactionColumns[2], interactionColumns[3]},
		Indexes: []*schema.Index{
			{Name: "user_interactions_course", Columns: []*schema.Column{interactionColumns[0], interactionColumns[1]}},
		},
	}

	tables = []*schema.Table{userProgressTable, userInteractionsTable}
)

// migrate creates or updates the remote tables. The same declarations
// serve Postgres and SQLite.
func migrate(ctx context.Context, drv dialect.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return err
	}
	return m.Create(ctx, tables...)
}
