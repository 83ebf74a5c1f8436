package store

import (
	"context"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	kvTable     = "kv_cache"
	kvKey       = "cache_key"
	kvValue     = "value"
	kvUpdatedAt = "updated_at"
	eventsTable = "events"
	evID        = "id"
	evSequence  = "sequence"
	evTimestamp = "timestamp"
	evKind      = "kind"
	evUserID    = "user_id"
	evCourseID  = "course_id"
	evModuleID  = "module_id"
	evSlideID   = "slide_id"
	evPayload   = "payload"
	seqTable    = "global_sequence"
	seqID       = "id"
	seqNext     = "next_val"
)

var (
	kvColumns = []*schema.Column{
		{Name: kvKey, Type: field.TypeString},
		{Name: kvValue, Type: field.TypeBytes},
		{Name: kvUpdatedAt, Type: field.TypeInt64},
	}
	kvCacheTable = &schema.Table{
		Name:       kvTable,
		Columns:    kvColumns,
		PrimaryKey: []*schema.Column{kvColumns[0]},
	}

	eventColumns = []*schema.Column{
		{Name: evID, Type: field.TypeInt, Increment: true},
		{Name: evSequence, Type: field.TypeInt64, Unique: true},
		{Name: evTimestamp, Type: field.TypeInt64},
		{Name: evKind, Type: field.TypeString},
		{Name: evUserID, Type: field.TypeString, Default: ""},
		{Name: evCourseID, Type: field.TypeString, Default: ""},
		{Name: evModuleID, Type: field.TypeString, Default: ""},
		{Name: evSlideID, Type: field.TypeString, Default: ""},
		{Name: evPayload, Type: field.TypeString, Default: "{}"},
	}
	eventTable = &schema.Table{
		Name:       eventsTable,
		Columns:    eventColumns,
		PrimaryKey: []*schema.Column{eventColumns[0]},
		Indexes: []*schema.Index{
			{Name: "event_kind", Columns: []*schema.Column{eventColumns[3]}},
			{Name: "event_timestamp", Columns: []*schema.Column{eventColumns[2]}},
			{Name: "event_course_id_module_id", Columns: []*schema.Column{eventColumns[5], eventColumns[6]}},
		},
	}

	seqColumns = []*schema.Column{
		{Name: seqID, Type: field.TypeInt},
		{Name: seqNext, Type: field.TypeInt64, Default: 1},
	}
	sequenceTable = &schema.Table{
		Name:       seqTable,
		Columns:    seqColumns,
		PrimaryKey: []*schema.Column{seqColumns[0]},
	}

	// tables lists every table managed by auto-migration.
	tables = []*schema.Table{kvCacheTable, eventTable, sequenceTable}
)

// migrate creates or updates the schema for all managed tables.
func migrate(ctx context.Context, drv dialect.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return err
	}
	return m.Create(ctx, tables...)
}
