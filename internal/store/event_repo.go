package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// eventRepo implements EventRepo with the ent SQL builder and the global
// sequence counter.
type eventRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

var eventSelectColumns = []string{
	evID, evSequence, evTimestamp, evKind, evUserID, evCourseID, evModuleID, evSlideID, evPayload,
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	return r.append(ctx, KindLLMRequest, scope{}, data)
}

func (r *eventRepo) AppendSlideView(ctx context.Context, data SlideViewEventData) error {
	return r.append(ctx, KindSlideView, scope{
		userID:   data.UserID,
		courseID: data.CourseID,
		moduleID: data.ModuleID,
		slideID:  data.SlideID,
	}, data)
}

func (r *eventRepo) AppendQuizAnswer(ctx context.Context, data QuizAnswerEventData) error {
	return r.append(ctx, KindQuizAnswer, scope{
		userID:   data.UserID,
		courseID: data.CourseID,
		moduleID: data.ModuleID,
		slideID:  data.SlideID,
	}, data)
}

func (r *eventRepo) AppendCompletion(ctx context.Context, data CompletionEventData) error {
	return r.append(ctx, KindModuleCompleted, scope{
		userID:   data.UserID,
		courseID: data.CourseID,
		moduleID: data.ModuleID,
	}, data)
}

// scope holds the indexed columns of an event row.
type scope struct {
	userID, courseID, moduleID, slideID string
}

func (r *eventRepo) append(ctx context.Context, kind string, sc scope, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", kind, err)
	}

	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := entsql.Dialect(dialect.SQLite).
		Insert(eventsTable).
		Columns(evSequence, evTimestamp, evKind, evUserID, evCourseID, evModuleID, evSlideID, evPayload).
		Values(seqNum, time.Now().UnixMilli(), kind, sc.userID, sc.courseID, sc.moduleID, sc.slideID, string(payload)).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save %s event: %w", kind, err)
	}
	return nil
}

func (r *eventRepo) QueryEvents(ctx context.Context, kind string, opts QueryOpts) ([]Event, error) {
	b := entsql.Dialect(dialect.SQLite)
	sel := b.Select(eventSelectColumns...).From(b.Table(eventsTable))
	applyFilters(sel, kind, opts)
	sel.OrderBy(entsql.Desc(evSequence))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *eventRepo) GetEvent(ctx context.Context, id int) (*Event, error) {
	b := entsql.Dialect(dialect.SQLite)
	query, args := b.Select(eventSelectColumns...).
		From(b.Table(eventsTable)).
		Where(entsql.EQ(evID, id)).
		Query()

	e, err := scanEvent(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get event %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", id, err)
	}
	return e, nil
}

func (r *eventRepo) CountEvents(ctx context.Context, kind string) (int, error) {
	b := entsql.Dialect(dialect.SQLite)
	sel := b.Select(entsql.Count("*")).From(b.Table(eventsTable))
	applyFilters(sel, kind, QueryOpts{})

	query, args := sel.Query()
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

func applyFilters(sel *entsql.Selector, kind string, opts QueryOpts) {
	if kind != "" {
		sel.Where(entsql.EQ(evKind, kind))
	}
	if opts.CourseID != "" {
		sel.Where(entsql.EQ(evCourseID, opts.CourseID))
	}
	if opts.After > 0 {
		sel.Where(entsql.GT(evSequence, opts.After))
	}
	if opts.Before > 0 {
		sel.Where(entsql.LT(evSequence, opts.Before))
	}
	if !opts.From.IsZero() {
		sel.Where(entsql.GTE(evTimestamp, opts.From.UnixMilli()))
	}
	if !opts.To.IsZero() {
		sel.Where(entsql.LTE(evTimestamp, opts.To.UnixMilli()))
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*Event, error) {
	var (
		e       Event
		ts      int64
		payload string
	)
	if err := row.Scan(&e.ID, &e.Sequence, &ts, &e.Kind, &e.UserID, &e.CourseID, &e.ModuleID, &e.SlideID, &payload); err != nil {
		return nil, err
	}
	e.Timestamp = time.UnixMilli(ts).UTC()
	e.Payload = json.RawMessage(payload)
	return &e, nil
}
