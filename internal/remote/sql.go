package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

// SQLGateway implements Gateway over database/sql. Statements are built
// for the connected dialect, so Postgres and SQLite share one code path.
type SQLGateway struct {
	db      *sql.DB
	dialect string
}

// Open connects to the remote store and ensures its schema exists.
// driver is "pgx" (aliases: postgres, pg, pgsql) or "sqlite".
func Open(ctx context.Context, driver, dsn string) (*SQLGateway, error) {
	drv := normalizeDriver(driver)
	if drv == "" {
		return nil, errors.New("remote: driver is required")
	}
	if dsn == "" {
		return nil, errors.New("remote: dsn is required")
	}

	db, err := sql.Open(drv, dsn)
	if err != nil {
		return nil, fmt.Errorf("remote: open: %w", err)
	}
	tunePool(drv, db)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("remote: ping: %w", err)
	}

	if drv == "sqlite" {
		// ent's SQLite migration requires foreign keys; the pool holds one
		// connection, so the pragma sticks.
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("remote: enable foreign keys: %w", err)
		}
	}

	g := &SQLGateway{db: db, dialect: dialectOf(drv)}
	if err := migrate(ctx, entsql.OpenDB(g.dialect, db)); err != nil {
		db.Close()
		return nil, fmt.Errorf("remote: ensure schema: %w", err)
	}
	return g, nil
}

// Close closes the underlying connection pool.
func (g *SQLGateway) Close() error {
	return g.db.Close()
}

func (g *SQLGateway) UpsertModuleProgress(ctx context.Context, row ProgressRow) error {
	updated := row.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	query, args := entsql.Dialect(g.dialect).
		Insert(progressTable).
		Columns(colUserID, colCourseID, colModuleID, colProgress, colLastSlideID, colUpdatedAt).
		Values(row.UserID, row.CourseID, row.ModuleID, row.Progress, nullString(row.LastSlideID), updated.UnixMilli()).
		OnConflict(
			entsql.ConflictColumns(colUserID, colModuleID),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := g.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert progress %s/%s: %w", row.CourseID, row.ModuleID, err)
	}
	return nil
}

func (g *SQLGateway) FetchProgress(ctx context.Context, userID string) ([]ProgressRow, error) {
	b := entsql.Dialect(g.dialect)
	query, args := b.Select(colUserID, colCourseID, colModuleID, colProgress, colLastSlideID, colUpdatedAt).
		From(b.Table(progressTable)).
		Where(entsql.EQ(colUserID, userID)).
		OrderBy(colCourseID, colModuleID).
		Query()

	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch progress: %w", err)
	}
	defer rows.Close()

	var out []ProgressRow
	for rows.Next() {
		var (
			r       ProgressRow
			last    sql.NullString
			updated int64
		)
		if err := rows.Scan(&r.UserID, &r.CourseID, &r.ModuleID, &r.Progress, &last, &updated); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		if last.Valid {
			s := last.String
			r.LastSlideID = &s
		}
		r.UpdatedAt = time.UnixMilli(updated)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (g *SQLGateway) DeleteCourseProgress(ctx context.Context, userID, courseID string) error {
	query, args := entsql.Dialect(g.dialect).
		Delete(progressTable).
		Where(entsql.And(entsql.EQ(colUserID, userID), entsql.EQ(colCourseID, courseID))).
		Query()
	if _, err := g.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete course progress %s: %w", courseID, err)
	}
	return nil
}

func (g *SQLGateway) UpsertInteraction(ctx context.Context, row InteractionRow) error {
	updated := row.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	query, args := entsql.Dialect(g.dialect).
		Insert(interactionsTable).
		Columns(colUserID, colCourseID, colSlideID, colInteractionType, colSelected, colCorrect, colUpdatedAt).
		Values(row.UserID, row.CourseID, row.SlideID, row.InteractionType, row.Selected, row.Correct, updated.UnixMilli()).
		OnConflict(
			entsql.ConflictColumns(colUserID, colSlideID, colInteractionType),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := g.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert interaction %s: %w", row.SlideID, err)
	}
	return nil
}

func (g *SQLGateway) FetchInteractions(ctx context.Context, userID, courseID string) ([]InteractionRow, error) {
	b := entsql.Dialect(g.dialect)
	query, args := b.Select(colUserID, colCourseID, colSlideID, colInteractionType, colSelected, colCorrect, colUpdatedAt).
		From(b.Table(interactionsTable)).
		Where(entsql.And(entsql.EQ(colUserID, userID), entsql.EQ(colCourseID, courseID))).
		OrderBy(colSlideID).
		Query()

	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch interactions: %w", err)
	}
	defer rows.Close()

	var out []InteractionRow
	for rows.Next() {
		var (
			r       InteractionRow
			updated int64
		)
		if err := rows.Scan(&r.UserID, &r.CourseID, &r.SlideID, &r.InteractionType, &r.Selected, &r.Correct, &updated); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		r.UpdatedAt = time.UnixMilli(updated)
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// dialectOf maps a registered driver name to its SQL dialect.
func dialectOf(driver string) string {
	if driver == "sqlite" {
		return dialect.SQLite
	}
	return dialect.Postgres
}

// normalizeDriver maps common aliases to registered driver names.
func normalizeDriver(d string) string {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "pg", "pgsql", "pgx", "postgres":
		return "pgx"
	case "sqlite", "sqlite3":
		return "sqlite"
	default:
		return ""
	}
}

func tunePool(driver string, db *sql.DB) {
	if driver == "sqlite" {
		// Single writer; a tiny pool avoids busy errors.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		return
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(45 * time.Minute)
	db.SetConnMaxIdleTime(15 * time.Minute)
}
