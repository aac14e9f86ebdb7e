package idea

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"muse/internal/config"
)

// Store manages idea persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ideas database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "ideas.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

const ideaColumns = `id, title, description, status, is_public, tags, creator_id, created_at, updated_at`

// Create inserts a new idea. A zero ID is assigned, timestamps are set, and
// an empty status defaults to draft.
func (s *Store) Create(ctx context.Context, item *Idea) error {
	if item == nil {
		return errors.New("idea is nil")
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.Status == "" {
		item.Status = StageDraft
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO ideas (`+ideaColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID.String(),
		item.Title,
		item.Description,
		item.Status,
		boolToInt(item.IsPublic),
		nullableString(item.Tags),
		item.CreatorID.String(),
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert idea: %w", err)
	}
	return nil
}

// GetByID fetches an idea by identifier. Returns nil when no row matches.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Idea, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ideaColumns+` FROM ideas WHERE id = ?`, id.String())
	item, err := scanIdea(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get idea: %w", err)
	}
	return item, nil
}

// ListFilter constrains List results.
type ListFilter struct {
	Status Stage
	Viewer Actor
	Offset int
	Limit  int
}

// List returns ideas visible to the filter's viewer ordered by creation time.
// Non-admin viewers see their own ideas plus public ones.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]*Idea, error) {
	query := `SELECT ` + ideaColumns + ` FROM ideas`
	var clauses []string
	var args []any

	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}
	if !filter.Viewer.Admin {
		clauses = append(clauses, "(creator_id = ? OR is_public = 1)")
		args = append(args, filter.Viewer.ID.String())
	}
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ideas: %w", err)
	}
	defer rows.Close()

	var items []*Idea
	for rows.Next() {
		item, err := scanIdea(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Update persists changes to an existing idea.
func (s *Store) Update(ctx context.Context, item *Idea) error {
	if item == nil {
		return errors.New("idea is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE ideas
         SET title = ?, description = ?, status = ?, is_public = ?, tags = ?, updated_at = ?
         WHERE id = ?`,
		item.Title,
		item.Description,
		item.Status,
		boolToInt(item.IsPublic),
		nullableString(item.Tags),
		item.UpdatedAt.Format(time.RFC3339Nano),
		item.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update idea: %w", err)
	}
	return nil
}

// SetStatus commits a status change for the idea. This is the single write
// used on both sides of the transition saga: once to move the idea forward
// and, when processing fails, once more to revert it.
func (s *Store) SetStatus(ctx context.Context, id uuid.UUID, status Stage) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE ideas SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		time.Now().UTC().Format(time.RFC3339Nano),
		id.String(),
	)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set status rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("set status: idea %s not found", id)
	}
	return nil
}

// Delete removes an idea. Returns false when no row matched.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ideas WHERE id = ?`, id.String())
	if err != nil {
		return false, fmt.Errorf("delete idea: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete idea rows: %w", err)
	}
	return affected > 0, nil
}

// Stats returns idea counts keyed by lifecycle stage.
func (s *Store) Stats(ctx context.Context) (map[Stage]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM ideas GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("idea stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Stage]int)
	for rows.Next() {
		var status Stage
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// RecordAICall appends a processing record for a stage service invocation.
func (s *Store) RecordAICall(ctx context.Context, call *AICall) error {
	if call == nil {
		return errors.New("ai call is nil")
	}
	call.CreatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO ai_calls (idea_id, actor_id, stage, model, excerpt, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		call.IdeaID.String(),
		call.ActorID.String(),
		call.Stage,
		call.Model,
		call.Excerpt,
		call.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert ai call: %w", err)
	}
	call.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	return nil
}

// AICallsForIdea lists processing records for an idea, oldest first.
func (s *Store) AICallsForIdea(ctx context.Context, ideaID uuid.UUID) ([]*AICall, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, idea_id, actor_id, stage, model, excerpt, created_at
         FROM ai_calls WHERE idea_id = ? ORDER BY id`,
		ideaID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list ai calls: %w", err)
	}
	defer rows.Close()

	var calls []*AICall
	for rows.Next() {
		call, err := scanAICall(rows)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	return calls, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdea(row rowScanner) (*Idea, error) {
	var (
		item      Idea
		id        string
		creator   string
		isPublic  int
		tags      sql.NullString
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&id, &item.Title, &item.Description, &item.Status, &isPublic, &tags, &creator, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse idea id %q: %w", id, err)
	}
	parsedCreator, err := uuid.Parse(creator)
	if err != nil {
		return nil, fmt.Errorf("parse creator id %q: %w", creator, err)
	}
	item.ID = parsedID
	item.CreatorID = parsedCreator
	item.IsPublic = isPublic != 0
	item.Tags = tags.String
	item.CreatedAt = parseTimestamp(createdAt)
	item.UpdatedAt = parseTimestamp(updatedAt)
	return &item, nil
}

func scanAICall(row rowScanner) (*AICall, error) {
	var (
		call      AICall
		ideaID    string
		actorID   string
		createdAt string
	)
	if err := row.Scan(&call.ID, &ideaID, &actorID, &call.Stage, &call.Model, &call.Excerpt, &createdAt); err != nil {
		return nil, fmt.Errorf("scan ai call: %w", err)
	}
	parsedIdea, err := uuid.Parse(ideaID)
	if err != nil {
		return nil, fmt.Errorf("parse ai call idea id %q: %w", ideaID, err)
	}
	parsedActor, err := uuid.Parse(actorID)
	if err != nil {
		return nil, fmt.Errorf("parse ai call actor id %q: %w", actorID, err)
	}
	call.IdeaID = parsedIdea
	call.ActorID = parsedActor
	call.CreatedAt = parseTimestamp(createdAt)
	return &call, nil
}

func parseTimestamp(value string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
