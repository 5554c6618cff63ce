package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/pbaille/kbtags/internal/domain"
)

//go:embed schema.sql
var schema string

var (
	// ErrNotFound is returned when a tag or entry id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNameTaken is returned when a rename collides with another tag's name.
	ErrNameTaken = errors.New("tag name already in use")
	// ErrInvalidName is returned for blank tag names.
	ErrInvalidName = errors.New("tag name is empty")
)

// Store handles database operations
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// AddEntry creates a new entry and returns it
func (s *Store) AddEntry(content string) (*domain.Entry, error) {
	id := uuid.New().String()
	now := time.Now()

	_, err := s.db.Exec(
		"INSERT INTO entries (id, content, created_at) VALUES (?, ?, ?)",
		id, content, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}

	return &domain.Entry{
		ID:        id,
		Content:   content,
		CreatedAt: now,
	}, nil
}

// GetEntry retrieves an entry by ID with its tags
func (s *Store) GetEntry(id string) (*domain.Entry, error) {
	var entry domain.Entry
	err := s.db.QueryRow(
		"SELECT id, content, created_at FROM entries WHERE id = ?",
		id,
	).Scan(&entry.ID, &entry.Content, &entry.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get entry %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}

	tags, err := s.GetEntryTags(id)
	if err != nil {
		return nil, err
	}
	entry.Tags = tags

	return &entry, nil
}

// ListEntries returns recent entries with pagination
func (s *Store) ListEntries(limit, offset int) ([]domain.Entry, error) {
	rows, err := s.db.Query(
		"SELECT id, content, created_at FROM entries ORDER BY created_at DESC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// SearchEntries performs a simple text search
func (s *Store) SearchEntries(query string) ([]domain.Entry, error) {
	rows, err := s.db.Query(
		"SELECT id, content, created_at FROM entries WHERE content LIKE ? ORDER BY created_at DESC",
		"%"+query+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("search entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]domain.Entry, error) {
	var entries []domain.Entry
	for rows.Next() {
		var e domain.Entry
		if err := rows.Scan(&e.ID, &e.Content, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// tagColumns selects a tag row together with its binding count.
const tagColumns = `t.id, t.name, t.parent_id, t.created_at,
	(SELECT COUNT(*) FROM entry_tags c WHERE c.tag_id = t.id)`

func scanTag(sc interface{ Scan(...any) error }) (domain.Tag, error) {
	var t domain.Tag
	err := sc.Scan(&t.ID, &t.Name, &t.ParentID, &t.CreatedAt, &t.BindingCount)
	return t, err
}

func scanTags(rows *sql.Rows) ([]domain.Tag, error) {
	var tags []domain.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// GetOrCreateTag finds a tag by name or creates it
func (s *Store) GetOrCreateTag(name string, parentID *string) (*domain.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	tag, err := scanTag(s.db.QueryRow("SELECT "+tagColumns+" FROM tags t WHERE t.name = ?", name))
	if err == nil {
		return &tag, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find tag: %w", err)
	}

	id := uuid.New().String()
	now := time.Now()

	_, err = s.db.Exec(
		"INSERT INTO tags (id, name, parent_id, created_at) VALUES (?, ?, ?, ?)",
		id, name, parentID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert tag: %w", err)
	}

	return &domain.Tag{
		ID:        id,
		Name:      name,
		ParentID:  parentID,
		CreatedAt: now,
	}, nil
}

// LinkEntryTag associates a tag with an entry
func (s *Store) LinkEntryTag(entryID, tagID string) error {
	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO entry_tags (entry_id, tag_id) VALUES (?, ?)",
		entryID, tagID,
	)
	if err != nil {
		return fmt.Errorf("link entry tag: %w", err)
	}
	return nil
}

// GetEntryTags returns all tags for an entry
func (s *Store) GetEntryTags(entryID string) ([]domain.Tag, error) {
	rows, err := s.db.Query(`
		SELECT `+tagColumns+`
		FROM tags t
		JOIN entry_tags et ON t.id = et.tag_id
		WHERE et.entry_id = ?
		ORDER BY t.name
	`, entryID)
	if err != nil {
		return nil, fmt.Errorf("get entry tags: %w", err)
	}
	defer rows.Close()

	return scanTags(rows)
}

// ListTags returns all tags ordered by name, with binding counts
func (s *Store) ListTags() ([]domain.Tag, error) {
	rows, err := s.db.Query("SELECT " + tagColumns + " FROM tags t ORDER BY t.name")
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	return scanTags(rows)
}

// GetTag returns a single tag by id
func (s *Store) GetTag(ctx context.Context, id string) (*domain.Tag, error) {
	tag, err := scanTag(s.db.QueryRowContext(ctx, "SELECT "+tagColumns+" FROM tags t WHERE t.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get tag %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get tag: %w", err)
	}
	return &tag, nil
}

// RenameTag changes a tag's name. Names are trimmed like in GetOrCreateTag
// and unique across tags.
func (s *Store) RenameTag(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}

	res, err := s.db.ExecContext(ctx, "UPDATE tags SET name = ? WHERE id = ?", name, id)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("rename tag %s to %q: %w", id, name, ErrNameTaken)
		}
		return fmt.Errorf("rename tag: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rename tag: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("rename tag %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteTag removes a tag, its entry bindings, and detaches its children.
func (s *Store) DeleteTag(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tag: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM entry_tags WHERE tag_id = ?", id); err != nil {
		return fmt.Errorf("delete tag bindings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE tags SET parent_id = NULL WHERE parent_id = ?", id); err != nil {
		return fmt.Errorf("detach child tags: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM tags WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete tag %s: %w", id, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete tag: %w", err)
	}
	return nil
}
