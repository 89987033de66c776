package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/paperplane/internal/apperror"
	"github.com/sakif/paperplane/internal/model"
	"github.com/sakif/paperplane/internal/repository"
)

var _ repository.IdeaRepository = (*DB)(nil)

const ideaColumns = `id, owner_id, title, category, description, tags, price, file_url, created_at, updated_at`

// TAGS AS JSON:
// Tags are a small, unordered list that is always read and written with the
// idea. A JSON array in one TEXT column keeps that a single-row operation,
// and SQLite's json_each lets the keyword search look inside it.

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("sqlite: encoding tags: %w", err)
	}
	return string(b), nil
}

func scanIdea(row interface{ Scan(...any) error }, idea *model.Idea) error {
	var (
		tagsJSON string
		fileURL  sql.NullString
		category string
	)
	if err := row.Scan(
		&idea.ID,
		&idea.OwnerID,
		&idea.Title,
		&category,
		&idea.Description,
		&tagsJSON,
		&idea.Price,
		&fileURL,
		&idea.CreatedAt,
		&idea.UpdatedAt,
	); err != nil {
		return err
	}

	idea.Category = model.Category(category)
	idea.Tags = []string{}
	if err := json.Unmarshal([]byte(tagsJSON), &idea.Tags); err != nil {
		return fmt.Errorf("decoding tags of idea %d: %w", idea.ID, err)
	}
	idea.FileURL = nil
	if fileURL.Valid {
		u := fileURL.String
		idea.FileURL = &u
	}
	return nil
}

// CreateIdea inserts an idea and fills in ID and timestamps.
// A nil FileURL is stored as NULL.
func (db *DB) CreateIdea(ctx context.Context, idea *model.Idea) error {
	tags, err := encodeTags(idea.Tags)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	idea.CreatedAt = now
	idea.UpdatedAt = now

	res, err := db.q(ctx).ExecContext(ctx,
		`INSERT INTO ideas (owner_id, title, category, description, tags, price, file_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		idea.OwnerID,
		idea.Title,
		string(idea.Category),
		idea.Description,
		tags,
		idea.Price,
		idea.FileURL,
		idea.CreatedAt,
		idea.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating idea: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new idea id: %w", err)
	}
	idea.ID = id
	return nil
}

// GetIdeaByID retrieves a single idea. Returns apperror.ErrNotFound if absent.
func (db *DB) GetIdeaByID(ctx context.Context, id int64) (*model.Idea, error) {
	var idea model.Idea
	err := scanIdea(db.q(ctx).QueryRowContext(ctx,
		`SELECT `+ideaColumns+` FROM ideas WHERE id = ?`, id,
	), &idea)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("idea", "id", id)
		}
		return nil, fmt.Errorf("sqlite: getting idea %d: %w", id, err)
	}
	return &idea, nil
}

// ListIdeas returns every idea, newest first.
func (db *DB) ListIdeas(ctx context.Context) ([]model.Idea, error) {
	return db.listIdeas(ctx, "all ideas",
		`SELECT `+ideaColumns+` FROM ideas ORDER BY created_at DESC, id DESC`)
}

// ListIdeasByCategory returns the ideas of one category, newest first.
func (db *DB) ListIdeasByCategory(ctx context.Context, category model.Category) ([]model.Idea, error) {
	return db.listIdeas(ctx, "ideas in category "+string(category),
		`SELECT `+ideaColumns+` FROM ideas WHERE category = ? ORDER BY created_at DESC, id DESC`,
		string(category))
}

// ListIdeasByOwner returns the ideas owned by one user, newest first.
func (db *DB) ListIdeasByOwner(ctx context.Context, ownerID int64) ([]model.Idea, error) {
	return db.listIdeas(ctx, fmt.Sprintf("ideas of user %d", ownerID),
		`SELECT `+ideaColumns+` FROM ideas WHERE owner_id = ? ORDER BY created_at DESC, id DESC`,
		ownerID)
}

// SearchIdeas is a case-insensitive substring match (SQLite LIKE folds ASCII
// case) over title, description and each individual tag. LIKE wildcards in
// the keyword are escaped, so "50%" means the literal text "50%".
func (db *DB) SearchIdeas(ctx context.Context, keyword string) ([]model.Idea, error) {
	pattern := "%" + escapeLike(keyword) + "%"
	return db.listIdeas(ctx, fmt.Sprintf("ideas matching %q", keyword),
		`SELECT `+ideaColumns+` FROM ideas
		 WHERE title LIKE ?1 ESCAPE '\'
		    OR description LIKE ?1 ESCAPE '\'
		    OR EXISTS (SELECT 1 FROM json_each(ideas.tags) WHERE json_each.value LIKE ?1 ESCAPE '\')
		 ORDER BY created_at DESC, id DESC`,
		pattern)
}

// ListIdeasByFileURL returns the ideas that reference fileURL.
func (db *DB) ListIdeasByFileURL(ctx context.Context, fileURL string) ([]model.Idea, error) {
	return db.listIdeas(ctx, fmt.Sprintf("ideas with file %q", fileURL),
		`SELECT `+ideaColumns+` FROM ideas WHERE file_url = ? ORDER BY created_at DESC, id DESC`,
		fileURL)
}

func (db *DB) listIdeas(ctx context.Context, what, query string, args ...any) ([]model.Idea, error) {
	rows, err := db.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing %s: %w", what, err)
	}
	defer rows.Close()

	ideas := make([]model.Idea, 0)
	for rows.Next() {
		var idea model.Idea
		if err := scanIdea(rows, &idea); err != nil {
			return nil, fmt.Errorf("sqlite: scanning idea row: %w", err)
		}
		ideas = append(ideas, idea)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating %s: %w", what, err)
	}
	return ideas, nil
}

// UpdateIdea overwrites the mutable fields. owner_id and created_at are
// never touched.
func (db *DB) UpdateIdea(ctx context.Context, idea *model.Idea) error {
	tags, err := encodeTags(idea.Tags)
	if err != nil {
		return err
	}
	idea.UpdatedAt = time.Now().UTC()

	result, err := db.q(ctx).ExecContext(ctx,
		`UPDATE ideas
		 SET title = ?, category = ?, description = ?, tags = ?, price = ?, file_url = ?, updated_at = ?
		 WHERE id = ?`,
		idea.Title,
		string(idea.Category),
		idea.Description,
		tags,
		idea.Price,
		idea.FileURL,
		idea.UpdatedAt,
		idea.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating idea %d: %w", idea.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("idea", "id", idea.ID)
	}
	return nil
}

// DeleteIdea removes an idea; its purchases go with it (ON DELETE CASCADE).
func (db *DB) DeleteIdea(ctx context.Context, id int64) error {
	result, err := db.q(ctx).ExecContext(ctx, `DELETE FROM ideas WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting idea %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("idea", "id", id)
	}
	return nil
}
