package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/paperplane/internal/apperror"
	"github.com/sakif/paperplane/internal/model"
	"github.com/sakif/paperplane/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// userColumns is shared by every SELECT so scanUser stays in step with it.
// email is nullable in storage (Kakao may not share one, and UNIQUE must not
// treat two missing emails as equal), and "" in the model.
const userColumns = `id, kakao_id, COALESCE(email, ''), username, profile_image, points, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }, u *model.User) error {
	return row.Scan(
		&u.ID,
		&u.KakaoID,
		&u.Email,
		&u.Username,
		&u.ProfileImage,
		&u.Points,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
}

// CreateUser inserts a user and fills in ID, CreatedAt and UpdatedAt.
//
// A clash on kakao_id, email or username comes back as apperror.ErrConflict
// naming the column, so the caller can tell a taken username from a
// duplicate login.
func (db *DB) CreateUser(ctx context.Context, u *model.User) error {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	res, err := db.q(ctx).ExecContext(ctx,
		`INSERT INTO users (kakao_id, email, username, profile_image, points, created_at, updated_at)
		 VALUES (?, NULLIF(?, ''), ?, ?, ?, ?, ?)`,
		u.KakaoID,
		u.Email,
		u.Username,
		u.ProfileImage,
		u.Points,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err, "users.username"):
			return apperror.Conflict("user", "username", u.Username)
		case isUniqueViolation(err, "users.email"):
			return apperror.Conflict("user", "email", u.Email)
		case isUniqueViolation(err, "users.kakao_id"):
			return apperror.Conflict("user", "kakaoId", u.KakaoID)
		}
		return fmt.Errorf("sqlite: inserting user (kakaoID=%s): %w", u.KakaoID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new user id: %w", err)
	}
	u.ID = id
	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := scanUser(db.q(ctx).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	), &u)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", "id", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %d: %w", id, err)
	}
	return &u, nil
}

// GetUserByUsername retrieves a user by their public username.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := scanUser(db.q(ctx).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username,
	), &u)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", "username", username)
		}
		return nil, fmt.Errorf("sqlite: getting user by username %q: %w", username, err)
	}
	return &u, nil
}

// GetUserByKakaoID retrieves the account linked to a Kakao identity.
func (db *DB) GetUserByKakaoID(ctx context.Context, kakaoID string) (*model.User, error) {
	var u model.User
	err := scanUser(db.q(ctx).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE kakao_id = ?`, kakaoID,
	), &u)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", "kakaoId", kakaoID)
		}
		return nil, fmt.Errorf("sqlite: getting user by kakao id %s: %w", kakaoID, err)
	}
	return &u, nil
}

// ExistsByUsername reports whether any user holds username.
func (db *DB) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := db.q(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = ?)`, username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking username %q: %w", username, err)
	}
	return exists, nil
}

// UpdateUser writes username, email, profile image and points.
//
// The UNIQUE(username) constraint is the real guard against two requests
// claiming the same name at once; the service's ExistsByUsername check is
// only the fast path. Losing that race surfaces here as a Conflict.
func (db *DB) UpdateUser(ctx context.Context, u *model.User) error {
	u.UpdatedAt = time.Now().UTC()

	result, err := db.q(ctx).ExecContext(ctx,
		`UPDATE users
		 SET username = ?, email = NULLIF(?, ''), profile_image = ?, points = ?, updated_at = ?
		 WHERE id = ?`,
		u.Username,
		u.Email,
		u.ProfileImage,
		u.Points,
		u.UpdatedAt,
		u.ID,
	)
	if err != nil {
		if isUniqueViolation(err, "users.username") {
			return apperror.Conflict("user", "username", u.Username)
		}
		if isUniqueViolation(err, "users.email") {
			return apperror.Conflict("user", "email", u.Email)
		}
		return fmt.Errorf("sqlite: updating user %d: %w", u.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", "id", u.ID)
	}
	return nil
}
