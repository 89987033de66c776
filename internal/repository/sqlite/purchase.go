package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/paperplane/internal/apperror"
	"github.com/sakif/paperplane/internal/model"
	"github.com/sakif/paperplane/internal/repository"
)

var _ repository.PurchaseRepository = (*DB)(nil)

// CreatePurchase records that p.UserID bought p.IdeaID. Recording the same
// pair twice is a Conflict.
func (db *DB) CreatePurchase(ctx context.Context, p *model.Purchase) error {
	p.CreatedAt = time.Now().UTC()

	_, err := db.q(ctx).ExecContext(ctx,
		`INSERT INTO purchases (user_id, idea_id, created_at) VALUES (?, ?, ?)`,
		p.UserID,
		p.IdeaID,
		p.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return apperror.Conflict("purchase", "ideaId", fmt.Sprint(p.IdeaID))
		}
		return fmt.Errorf("sqlite: recording purchase (user=%d, idea=%d): %w", p.UserID, p.IdeaID, err)
	}
	return nil
}

// ExistsPurchase reports whether userID has bought ideaID.
func (db *DB) ExistsPurchase(ctx context.Context, userID, ideaID int64) (bool, error) {
	var exists bool
	err := db.q(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM purchases WHERE user_id = ? AND idea_id = ?)`,
		userID, ideaID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking purchase (user=%d, idea=%d): %w", userID, ideaID, err)
	}
	return exists, nil
}
