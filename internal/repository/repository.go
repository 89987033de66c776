// Package repository declares the persistence contracts the services depend on.
//
// Services only ever see these interfaces; internal/repository/sqlite is the
// production implementation and the service tests use in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/paperplane/internal/model"
)

// Transactor runs fn as one unit of work. Repository calls made with the ctx
// passed to fn join that transaction; fn returning an error rolls it back.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserRepository interface {
	// CreateUser inserts u and fills in ID and timestamps.
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByKakaoID(ctx context.Context, kakaoID string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	// UpdateUser writes the mutable profile fields. A username already held by
	// another row fails with apperror.ErrConflict.
	UpdateUser(ctx context.Context, u *model.User) error
}

type IdeaRepository interface {
	CreateIdea(ctx context.Context, idea *model.Idea) error
	GetIdeaByID(ctx context.Context, id int64) (*model.Idea, error)
	ListIdeas(ctx context.Context) ([]model.Idea, error)
	ListIdeasByCategory(ctx context.Context, category model.Category) ([]model.Idea, error)
	ListIdeasByOwner(ctx context.Context, ownerID int64) ([]model.Idea, error)
	// SearchIdeas matches keyword case-insensitively against title,
	// description and tags.
	SearchIdeas(ctx context.Context, keyword string) ([]model.Idea, error)
	// ListIdeasByFileURL returns every idea whose file reference is fileURL.
	// Content-addressed blobs can be shared, so there may be several.
	ListIdeasByFileURL(ctx context.Context, fileURL string) ([]model.Idea, error)
	UpdateIdea(ctx context.Context, idea *model.Idea) error
	DeleteIdea(ctx context.Context, id int64) error
}

type PurchaseRepository interface {
	CreatePurchase(ctx context.Context, p *model.Purchase) error
	ExistsPurchase(ctx context.Context, userID, ideaID int64) (bool, error)
}
