// Package service contains the business rules of the marketplace.
//
//	Handler (HTTP) → Service (rules, access checks) → Repository (SQL)
//	                          ↘ storage.Store (file uploads)
//
// Every public method runs as one unit of work through repository.Transactor,
// so a lookup and the write that depends on it see the same data. Services
// take repository interfaces, never *sqlite.DB; the tests pass in-memory fakes.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/paperplane/internal/apperror"
	"github.com/sakif/paperplane/internal/metrics"
	"github.com/sakif/paperplane/internal/model"
	"github.com/sakif/paperplane/internal/repository"
	"github.com/sakif/paperplane/internal/storage"
)

// Listing limits.
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 5000
	MaxTags              = 10
	MaxTagLength         = 30
)

// IdeaService owns the idea lifecycle: listing, creation, detail with access
// status, file access, update and deletion.
type IdeaService struct {
	ideas     repository.IdeaRepository
	users     repository.UserRepository
	purchases repository.PurchaseRepository
	tx        repository.Transactor
	store     storage.Store
	logger    *slog.Logger
}

func NewIdeaService(
	ideas repository.IdeaRepository,
	users repository.UserRepository,
	purchases repository.PurchaseRepository,
	tx repository.Transactor,
	store storage.Store,
	logger *slog.Logger,
) *IdeaService {
	return &IdeaService{
		ideas:     ideas,
		users:     users,
		purchases: purchases,
		tx:        tx,
		store:     store,
		logger:    logger,
	}
}

// ListByCategory returns the catalog summaries of one category.
func (s *IdeaService) ListByCategory(ctx context.Context, category model.Category) ([]model.IdeaSummary, error) {
	if !category.Valid() {
		return nil, apperror.ValidationFailed("category", "unknown category: "+string(category))
	}

	var out []model.IdeaSummary
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		ideas, err := s.ideas.ListIdeasByCategory(ctx, category)
		if err != nil {
			return fmt.Errorf("listing ideas by category: %w", err)
		}
		out = model.Summaries(ideas)
		return nil
	})
	return out, err
}

// ListAll returns every idea as a catalog summary.
func (s *IdeaService) ListAll(ctx context.Context) ([]model.IdeaSummary, error) {
	var out []model.IdeaSummary
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		ideas, err := s.ideas.ListIdeas(ctx)
		if err != nil {
			return fmt.Errorf("listing ideas: %w", err)
		}
		out = model.Summaries(ideas)
		return nil
	})
	return out, err
}

// ListByUsername returns the ideas of the user holding username.
// Returns apperror.ErrNotFound if nobody does.
func (s *IdeaService) ListByUsername(ctx context.Context, username string) ([]model.IdeaSummary, error) {
	var out []model.IdeaSummary
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		owner, err := s.users.GetUserByUsername(ctx, username)
		if err != nil {
			return err
		}
		ideas, err := s.ideas.ListIdeasByOwner(ctx, owner.ID)
		if err != nil {
			return fmt.Errorf("listing ideas of %s: %w", username, err)
		}
		out = model.Summaries(ideas)
		return nil
	})
	return out, err
}

// Search delegates keyword matching to the repository.
func (s *IdeaService) Search(ctx context.Context, keyword string) ([]model.IdeaSummary, error) {
	keyword = strings.TrimSpace(keyword)

	var out []model.IdeaSummary
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		ideas, err := s.ideas.SearchIdeas(ctx, keyword)
		if err != nil {
			return fmt.Errorf("searching ideas: %w", err)
		}
		out = model.Summaries(ideas)
		return nil
	})
	return out, err
}

// Create publishes a new idea owned by ownerID.
//
// The owner must exist. A non-empty file is uploaded before the insert; if
// the upload fails nothing is written. Without a file FileURL stays nil.
func (s *IdeaService) Create(ctx context.Context, req model.IdeaRequest, ownerID int64, file *storage.File, category model.Category) (*model.Idea, error) {
	if !category.Valid() {
		return nil, apperror.ValidationFailed("category", "unknown category: "+string(category))
	}
	fields, err := validateIdeaRequest(req)
	if err != nil {
		return nil, err
	}

	var idea *model.Idea
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		owner, err := s.users.GetUserByID(ctx, ownerID)
		if err != nil {
			return err
		}

		idea = &model.Idea{
			OwnerID:     owner.ID,
			Title:       fields.Title,
			Category:    category,
			Description: fields.Description,
			Tags:        fields.Tags,
			Price:       fields.Price,
		}
		if !file.IsEmpty() {
			ref, err := s.upload(ctx, file)
			if err != nil {
				return err
			}
			idea.FileURL = &ref
		}

		if err := s.ideas.CreateIdea(ctx, idea); err != nil {
			return fmt.Errorf("creating idea: %w", err)
		}
		return nil
	})
	if err != nil {
		metrics.ObserveIdeaOperation("create", resultOf(err))
		return nil, err
	}

	metrics.ObserveIdeaOperation("create", metrics.ResultSuccess)
	s.logger.Info("idea created",
		slog.Int64("id", idea.ID),
		slog.Int64("ownerID", idea.OwnerID),
		slog.String("category", string(idea.Category)),
		slog.Bool("hasFile", idea.FileURL != nil),
	)
	return idea, nil
}

// GetDetail returns the detail view of an idea and what requesterID may do
// with it. Ownership wins over a purchase: an owner who also bought the idea
// sees OWN.
func (s *IdeaService) GetDetail(ctx context.Context, ideaID, requesterID int64) (*model.IdeaDetail, error) {
	var detail *model.IdeaDetail
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		idea, err := s.ideas.GetIdeaByID(ctx, ideaID)
		if err != nil {
			return err
		}
		requester, err := s.users.GetUserByID(ctx, requesterID)
		if err != nil {
			return err
		}

		owner := requester
		if idea.OwnerID != requester.ID {
			if owner, err = s.users.GetUserByID(ctx, idea.OwnerID); err != nil {
				return fmt.Errorf("loading owner of idea %d: %w", idea.ID, err)
			}
		}

		status, err := s.accessStatus(ctx, idea, requester.ID)
		if err != nil {
			return err
		}

		detail = &model.IdeaDetail{
			ID:            idea.ID,
			Title:         idea.Title,
			Category:      idea.Category,
			Description:   idea.Description,
			Tags:          idea.Tags,
			Price:         idea.Price,
			OwnerUsername: owner.Username,
			CreatedAt:     idea.CreatedAt,
			Status:        status,
		}
		return nil
	})
	return detail, err
}

func (s *IdeaService) accessStatus(ctx context.Context, idea *model.Idea, userID int64) (model.AccessStatus, error) {
	if idea.OwnerID == userID {
		return model.AccessOwn, nil
	}
	purchased, err := s.purchases.ExistsPurchase(ctx, userID, idea.ID)
	if err != nil {
		return "", fmt.Errorf("checking purchase of idea %d: %w", idea.ID, err)
	}
	if purchased {
		return model.AccessPurchased, nil
	}
	return model.AccessNotPurchased, nil
}

// GetFileURL returns the stored file reference, which may be nil.
// Access is denied only when requesterID neither owns nor bought the idea.
func (s *IdeaService) GetFileURL(ctx context.Context, ideaID, requesterID int64) (*string, error) {
	var ref *string
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		idea, err := s.ideas.GetIdeaByID(ctx, ideaID)
		if err != nil {
			return err
		}

		status, err := s.accessStatus(ctx, idea, requesterID)
		if err != nil {
			return err
		}
		if status == model.AccessNotPurchased {
			metrics.ObserveFileAccess(metrics.DecisionDenied)
			return apperror.Forbidden("you have not purchased this idea")
		}

		metrics.ObserveFileAccess(metrics.DecisionGranted)
		ref = idea.FileURL
		return nil
	})
	return ref, err
}

// AuthorizeFile decides whether requesterID may download the blob at ref.
// It applies the GetFileURL rule to every idea referencing the blob: access
// is granted when the requester owns or bought any of them. A reference no
// idea holds is NotFound.
func (s *IdeaService) AuthorizeFile(ctx context.Context, requesterID int64, ref string) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		ideas, err := s.ideas.ListIdeasByFileURL(ctx, ref)
		if err != nil {
			return fmt.Errorf("looking up ideas for file: %w", err)
		}
		if len(ideas) == 0 {
			return apperror.NotFound("file", "url", ref)
		}

		for i := range ideas {
			status, err := s.accessStatus(ctx, &ideas[i], requesterID)
			if err != nil {
				return err
			}
			if status != model.AccessNotPurchased {
				metrics.ObserveFileAccess(metrics.DecisionGranted)
				return nil
			}
		}
		metrics.ObserveFileAccess(metrics.DecisionDenied)
		return apperror.Forbidden("you have not purchased this file")
	})
}

// Delete removes an idea. Only the owner may delete it.
func (s *IdeaService) Delete(ctx context.Context, ideaID, requesterID int64) error {
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		idea, err := s.ideas.GetIdeaByID(ctx, ideaID)
		if err != nil {
			return err
		}
		if idea.OwnerID != requesterID {
			return apperror.Forbidden("only the owner can delete this idea")
		}
		return s.ideas.DeleteIdea(ctx, idea.ID)
	})
	metrics.ObserveIdeaOperation("delete", resultOf(err))
	if err != nil {
		return err
	}

	s.logger.Info("idea deleted", slog.Int64("id", ideaID), slog.Int64("ownerID", requesterID))
	return nil
}

// Update overwrites an idea's fields. Only the owner may update it.
//
// The category comes from req.CategoryDisplayName. File handling:
//   - a non-empty file is uploaded and replaces the reference
//   - otherwise a nil req.File clears the reference
//   - otherwise the current reference is kept
func (s *IdeaService) Update(ctx context.Context, ideaID, requesterID int64, req model.IdeaRequest, file *storage.File) (*model.Idea, error) {
	var idea *model.Idea
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		idea, err = s.ideas.GetIdeaByID(ctx, ideaID)
		if err != nil {
			return err
		}
		if idea.OwnerID != requesterID {
			return apperror.Forbidden("only the owner can update this idea")
		}

		category, err := model.CategoryFromDisplayName(req.CategoryDisplayName)
		if err != nil {
			return err
		}
		fields, err := validateIdeaRequest(req)
		if err != nil {
			return err
		}

		idea.Title = fields.Title
		idea.Description = fields.Description
		idea.Tags = fields.Tags
		idea.Price = fields.Price
		idea.Category = category

		switch {
		case !file.IsEmpty():
			ref, err := s.upload(ctx, file)
			if err != nil {
				return err
			}
			idea.FileURL = &ref
		case req.File == nil:
			idea.FileURL = nil
		}

		if err := s.ideas.UpdateIdea(ctx, idea); err != nil {
			return fmt.Errorf("updating idea %d: %w", idea.ID, err)
		}
		return nil
	})
	metrics.ObserveIdeaOperation("update", resultOf(err))
	if err != nil {
		return nil, err
	}

	s.logger.Info("idea updated",
		slog.Int64("id", idea.ID),
		slog.String("category", string(idea.Category)),
		slog.Bool("hasFile", idea.FileURL != nil),
	)
	return idea, nil
}

func (s *IdeaService) upload(ctx context.Context, file *storage.File) (string, error) {
	ref, err := s.store.Upload(ctx, file)
	if err != nil {
		metrics.ObserveUpload(metrics.ResultError, 0)
		s.logger.Error("file upload failed",
			slog.String("name", file.Name),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("uploading %s: %w", file.Name, err)
	}
	metrics.ObserveUpload(metrics.ResultSuccess, file.Size)
	return ref, nil
}

// validateIdeaRequest trims the text fields and normalises tags: blanks are
// dropped and duplicates removed, first occurrence wins.
func validateIdeaRequest(req model.IdeaRequest) (model.IdeaRequest, error) {
	out := req
	out.Title = strings.TrimSpace(req.Title)
	out.Description = strings.TrimSpace(req.Description)

	if out.Title == "" {
		return out, apperror.ValidationFailed("title", "title is required")
	}
	if utf8.RuneCountInString(out.Title) > MaxTitleLength {
		return out, apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if utf8.RuneCountInString(out.Description) > MaxDescriptionLength {
		return out, apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	}
	if req.Price < 0 {
		return out, apperror.ValidationFailed("price", "price must not be negative")
	}

	out.Tags = make([]string, 0, len(req.Tags))
	seen := make(map[string]bool, len(req.Tags))
	for _, tag := range req.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		if utf8.RuneCountInString(tag) > MaxTagLength {
			return out, apperror.ValidationFailed("tags",
				fmt.Sprintf("tags must be %d characters or less", MaxTagLength))
		}
		seen[tag] = true
		out.Tags = append(out.Tags, tag)
	}
	if len(out.Tags) > MaxTags {
		return out, apperror.ValidationFailed("tags", fmt.Sprintf("at most %d tags are allowed", MaxTags))
	}
	return out, nil
}
