package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/paperplane/internal/apperror"
	"github.com/sakif/paperplane/internal/model"
	"github.com/sakif/paperplane/internal/repository"
)

const MaxUsernameLength = 30

// UserService manages the public profile: username and profile read.
type UserService struct {
	users  repository.UserRepository
	tx     repository.Transactor
	logger *slog.Logger
}

func NewUserService(users repository.UserRepository, tx repository.Transactor, logger *slog.Logger) *UserService {
	return &UserService{users: users, tx: tx, logger: logger}
}

// UpdateUsername renames userID to newUsername.
//
// A name held by anyone, the caller included, is a Conflict. The
// ExistsByUsername check only gives the common case a clean error; two
// concurrent renames to the same name are settled by the UNIQUE constraint,
// which UpdateUser also reports as a Conflict.
func (s *UserService) UpdateUsername(ctx context.Context, userID int64, newUsername string) (*model.UserProfile, error) {
	newUsername = strings.TrimSpace(newUsername)
	if newUsername == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if utf8.RuneCountInString(newUsername) > MaxUsernameLength {
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	}

	var profile model.UserProfile
	var oldUsername string
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		taken, err := s.users.ExistsByUsername(ctx, newUsername)
		if err != nil {
			return fmt.Errorf("checking username: %w", err)
		}
		if taken {
			return apperror.Conflict("user", "username", newUsername)
		}

		user, err := s.users.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		oldUsername = user.Username
		user.Username = newUsername
		if err := s.users.UpdateUser(ctx, user); err != nil {
			return err
		}
		profile = user.Profile()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("username changed",
		slog.Int64("userID", userID),
		slog.String("from", oldUsername),
		slog.String("to", newUsername),
	)
	return &profile, nil
}

// GetProfile returns the username, profile image and points of userID.
func (s *UserService) GetProfile(ctx context.Context, userID int64) (*model.UserProfile, error) {
	var profile model.UserProfile
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		user, err := s.users.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		profile = user.Profile()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
