package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/sakif/paperplane/internal/apperror"
	"github.com/sakif/paperplane/internal/auth"
	"github.com/sakif/paperplane/internal/metrics"
	"github.com/sakif/paperplane/internal/model"
	"github.com/sakif/paperplane/internal/repository"
)

// AuthService turns a Kakao profile into a local account and a session token.
//
//	AuthHandler (HTTP) → AuthService → UserRepository
//	                               ↘ TokenService (JWT)
type AuthService struct {
	users  repository.UserRepository
	tx     repository.Transactor
	tokens *auth.TokenService
	logger *slog.Logger
}

func NewAuthService(users repository.UserRepository, tx repository.Transactor, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{users: users, tx: tx, tokens: tokens, logger: logger}
}

// AuthResult bundles the user and the issued JWT so the handler can set the
// cookie and respond in one step.
type AuthResult struct {
	User    *model.User
	Token   string
	Created bool
}

// LoginOrRegisterKakao finds the account linked to the Kakao id or creates
// it on first login, then issues a token.
//
// A new account gets a username derived from the Kakao nickname; when that is
// empty or taken, numbered variants are tried and finally "kakao_<id>".
// Returning users get their email and profile image refreshed.
func (s *AuthService) LoginOrRegisterKakao(ctx context.Context, ku *auth.KakaoUser) (*AuthResult, error) {
	if ku == nil || ku.ID == "" {
		return nil, fmt.Errorf("service/auth: Kakao user must not be empty")
	}

	result := &AuthResult{}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		user, err := s.users.GetUserByKakaoID(ctx, ku.ID)
		switch {
		case err == nil:
			if refreshProfile(user, ku) {
				if err := s.users.UpdateUser(ctx, user); err != nil {
					return fmt.Errorf("refreshing profile: %w", err)
				}
			}
		case errors.Is(err, apperror.ErrNotFound):
			username, err := s.pickUsername(ctx, ku)
			if err != nil {
				return err
			}
			user = &model.User{
				KakaoID:      ku.ID,
				Email:        ku.Email,
				Username:     username,
				ProfileImage: ku.ProfileImageURL,
			}
			if err := s.users.CreateUser(ctx, user); err != nil {
				return fmt.Errorf("creating user: %w", err)
			}
			result.Created = true
		default:
			return fmt.Errorf("looking up Kakao user: %w", err)
		}
		result.User = user
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service/auth: kakaoID=%s: %w", ku.ID, err)
	}

	token, err := s.tokens.Generate(result.User.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %d: %w", result.User.ID, err)
	}
	result.Token = token

	kind := metrics.LoginReturning
	if result.Created {
		kind = metrics.LoginNew
	}
	metrics.ObserveLogin(kind)
	s.logger.Info("user authenticated via Kakao",
		slog.Int64("userID", result.User.ID),
		slog.String("username", result.User.Username),
		slog.Bool("new", result.Created),
	)
	return result, nil
}

// refreshProfile copies changed Kakao fields onto user and reports whether
// anything changed. An email the user stopped sharing is kept.
func refreshProfile(user *model.User, ku *auth.KakaoUser) bool {
	changed := false
	if ku.Email != "" && ku.Email != user.Email {
		user.Email = ku.Email
		changed = true
	}
	if ku.ProfileImageURL != user.ProfileImage {
		user.ProfileImage = ku.ProfileImageURL
		changed = true
	}
	return changed
}

func (s *AuthService) pickUsername(ctx context.Context, ku *auth.KakaoUser) (string, error) {
	fallback := "kakao_" + ku.ID

	base := sanitizeUsername(ku.Nickname)
	if base == "" {
		return fallback, nil
	}

	candidates := []string{base}
	for i := 2; i <= 9; i++ {
		candidates = append(candidates, truncateRunes(base, MaxUsernameLength-2)+"_"+strconv.Itoa(i))
	}
	for _, c := range candidates {
		taken, err := s.users.ExistsByUsername(ctx, c)
		if err != nil {
			return "", fmt.Errorf("checking username: %w", err)
		}
		if !taken {
			return c, nil
		}
	}
	return fallback, nil
}

// sanitizeUsername keeps letters, digits, '_' and '-', turns spaces into '_'
// and caps the length.
func sanitizeUsername(nickname string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(nickname) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_', r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('_')
		}
	}
	return truncateRunes(b.String(), MaxUsernameLength)
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
