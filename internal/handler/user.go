package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/paperplane/internal/apperror"
	"github.com/sakif/paperplane/internal/auth"
	"github.com/sakif/paperplane/internal/model"
)

// UserService is the part of service.UserService the handlers call.
type UserService interface {
	UpdateUsername(ctx context.Context, userID int64, newUsername string) (*model.UserProfile, error)
	GetProfile(ctx context.Context, userID int64) (*model.UserProfile, error)
}

// UserHandler serves the caller's own profile under /api/me.
type UserHandler struct {
	users  UserService
	logger *slog.Logger
}

func NewUserHandler(users UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// HandleMe returns the caller's username, profile image and points.
//
// HTTP: GET /api/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	profile, err := h.users.GetProfile(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type updateUsernameRequest struct {
	Username string `json:"username"`
}

// HandleUpdateUsername renames the caller.
//
// HTTP: PATCH /api/me/username
// REQUEST BODY: {"username": "new-name"}
func (h *UserHandler) HandleUpdateUsername(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req updateUsernameRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.logger.Warn("invalid username JSON", slog.String("error", err.Error()))
		writeError(w, h.logger, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	profile, err := h.users.UpdateUsername(r.Context(), userID, req.Username)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
