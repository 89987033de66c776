package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/paperplane/internal/apperror"
	"github.com/sakif/paperplane/internal/auth"
)

// FileAuthorizer is the part of service.IdeaService that guards downloads.
type FileAuthorizer interface {
	AuthorizeFile(ctx context.Context, requesterID int64, ref string) error
}

// FileHandler serves stored blobs to their owners and buyers.
//
// A blob's reference is baseURL + "/" + name, the same string the store
// handed out on upload, so the reference itself is what gets authorized.
type FileHandler struct {
	files   FileAuthorizer
	baseURL string
	blobs   http.Handler
	logger  *slog.Logger
}

// NewFileHandler creates a FileHandler. blobs serves a blob by its name at
// path "/<name>", e.g. http.FileServer over the store's directory.
func NewFileHandler(files FileAuthorizer, baseURL string, blobs http.Handler, logger *slog.Logger) *FileHandler {
	return &FileHandler{
		files:   files,
		baseURL: strings.TrimRight(baseURL, "/"),
		blobs:   blobs,
		logger:  logger,
	}
}

// HandleServe streams a blob after checking the caller may see it.
//
// HTTP: GET /files/{name}
func (h *FileHandler) HandleServe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	// Blob names are flat; anything with a separator is not one of ours.
	name := chi.URLParam(r, "*")
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		writeError(w, h.logger, apperror.NotFound("file", "name", name))
		return
	}

	if err := h.files.AuthorizeFile(r.Context(), userID, h.baseURL+"/"+name); err != nil {
		writeError(w, h.logger, err)
		return
	}

	r2 := r.Clone(r.Context())
	r2.URL.Path = "/" + name
	r2.URL.RawPath = ""
	h.blobs.ServeHTTP(w, r2)
}
