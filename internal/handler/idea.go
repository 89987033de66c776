package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/paperplane/internal/apperror"
	"github.com/sakif/paperplane/internal/auth"
	"github.com/sakif/paperplane/internal/model"
	"github.com/sakif/paperplane/internal/storage"
)

// IdeaService is the part of service.IdeaService the handlers call.
type IdeaService interface {
	ListByCategory(ctx context.Context, category model.Category) ([]model.IdeaSummary, error)
	ListAll(ctx context.Context) ([]model.IdeaSummary, error)
	ListByUsername(ctx context.Context, username string) ([]model.IdeaSummary, error)
	Search(ctx context.Context, keyword string) ([]model.IdeaSummary, error)
	Create(ctx context.Context, req model.IdeaRequest, ownerID int64, file *storage.File, category model.Category) (*model.Idea, error)
	GetDetail(ctx context.Context, ideaID, requesterID int64) (*model.IdeaDetail, error)
	GetFileURL(ctx context.Context, ideaID, requesterID int64) (*string, error)
	Update(ctx context.Context, ideaID, requesterID int64, req model.IdeaRequest, file *storage.File) (*model.Idea, error)
	Delete(ctx context.Context, ideaID, requesterID int64) error
}

// IdeaHandler serves /api/ideas and /api/users/{username}/ideas.
//
// Create and Update take multipart/form-data so a file can ride along with
// the fields. Every route sits behind auth.RequireAuth.
type IdeaHandler struct {
	ideas          IdeaService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewIdeaHandler creates an IdeaHandler. maxUploadBytes caps the whole
// request body of Create and Update.
func NewIdeaHandler(ideas IdeaService, maxUploadBytes int64, logger *slog.Logger) *IdeaHandler {
	return &IdeaHandler{ideas: ideas, maxUploadBytes: maxUploadBytes, logger: logger}
}

// HandleList lists ideas, filtered by ?category=TECH when given.
//
// HTTP: GET /api/ideas
func (h *IdeaHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	var (
		ideas []model.IdeaSummary
		err   error
	)
	if raw := r.URL.Query().Get("category"); raw != "" {
		category, perr := model.ParseCategory(raw)
		if perr != nil {
			writeError(w, h.logger, perr)
			return
		}
		ideas, err = h.ideas.ListByCategory(r.Context(), category)
	} else {
		ideas, err = h.ideas.ListAll(r.Context())
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ideas)
}

// HandleSearch runs a keyword search over title, description and tags.
//
// HTTP: GET /api/ideas/search?keyword=solar
func (h *IdeaHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ideas, err := h.ideas.Search(r.Context(), r.URL.Query().Get("keyword"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ideas)
}

// HandleListByUser lists the ideas of one user.
//
// HTTP: GET /api/users/{username}/ideas
func (h *IdeaHandler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	ideas, err := h.ideas.ListByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ideas)
}

// HandleCreate publishes a new idea owned by the caller.
//
// HTTP: POST /api/ideas (multipart/form-data)
// FIELDS: title, description, price, category (TECH, ...), tags (repeated or
// comma separated), file (optional)
func (h *IdeaHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	form, file, err := h.parseIdeaForm(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	defer form.cleanup()

	category, err := model.ParseCategory(r.FormValue("category"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	idea, err := h.ideas.Create(r.Context(), form.req, userID, file, category)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, idea)
}

// HandleGet returns the detail view with the caller's access status.
//
// HTTP: GET /api/ideas/{id}
func (h *IdeaHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ideaID, ok := h.userAndIdea(w, r)
	if !ok {
		return
	}

	detail, err := h.ideas.GetDetail(r.Context(), ideaID, userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

type fileURLResponse struct {
	FileURL *string `json:"fileUrl"`
}

// HandleGetFile returns the file reference to the owner or a purchaser.
// fileUrl is null when the idea has no file.
//
// HTTP: GET /api/ideas/{id}/file
func (h *IdeaHandler) HandleGetFile(w http.ResponseWriter, r *http.Request) {
	userID, ideaID, ok := h.userAndIdea(w, r)
	if !ok {
		return
	}

	ref, err := h.ideas.GetFileURL(r.Context(), ideaID, userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, fileURLResponse{FileURL: ref})
}

// HandleUpdate overwrites an idea the caller owns.
//
// HTTP: PUT /api/ideas/{id} (multipart/form-data)
// FIELDS: title, description, price, categoryDisplayName (Technology, ...),
// tags, fileUrl, file
//
// fileUrl echoes the attachment the client currently shows. Sending it
// (non-empty) without a new file keeps the stored file; leaving it out
// without a new file removes the attachment.
func (h *IdeaHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ideaID, ok := h.userAndIdea(w, r)
	if !ok {
		return
	}

	form, file, err := h.parseIdeaForm(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	defer form.cleanup()

	form.req.CategoryDisplayName = r.FormValue("categoryDisplayName")
	if current := strings.TrimSpace(r.FormValue("fileUrl")); current != "" {
		form.req.File = &current
	}

	idea, err := h.ideas.Update(r.Context(), ideaID, userID, form.req, file)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, idea)
}

// HandleDelete removes an idea the caller owns.
//
// HTTP: DELETE /api/ideas/{id}
func (h *IdeaHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ideaID, ok := h.userAndIdea(w, r)
	if !ok {
		return
	}

	if err := h.ideas.Delete(r.Context(), ideaID, userID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// userAndIdea reads the caller from the context and the idea id from the
// path. On failure the response has been written and ok is false.
func (h *IdeaHandler) userAndIdea(w http.ResponseWriter, r *http.Request) (userID, ideaID int64, ok bool) {
	userID, ok = auth.UserIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return 0, 0, false
	}

	ideaID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || ideaID <= 0 {
		writeError(w, h.logger, apperror.ValidationFailed("id", "idea id must be a positive integer"))
		return 0, 0, false
	}
	return userID, ideaID, true
}

type ideaForm struct {
	req       model.IdeaRequest
	multipart *multipart.Form
	file      multipart.File
}

func (f *ideaForm) cleanup() {
	if f.file != nil {
		f.file.Close()
	}
	if f.multipart != nil {
		f.multipart.RemoveAll()
	}
}

// memoryBudget is how much of a multipart body is kept in memory; larger
// parts spill to temp files.
const memoryBudget = 8 << 20

// parseIdeaForm reads the fields shared by create and update and opens the
// optional "file" part. The caller must call cleanup on the returned form.
func (h *IdeaHandler) parseIdeaForm(w http.ResponseWriter, r *http.Request) (*ideaForm, *storage.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	form := &ideaForm{}
	if err := r.ParseMultipartForm(memoryBudget); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return form, nil, apperror.ValidationFailed("file",
				fmt.Sprintf("request body must be %d MB or less", h.maxUploadBytes>>20))
		case errors.Is(err, http.ErrNotMultipart):
			// Plain url-encoded forms are fine when there is no file.
			if err := r.ParseForm(); err != nil {
				return form, nil, apperror.ValidationFailed("body", "malformed form body")
			}
		default:
			h.logger.Warn("invalid multipart body", slog.String("error", err.Error()))
			return form, nil, apperror.ValidationFailed("body", "malformed multipart body")
		}
	}
	form.multipart = r.MultipartForm

	price, err := parsePrice(r.FormValue("price"))
	if err != nil {
		return form, nil, err
	}

	form.req = model.IdeaRequest{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Tags:        splitTags(r.Form["tags"]),
		Price:       price,
	}

	f, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return form, nil, nil
	case err != nil:
		return form, nil, apperror.ValidationFailed("file", "unreadable file part")
	}
	form.file = f

	return form, &storage.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        f,
	}, nil
}

func parsePrice(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	price, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperror.ValidationFailed("price", "price must be a whole number")
	}
	return price, nil
}

// splitTags accepts both tags=a&tags=b and tags=a,b.
func splitTags(values []string) []string {
	var tags []string
	for _, v := range values {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	return tags
}
