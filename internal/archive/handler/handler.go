package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"correspondence/internal/archive/models"
	"correspondence/internal/archive/service"
	commModels "correspondence/internal/communication/models"
	id "correspondence/pkg/domain"
	dErrors "correspondence/pkg/domain-errors"
	"correspondence/pkg/platform/httputil"
	"correspondence/pkg/requestcontext"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Archiver defines archive and folder operations.
type Archiver interface {
	Create(ctx context.Context, actorID id.AccountID, req service.CreateRequest) (*service.CreateResult, error)
	Remove(ctx context.Context, actorID id.AccountID, archiveID id.ArchiveID) (*commModels.Communication, error)
	List(ctx context.Context, actorID id.AccountID, req service.ListRequest) (*models.Page, error)

	CreateFolder(ctx context.Context, actorID id.AccountID, name string) (*models.Folder, error)
	RenameFolder(ctx context.Context, actorID id.AccountID, folderID id.FolderID, name string) (*models.Folder, error)
	DeleteFolder(ctx context.Context, actorID id.AccountID, folderID id.FolderID) error
	ListFolders(ctx context.Context, actorID id.AccountID) ([]*models.Folder, error)
}

type Handler struct {
	archiver Archiver
	logger   *slog.Logger
}

func New(archiver Archiver, logger *slog.Logger) *Handler {
	return &Handler{archiver: archiver, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/archives", h.HandleCreate)
	r.Get("/archives", h.HandleList)
	r.Delete("/archives/{id}", h.HandleRemove)

	r.Post("/folders", h.HandleCreateFolder)
	r.Get("/folders", h.HandleListFolders)
	r.Patch("/folders/{id}", h.HandleRenameFolder)
	r.Delete("/folders/{id}", h.HandleDeleteFolder)
}

// HandleCreate handles POST /archives.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	res, err := h.archiver.Create(ctx, requestcontext.AccountID(ctx), req.toInput())
	if err != nil {
		h.fail(ctx, w, "archive failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

// HandleRemove handles DELETE /archives/{id} and returns the communication
// now in the actor's inbox.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	archiveID, err := id.ParseArchiveID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.archiver.Remove(ctx, requestcontext.AccountID(ctx), archiveID)
	if err != nil {
		h.fail(ctx, w, "remove archive failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := parseList(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := h.archiver.List(ctx, requestcontext.AccountID(ctx), req)
	if err != nil {
		h.fail(ctx, w, "list archives failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) HandleCreateFolder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[FolderRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	f, err := h.archiver.CreateFolder(ctx, requestcontext.AccountID(ctx), req.Name)
	if err != nil {
		h.fail(ctx, w, "create folder failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, f)
}

func (h *Handler) HandleRenameFolder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	folderID, err := id.ParseFolderID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[FolderRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	f, err := h.archiver.RenameFolder(ctx, requestcontext.AccountID(ctx), folderID, req.Name)
	if err != nil {
		h.fail(ctx, w, "rename folder failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, f)
}

func (h *Handler) HandleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	folderID, err := id.ParseFolderID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.archiver.DeleteFolder(ctx, requestcontext.AccountID(ctx), folderID); err != nil {
		h.fail(ctx, w, "delete folder failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleListFolders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	folders, err := h.archiver.ListFolders(ctx, requestcontext.AccountID(ctx))
	if err != nil {
		h.fail(ctx, w, "list folders failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, folders)
}

func parseList(r *http.Request) (service.ListRequest, error) {
	q := r.URL.Query()
	req := service.ListRequest{Limit: defaultPageSize}
	var err error
	if raw := q.Get("limit"); raw != "" {
		if req.Limit, err = strconv.Atoi(raw); err != nil || req.Limit <= 0 || req.Limit > maxPageSize {
			return req, dErrors.New(dErrors.CodeValidation, "limit must be between 1 and 100")
		}
	}
	if raw := q.Get("offset"); raw != "" {
		if req.Offset, err = strconv.Atoi(raw); err != nil || req.Offset < 0 {
			return req, dErrors.New(dErrors.CodeValidation, "offset must be a non-negative integer")
		}
	}
	if raw := q.Get("folder_id"); raw != "" {
		folderID, err := id.ParseFolderID(raw)
		if err != nil {
			return req, err
		}
		req.FolderID = &folderID
	}
	return req, nil
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	args := []any{
		"request_id", requestcontext.RequestID(ctx),
		"account_id", requestcontext.AccountID(ctx).String(),
		"error", err.Error(),
	}
	if dErrors.HasCode(err, dErrors.CodeInternal) || dErrors.HasCode(err, dErrors.CodeTimeout) {
		h.logger.ErrorContext(ctx, msg, args...)
	} else {
		h.logger.WarnContext(ctx, msg, args...)
	}
	httputil.WriteError(w, err)
}
