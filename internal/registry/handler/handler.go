// Package handler exposes one registry kind over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"ledgerreg/internal/ledger"
	"ledgerreg/internal/registry/models"
	"ledgerreg/pkg/domain"
	dErrors "ledgerreg/pkg/domain-errors"
	"ledgerreg/pkg/platform/httputil"
	"ledgerreg/pkg/requestcontext"
)

// Service defines the registry operations the handler serves.
type Service[P any] interface {
	Kind() models.Kind
	Register(ctx context.Context, origin ledger.Origin, params models.RecordParams[P]) (models.RecordID, error)
	Get(ctx context.Context, id models.RecordID) (*models.Record[P], error)
	ListByOwner(ctx context.Context, owner domain.Account) ([]models.RecordID, error)
	OwnerOf(ctx context.Context, id models.RecordID) (domain.Account, error)
	ListByHash(ctx context.Context, hash domain.ContentHash) ([]models.RecordID, error)
}

// RegisterRequest is the body of a registration. Owner and content hash are
// 0x-prefixed hex. Omitting properties is distinct from sending an empty list.
type RegisterRequest[P any] struct {
	ID          string             `json:"id"`
	Owner       domain.Account     `json:"owner"`
	ContentHash domain.ContentHash `json:"content_hash"`
	Version     string             `json:"version,omitempty"`
	Properties  []P                `json:"properties,omitempty"`
}

type RegisterResponse struct {
	ID models.RecordID `json:"id"`
}

type OwnerResponse struct {
	ID    models.RecordID `json:"id"`
	Owner domain.Account  `json:"owner"`
}

type IDListResponse struct {
	IDs []models.RecordID `json:"ids"`
}

// Handler serves one registry kind.
type Handler[P any] struct {
	service Service[P]
	auth    func(http.Handler) http.Handler
	logger  *slog.Logger
}

// New creates a Handler. auth guards the registration route and must put the
// signer into the request context.
func New[P any](service Service[P], auth func(http.Handler) http.Handler, logger *slog.Logger) *Handler[P] {
	return &Handler[P]{service: service, auth: auth, logger: logger}
}

// Register mounts the kind's routes under /v1/{kind}s.
func (h *Handler[P]) Register(r chi.Router) {
	r.Route(h.basePath(), func(r chi.Router) {
		r.With(h.auth).Post("/", h.handleRegister)
		r.Get("/by-owner/{owner}", h.handleByOwner)
		r.Get("/by-hash/{hash}", h.handleByHash)
		r.Get("/{id}", h.handleGet)
		r.Get("/{id}/owner", h.handleOwnerOf)
	})
}

func (h *Handler[P]) basePath() string {
	return "/v1/" + string(h.service.Kind()) + "s"
}

func (h *Handler[P]) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RegisterRequest[P]
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid register request",
			"kind", h.service.Kind(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	id, err := h.service.Register(ctx, ledger.OriginFromContext(ctx), models.RecordParams[P]{
		ID:          models.RecordID(req.ID),
		Owner:       req.Owner,
		ContentHash: req.ContentHash,
		Version:     req.Version,
		Properties:  req.Properties,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Location", h.basePath()+"/"+url.PathEscape(string(id)))
	httputil.WriteJSON(w, http.StatusCreated, RegisterResponse{ID: id})
}

func (h *Handler[P]) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.service.Get(r.Context(), models.RecordID(id))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler[P]) handleOwnerOf(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	owner, err := h.service.OwnerOf(r.Context(), models.RecordID(id))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, OwnerResponse{ID: models.RecordID(id), Owner: owner})
}

func (h *Handler[P]) handleByOwner(w http.ResponseWriter, r *http.Request) {
	owner, err := domain.ParseAccount(chi.URLParam(r, "owner"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ids, err := h.service.ListByOwner(r.Context(), owner)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, IDListResponse{IDs: ids})
}

func (h *Handler[P]) handleByHash(w http.ResponseWriter, r *http.Request) {
	hash, err := domain.ParseContentHash(chi.URLParam(r, "hash"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ids, err := h.service.ListByHash(r.Context(), hash)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, IDListResponse{IDs: ids})
}

func (h *Handler[P]) writeError(w http.ResponseWriter, err error) {
	reason := models.ReasonOf(err)
	if reason == "internal" {
		reason = ""
	}
	httputil.WriteErrorReason(w, err, reason)
}

func pathParam(r *http.Request, name string) (string, error) {
	v, err := url.PathUnescape(chi.URLParam(r, name))
	if err != nil {
		return "", dErrors.New(dErrors.CodeBadRequest, "malformed "+name)
	}
	return v, nil
}
