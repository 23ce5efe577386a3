package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"principalcheck/internal/directory"
	"principalcheck/internal/knownusers"
	"principalcheck/internal/platform/middleware"
	"principalcheck/internal/principal/models"
	"principalcheck/pkg/platform/httputil"
	"principalcheck/pkg/platform/middleware/admin"
	"principalcheck/pkg/platform/sentinel"
	"principalcheck/pkg/requestcontext"
)

// KindHeader carries the outcome severity of a checkName response.
const KindHeader = "X-Validation-Kind"

// Validator defines the validation operations exposed over HTTP.
type Validator interface {
	Check(ctx context.Context, name string, kind models.Kind, dir directory.Directory) models.Outcome
	ValidateGroup(ctx context.Context, name string, dir directory.Directory, ambiguous bool) models.Outcome
	ValidateUser(ctx context.Context, name string, dir directory.Directory, ambiguous bool) models.Outcome
}

// OutcomeResponse is the JSON form of a single-namespace validation.
type OutcomeResponse struct {
	Kind         string `json:"kind"`
	HTML         string `json:"html"`
	Inconclusive bool   `json:"inconclusive"`
}

// KnownUserRequest updates the display name of a known user.
type KnownUserRequest struct {
	FullName string `json:"full_name"`
}

// Handler serves the form-validation and known-user admin endpoints.
type Handler struct {
	validator    Validator
	dir          directory.Directory
	known        knownusers.Store
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
	adminToken   string
}

// New creates a Handler. An empty adminToken disables the admin routes.
func New(
	validator Validator,
	dir directory.Directory,
	known knownusers.Store,
	logger *slog.Logger,
	jwtValidator middleware.JWTValidator,
	adminToken string,
) *Handler {
	return &Handler{
		validator:    validator,
		dir:          dir,
		known:        known,
		logger:       logger,
		jwtValidator: jwtValidator,
		adminToken:   adminToken,
	}
}

// Register registers the validation and admin routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Get("/validation/checkName", h.handleCheckName)
		r.Get("/validation/checkGroup", h.handleCheckGroup)
		r.Get("/validation/checkUser", h.handleCheckUser)
	})

	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(h.adminToken, h.logger))
		r.Put("/admin/known-users/{id}", h.handleSaveKnownUser)
		r.Delete("/admin/known-users/{id}", h.handleDeleteKnownUser)
	})
}

// handleCheckName runs the full lookup policy for a matrix entry and answers
// with the fragment as HTML.
func (h *Handler) handleCheckName(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	kind := models.KindEither
	if raw := q.Get("type"); raw != "" {
		parsed, err := models.ParseKind(raw)
		if err != nil {
			h.logger.WarnContext(ctx, "invalid principal kind",
				"request_id", requestcontext.RequestID(ctx),
				"kind", raw,
			)
			httputil.WriteError(w, httputil.BadRequest(err.Error()))
			return
		}
		kind = parsed
	}

	out := h.validator.Check(ctx, q.Get("value"), kind, h.dir)
	h.logger.InfoContext(ctx, "principal checked",
		"request_id", requestcontext.RequestID(ctx),
		"subject", requestcontext.Subject(ctx),
		"kind", kind.String(),
		"severity", out.Severity.String(),
	)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set(KindHeader, out.Severity.String())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out.HTML))
}

func (h *Handler) handleCheckGroup(w http.ResponseWriter, r *http.Request) {
	h.handleSingle(w, r, h.validator.ValidateGroup)
}

func (h *Handler) handleCheckUser(w http.ResponseWriter, r *http.Request) {
	h.handleSingle(w, r, h.validator.ValidateUser)
}

type validateFunc func(ctx context.Context, name string, dir directory.Directory, ambiguous bool) models.Outcome

func (h *Handler) handleSingle(w http.ResponseWriter, r *http.Request, validate validateFunc) {
	ctx := r.Context()
	q := r.URL.Query()

	name := strings.TrimSpace(q.Get("value"))
	if name == "" {
		httputil.WriteError(w, httputil.BadRequest("value is required"))
		return
	}
	ambiguous := false
	if raw := q.Get("ambiguous"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.WriteError(w, httputil.BadRequest("ambiguous must be a boolean"))
			return
		}
		ambiguous = parsed
	}

	out := validate(ctx, name, h.dir, ambiguous)
	httputil.WriteJSON(w, http.StatusOK, OutcomeResponse{
		Kind:         out.Severity.String(),
		HTML:         out.HTML,
		Inconclusive: out.Inconclusive(),
	})
}

func (h *Handler) handleSaveKnownUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	id := chi.URLParam(r, "id")

	var req KnownUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid known user request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, httputil.BadRequest("invalid request body"))
		return
	}
	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" {
		httputil.WriteError(w, httputil.BadRequest("full_name is required"))
		return
	}

	user := &models.KnownUser{ID: id, FullName: req.FullName, UpdatedAt: requestcontext.Now(ctx)}
	if err := h.known.Save(ctx, user); err != nil {
		h.logger.ErrorContext(ctx, "failed to save known user",
			"request_id", requestID,
			"id", id,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "known user saved",
		"request_id", requestID,
		"id", id,
	)
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleDeleteKnownUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	id := chi.URLParam(r, "id")

	if err := h.known.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, &httputil.Error{
				Status:      http.StatusNotFound,
				Code:        "not_found",
				Description: "known user not found",
			})
			return
		}
		h.logger.ErrorContext(ctx, "failed to delete known user",
			"request_id", requestID,
			"id", id,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "known user deleted",
		"request_id", requestID,
		"id", id,
	)
	w.WriteHeader(http.StatusNoContent)
}
