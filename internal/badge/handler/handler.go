package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"badgehub/internal/badge/models"
	id "badgehub/pkg/domain"
	dErrors "badgehub/pkg/domain-errors"
	"badgehub/pkg/platform/httputil"
	"badgehub/pkg/requestcontext"
)

// Service defines the badge operations exposed over HTTP.
type Service interface {
	Issue(ctx context.Context, enrollmentID id.EnrollmentID) (*models.Badge, error)
	IssuePersonBadge(ctx context.Context, userID id.UserID) (*models.Badge, error)
	Get(ctx context.Context, badgeID id.BadgeID) (*models.Badge, error)
	GetByCode(ctx context.Context, code string) (*models.Badge, error)
	GetForEnrollment(ctx context.Context, enrollmentID id.EnrollmentID) (*models.Badge, error)
	GetPersonBadge(ctx context.Context, userID id.UserID) (*models.Badge, error)
	Regenerate(ctx context.Context, badgeID id.BadgeID) (*models.Badge, error)
	Delete(ctx context.Context, badgeID id.BadgeID, cascade bool) error
	BackfillPersonBadges(ctx context.Context) (models.BackfillResult, error)
	CountMissingPersonBadges(ctx context.Context) (int, error)
}

// Handler wires badge endpoints to the badge service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts badge endpoints. Callers restrict the router to admins.
func (h *Handler) Register(r chi.Router) {
	r.Post("/enrollments/{id}/badge", h.HandleIssue)
	r.Get("/enrollments/{id}/badge", h.HandleGetForEnrollment)
	r.Post("/users/{id}/badge", h.HandleIssuePerson)
	r.Get("/users/{id}/badge", h.HandleGetPerson)
	r.Get("/badges/{id}", h.HandleGet)
	r.Get("/badges/code/{code}", h.HandleGetByCode)
	r.Post("/badges/{id}/regenerate", h.HandleRegenerate)
	r.Delete("/badges/{id}", h.HandleDelete)
	r.Post("/admin/badges/backfill", h.HandleBackfill)
	r.Get("/admin/badges/missing", h.HandleMissingCount)
}

// HandleIssue handles POST /enrollments/{id}/badge.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	enrollmentID, err := id.ParseEnrollmentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.respond(w, r, "issue badge", func() (*models.Badge, error) {
		return h.service.Issue(ctx, enrollmentID)
	})
}

// HandleIssuePerson handles POST /users/{id}/badge.
func (h *Handler) HandleIssuePerson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.respond(w, r, "issue person badge", func() (*models.Badge, error) {
		return h.service.IssuePersonBadge(ctx, userID)
	})
}

// HandleGetForEnrollment handles GET /enrollments/{id}/badge.
func (h *Handler) HandleGetForEnrollment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	enrollmentID, err := id.ParseEnrollmentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.respond(w, r, "get enrollment badge", func() (*models.Badge, error) {
		return h.service.GetForEnrollment(ctx, enrollmentID)
	})
}

func (h *Handler) HandleGetPerson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.respond(w, r, "get person badge", func() (*models.Badge, error) {
		return h.service.GetPersonBadge(ctx, userID)
	})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	badgeID, err := id.ParseBadgeID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.respond(w, r, "get badge", func() (*models.Badge, error) {
		return h.service.Get(ctx, badgeID)
	})
}

func (h *Handler) HandleGetByCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := chi.URLParam(r, "code")
	h.respond(w, r, "get badge by code", func() (*models.Badge, error) {
		return h.service.GetByCode(ctx, code)
	})
}

// HandleRegenerate handles POST /badges/{id}/regenerate.
func (h *Handler) HandleRegenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	badgeID, err := id.ParseBadgeID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.respond(w, r, "regenerate badge", func() (*models.Badge, error) {
		return h.service.Regenerate(ctx, badgeID)
	})
}

// HandleDelete handles DELETE /badges/{id}?cascade=true.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	badgeID, err := id.ParseBadgeID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	cascade := false
	if raw := r.URL.Query().Get("cascade"); raw != "" {
		cascade, err = strconv.ParseBool(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "cascade must be a boolean"))
			return
		}
	}

	if err := h.service.Delete(ctx, badgeID, cascade); err != nil {
		h.logger.WarnContext(ctx, "delete badge failed",
			"request_id", requestID,
			"badge_id", badgeID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleBackfill handles POST /admin/badges/backfill.
func (h *Handler) HandleBackfill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	result, err := h.service.BackfillPersonBadges(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "person badge backfill failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "person badge backfill completed",
		"request_id", requestID,
		"issued", result.Issued,
		"failed", result.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, BackfillResponse{
		Scanned: result.Scanned,
		Issued:  result.Issued,
		Failed:  result.Failed,
	})
}

// HandleMissingCount handles GET /admin/badges/missing.
func (h *Handler) HandleMissingCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, err := h.service.CountMissingPersonBadges(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "count missing person badges failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, MissingCountResponse{Count: n})
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, op string, fn func() (*models.Badge, error)) {
	ctx := r.Context()
	b, err := fn()
	if err != nil {
		h.logger.WarnContext(ctx, op+" failed",
			"request_id", requestcontext.RequestID(ctx),
			"reason", string(dErrors.CodeOf(err)),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromBadge(b))
}
