package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"badgehub/internal/award"
	"badgehub/internal/award/service"
	id "badgehub/pkg/domain"
	"badgehub/pkg/platform/httputil"
	"badgehub/pkg/requestcontext"
)

// Service defines the award operations exposed over HTTP.
type Service interface {
	CreateAward(ctx context.Context, in service.CreateAwardInput) (*award.Award, error)
	UpdateAward(ctx context.Context, awardID id.AwardID, in service.UpdateAwardInput) (*award.Award, error)
	DeleteAward(ctx context.Context, awardID id.AwardID) error
	ListAwards(ctx context.Context) ([]*award.Award, error)
	ListUserAwards(ctx context.Context, userID id.UserID) ([]award.Granted, error)
	EvaluateAndGrant(ctx context.Context, userID id.UserID) ([]award.UserAward, error)
	Grant(ctx context.Context, userID id.UserID, awardID id.AwardID) (*award.UserAward, error)
}

// Handler wires award endpoints to the award service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the admin award endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/awards", h.HandleList)
	r.Post("/awards", h.HandleCreate)
	r.Post("/awards/grant", h.HandleGrant)
	r.Put("/awards/{id}", h.HandleUpdate)
	r.Delete("/awards/{id}", h.HandleDelete)
	r.Get("/users/{id}/awards", h.HandleListForUser)
	r.Post("/users/{id}/awards/evaluate", h.HandleEvaluate)
}

// HandleList handles GET /awards.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	awards, err := h.service.ListAwards(ctx)
	if err != nil {
		h.fail(w, r, "list awards failed", err)
		return
	}
	resp := AwardListResponse{Awards: make([]AwardResponse, 0, len(awards))}
	for _, a := range awards {
		resp.Awards = append(resp.Awards, FromAward(a))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleCreate handles POST /awards.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateAwardRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	a, err := h.service.CreateAward(ctx, service.CreateAwardInput{
		Name:        req.Name,
		Description: req.Description,
		Criteria:    req.Criteria(),
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		h.fail(w, r, "create award failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromAward(a))
}

// HandleUpdate handles PUT /awards/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	awardID, err := id.ParseAwardID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateAwardRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	a, err := h.service.UpdateAward(ctx, awardID, service.UpdateAwardInput{
		Name:        req.Name,
		Description: req.Description,
		Criteria:    req.Criteria(),
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		h.fail(w, r, "update award failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAward(a))
}

// HandleDelete handles DELETE /awards/{id}. Granted awards answer 409.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	awardID, err := id.ParseAwardID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.DeleteAward(r.Context(), awardID); err != nil {
		h.fail(w, r, "delete award failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGrant handles POST /awards/grant.
func (h *Handler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[GrantRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	userID, awardID := req.ParsedIDs()
	g, err := h.service.Grant(ctx, userID, awardID)
	if err != nil {
		h.fail(w, r, "grant award failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromUserAward(*g))
}

// HandleListForUser handles GET /users/{id}/awards.
func (h *Handler) HandleListForUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	held, err := h.service.ListUserAwards(ctx, userID)
	if err != nil {
		h.fail(w, r, "list user awards failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, UserAwardsResponse{UserID: userID.String(), Awards: FromGranted(held)})
}

// HandleEvaluate handles POST /users/{id}/awards/evaluate.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	granted, err := h.service.EvaluateAndGrant(ctx, userID)
	if err != nil {
		h.fail(w, r, "award evaluation failed", err)
		return
	}
	resp := EvaluationResponse{UserID: userID.String(), Granted: make([]UserAwardResponse, 0, len(granted))}
	for _, g := range granted {
		resp.Granted = append(resp.Granted, FromUserAward(g))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
