package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"badgehub/internal/checkin/models"
	"badgehub/internal/checkin/service"
	"badgehub/internal/credential"
	id "badgehub/pkg/domain"
	dErrors "badgehub/pkg/domain-errors"
	"badgehub/pkg/platform/httputil"
	"badgehub/pkg/requestcontext"
)

// Service defines the check-in operations exposed over HTTP.
type Service interface {
	Checkin(ctx context.Context, req service.Request) (*models.Checkin, error)
	CheckinByCode(ctx context.Context, code string, eventID id.EventID, location string) (*models.Checkin, error)
	Verify(ctx context.Context, req service.Request) (*service.Verification, error)
	VerifyByCode(ctx context.Context, code string, eventID id.EventID) (*service.Verification, error)
	ListForEvent(ctx context.Context, eventID id.EventID, page models.Page) ([]*models.Checkin, error)
	ListForUser(ctx context.Context, userID id.UserID, page models.Page) ([]*models.Checkin, error)
}

// Handler wires check-in endpoints to the check-in service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterScanner mounts the admission endpoints.
func (h *Handler) RegisterScanner(r chi.Router) {
	r.Post("/checkins", h.HandleScan)
	r.Post("/checkins/person", h.HandleScanPerson)
	r.Post("/checkins/manual", h.HandleManual)
	r.Post("/checkins/verify", h.HandleVerify)
	r.Post("/checkins/person/verify", h.HandleVerifyPerson)
	r.Post("/checkins/manual/verify", h.HandleVerifyManual)
}

// RegisterAdmin mounts the read endpoints.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/events/{id}/checkins", h.HandleListForEvent)
	r.Get("/users/{id}/checkins", h.HandleListForUser)
}

// HandleScan handles POST /checkins with an enrollment credential.
func (h *Handler) HandleScan(w http.ResponseWriter, r *http.Request) {
	h.scan(w, r, credential.KindEnrollment)
}

// HandleScanPerson handles POST /checkins/person. The event id is required.
func (h *Handler) HandleScanPerson(w http.ResponseWriter, r *http.Request) {
	h.scan(w, r, credential.KindPerson)
}

func (h *Handler) scan(w http.ResponseWriter, r *http.Request, kind credential.Kind) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ScanRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	start := time.Now()
	c, err := h.service.Checkin(ctx, service.Request{
		Credential: req.Credential,
		Kind:       kind,
		EventID:    req.ParsedEventID(),
		Location:   req.Location,
	})
	h.respond(w, r, c, err, start)
}

// HandleManual handles POST /checkins/manual.
func (h *Handler) HandleManual(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ManualRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	start := time.Now()
	c, err := h.service.CheckinByCode(ctx, req.Code, req.ParsedEventID(), req.Location)
	h.respond(w, r, c, err, start)
}

// HandleVerify handles POST /checkins/verify. Nothing is recorded.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	h.verify(w, r, credential.KindEnrollment)
}

// HandleVerifyPerson handles POST /checkins/person/verify.
func (h *Handler) HandleVerifyPerson(w http.ResponseWriter, r *http.Request) {
	h.verify(w, r, credential.KindPerson)
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request, kind credential.Kind) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ScanRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	v, err := h.service.Verify(ctx, service.Request{
		Credential: req.Credential,
		Kind:       kind,
		EventID:    req.ParsedEventID(),
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVerification(v))
}

// HandleVerifyManual handles POST /checkins/manual/verify.
func (h *Handler) HandleVerifyManual(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ManualRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	v, err := h.service.VerifyByCode(ctx, req.Code, req.ParsedEventID())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVerification(v))
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, c *models.Checkin, err error, start time.Time) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if err != nil {
		h.logger.InfoContext(ctx, "checkin rejected",
			"request_id", requestID,
			"reason", string(dErrors.CodeOf(err)),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		var dup *models.DuplicateError
		if errors.As(err, &dup) {
			httputil.WriteJSON(w, http.StatusConflict, DuplicateResponse{
				Error:            string(dErrors.CodeDuplicateCheckin),
				ErrorDescription: dErrors.MessageOf(err),
				PriorCheckin:     FromCheckin(dup.Prior),
			})
			return
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromCheckin(c))
}

// HandleListForEvent handles GET /events/{id}/checkins.
func (h *Handler) HandleListForEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := id.ParseEventID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := parsePage(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	cs, err := h.service.ListForEvent(ctx, eventID, page)
	if err != nil {
		h.logger.ErrorContext(ctx, "list event checkins failed",
			"request_id", requestcontext.RequestID(ctx),
			"event_id", eventID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCheckins(cs, page))
}

// HandleListForUser handles GET /users/{id}/checkins.
func (h *Handler) HandleListForUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := parsePage(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	cs, err := h.service.ListForUser(ctx, userID, page)
	if err != nil {
		h.logger.ErrorContext(ctx, "list user checkins failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCheckins(cs, page))
}

func parsePage(r *http.Request) (models.Page, error) {
	var page models.Page
	q := r.URL.Query()
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return page, dErrors.New(dErrors.CodeInvalidInput, "limit must be a non-negative integer")
		}
		page.Limit = n
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return page, dErrors.New(dErrors.CodeInvalidInput, "offset must be a non-negative integer")
		}
		page.Offset = n
	}
	return page.Normalize(), nil
}
