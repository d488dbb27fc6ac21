package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"badgehub/internal/badge/artifact"
	"badgehub/internal/badge/service"
	badgeStore "badgehub/internal/badge/store"
	dirModels "badgehub/internal/directory/models"
	dirStore "badgehub/internal/directory/store"
	outboxStore "badgehub/internal/outbox/store"
	id "badgehub/pkg/domain"
	"badgehub/pkg/platform/httputil"
	"badgehub/pkg/platform/tx"
	"badgehub/pkg/testutil"
)

type stubCheckins struct{ count int }

func (s *stubCheckins) CountForBadge(context.Context, id.BadgeID) (int, error) { return s.count, nil }

func (s *stubCheckins) DeleteForBadge(context.Context, id.BadgeID) (int, error) {
	n := s.count
	s.count = 0
	return n, nil
}

type fixture struct {
	router   http.Handler
	dir      *dirStore.InMemory
	checkins *stubCheckins
	now      time.Time
	event    dirModels.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	dir := dirStore.NewInMemory()
	badges := badgeStore.NewInMemory()
	dir.UseBadgeChecker(badges)
	checkins := &stubCheckins{}

	svc := service.New(service.Deps{
		Badges:      badges,
		Artifacts:   artifact.NewInMemory(),
		Checkins:    checkins,
		Enrollments: dir.Enrollments(),
		Events:      dir.Events(),
		Users:       dir.Users(),
		Outbox:      outboxStore.NewInMemory(),
		Tx:          tx.NewSharded(),
	})
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	r := chi.NewRouter()
	New(svc, logger).Register(r)
	return &fixture{
		router:   r,
		dir:      dir,
		checkins: checkins,
		now:      now,
		event:    dirModels.Event{StartDate: now.Add(time.Hour), EndDate: now.Add(9 * time.Hour)},
	}
}

func (f *fixture) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.WithRequestTime(httptest.NewRequest(method, path, nil), f.now)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBadge(t *testing.T, rec *httptest.ResponseRecorder) BadgeResponse {
	t.Helper()
	var resp BadgeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()
	var resp httputil.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestIssueAndLookup(t *testing.T) {
	f := newFixture(t)
	user, event, enrollment := f.dir.Seed("Ada Lovelace", f.event)

	rec := f.do(t, http.MethodPost, "/enrollments/"+enrollment.ID.String()+"/badge")
	require.Equal(t, http.StatusOK, rec.Code)
	issued := decodeBadge(t, rec)
	assert.Equal(t, "enrollment", issued.Scope)
	assert.Equal(t, user.ID.String(), issued.UserID)
	assert.Equal(t, event.ID.String(), issued.EventID)
	assert.True(t, strings.HasPrefix(issued.Code, "ADA-LOVELACE-"))
	require.NotNil(t, issued.ValidUntil)

	rec = f.do(t, http.MethodPost, "/enrollments/"+enrollment.ID.String()+"/badge")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, issued.ID, decodeBadge(t, rec).ID)

	rec = f.do(t, http.MethodGet, "/badges/"+issued.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, issued.Code, decodeBadge(t, rec).Code)

	rec = f.do(t, http.MethodGet, "/badges/code/"+strings.ToLower(issued.Code))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, issued.ID, decodeBadge(t, rec).ID)

	rec = f.do(t, http.MethodGet, "/enrollments/"+enrollment.ID.String()+"/badge")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, issued.ID, decodeBadge(t, rec).ID)
}

func TestIssueErrors(t *testing.T) {
	f := newFixture(t)

	t.Run("malformed id", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/enrollments/not-a-uuid/badge")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_input", decodeError(t, rec).Error)
	})

	t.Run("unknown enrollment", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/enrollments/"+uuid.NewString()+"/badge")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("pending enrollment", func(t *testing.T) {
		_, _, enrollment := f.dir.Seed("Grace Hopper", f.event)
		enrollment.Status = dirModels.EnrollmentPending
		f.dir.PutEnrollment(enrollment)

		rec := f.do(t, http.MethodPost, "/enrollments/"+enrollment.ID.String()+"/badge")
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "enrollment_not_approved", decodeError(t, rec).Error)
	})
}

func TestPersonBadgeAndBackfill(t *testing.T) {
	f := newFixture(t)
	first := &dirModels.User{ID: id.UserID(uuid.New()), Name: "Alan Turing"}
	second := &dirModels.User{ID: id.UserID(uuid.New()), Name: "Kurt Gödel"}
	f.dir.PutUser(first)
	f.dir.PutUser(second)

	rec := f.do(t, http.MethodPost, "/users/"+first.ID.String()+"/badge")
	require.Equal(t, http.StatusOK, rec.Code)
	person := decodeBadge(t, rec)
	assert.Equal(t, "person", person.Scope)
	assert.Empty(t, person.EventID)
	assert.Nil(t, person.ValidUntil)

	rec = f.do(t, http.MethodGet, "/users/"+first.ID.String()+"/badge")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, person.ID, decodeBadge(t, rec).ID)

	rec = f.do(t, http.MethodGet, "/users/"+second.ID.String()+"/badge")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/admin/badges/missing")
	require.Equal(t, http.StatusOK, rec.Code)
	var missing MissingCountResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&missing))
	assert.Equal(t, 1, missing.Count)

	rec = f.do(t, http.MethodPost, "/admin/badges/backfill")
	require.Equal(t, http.StatusOK, rec.Code)
	var result BackfillResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, BackfillResponse{Scanned: 1, Issued: 1}, result)

	rec = f.do(t, http.MethodGet, "/admin/badges/missing")
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&missing))
	assert.Zero(t, missing.Count)
}

func TestRegenerateAndDelete(t *testing.T) {
	f := newFixture(t)
	_, _, enrollment := f.dir.Seed("Rob Pike", f.event)
	rec := f.do(t, http.MethodPost, "/enrollments/"+enrollment.ID.String()+"/badge")
	require.Equal(t, http.StatusOK, rec.Code)
	issued := decodeBadge(t, rec)

	f.now = f.now.Add(time.Minute)
	rec = f.do(t, http.MethodPost, "/badges/"+issued.ID+"/regenerate")
	require.Equal(t, http.StatusOK, rec.Code)
	regenerated := decodeBadge(t, rec)
	assert.Equal(t, issued.Code, regenerated.Code)
	assert.NotEqual(t, issued.Payload, regenerated.Payload)

	f.checkins.count = 3
	rec = f.do(t, http.MethodDelete, "/badges/"+issued.ID)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodDelete, "/badges/"+issued.ID+"?cascade=maybe")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodDelete, "/badges/"+issued.ID+"?cascade=true")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, f.checkins.count)

	rec = f.do(t, http.MethodGet, "/badges/"+issued.ID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
