package handler

import (
	"bytes"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"badgehub/internal/badge/artifact"
	badgeModels "badgehub/internal/badge/models"
	badgeService "badgehub/internal/badge/service"
	badgeStore "badgehub/internal/badge/store"
	"badgehub/internal/checkin/service"
	checkinStore "badgehub/internal/checkin/store"
	dirModels "badgehub/internal/directory/models"
	dirStore "badgehub/internal/directory/store"
	outboxStore "badgehub/internal/outbox/store"
	"badgehub/pkg/platform/tx"
	"badgehub/pkg/testutil"
)

type fixture struct {
	router http.Handler
	dir    *dirStore.InMemory
	issuer *badgeService.Service
	now    time.Time
	event  dirModels.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	dir := dirStore.NewInMemory()
	badges := badgeStore.NewInMemory()
	checkins := checkinStore.NewInMemory()
	outbox := outboxStore.NewInMemory()
	runner := tx.NewSharded()

	issuer := badgeService.New(badgeService.Deps{
		Badges:      badges,
		Artifacts:   artifact.NewInMemory(),
		Checkins:    checkins,
		Enrollments: dir.Enrollments(),
		Events:      dir.Events(),
		Users:       dir.Users(),
		Outbox:      outbox,
		Tx:          runner,
	})
	svc := service.New(service.Deps{
		Badges:      badges,
		Checkins:    checkins,
		Enrollments: dir.Enrollments(),
		Events:      dir.Events(),
		Outbox:      outbox,
		Tx:          runner,
	})

	h := New(svc, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	r := chi.NewRouter()
	h.RegisterScanner(r)
	h.RegisterAdmin(r)
	return &fixture{
		router: r,
		dir:    dir,
		issuer: issuer,
		now:    now,
		event:  dirModels.Event{StartDate: now.Add(-time.Hour), EndDate: now.Add(4 * time.Hour), Location: "Lobby"},
	}
}

func (f *fixture) issue(t *testing.T, name string) (*badgeModels.Badge, *dirModels.Enrollment) {
	t.Helper()
	_, _, enrollment := f.dir.Seed(name, f.event)
	b, err := f.issuer.Issue(testutil.At(f.now.Add(-time.Hour)), enrollment.ID)
	require.NoError(t, err)
	return b, enrollment
}

func (f *fixture) post(t *testing.T, path string, body any, at time.Time) *http.Request {
	t.Helper()
	return testutil.WithRequestTime(testutil.NewJSONRequest(t, http.MethodPost, path, body), at)
}

func TestScan(t *testing.T) {
	f := newFixture(t)
	b, enrollment := f.issue(t, "Ada Lovelace")

	testutil.Given(t, "an issued enrollment badge", func(t *testing.T) {
		testutil.When(t, "it is scanned at the door", func(t *testing.T) {
			rr := testutil.DoRequest(f.router, f.post(t, "/checkins", map[string]string{"credential": b.Payload}, f.now))
			testutil.Then(t, "the holder is admitted", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusCreated)
				resp := testutil.UnmarshalResponse[CheckinResponse](t, rr)
				assert.Equal(t, b.ID.String(), resp.BadgeID)
				assert.Equal(t, enrollment.EventID.String(), resp.EventID)
				assert.Equal(t, "Lobby", resp.Location)
			})
		})

		testutil.When(t, "it is scanned again within the window", func(t *testing.T) {
			rr := testutil.DoRequest(f.router, f.post(t, "/checkins", map[string]string{"credential": b.Payload}, f.now.Add(2*time.Minute)))
			testutil.Then(t, "the scan is rejected with the prior checkin", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusConflict)
				resp := testutil.UnmarshalResponse[DuplicateResponse](t, rr)
				assert.Equal(t, "duplicate_checkin", resp.Error)
				require.NotNil(t, resp.PriorCheckin)
				assert.True(t, resp.PriorCheckin.CheckinTime.Equal(f.now))
			})
		})
	})
}

func TestScanErrors(t *testing.T) {
	f := newFixture(t)
	b, _ := f.issue(t, "Grace Hopper")

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		code   string
	}{
		{"missing credential", "/checkins", map[string]string{}, http.StatusBadRequest, "malformed_credential"},
		{"empty credential", "/checkins", map[string]string{"credential": ""}, http.StatusBadRequest, "malformed_credential"},
		{"blank person credential", "/checkins/person", map[string]string{"credential": "  ", "event_id": uuid.NewString()}, http.StatusBadRequest, "malformed_credential"},
		{"oversized credential", "/checkins", map[string]string{"credential": strings.Repeat("x", 5000)}, http.StatusBadRequest, "malformed_credential"},
		{"unknown field", "/checkins", map[string]string{"credential": b.Payload, "badge": "x"}, http.StatusBadRequest, "bad_request"},
		{"malformed payload", "/checkins", map[string]string{"credential": "not json"}, http.StatusBadRequest, "malformed_credential"},
		{"bad event id", "/checkins", map[string]string{"credential": b.Payload, "event_id": "nope"}, http.StatusBadRequest, "invalid_input"},
		{"enrollment credential on person endpoint", "/checkins/person", map[string]string{"credential": b.Payload, "event_id": uuid.NewString()}, http.StatusBadRequest, "wrong_credential_kind"},
		{"different event", "/checkins", map[string]string{"credential": b.Payload, "event_id": uuid.NewString()}, http.StatusConflict, "credential_mismatch"},
		{"unknown code", "/checkins/manual", map[string]string{"code": "NOBODY-1000"}, http.StatusNotFound, "credential_not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := testutil.DoRequest(f.router, f.post(t, tt.path, tt.body, f.now))
			testutil.AssertStatusAndError(t, rr, tt.status, tt.code)
		})
	}

	t.Run("event over", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, f.post(t, "/checkins", map[string]string{"credential": b.Payload}, f.now.Add(5*time.Hour)))
		testutil.AssertStatusAndError(t, rr, http.StatusGone, "credential_expired")
	})
}

func TestManualAndLists(t *testing.T) {
	f := newFixture(t)
	b, enrollment := f.issue(t, "Alan Turing")

	rr := testutil.DoRequest(f.router, f.post(t, "/checkins/manual", map[string]string{"code": b.Code, "location": "Desk 2"}, f.now))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	assert.Equal(t, "Desk 2", testutil.UnmarshalResponse[CheckinResponse](t, rr).Location)

	rr = testutil.DoRequest(f.router, f.post(t, "/checkins", map[string]string{"credential": b.Payload}, f.now.Add(10*time.Minute)))
	testutil.AssertStatus(t, rr, http.StatusCreated)

	rr = testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/events/"+enrollment.EventID.String()+"/checkins?limit=1"))
	testutil.AssertStatusOK(t, rr)
	list := testutil.UnmarshalResponse[ListResponse](t, rr)
	require.Len(t, list.Checkins, 1)
	assert.Equal(t, 1, list.Limit)
	assert.Equal(t, "Desk 2", list.Checkins[0].Location)

	rr = testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/users/"+enrollment.UserID.String()+"/checkins"))
	testutil.AssertStatusOK(t, rr)
	assert.Len(t, testutil.UnmarshalResponse[ListResponse](t, rr).Checkins, 2)

	rr = testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/users/"+enrollment.UserID.String()+"/checkins?offset=-1"))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
}

func TestVerify(t *testing.T) {
	f := newFixture(t)
	b, enrollment := f.issue(t, "Katherine Johnson")

	testutil.Given(t, "an issued badge", func(t *testing.T) {
		testutil.When(t, "its credential is verified", func(t *testing.T) {
			rr := testutil.DoRequest(f.router, f.post(t, "/checkins/verify", map[string]string{"credential": b.Payload}, f.now))
			testutil.Then(t, "it is valid and nothing is recorded", func(t *testing.T) {
				testutil.AssertStatusOK(t, rr)
				resp := testutil.UnmarshalResponse[VerificationResponse](t, rr)
				assert.True(t, resp.Valid)
				assert.Equal(t, b.Code, resp.Code)
				assert.Equal(t, enrollment.EventID.String(), resp.EventID)
				assert.Nil(t, resp.LastCheckin)

				rr = testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/users/"+enrollment.UserID.String()+"/checkins"))
				assert.Empty(t, testutil.UnmarshalResponse[ListResponse](t, rr).Checkins)
			})
		})

		testutil.When(t, "the printed code is verified", func(t *testing.T) {
			rr := testutil.DoRequest(f.router, f.post(t, "/checkins/manual/verify", map[string]string{"code": b.Code}, f.now))
			testutil.Then(t, "it resolves to the same badge", func(t *testing.T) {
				testutil.AssertStatusOK(t, rr)
				assert.Equal(t, b.ID.String(), testutil.UnmarshalResponse[VerificationResponse](t, rr).BadgeID)
			})
		})
	})

	t.Run("failures carry admission codes", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, f.post(t, "/checkins/verify", map[string]string{}, f.now))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "malformed_credential")

		rr = testutil.DoRequest(f.router, f.post(t, "/checkins/person/verify", map[string]string{"credential": b.Payload, "event_id": uuid.NewString()}, f.now))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "wrong_credential_kind")

		rr = testutil.DoRequest(f.router, f.post(t, "/checkins/verify", map[string]string{"credential": b.Payload}, f.now.Add(5*time.Hour)))
		testutil.AssertStatusAndError(t, rr, http.StatusGone, "credential_expired")
	})
}
