package auth

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "badgehub/internal/jwt_token"
	"badgehub/pkg/requestcontext"
)

func TestRequireRole(t *testing.T) {
	svc := jwttoken.NewJWTService("k", "badgehub")
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	var seen requestcontext.Operator
	h := RequireRole(svc, logger, jwttoken.RoleScanner)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = requestcontext.OperatorFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("missing token is unauthorized", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkins", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong role is forbidden", func(t *testing.T) {
		token, err := svc.GenerateOperatorToken("alice", jwttoken.RoleAdmin, time.Hour)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/checkins", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("scanner token passes with operator in context", func(t *testing.T) {
		token, err := svc.GenerateOperatorToken("gate-b", jwttoken.RoleScanner, time.Hour)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/checkins", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "gate-b", seen.Subject)
		assert.Equal(t, jwttoken.RoleScanner, seen.Role)
	})
}
