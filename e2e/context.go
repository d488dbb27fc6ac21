// Package e2e runs the Gherkin features in features/ against an in-memory
// badgehub process through its HTTP router.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"badgehub/internal/app"
	dirModels "badgehub/internal/directory/models"
	jwttoken "badgehub/internal/jwt_token"
	"badgehub/internal/platform/config"
)

const (
	signingKey = "e2e-signing-key"
	issuer     = "badgehub-e2e"
)

// TestContext is the per-scenario world shared by step packages.
type TestContext struct {
	app      *app.App
	handler  http.Handler
	qrDir    string
	tokens   map[string]string
	event    dirModels.Event
	users    map[string]*dirModels.Enrollment
	values   map[string]string
	response *httptest.ResponseRecorder
	body     []byte
}

// NewTestContext builds a fresh process with empty in-memory storage.
func NewTestContext(ctx context.Context) (*TestContext, error) {
	qrDir, err := os.MkdirTemp("", "badgehub-e2e-qr-")
	if err != nil {
		return nil, err
	}
	cfg := config.Server{
		JWTSigningKey: signingKey,
		JWTIssuer:     issuer,
		Checkin:       config.CheckinConfig{SuppressionWindow: 5 * time.Minute},
		Badge:         config.BadgeConfig{QRDir: qrDir, QRBaseURL: "/qrcodes"},
	}
	a, err := app.Build(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		return nil, err
	}

	jwt := jwttoken.NewJWTService(signingKey, issuer)
	tokens := make(map[string]string, 2)
	for subject, role := range map[string]string{"ops": jwttoken.RoleAdmin, "door-1": jwttoken.RoleScanner} {
		token, err := jwt.GenerateOperatorToken(subject, role, time.Hour)
		if err != nil {
			return nil, err
		}
		tokens[role] = token
	}

	return &TestContext{
		app:     a,
		handler: a.Handler(),
		qrDir:   qrDir,
		tokens:  tokens,
		users:   make(map[string]*dirModels.Enrollment),
		values:  make(map[string]string),
	}, nil
}

// Close releases the process and its QR directory.
func (tc *TestContext) Close() {
	tc.app.Close()
	_ = os.RemoveAll(tc.qrDir)
}

// UseEvent makes a new event with the given window the current one.
func (tc *TestContext) UseEvent(start, end time.Time) {
	tc.event = dirModels.Event{Title: "GopherCon", StartDate: start, EndDate: end, Location: "Main Hall"}
}

// Enroll seeds an approved enrollment of name in the current event.
func (tc *TestContext) Enroll(name string) {
	_, event, enrollment := tc.app.Directory().Seed(name, tc.event)
	tc.event = *event
	tc.users[name] = enrollment
}

// Enrollment returns the seeded enrollment of name.
func (tc *TestContext) Enrollment(name string) (*dirModels.Enrollment, error) {
	e, ok := tc.users[name]
	if !ok {
		return nil, fmt.Errorf("no enrollment seeded for %q", name)
	}
	return e, nil
}

// Remember stores a value produced by one step for a later one.
func (tc *TestContext) Remember(key, value string) { tc.values[key] = value }

// Recall returns a remembered value.
func (tc *TestContext) Recall(key string) (string, error) {
	v, ok := tc.values[key]
	if !ok {
		return "", fmt.Errorf("nothing remembered under %q", key)
	}
	return v, nil
}

// Do sends a request as role. An empty role sends no token.
func (tc *TestContext) Do(role, method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		token, ok := tc.tokens[role]
		if !ok {
			return fmt.Errorf("unknown role %q", role)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	tc.response = httptest.NewRecorder()
	tc.handler.ServeHTTP(tc.response, req)
	tc.body = tc.response.Body.Bytes()
	return nil
}

// StatusCode returns the status of the last response.
func (tc *TestContext) StatusCode() int {
	if tc.response == nil {
		return 0
	}
	return tc.response.Code
}

// Decode unmarshals the last response body into dst.
func (tc *TestContext) Decode(dst any) error {
	if err := json.Unmarshal(tc.body, dst); err != nil {
		return fmt.Errorf("decode response %q: %w", tc.body, err)
	}
	return nil
}

// Field returns a top-level field of the last JSON response.
func (tc *TestContext) Field(name string) (any, error) {
	var m map[string]any
	if err := tc.Decode(&m); err != nil {
		return nil, err
	}
	v, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("response has no field %q: %s", name, tc.body)
	}
	return v, nil
}
