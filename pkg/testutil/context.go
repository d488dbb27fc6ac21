package testutil

import (
	"context"
	"net/http"
	"time"

	"badgehub/pkg/requestcontext"
)

// WithOperator marks the request as made by an authenticated operator.
// This simulates what the auth middleware does.
func WithOperator(req *http.Request, subject, role string) *http.Request {
	ctx := requestcontext.WithOperator(req.Context(), requestcontext.Operator{Subject: subject, Role: role})
	return req.WithContext(ctx)
}

// WithRequestTime pins the request clock.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// At returns a background context whose request clock reads now.
func At(now time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), now)
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
