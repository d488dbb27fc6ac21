package metadata

import (
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"badgehub/pkg/requestcontext"
)

// ClientMetadata records the client IP and a readable description of the
// scanning device in the request context. Apply it early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientIP(r.Context(), ClientIPFromRequest(r))
		if scanner := DescribeScanner(r.Header.Get("User-Agent")); scanner != "" {
			ctx = requestcontext.WithScanner(ctx, scanner)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// DescribeScanner turns a User-Agent into "Browser Version on OS".
// Returns the raw agent when it cannot be parsed into a browser, and ""
// for an empty agent.
func DescribeScanner(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return ""
	}
	ua := useragent.New(userAgent)
	name, version := ua.Browser()
	if name == "" {
		return userAgent
	}
	desc := name
	if version != "" {
		desc += " " + version
	}
	if os := ua.OS(); os != "" {
		desc += " on " + os
	}
	if ua.Mobile() {
		desc += " (mobile)"
	}
	return desc
}

// ClientIPFromRequest extracts the client IP, honouring proxy headers.
func ClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
