package credential

import (
	"testing"

	dErrors "badgehub/pkg/domain-errors"
)

// FuzzDecode checks Decode never panics and only fails with codec codes.
func FuzzDecode(f *testing.F) {
	f.Add(`{"type":"enrollment","enrollmentId":"8d4e5c1a-5f44-4e7a-9d0c-3c2b8f1a2e10","userId":"0b1e2d3c-4a5b-4c6d-8e7f-9a0b1c2d3e4f","eventId":"1c2d3e4f-5a6b-4c7d-8e9f-0a1b2c3d4e5f","issuedAt":"2025-01-01T00:00:00Z"}`)
	f.Add(`{"type":"person","userId":"0b1e2d3c-4a5b-4c6d-8e7f-9a0b1c2d3e4f","badgeCode":"ADA-LOVELACE-1234","issuedAt":"2025-01-01T00:00:00.123456789Z"}`)
	f.Add(`{}`)
	f.Add(`null`)
	f.Add(`{"type":1}`)

	allowed := map[dErrors.Code]bool{
		dErrors.CodeMalformedCredential:  true,
		dErrors.CodeIncompleteCredential: true,
		dErrors.CodeWrongCredentialKind:  true,
	}

	f.Fuzz(func(t *testing.T, payload string) {
		for _, kind := range []Kind{KindEnrollment, KindPerson} {
			c, err := Decode(payload, kind)
			if err != nil {
				if !allowed[dErrors.CodeOf(err)] {
					t.Fatalf("unexpected error code %q for %q", dErrors.CodeOf(err), payload)
				}
				continue
			}
			if c.Kind != kind {
				t.Fatalf("decoded kind %q, expected %q", c.Kind, kind)
			}
			again, err := Encode(c)
			if err != nil {
				t.Fatalf("re-encode decoded credential: %v", err)
			}
			if _, err := Decode(again, kind); err != nil {
				t.Fatalf("decode re-encoded credential: %v", err)
			}
		}
	})
}
