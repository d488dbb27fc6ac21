package credential

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "badgehub/pkg/domain"
	dErrors "badgehub/pkg/domain-errors"
)

var issuedAt = time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.UTC)

func enrollmentCredential() Credential {
	return ForEnrollment(
		id.EnrollmentID(uuid.New()),
		id.UserID(uuid.New()),
		id.EventID(uuid.New()),
		issuedAt,
	)
}

func TestRoundTrip(t *testing.T) {
	t.Run("enrollment", func(t *testing.T) {
		c := enrollmentCredential()
		payload, err := Encode(c)
		require.NoError(t, err)

		got, err := Decode(payload, KindEnrollment)
		require.NoError(t, err)
		assert.Equal(t, c, got)
	})

	t.Run("person", func(t *testing.T) {
		c := ForPerson(id.UserID(uuid.New()), "ADA-LOVELACE-4821", issuedAt)
		payload, err := Encode(c)
		require.NoError(t, err)

		got, err := Decode(payload, KindPerson)
		require.NoError(t, err)
		assert.Equal(t, c, got)
	})

	t.Run("non-UTC issue time is normalized", func(t *testing.T) {
		loc := time.FixedZone("UTC+7", 7*3600)
		c := ForEnrollment(id.EnrollmentID(uuid.New()), id.UserID(uuid.New()), id.EventID(uuid.New()), issuedAt.In(loc))
		payload, err := Encode(c)
		require.NoError(t, err)
		assert.Contains(t, payload, `"issuedAt":"2025-03-14T09:26:53.589793Z"`)

		got, err := Decode(payload, KindEnrollment)
		require.NoError(t, err)
		assert.True(t, got.IssuedAt.Equal(issuedAt))
	})
}

func TestEncodeRejectsIncompleteCredential(t *testing.T) {
	c := enrollmentCredential()
	c.EventID = id.EventID{}
	_, err := Encode(c)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeIncompleteCredential))

	_, err = Encode(Credential{Kind: "ticket", UserID: id.UserID(uuid.New()), IssuedAt: issuedAt})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeMalformedCredential))
}

func TestDecodeErrors(t *testing.T) {
	user := uuid.NewString()
	enrollment := uuid.NewString()
	event := uuid.NewString()

	tests := []struct {
		name     string
		payload  string
		expected Kind
		code     dErrors.Code
	}{
		{"empty", "", KindEnrollment, dErrors.CodeMalformedCredential},
		{"not json", "ADA-LOVELACE-4821", KindEnrollment, dErrors.CodeMalformedCredential},
		{"json array", `[1,2]`, KindEnrollment, dErrors.CodeMalformedCredential},
		{"missing type", `{"userId":"` + user + `"}`, KindEnrollment, dErrors.CodeIncompleteCredential},
		{"unknown type", `{"type":"ticket","userId":"` + user + `"}`, KindEnrollment, dErrors.CodeMalformedCredential},
		{"person at enrollment endpoint", `{"type":"person","userId":"` + user + `","badgeCode":"X-1000","issuedAt":"2025-01-01T00:00:00Z"}`, KindEnrollment, dErrors.CodeWrongCredentialKind},
		{"enrollment at person endpoint", `{"type":"enrollment","enrollmentId":"` + enrollment + `","userId":"` + user + `","eventId":"` + event + `","issuedAt":"2025-01-01T00:00:00Z"}`, KindPerson, dErrors.CodeWrongCredentialKind},
		{"missing event", `{"type":"enrollment","enrollmentId":"` + enrollment + `","userId":"` + user + `","issuedAt":"2025-01-01T00:00:00Z"}`, KindEnrollment, dErrors.CodeIncompleteCredential},
		{"missing issuedAt", `{"type":"enrollment","enrollmentId":"` + enrollment + `","userId":"` + user + `","eventId":"` + event + `"}`, KindEnrollment, dErrors.CodeIncompleteCredential},
		{"nil user id", `{"type":"person","userId":"00000000-0000-0000-0000-000000000000","badgeCode":"X-1000","issuedAt":"2025-01-01T00:00:00Z"}`, KindPerson, dErrors.CodeIncompleteCredential},
		{"bad uuid", `{"type":"enrollment","enrollmentId":"nope","userId":"` + user + `","eventId":"` + event + `","issuedAt":"2025-01-01T00:00:00Z"}`, KindEnrollment, dErrors.CodeMalformedCredential},
		{"bad time", `{"type":"person","userId":"` + user + `","badgeCode":"X-1000","issuedAt":"yesterday"}`, KindPerson, dErrors.CodeMalformedCredential},
		{"missing badge code", `{"type":"person","userId":"` + user + `","issuedAt":"2025-01-01T00:00:00Z"}`, KindPerson, dErrors.CodeIncompleteCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.payload, tt.expected)
			require.Error(t, err)
			assert.Equal(t, tt.code, dErrors.CodeOf(err), err.Error())
		})
	}
}
