package credential

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	id "badgehub/pkg/domain"
	dErrors "badgehub/pkg/domain-errors"
)

// maxPayloadBytes bounds decoding work on scanner input.
const maxPayloadBytes = 4096

// wire is the JSON shape on the QR code. Field names are stable.
type wire struct {
	Type         string `json:"type"`
	EnrollmentID string `json:"enrollmentId,omitempty"`
	UserID       string `json:"userId"`
	EventID      string `json:"eventId,omitempty"`
	BadgeCode    string `json:"badgeCode,omitempty"`
	IssuedAt     string `json:"issuedAt"`
}

// Encode serializes c into its QR payload.
func Encode(c Credential) (string, error) {
	if err := validate(c); err != nil {
		return "", err
	}
	w := wire{
		Type:     string(c.Kind),
		UserID:   uuid.UUID(c.UserID).String(),
		IssuedAt: c.IssuedAt.UTC().Format(time.RFC3339Nano),
	}
	switch c.Kind {
	case KindEnrollment:
		w.EnrollmentID = uuid.UUID(c.EnrollmentID).String()
		w.EventID = uuid.UUID(c.EventID).String()
	case KindPerson:
		w.BadgeCode = c.BadgeCode
	}
	b, err := json.Marshal(w)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode credential")
	}
	return string(b), nil
}

func validate(c Credential) error {
	if !c.Kind.IsValid() {
		return dErrors.New(dErrors.CodeMalformedCredential, "unknown credential type")
	}
	if c.UserID.IsNil() || c.IssuedAt.IsZero() {
		return dErrors.New(dErrors.CodeIncompleteCredential, "credential is missing user or issue time")
	}
	switch c.Kind {
	case KindEnrollment:
		if c.EnrollmentID.IsNil() || c.EventID.IsNil() {
			return dErrors.New(dErrors.CodeIncompleteCredential, "enrollment credential is missing enrollment or event")
		}
	case KindPerson:
		if strings.TrimSpace(c.BadgeCode) == "" {
			return dErrors.New(dErrors.CodeIncompleteCredential, "person credential is missing badge code")
		}
	}
	return nil
}

// Decode parses payload and checks it is of the expected kind.
//
// Unparsable input, an unknown type, or an unparsable id or time yield
// CodeMalformedCredential. A missing field or nil id yields
// CodeIncompleteCredential. A well-formed payload of the other kind yields
// CodeWrongCredentialKind.
func Decode(payload string, expected Kind) (Credential, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return Credential{}, dErrors.New(dErrors.CodeMalformedCredential, "credential payload is empty")
	}
	if len(payload) > maxPayloadBytes {
		return Credential{}, dErrors.New(dErrors.CodeMalformedCredential, "credential payload is too large")
	}

	var w wire
	if err := json.Unmarshal([]byte(payload), &w); err != nil {
		return Credential{}, dErrors.Wrap(err, dErrors.CodeMalformedCredential, "credential payload is not valid JSON")
	}

	if w.Type == "" {
		return Credential{}, dErrors.New(dErrors.CodeIncompleteCredential, "credential type is missing")
	}
	kind := Kind(w.Type)
	if !kind.IsValid() {
		return Credential{}, dErrors.New(dErrors.CodeMalformedCredential, "unknown credential type")
	}
	if kind != expected {
		return Credential{}, dErrors.New(dErrors.CodeWrongCredentialKind, "expected a "+string(expected)+" credential, got "+string(kind))
	}

	c := Credential{Kind: kind}
	var err error
	if c.IssuedAt, err = parseTime(w.IssuedAt); err != nil {
		return Credential{}, err
	}
	userID, err := parseID(w.UserID, "userId")
	if err != nil {
		return Credential{}, err
	}
	c.UserID = id.UserID(userID)

	switch kind {
	case KindEnrollment:
		enrollmentID, err := parseID(w.EnrollmentID, "enrollmentId")
		if err != nil {
			return Credential{}, err
		}
		eventID, err := parseID(w.EventID, "eventId")
		if err != nil {
			return Credential{}, err
		}
		c.EnrollmentID = id.EnrollmentID(enrollmentID)
		c.EventID = id.EventID(eventID)
	case KindPerson:
		c.BadgeCode = strings.TrimSpace(w.BadgeCode)
		if c.BadgeCode == "" {
			return Credential{}, dErrors.New(dErrors.CodeIncompleteCredential, "badgeCode is missing")
		}
	}
	return c, nil
}

func parseID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeIncompleteCredential, field+" is missing")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeMalformedCredential, field+" is not a valid id")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeIncompleteCredential, field+" is missing")
	}
	return u, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, dErrors.New(dErrors.CodeIncompleteCredential, "issuedAt is missing")
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, dErrors.Wrap(err, dErrors.CodeMalformedCredential, "issuedAt is not a valid timestamp")
	}
	if t.IsZero() {
		return time.Time{}, dErrors.New(dErrors.CodeIncompleteCredential, "issuedAt is missing")
	}
	return t.UTC(), nil
}
