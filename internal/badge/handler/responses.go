package handler

import (
	"time"

	"badgehub/internal/badge/models"
)

// BadgeResponse is the JSON form of a badge.
type BadgeResponse struct {
	ID           string     `json:"id"`
	Scope        string     `json:"scope"`
	UserID       string     `json:"user_id"`
	EnrollmentID string     `json:"enrollment_id,omitempty"`
	EventID      string     `json:"event_id,omitempty"`
	Code         string     `json:"code"`
	Payload      string     `json:"payload"`
	QRPath       string     `json:"qr_path"`
	IssuedAt     time.Time  `json:"issued_at"`
	CreatedAt    time.Time  `json:"created_at"`
	ValidUntil   *time.Time `json:"valid_until,omitempty"`
}

type BackfillResponse struct {
	Scanned int `json:"scanned"`
	Issued  int `json:"issued"`
	Failed  int `json:"failed"`
}

// MissingCountResponse counts users without a person badge.
type MissingCountResponse struct {
	Count int `json:"count"`
}

func FromBadge(b *models.Badge) *BadgeResponse {
	resp := &BadgeResponse{
		ID:         b.ID.String(),
		Scope:      string(b.Scope),
		UserID:     b.UserID.String(),
		Code:       b.Code,
		Payload:    b.Payload,
		QRPath:     b.QRPath,
		IssuedAt:   b.IssuedAt,
		CreatedAt:  b.CreatedAt,
		ValidUntil: b.ValidUntil,
	}
	if b.Scope == models.ScopeEnrollment {
		resp.EnrollmentID = b.EnrollmentID.String()
		resp.EventID = b.EventID.String()
	}
	return resp
}
