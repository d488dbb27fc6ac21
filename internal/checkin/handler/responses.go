package handler

import (
	"time"

	"badgehub/internal/checkin/models"
	"badgehub/internal/checkin/service"
)

// CheckinResponse is the JSON form of a checkin.
type CheckinResponse struct {
	ID          string    `json:"id"`
	BadgeID     string    `json:"badge_id"`
	UserID      string    `json:"user_id"`
	EventID     string    `json:"event_id"`
	CheckinTime time.Time `json:"checkin_time"`
	Location    string    `json:"location"`
	Scanner     string    `json:"scanner,omitempty"`
	Operator    string    `json:"operator,omitempty"`
}

// DuplicateResponse is the 409 body of a suppressed scan.
type DuplicateResponse struct {
	Error            string           `json:"error"`
	ErrorDescription string           `json:"error_description"`
	PriorCheckin     *CheckinResponse `json:"prior_checkin"`
}

// VerificationResponse answers a verify call for a badge that would be
// admitted.
type VerificationResponse struct {
	Valid       bool             `json:"valid"`
	BadgeID     string           `json:"badge_id"`
	Code        string           `json:"code"`
	Scope       string           `json:"scope"`
	UserID      string           `json:"user_id"`
	EventID     string           `json:"event_id"`
	EventTitle  string           `json:"event_title"`
	LastCheckin *CheckinResponse `json:"last_checkin,omitempty"`
}

type ListResponse struct {
	Checkins []*CheckinResponse `json:"checkins"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
}

func FromCheckin(c *models.Checkin) *CheckinResponse {
	return &CheckinResponse{
		ID:          c.ID.String(),
		BadgeID:     c.BadgeID.String(),
		UserID:      c.UserID.String(),
		EventID:     c.EventID.String(),
		CheckinTime: c.CheckinTime,
		Location:    c.Location,
		Scanner:     c.Scanner,
		Operator:    c.Operator,
	}
}

func FromCheckins(cs []*models.Checkin, page models.Page) *ListResponse {
	out := make([]*CheckinResponse, len(cs))
	for i, c := range cs {
		out[i] = FromCheckin(c)
	}
	return &ListResponse{Checkins: out, Limit: page.Limit, Offset: page.Offset}
}

func FromVerification(v *service.Verification) *VerificationResponse {
	resp := &VerificationResponse{
		Valid:      true,
		BadgeID:    v.Badge.ID.String(),
		Code:       v.Badge.Code,
		Scope:      string(v.Badge.Scope),
		UserID:     v.Badge.UserID.String(),
		EventID:    v.Event.ID.String(),
		EventTitle: v.Event.Title,
	}
	if v.LastCheckin != nil {
		resp.LastCheckin = FromCheckin(v.LastCheckin)
	}
	return resp
}
