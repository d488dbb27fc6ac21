package handler

import (
	"time"

	"badgehub/internal/award"
)

// AwardResponse is the JSON form of an award template.
type AwardResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Metric      string    `json:"metric"`
	Threshold   int       `json:"threshold"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type AwardListResponse struct {
	Awards []AwardResponse `json:"awards"`
}

// UserAwardResponse is one grant.
type UserAwardResponse struct {
	UserID    string    `json:"user_id"`
	AwardID   string    `json:"award_id"`
	AwardedAt time.Time `json:"awarded_at"`
}

// HeldAwardResponse is an award as listed on a user.
type HeldAwardResponse struct {
	Award     AwardResponse `json:"award"`
	AwardedAt time.Time     `json:"awarded_at"`
}

type UserAwardsResponse struct {
	UserID string              `json:"user_id"`
	Awards []HeldAwardResponse `json:"awards"`
}

// EvaluationResponse lists the grants made by one evaluation.
type EvaluationResponse struct {
	UserID  string              `json:"user_id"`
	Granted []UserAwardResponse `json:"granted"`
}

func FromAward(a *award.Award) AwardResponse {
	return AwardResponse{
		ID:          a.ID.String(),
		Name:        a.Name,
		Description: a.Description,
		Metric:      string(a.Criteria.Metric),
		Threshold:   a.Criteria.Threshold,
		ImageURL:    a.ImageURL,
		CreatedAt:   a.CreatedAt,
	}
}

func FromUserAward(g award.UserAward) UserAwardResponse {
	return UserAwardResponse{
		UserID:    g.UserID.String(),
		AwardID:   g.AwardID.String(),
		AwardedAt: g.AwardedAt,
	}
}

func FromGranted(gs []award.Granted) []HeldAwardResponse {
	out := make([]HeldAwardResponse, 0, len(gs))
	for _, g := range gs {
		out = append(out, HeldAwardResponse{Award: FromAward(&g.Award), AwardedAt: g.AwardedAt})
	}
	return out
}
