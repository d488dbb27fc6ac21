package handler

import (
	"strings"

	"badgehub/internal/award"
	id "badgehub/pkg/domain"
)

// CreateAwardRequest is the body of POST /awards and PUT /awards/{id}.
type CreateAwardRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description,omitempty" validate:"max=2000"`
	Metric      string `json:"metric" validate:"required"`
	Threshold   int    `json:"threshold" validate:"min=1"`
	ImageURL    string `json:"image_url,omitempty" validate:"omitempty,url,max=500"`

	criteria award.Criteria
}

// Validate normalizes the metric name.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateAwardRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	metric, err := award.ParseMetric(r.Metric)
	if err != nil {
		return err
	}
	r.criteria = award.Criteria{Metric: metric, Threshold: r.Threshold}
	return r.criteria.Validate()
}

func (r *CreateAwardRequest) Criteria() award.Criteria {
	return r.criteria
}

// GrantRequest is the body of POST /awards/grant.
type GrantRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	AwardID string `json:"award_id" validate:"required"`

	userID  id.UserID
	awardID id.AwardID
}

func (r *GrantRequest) Validate() error {
	var err error
	if r.userID, err = id.ParseUserID(strings.TrimSpace(r.UserID)); err != nil {
		return err
	}
	if r.awardID, err = id.ParseAwardID(strings.TrimSpace(r.AwardID)); err != nil {
		return err
	}
	return nil
}

func (r *GrantRequest) ParsedIDs() (id.UserID, id.AwardID) {
	return r.userID, r.awardID
}
