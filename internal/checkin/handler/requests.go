package handler

import (
	"strings"

	id "badgehub/pkg/domain"
	dErrors "badgehub/pkg/domain-errors"
)

// ScanRequest is the body of POST /checkins and POST /checkins/person.
type ScanRequest struct {
	Credential string `json:"credential"`
	EventID    string `json:"event_id,omitempty"`
	Location   string `json:"location,omitempty" validate:"max=200"`

	parsedEventID id.EventID
}

// Validate parses the optional event id.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *ScanRequest) Validate() error {
	r.Location = strings.TrimSpace(r.Location)
	eventID, err := parseOptionalEventID(r.EventID)
	if err != nil {
		return err
	}
	r.parsedEventID = eventID
	return nil
}

func (r *ScanRequest) ParsedEventID() id.EventID {
	return r.parsedEventID
}

// ManualRequest is the body of POST /checkins/manual.
type ManualRequest struct {
	Code     string `json:"code" validate:"required,max=64"`
	EventID  string `json:"event_id,omitempty"`
	Location string `json:"location,omitempty" validate:"max=200"`

	parsedEventID id.EventID
}

func (r *ManualRequest) Validate() error {
	r.Code = strings.TrimSpace(r.Code)
	if r.Code == "" {
		return dErrors.New(dErrors.CodeValidation, "code is required")
	}
	r.Location = strings.TrimSpace(r.Location)
	eventID, err := parseOptionalEventID(r.EventID)
	if err != nil {
		return err
	}
	r.parsedEventID = eventID
	return nil
}

func (r *ManualRequest) ParsedEventID() id.EventID {
	return r.parsedEventID
}

func parseOptionalEventID(raw string) (id.EventID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return id.EventID{}, nil
	}
	return id.ParseEventID(raw)
}
