package handler

import (
	"time"

	"badgehub/internal/ranking/models"
)

type EntryResponse struct {
	Rank         int        `json:"rank"`
	UserID       string     `json:"user_id"`
	Name         string     `json:"name"`
	Checkins     int        `json:"checkins"`
	FirstBadgeAt *time.Time `json:"first_badge_at,omitempty"`
}

type RankingResponse struct {
	PunctualOnly bool            `json:"punctual_only"`
	Limit        int             `json:"limit"`
	Entries      []EntryResponse `json:"entries"`
}

type AwardEntryResponse struct {
	Rank         int       `json:"rank"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Awards       int       `json:"awards"`
	FirstAwardAt time.Time `json:"first_award_at"`
}

type AwardRankingResponse struct {
	Limit   int                  `json:"limit"`
	Entries []AwardEntryResponse `json:"entries"`
}

type DayCountResponse struct {
	Day      string `json:"day"`
	Checkins int    `json:"checkins"`
}

type EventStatsResponse struct {
	EventID             string             `json:"event_id"`
	ApprovedEnrollments int                `json:"approved_enrollments"`
	UniqueAttendees     int                `json:"unique_attendees"`
	TotalCheckins       int                `json:"total_checkins"`
	AttendanceRate      float64            `json:"attendance_rate"`
	Daily               []DayCountResponse `json:"daily"`
}

func FromEntries(q models.Query, entries []models.Entry) RankingResponse {
	resp := RankingResponse{PunctualOnly: q.PunctualOnly, Limit: q.Limit, Entries: make([]EntryResponse, 0, len(entries))}
	for _, e := range entries {
		er := EntryResponse{Rank: e.Rank, UserID: e.UserID.String(), Name: e.Name, Checkins: e.Count}
		if !e.FirstBadgeAt.IsZero() {
			first := e.FirstBadgeAt
			er.FirstBadgeAt = &first
		}
		resp.Entries = append(resp.Entries, er)
	}
	return resp
}

func FromAwardEntries(limit int, entries []models.AwardEntry) AwardRankingResponse {
	resp := AwardRankingResponse{Limit: limit, Entries: make([]AwardEntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, AwardEntryResponse{
			Rank:         e.Rank,
			UserID:       e.UserID.String(),
			Name:         e.Name,
			Awards:       e.Count,
			FirstAwardAt: e.FirstAwardAt,
		})
	}
	return resp
}

func FromEventStats(s *models.EventStats) EventStatsResponse {
	resp := EventStatsResponse{
		EventID:             s.EventID.String(),
		ApprovedEnrollments: s.ApprovedEnrollments,
		UniqueAttendees:     s.UniqueAttendees,
		TotalCheckins:       s.TotalCheckins,
		AttendanceRate:      s.AttendanceRate,
		Daily:               make([]DayCountResponse, 0, len(s.Daily)),
	}
	for _, d := range s.Daily {
		resp.Daily = append(resp.Daily, DayCountResponse{Day: d.Day, Checkins: d.Count})
	}
	return resp
}
