package checkin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cucumber/godog"

	dirModels "badgehub/internal/directory/models"
)

// TestContext is the slice of the scenario world these steps need.
type TestContext interface {
	UseEvent(start, end time.Time)
	Enroll(name string)
	Enrollment(name string) (*dirModels.Enrollment, error)
	Remember(key, value string)
	Recall(key string) (string, error)
	Do(role, method, path string, body any) error
	StatusCode() int
	Decode(dst any) error
}

// RegisterSteps registers badge, check-in, award and ranking steps.
func RegisterSteps(sc *godog.ScenarioContext, tc TestContext) {
	s := &steps{tc: tc}

	sc.Step(`^an event that started (\d+) hours? ago and ends in (\d+) hours?$`, s.runningEvent)
	sc.Step(`^an event that starts in (\d+) hours?$`, s.upcomingEvent)
	sc.Step(`^"([^"]*)" has an approved enrollment$`, s.enroll)
	sc.Step(`^an admin issued the badge for "([^"]*)"$`, s.issueBadge)
	sc.Step(`^an admin created the award "([^"]*)" for (\d+) "([^"]*)"$`, s.createAward)
	sc.Step(`^the scanner presents the badge of "([^"]*)"$`, s.presentBadge)
	sc.Step(`^the scanner types the code of "([^"]*)"$`, s.typeCode)
	sc.Step(`^the admin lists the awards of "([^"]*)"$`, s.listAwards)
	sc.Step(`^the response should list (\d+) awards?$`, s.shouldListAwards)
	sc.Step(`^the scanner requests the check-in leaderboard$`, s.leaderboard)
	sc.Step(`^"([^"]*)" should be ranked (\d+) with (\d+) check-ins?$`, s.shouldBeRanked)
}

type steps struct {
	tc TestContext
}

func (s *steps) runningEvent(startedAgo, endsIn int) error {
	now := time.Now().UTC()
	s.tc.UseEvent(now.Add(-time.Duration(startedAgo)*time.Hour), now.Add(time.Duration(endsIn)*time.Hour))
	return nil
}

func (s *steps) upcomingEvent(startsIn int) error {
	start := time.Now().UTC().Add(time.Duration(startsIn) * time.Hour)
	s.tc.UseEvent(start, start.Add(8*time.Hour))
	return nil
}

func (s *steps) enroll(name string) error {
	s.tc.Enroll(name)
	return nil
}

func (s *steps) issueBadge(name string) error {
	e, err := s.tc.Enrollment(name)
	if err != nil {
		return err
	}
	if err := s.tc.Do("admin", http.MethodPost, "/enrollments/"+e.ID.String()+"/badge", nil); err != nil {
		return err
	}
	if s.tc.StatusCode() != http.StatusOK {
		return fmt.Errorf("issue badge for %s: status %d", name, s.tc.StatusCode())
	}
	var badge struct {
		Payload string `json:"payload"`
		Code    string `json:"code"`
	}
	if err := s.tc.Decode(&badge); err != nil {
		return err
	}
	s.tc.Remember("payload:"+name, badge.Payload)
	s.tc.Remember("code:"+name, badge.Code)
	return nil
}

func (s *steps) createAward(name string, threshold int, metric string) error {
	if err := s.tc.Do("admin", http.MethodPost, "/awards", map[string]any{
		"name":      name,
		"metric":    metric,
		"threshold": threshold,
	}); err != nil {
		return err
	}
	if s.tc.StatusCode() != http.StatusCreated {
		return fmt.Errorf("create award %s: status %d", name, s.tc.StatusCode())
	}
	return nil
}

func (s *steps) presentBadge(name string) error {
	payload, err := s.tc.Recall("payload:" + name)
	if err != nil {
		return err
	}
	return s.tc.Do("scanner", http.MethodPost, "/checkins", map[string]string{"credential": payload})
}

func (s *steps) typeCode(name string) error {
	code, err := s.tc.Recall("code:" + name)
	if err != nil {
		return err
	}
	e, err := s.tc.Enrollment(name)
	if err != nil {
		return err
	}
	return s.tc.Do("scanner", http.MethodPost, "/checkins/manual", map[string]string{
		"code":     code,
		"event_id": e.EventID.String(),
	})
}

func (s *steps) listAwards(name string) error {
	e, err := s.tc.Enrollment(name)
	if err != nil {
		return err
	}
	return s.tc.Do("admin", http.MethodGet, "/users/"+e.UserID.String()+"/awards", nil)
}

func (s *steps) shouldListAwards(want int) error {
	var resp struct {
		Awards []json.RawMessage `json:"awards"`
	}
	if err := s.tc.Decode(&resp); err != nil {
		return err
	}
	if len(resp.Awards) != want {
		return fmt.Errorf("expected %d awards, got %d", want, len(resp.Awards))
	}
	return nil
}

func (s *steps) leaderboard() error {
	return s.tc.Do("scanner", http.MethodGet, "/rankings/checkins", nil)
}

func (s *steps) shouldBeRanked(name string, rank, checkins int) error {
	var resp struct {
		Entries []struct {
			Rank     int    `json:"rank"`
			Name     string `json:"name"`
			Checkins int    `json:"checkins"`
		} `json:"entries"`
	}
	if err := s.tc.Decode(&resp); err != nil {
		return err
	}
	for _, e := range resp.Entries {
		if e.Name != name {
			continue
		}
		if e.Rank != rank || e.Checkins != checkins {
			return fmt.Errorf("%s: expected rank %d with %d, got rank %d with %d", name, rank, checkins, e.Rank, e.Checkins)
		}
		return nil
	}
	return fmt.Errorf("%s is not on the leaderboard", name)
}
