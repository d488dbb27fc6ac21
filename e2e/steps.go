package e2e

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cucumber/godog"

	"badgehub/e2e/steps/checkin"
)

// InitializeScenario gives every scenario its own process and registers the
// step definitions.
func InitializeScenario(sc *godog.ScenarioContext) {
	tc := &TestContext{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		fresh, err := NewTestContext(ctx)
		if err != nil {
			return ctx, err
		}
		*tc = *fresh
		return ctx, nil
	})
	sc.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		if tc.app != nil {
			tc.Close()
		}
		return ctx, err
	})

	RegisterSteps(sc, tc)
}

// RegisterSteps registers generic request steps and the domain steps.
func RegisterSteps(sc *godog.ScenarioContext, tc *TestContext) {
	sc.Step(`^the (admin|scanner) sends (GET|POST|DELETE) "([^"]*)"$`, func(role, method, path string) error {
		return tc.Do(role, method, path, nil)
	})
	sc.Step(`^an anonymous client sends (GET|POST) "([^"]*)"$`, func(method, path string) error {
		return tc.Do("", method, path, nil)
	})
	sc.Step(`^the response status should be (\d+)$`, func(want int) error {
		if got := tc.StatusCode(); got != want {
			return fmt.Errorf("expected status %d, got %d: %s", want, got, tc.body)
		}
		return nil
	})
	sc.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, func(field, want string) error {
		v, err := tc.Field(field)
		if err != nil {
			return err
		}
		var got string
		switch x := v.(type) {
		case string:
			got = x
		case float64:
			got = strconv.FormatFloat(x, 'f', -1, 64)
		default:
			got = fmt.Sprint(x)
		}
		if got != want {
			return fmt.Errorf("expected %s=%q, got %q", field, want, got)
		}
		return nil
	})

	checkin.RegisterSteps(sc, tc)
}
