package audit

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (any, error)
	GetReportID() string
}

// RegisterSteps registers audit verification step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &auditSteps{tc: tc}

	ctx.Step(`^I verify the saved report$`, steps.verifySavedReport)
	ctx.Step(`^I verify the full audit chain$`, steps.verifyChain)
	ctx.Step(`^I request the audit history for the saved report$`, steps.requestHistory)
	ctx.Step(`^the verification should pass$`, steps.verificationShouldPass)
}

type auditSteps struct {
	tc TestContext
}

func (s *auditSteps) verifySavedReport(ctx context.Context) error {
	reportID := s.tc.GetReportID()
	if reportID == "" {
		return fmt.Errorf("no report ID saved")
	}
	return s.tc.GET("/audit/verify/"+reportID, nil)
}

func (s *auditSteps) verifyChain(ctx context.Context) error {
	return s.tc.GET("/audit/verify-chain", nil)
}

func (s *auditSteps) requestHistory(ctx context.Context) error {
	reportID := s.tc.GetReportID()
	if reportID == "" {
		return fmt.Errorf("no report ID saved")
	}
	return s.tc.GET("/audit/history/"+reportID, nil)
}

func (s *auditSteps) verificationShouldPass(ctx context.Context) error {
	valid, err := s.tc.GetResponseField("valid")
	if err != nil {
		return err
	}
	if valid != true {
		return fmt.Errorf("expected valid=true, got %v", valid)
	}
	return nil
}
