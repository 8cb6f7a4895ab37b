package report

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GetResponseField(field string) (any, error)
	SetReportID(id string)
	GetReportID() string
	SetReportDate(date string)
	GetReportDate() string
}

// RegisterSteps registers report submission step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &reportSteps{tc: tc}

	ctx.Step(`^I submit a report with fever (\d+), cough (\d+) and gi (\d+)$`, steps.submitReport)
	ctx.Step(`^I submit a second report for the same date$`, steps.submitDuplicate)
	ctx.Step(`^I save the report ID$`, steps.saveReportID)
}

type reportSteps struct {
	tc TestContext
}

// submitReport picks a random past date so repeated runs against the same
// server do not trip the one-report-per-day rule.
func (s *reportSteps) submitReport(ctx context.Context, fever, cough, gi int) error {
	daysBack := rand.Intn(3000) + 1
	date := time.Now().UTC().AddDate(0, 0, -daysBack).Format("2006-01-02")
	s.tc.SetReportDate(date)

	return s.tc.POST("/report", map[string]any{
		"date": date,
		"symptoms": map[string]int{
			"fever": fever,
			"cough": cough,
			"gi":    gi,
		},
	})
}

func (s *reportSteps) submitDuplicate(ctx context.Context) error {
	if s.tc.GetReportDate() == "" {
		return fmt.Errorf("no report submitted yet")
	}
	return s.tc.POST("/report", map[string]any{
		"date": s.tc.GetReportDate(),
		"symptoms": map[string]int{
			"fever": 1,
			"cough": 1,
			"gi":    1,
		},
	})
}

func (s *reportSteps) saveReportID(ctx context.Context) error {
	id, err := s.tc.GetResponseField("report_id")
	if err != nil {
		return err
	}
	reportID, ok := id.(string)
	if !ok || reportID == "" {
		return fmt.Errorf("report_id missing from response")
	}
	s.tc.SetReportID(reportID)
	return nil
}
