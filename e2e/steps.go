package e2e

import (
	"github.com/cucumber/godog"

	"biohive/e2e/steps/audit"
	"biohive/e2e/steps/common"
	"biohive/e2e/steps/report"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (background, generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	// Register report submission steps
	report.RegisterSteps(ctx, tc)

	// Register audit verification steps
	audit.RegisterSteps(ctx, tc)
}
