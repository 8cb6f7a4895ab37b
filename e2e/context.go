// Package e2e drives black-box scenarios against a running server. The
// target URL and a valid node token come from the environment; see
// main_test.go.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// TestContext carries shared state between steps: the HTTP client, the last
// response, and identifiers saved by earlier steps.
type TestContext struct {
	baseURL   string
	nodeToken string
	client    *http.Client

	lastStatus int
	lastBody   map[string]any

	reportID   string
	reportDate string
}

func NewTestContext(baseURL, nodeToken string) *TestContext {
	return &TestContext{
		baseURL:   baseURL,
		nodeToken: nodeToken,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.reportID = ""
	tc.reportDate = ""
}

// POST sends a JSON body, attaching the node bearer token.
func (tc *TestContext) POST(path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, tc.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if tc.nodeToken != "" {
		req.Header.Set("Authorization", "Bearer "+tc.nodeToken)
	}
	return tc.do(req)
}

// GET sends a request with optional extra headers.
func (tc *TestContext) GET(path string, headers map[string]string) error {
	req, err := http.NewRequest(http.MethodGet, tc.baseURL+path, nil)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return tc.do(req)
}

func (tc *TestContext) do(req *http.Request) error {
	resp, err := tc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody = nil
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		tc.lastBody = body
	}
	return nil
}

// LastStatus returns the status code of the last response.
func (tc *TestContext) LastStatus() int {
	return tc.lastStatus
}

// GetResponseField reads a top-level field from the last JSON response,
// following dotted paths into nested objects.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	if tc.lastBody == nil {
		return nil, fmt.Errorf("no JSON body in last response")
	}
	value, ok := tc.lastBody[field]
	if !ok {
		return nil, fmt.Errorf("field %q not found in response", field)
	}
	return value, nil
}

func (tc *TestContext) SetReportID(id string)     { tc.reportID = id }
func (tc *TestContext) GetReportID() string       { return tc.reportID }
func (tc *TestContext) SetReportDate(date string) { tc.reportDate = date }
func (tc *TestContext) GetReportDate() string     { return tc.reportDate }
