package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"biohive/internal/report/models"
	"biohive/pkg/domain"
)

// fingerprintPayload is the identity-relevant subset of a report that the
// digest covers. Serialization goes through a map so keys are sorted before
// encoding; the digest is therefore independent of field ordering at the
// call site.
type fingerprintPayload struct {
	ReportID string
	NodeID   string
	Date     domain.Date
	Symptoms models.SymptomCounts
}

func (p fingerprintPayload) canonical() []byte {
	raw, err := json.Marshal(map[string]any{
		"report_id": p.ReportID,
		"node_id":   p.NodeID,
		"date":      p.Date.String(),
		"symptoms": map[string]int{
			"fever": p.Symptoms.Fever,
			"cough": p.Symptoms.Cough,
			"gi":    p.Symptoms.GI,
		},
	})
	if err != nil {
		// Maps of strings and ints cannot fail to marshal.
		panic(err)
	}
	return raw
}

// Fingerprint computes the deterministic SHA-256 digest of a report's
// identity fields, returned as a 64-character lowercase hex string. Identical
// inputs always produce the identical digest; any single differing field
// changes it.
func Fingerprint(reportID, nodeID string, date domain.Date, symptoms models.SymptomCounts) string {
	payload := fingerprintPayload{
		ReportID: reportID,
		NodeID:   nodeID,
		Date:     date,
		Symptoms: symptoms,
	}
	sum := sha256.Sum256(payload.canonical())
	return hex.EncodeToString(sum[:])
}

// FingerprintReport is the Fingerprint convenience over a stored report.
func FingerprintReport(r *models.SymptomReport) string {
	return Fingerprint(r.ReportID, r.NodeID, r.Date, r.Symptoms)
}
