package models

import "time"

// Entry is one hash-chained audit record. Entries are append-only and
// totally ordered by Position; entry N's PreviousHash must equal entry N-1's
// CurrentHash, and the first entry's PreviousHash is nil.
type Entry struct {
	ID           string    `json:"entry_id"`
	ReportID     string    `json:"report_id"`
	CurrentHash  string    `json:"current_hash"`
	PreviousHash *string   `json:"previous_hash"`
	Position     int64     `json:"position"`
	Timestamp    time.Time `json:"timestamp"`
}

// EntryVerification is the result of re-hashing a live report against its
// ledger entry. Verification failures are reported here as values, never as
// call errors.
type EntryVerification struct {
	Valid          bool       `json:"valid"`
	ReportID       string     `json:"report_id"`
	StoredHash     string     `json:"stored_hash,omitempty"`
	RecomputedHash string     `json:"recomputed_hash,omitempty"`
	Timestamp      *time.Time `json:"timestamp,omitempty"`
	Error          string     `json:"error,omitempty"`
}

// BrokenLink records one chain violation found during full verification.
type BrokenLink struct {
	Position       int64     `json:"position"`
	EntryID        string    `json:"entry_id"`
	ReportID       string    `json:"report_id"`
	Timestamp      time.Time `json:"timestamp"`
	Error          string    `json:"error"`
	ExpectedHash   *string   `json:"expected_previous"`
	ActualHash     *string   `json:"actual_previous"`
	Classification string    `json:"classification"`
}

// ChainVerification is the result of walking the whole chain. ChainIntegrity
// is verified/total and is reported even when the chain is invalid; an empty
// chain is valid with integrity 1.0.
type ChainVerification struct {
	Valid           bool         `json:"valid"`
	TotalEntries    int          `json:"total_entries"`
	VerifiedEntries int          `json:"verified_entries"`
	BrokenLinks     []BrokenLink `json:"broken_links"`
	ChainIntegrity  float64      `json:"chain_integrity"`
	Error           string       `json:"error,omitempty"`
}

// ChainHealth summarizes the chain for the statistics view.
type ChainHealth string

const (
	ChainHealthy     ChainHealth = "HEALTHY"
	ChainCompromised ChainHealth = "COMPROMISED"
	ChainEmpty       ChainHealth = "EMPTY"
)

// Statistics is the read-only chain overview.
type Statistics struct {
	TotalEntries     int         `json:"total_entries"`
	OldestEntry      *time.Time  `json:"oldest_entry,omitempty"`
	NewestEntry      *time.Time  `json:"newest_entry,omitempty"`
	Health           ChainHealth `json:"chain_health"`
	ChainIntegrity   float64     `json:"chain_integrity"`
	LastVerification time.Time   `json:"last_verification"`
}

// ChainContext situates one entry within the chain.
type ChainContext struct {
	TotalChainLength int   `json:"total_chain_length"`
	PositionInChain  int64 `json:"position_in_chain"`
	EntriesAfter     int   `json:"entries_after"`
}

// History is the complete audit view for one report.
type History struct {
	ReportID     string             `json:"report_id"`
	Entry        *Entry             `json:"entry"`
	Verification *EntryVerification `json:"verification,omitempty"`
	ChainContext *ChainContext      `json:"chain_context,omitempty"`
}
