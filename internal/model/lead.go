package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Lead is a business contact record keyed by the vendor's place identifier.
type Lead struct {
	PlaceID     string    `json:"place_id"`
	Name        string    `json:"name,omitempty"`
	FullAddress string    `json:"full_address,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Site        string    `json:"site,omitempty"`
	Type        string    `json:"type,omitempty"`
	Emails      []string  `json:"emails"`
	Socials     []string  `json:"socials,omitempty"` // reserved, not populated yet
	CreatedAt   time.Time `json:"created_at"`
}

// Vendor job statuses. The vendor's status set is open-ended; anything other
// than Success or Failure is treated as still pending.
const (
	StatusPending = "Pending"
	StatusSuccess = "Success"
	StatusFailure = "Failure"
)

// IsTerminal reports whether a vendor status ends the polling cycle.
func IsTerminal(status string) bool {
	return status == StatusSuccess || status == StatusFailure
}

// Candidate is one raw record from the vendor's result payload.
type Candidate struct {
	PlaceID     string   `json:"place_id"`
	Name        string   `json:"name"`
	FullAddress string   `json:"full_address"`
	Phone       string   `json:"phone"`
	Site        string   `json:"site"`
	Type        string   `json:"type"`
	Emails      []string `json:"emails"`
}

// HasKey reports whether the candidate carries a usable place identifier.
func (c Candidate) HasKey() bool {
	return strings.TrimSpace(c.PlaceID) != ""
}

// Lead projects the candidate onto the persisted lead shape.
func (c Candidate) Lead() Lead {
	emails := c.Emails
	if emails == nil {
		emails = []string{}
	}
	return Lead{
		PlaceID:     c.PlaceID,
		Name:        c.Name,
		FullAddress: c.FullAddress,
		Phone:       c.Phone,
		Site:        c.Site,
		Type:        c.Type,
		Emails:      emails,
	}
}

// ParseCandidates extracts candidate records from a successful vendor payload.
// The vendor wraps results in a two-level nested list; the inner list holds
// the records. Any other shape, or an empty inner list, reports ok=false and
// callers must treat the payload as an anomaly (no persistence).
func ParseCandidates(raw json.RawMessage) ([]Candidate, bool) {
	var nested [][]Candidate
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil, false
	}
	if len(nested) == 0 || len(nested[0]) == 0 {
		return nil, false
	}
	return nested[0], true
}
