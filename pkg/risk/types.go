package risk

import (
	"fmt"

	"mercator-hq/bidguard/pkg/audit"
)

// Level is a risk band.
type Level string

const (
	LevelLow      Level = "Low"
	LevelModerate Level = "Moderate"
	LevelHigh     Level = "High"
	LevelCritical Level = "Critical"
)

// Flags raised by the assessor.
const (
	FlagMarginErosion = "margin_erosion"
	FlagReconsider    = "reconsider"
)

// Contribution names.
const (
	ContribVagueScope       = "vague_scope"
	ContribLowRatedEntities = "low_rated_entities"
	ContribPolicyViolations = "policy_violations"
	ContribOverrideActivity = "override_activity"
	ContribMarginErosion    = "margin_erosion"
)

// EntitySummary is the rating state of one bid participant.
type EntitySummary struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// BidContext is everything the assessor looks at.
type BidContext struct {
	ScopeText string

	// CostTotal is material plus labor.
	CostTotal float64
	FinalBid  float64

	Entities []EntitySummary

	// AuditEntries is the audit window of the bid. Violation and override
	// counts are taken from it and nowhere else.
	AuditEntries []audit.Entry
}

// Contribution is one additive term of a risk score.
type Contribution struct {
	Name   string  `json:"name"`
	Points float64 `json:"points"`
	Detail string  `json:"detail,omitempty"`
}

// Profile is the assessed risk of a bid.
type Profile struct {
	Score         float64        `json:"score"`
	Level         Level          `json:"level"`
	Margin        float64        `json:"margin"`
	Flags         []string       `json:"flags"`
	Contributions []Contribution `json:"contributions"`
	VagueTerms    []string       `json:"vague_terms,omitempty"`
}

// HasFlag reports whether flag was raised.
func (p *Profile) HasFlag(flag string) bool {
	for _, f := range p.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Contribution returns the points contributed by name.
func (p *Profile) Contribution(name string) float64 {
	for _, c := range p.Contributions {
		if c.Name == name {
			return c.Points
		}
	}
	return 0
}

// InvalidInputError reports a bid context that cannot be assessed.
type InvalidInputError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid risk input: %s: %s", e.Field, e.Message)
}
