package bid

import (
	"time"

	"mercator-hq/bidguard/pkg/policy"
	"mercator-hq/bidguard/pkg/rating"
	"mercator-hq/bidguard/pkg/risk"
)

// Bid is one bid to evaluate. It is usually read from a YAML file.
type Bid struct {
	// ID identifies the bid in the audit log. A uuid is assigned when empty.
	ID string `yaml:"id" json:"id" validate:"omitempty,max=128,printascii"`

	Participants []Participant `yaml:"participants" json:"participants" validate:"required,min=1,dive"`
	Totals       Totals        `yaml:"totals" json:"totals"`
	ScopeText    string        `yaml:"scope" json:"scope"`
}

// Participant is an entity taking part in a bid.
type Participant struct {
	Name          string        `yaml:"name" json:"name" validate:"required,max=512"`
	Category      string        `yaml:"category" json:"category" validate:"required,category"`
	QuotedPrice   float64       `yaml:"quoted_price" json:"quoted_price" validate:"gte=0"`
	BaselinePrice float64       `yaml:"baseline_price" json:"baseline_price" validate:"gt=0"`
	ReplyLatency  time.Duration `yaml:"reply_latency" json:"reply_latency" validate:"gte=0"`

	BypassReason string `yaml:"bypass_reason,omitempty" json:"bypass_reason,omitempty" validate:"max=4096"`
	AuthorizedBy string `yaml:"authorized_by,omitempty" json:"authorized_by,omitempty" validate:"max=256"`

	AlignmentDelta     float64 `yaml:"alignment_delta,omitempty" json:"alignment_delta,omitempty"`
	ConfirmedViolation bool    `yaml:"confirmed_violation,omitempty" json:"confirmed_violation,omitempty"`
}

// Totals are the bid's cost and price.
type Totals struct {
	// MaterialLabor is the cost of materials plus labor.
	MaterialLabor float64 `yaml:"material_labor" json:"material_labor" validate:"gte=0"`
	FinalBid      float64 `yaml:"final_bid" json:"final_bid" validate:"gt=0"`
}

// ParticipantRating is the rating outcome of one allowed participant.
type ParticipantRating struct {
	Name   string         `json:"name"`
	Result *rating.Result `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Outcome is the result of running a bid.
type Outcome struct {
	BidID     string              `json:"bid_id"`
	Decisions []policy.Decision   `json:"decisions"`
	Ratings   []ParticipantRating `json:"ratings,omitempty"`
	Risk      *risk.Profile       `json:"risk,omitempty"`

	Halted     bool   `json:"halted"`
	HaltReason string `json:"halt_reason,omitempty"`

	Duration time.Duration `json:"duration"`
}
