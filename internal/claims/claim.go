// Package claims implements the rule-based claim extraction pass: it scans
// event text for commitment patterns, tracks the most recent commitment per
// (actor, verb) key, and emits contradiction claims when a new commitment
// disagrees with a prior one.
package claims

// Type classifies a derived claim. Only commitment and contradiction are
// produced by the rule engine; support and temporal are reserved.
type Type string

const (
	TypeCommitment    Type = "commitment"
	TypeContradiction Type = "contradiction"
	TypeSupport       Type = "support"
	TypeTemporal      Type = "temporal"
)

// Claim is a derived fact about an actor, produced while processing one
// event and persisted in the same transaction as that event.
type Claim struct {
	Type    Type `json:"type"`
	Payload any  `json:"payload"`
}

// Commitment is the payload of a commitment claim: a first-person statement
// of future action, optionally with a due date.
type Commitment struct {
	Verb string `json:"verb"`
	Due  string `json:"due,omitempty"`
	Text string `json:"text"`
}

// Contradiction pairs a prior commitment with a new one for the same
// (actor, verb) key whose due dates differ.
type Contradiction struct {
	Target string     `json:"target"`
	Prev   Commitment `json:"prev"`
	Now    Commitment `json:"now"`
}
