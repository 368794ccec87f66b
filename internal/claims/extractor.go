package claims

import (
	"strconv"
	"strings"

	"github.com/claimpipe/claimpipe/internal/event"
)

// Extractor runs the commitment rules against events. It has no state of its
// own; the per-actor commitment memory is passed in explicitly by the caller,
// which also owns its lifetime.
type Extractor struct {
	matcher *Matcher
}

func NewExtractor(m *Matcher) *Extractor {
	return &Extractor{matcher: m}
}

// Extract scans the event text and returns zero or more claims. A commitment
// hit always records itself into mem for the (actor, verb) key, overwriting
// whatever was there; when the previous and new commitment both carry a due
// date and the dates differ, a contradiction claim is emitted alongside.
//
// Extract is deliberately not idempotent over a live memory: replaying the
// same event mutates the key again and suppresses the contradiction a second
// run would otherwise report.
func (e *Extractor) Extract(ev event.Event, mem *Memory) []Claim {
	if ev.Message.From.ID == 0 {
		return nil
	}
	actor := strconv.FormatInt(ev.Message.From.ID, 10)

	hit, ok := e.matcher.Match(ev.Message.Text)
	if !ok {
		return nil
	}

	now := Commitment{Verb: hit.Verb, Due: hit.Due, Text: ev.Message.Text}
	claims := []Claim{{Type: TypeCommitment, Payload: now}}

	prev, had := mem.Get(actor, hit.Verb)
	mem.Put(actor, hit.Verb, now)

	if had && prev.Due != "" && now.Due != "" && !strings.EqualFold(prev.Due, now.Due) {
		claims = append(claims, Claim{
			Type:    TypeContradiction,
			Payload: Contradiction{Target: "commitment_due", Prev: prev, Now: now},
		})
	}

	return claims
}
