package audit

import (
	"strings"
	"time"

	"github.com/openbanking-labs/consent-admin-api/internal/audit/model"
	consentmodel "github.com/openbanking-labs/consent-admin-api/internal/consent/model"
	"github.com/openbanking-labs/consent-admin-api/internal/system/utils"
)

// Criteria is a set of optional predicates over an audit event stream.
// Empty fields always pass; all set predicates must hold (AND).
type Criteria struct {
	Product       string `form:"product" json:"product"`
	Purpose       string `form:"purpose" json:"purpose"`
	SourceChannel string `form:"sourceChannel" json:"sourceChannel"`
	ActorType     string `form:"actorType" json:"actorType"`
	EventType     string `form:"eventType" json:"eventType"`
	Mobile        string `form:"mobile" json:"mobile"`
	From          string `form:"from" json:"from"`
	To            string `form:"to" json:"to"`
}

// IsZero reports whether no predicate is set.
func (c Criteria) IsZero() bool {
	return c == Criteria{}
}

// dateRange is the parsed form of the From/To bounds. Unparseable bounds
// are treated as unset rather than erroring.
type dateRange struct {
	from    time.Time
	to      time.Time
	hasFrom bool
	hasTo   bool
}

func (c Criteria) parseRange() dateRange {
	var r dateRange
	if t, ok := utils.ParseTimestamp(c.From); ok {
		r.from, r.hasFrom = t, true
	}
	if t, ok := utils.ParseTimestamp(c.To); ok {
		// Inclusive upper bound: extend to the end of that calendar day.
		r.to, r.hasTo = utils.EndOfDay(t), true
	}
	return r
}

func (r dateRange) active() bool {
	return r.hasFrom || r.hasTo
}

func (r dateRange) contains(t time.Time) bool {
	if r.hasFrom && t.Before(r.from) {
		return false
	}
	if r.hasTo && t.After(r.to) {
		return false
	}
	return true
}

// FilterEvents applies the criteria to an event stream. Product and purpose
// are resolved from the event first; events referencing a known consent
// record may be sparser than the record, so missing values are backfilled
// from recordsByID before the predicates run.
//
// The filter is pure and stable: output preserves relative input order, and
// filtering twice with the same criteria is a no-op on the second pass.
func FilterEvents(events []model.AuditEvent, criteria Criteria, recordsByID map[string]consentmodel.ConsentRecord) []model.AuditEvent {
	window := criteria.parseRange()
	mobileNeedle := strings.ToLower(criteria.Mobile)

	filtered := make([]model.AuditEvent, 0, len(events))
	for _, ev := range events {
		product, purpose := ev.ProductID, ev.Purpose
		if product == "" || purpose == "" {
			if rec, ok := recordsByID[ev.ConsentID]; ok && ev.ConsentID != "" {
				if product == "" {
					product = rec.ProductID
				}
				if purpose == "" {
					purpose = rec.Purpose
				}
			}
		}

		if criteria.Product != "" && product != criteria.Product {
			continue
		}
		if criteria.Purpose != "" && purpose != criteria.Purpose {
			continue
		}
		if criteria.SourceChannel != "" && ev.SourceChannel != criteria.SourceChannel {
			continue
		}
		if criteria.ActorType != "" && ev.ActorType != criteria.ActorType {
			continue
		}
		if criteria.EventType != "" && ev.Action != criteria.EventType {
			continue
		}
		if mobileNeedle != "" && !strings.Contains(strings.ToLower(ev.MobileNumber), mobileNeedle) {
			continue
		}
		if window.active() {
			ts, ok := utils.ParseTimestamp(ev.Timestamp)
			if !ok || !window.contains(ts) {
				continue
			}
		}

		filtered = append(filtered, ev)
	}
	return filtered
}
