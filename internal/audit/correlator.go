package audit

import (
	"github.com/openbanking-labs/consent-admin-api/internal/consent/model"
)

// KeyKind names which identifier a correlation key is built from.
type KeyKind string

const (
	KeyKindApplication KeyKind = "application"
	KeyKindMobile      KeyKind = "mobile"
	KeyKindConsent     KeyKind = "consent"
)

// CorrelationKey is the identifier used to fetch audit events related to a
// consent record, plus which kind of identifier was chosen. The kind feeds
// operator-facing messages ("loaded N events for application X").
type CorrelationKey struct {
	Kind  KeyKind `json:"kind"`
	Value string  `json:"value"`
}

// ChooseCorrelationKey picks the audit-correlation key for a record.
//
// Application number wins when present: it groups all channels and attempts
// of one business transaction even when mobile numbers were mistyped. The
// mobile number is next, and the record's own id is the final fallback,
// narrowing the view to exactly one record's history. The id is mandatory,
// so the fallback always yields a usable key.
func ChooseCorrelationKey(record model.ConsentRecord) CorrelationKey {
	if record.ApplicationNumber != "" {
		return CorrelationKey{Kind: KeyKindApplication, Value: record.ApplicationNumber}
	}
	if record.MobileNumber != "" {
		return CorrelationKey{Kind: KeyKindMobile, Value: record.MobileNumber}
	}
	return CorrelationKey{Kind: KeyKindConsent, Value: record.ID}
}
