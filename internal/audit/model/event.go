package model

import (
	"encoding/json"
	"strings"
)

// AuditEvent is the canonical audit event shape. Events are immutable and
// ordered by timestamp; the gateway only reads and filters them.
type AuditEvent struct {
	ID                string `json:"id,omitempty"`
	ConsentID         string `json:"consentId,omitempty"`
	Timestamp         string `json:"timestamp,omitempty"`
	Action            string `json:"action,omitempty"`
	Actor             string `json:"actor,omitempty"`
	ActorType         string `json:"actorType,omitempty"`
	SourceChannel     string `json:"sourceChannel,omitempty"`
	ProductID         string `json:"productId,omitempty"`
	Purpose           string `json:"purpose,omitempty"`
	ApplicationNumber string `json:"applicationNumber,omitempty"`
	MobileNumber      string `json:"mobileNumber,omitempty"`
	TenantID          string `json:"tenantId,omitempty"`
	Details           string `json:"details,omitempty"`
}

// IsGrant reports whether the event records a grant transition. The action
// field is free text, so a case-insensitive substring check is used.
func (e AuditEvent) IsGrant() bool {
	return strings.Contains(strings.ToLower(e.Action), "grant")
}

// rawEvent carries every historical spelling the audit log has used.
type rawEvent struct {
	ID                string `json:"id"`
	ConsentID         string `json:"consent_id"`
	ConsentIDCamel    string `json:"consentId"`
	Timestamp         string `json:"timestamp"`
	CreatedAt         string `json:"created_at"`
	CreatedAtCamel    string `json:"createdAt"`
	EventTime         string `json:"event_time"`
	EventTimeCamel    string `json:"eventTime"`
	Action            string `json:"action"`
	EventType         string `json:"event_type"`
	Type              string `json:"type"`
	Actor             string `json:"actor"`
	ActorType         string `json:"actor_type"`
	ActorTypeCamel    string `json:"actorType"`
	SourceChannel     string `json:"source_channel"`
	Channel           string `json:"channel"`
	ProductID         string `json:"product_id"`
	ProductIDCamel    string `json:"productId"`
	Purpose           string `json:"purpose"`
	DataUseCase       string `json:"data_use_case"`
	UseCase           string `json:"use_case"`
	ApplicationNumber string `json:"application_number"`
	MobileNumber      string `json:"mobile_number"`
	MSISDN            string `json:"msisdn"`
	TenantID          string `json:"tenant_id"`
	Details           any    `json:"details"`
}

func (raw rawEvent) normalize() AuditEvent {
	return AuditEvent{
		ID:                raw.ID,
		ConsentID:         firstNonEmpty(raw.ConsentID, raw.ConsentIDCamel),
		Timestamp:         firstNonEmpty(raw.Timestamp, raw.CreatedAt, raw.CreatedAtCamel, raw.EventTime, raw.EventTimeCamel),
		Action:            firstNonEmpty(raw.Action, raw.EventType, raw.Type),
		Actor:             raw.Actor,
		ActorType:         firstNonEmpty(raw.ActorType, raw.ActorTypeCamel),
		SourceChannel:     firstNonEmpty(raw.SourceChannel, raw.Channel),
		ProductID:         firstNonEmpty(raw.ProductID, raw.ProductIDCamel),
		Purpose:           firstNonEmpty(raw.Purpose, raw.DataUseCase, raw.UseCase),
		ApplicationNumber: raw.ApplicationNumber,
		MobileNumber:      firstNonEmpty(raw.MobileNumber, raw.MSISDN),
		TenantID:          raw.TenantID,
		Details:           detailsText(raw.Details),
	}
}

// DecodeEvents decodes an upstream audit listing into canonical events,
// preserving order.
func DecodeEvents(data []byte) ([]AuditEvent, error) {
	var raws []rawEvent
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, err
	}
	events := make([]AuditEvent, 0, len(raws))
	for _, raw := range raws {
		events = append(events, raw.normalize())
	}
	return events, nil
}

// detailsText flattens the opaque details payload to text. Structured
// payloads are re-encoded as compact JSON, string payloads pass through.
func detailsText(details any) string {
	switch d := details.(type) {
	case nil:
		return ""
	case string:
		return d
	default:
		encoded, err := json.Marshal(d)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
