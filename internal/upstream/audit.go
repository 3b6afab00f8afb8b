package upstream

import (
	"context"
	"net/url"

	"github.com/openbanking-labs/consent-admin-api/internal/audit/model"
)

// AuditSource is the black-box audit event collaborator. The three keyed
// listings are mutually exclusive per call; which key to use is decided by
// the audit correlator, not here.
type AuditSource interface {
	ListByConsent(ctx context.Context, consentID string) ([]model.AuditEvent, error)
	ListByApplication(ctx context.Context, applicationNumber string) ([]model.AuditEvent, error)
	ListByMobile(ctx context.Context, mobileNumber string) ([]model.AuditEvent, error)
	ListAll(ctx context.Context) ([]model.AuditEvent, error)
}

type auditSource struct {
	client *Client
}

func NewAuditSource(client *Client) AuditSource {
	return &auditSource{client: client}
}

func (s *auditSource) ListByConsent(ctx context.Context, consentID string) ([]model.AuditEvent, error) {
	return s.list(ctx, "consent_id", consentID)
}

func (s *auditSource) ListByApplication(ctx context.Context, applicationNumber string) ([]model.AuditEvent, error) {
	return s.list(ctx, "application_number", applicationNumber)
}

func (s *auditSource) ListByMobile(ctx context.Context, mobileNumber string) ([]model.AuditEvent, error) {
	return s.list(ctx, "mobile_number", mobileNumber)
}

func (s *auditSource) ListAll(ctx context.Context) ([]model.AuditEvent, error) {
	return s.list(ctx, "", "")
}

func (s *auditSource) list(ctx context.Context, key, value string) ([]model.AuditEvent, error) {
	query := url.Values{}
	if key != "" {
		query.Set(key, value)
	}
	var events []model.AuditEvent
	err := s.client.getJSON(ctx, "/audit", query, func(data []byte) error {
		decoded, err := model.DecodeEvents(data)
		if err != nil {
			return err
		}
		events = decoded
		return nil
	})
	return events, err
}
