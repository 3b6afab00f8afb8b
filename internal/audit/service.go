package audit

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/openbanking-labs/consent-admin-api/internal/audit/model"
	consentmodel "github.com/openbanking-labs/consent-admin-api/internal/consent/model"
	"github.com/openbanking-labs/consent-admin-api/internal/export"
	"github.com/openbanking-labs/consent-admin-api/internal/system/error/serviceerror"
	"github.com/openbanking-labs/consent-admin-api/internal/upstream"
)

// ConsentAuditResult is the audit view of one consent record: the events
// fetched under the chosen correlation key, plus an operator-facing summary
// naming which identifier was used.
type ConsentAuditResult struct {
	Key     CorrelationKey     `json:"key"`
	Events  []model.AuditEvent `json:"events"`
	Message string             `json:"message"`
}

// AuditService defines the exported service interface
type AuditService interface {
	EventsForConsent(ctx context.Context, sessionID, consentID string) (*ConsentAuditResult, *serviceerror.ServiceError)
	GlobalEvents(ctx context.Context, criteria Criteria) ([]model.AuditEvent, *serviceerror.ServiceError)
	ExportCSV(ctx context.Context, criteria Criteria) (string, *serviceerror.ServiceError)
}

// auditService implements the AuditService interface
type auditService struct {
	events  upstream.AuditSource
	records upstream.RecordSource
	logger  *logrus.Logger

	// seqs guards per-consent audit views against stale responses: a slow
	// fetch finishing after a newer one from the same viewer session is
	// discarded, never rendered. Sessions never supersede each other.
	seqs *sequenceRegistry
}

func newAuditService(events upstream.AuditSource, records upstream.RecordSource, logger *logrus.Logger) AuditService {
	return &auditService{events: events, records: records, logger: logger, seqs: newSequenceRegistry()}
}

// EventsForConsent resolves the record's correlation key and fetches the
// related audit trail under it. The session id scopes the stale-response
// guard to the calling viewer session.
func (s *auditService) EventsForConsent(ctx context.Context, sessionID, consentID string) (*ConsentAuditResult, *serviceerror.ServiceError) {
	record, serviceErr := s.findRecord(ctx, consentID)
	if serviceErr != nil {
		return nil, serviceErr
	}

	key := ChooseCorrelationKey(*record)
	seq := s.seqs.forSession(sessionID)
	token := seq.Next()

	events, err := s.fetchByKey(ctx, key)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.UpstreamError, fmt.Sprintf("failed to load audit events: %v", err))
	}

	if !seq.Current(token) {
		s.logger.WithFields(logrus.Fields{
			"consent_id": consentID,
			"session_id": sessionID,
			"token":      token,
		}).Debug("Discarding superseded audit response")
		return nil, serviceerror.CustomServiceError(serviceerror.SupersededError, "a newer audit request superseded this one")
	}

	return &ConsentAuditResult{
		Key:     key,
		Events:  events,
		Message: fmt.Sprintf("loaded %d events for %s %s", len(events), key.Kind, key.Value),
	}, nil
}

// GlobalEvents fetches the full audit stream and applies the criteria.
func (s *auditService) GlobalEvents(ctx context.Context, criteria Criteria) ([]model.AuditEvent, *serviceerror.ServiceError) {
	events, err := s.events.ListAll(ctx)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.UpstreamError, fmt.Sprintf("failed to load audit events: %v", err))
	}

	if criteria.IsZero() {
		return events, nil
	}

	// Product and purpose predicates may need values the events themselves
	// lack, so pull the record index only when those predicates are set.
	var recordsByID map[string]consentmodel.ConsentRecord
	if criteria.Product != "" || criteria.Purpose != "" {
		records, err := s.records.ListConsents(ctx, "")
		if err != nil {
			s.logger.WithError(err).Warn("Record lookup for audit filtering failed, filtering on event fields only")
		} else {
			recordsByID = make(map[string]consentmodel.ConsentRecord, len(records))
			for _, r := range records {
				recordsByID[r.ID] = r
			}
		}
	}

	return FilterEvents(events, criteria, recordsByID), nil
}

// ExportCSV serializes the filtered audit stream to CSV. An empty result is
// an error so the caller never serves an empty download.
func (s *auditService) ExportCSV(ctx context.Context, criteria Criteria) (string, *serviceerror.ServiceError) {
	events, serviceErr := s.GlobalEvents(ctx, criteria)
	if serviceErr != nil {
		return "", serviceErr
	}
	if len(events) == 0 {
		return "", serviceerror.CustomServiceError(serviceerror.ResourceNotFoundError, "no matching audit events found for the selected filters")
	}
	return export.ToCSV(export.EventRows(events), export.EventHeaders), nil
}

// findRecord locates a consent record by id. The backend has no lookup by
// id, so the listing is scanned.
func (s *auditService) findRecord(ctx context.Context, consentID string) (*consentmodel.ConsentRecord, *serviceerror.ServiceError) {
	records, err := s.records.ListConsents(ctx, "")
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.UpstreamError, fmt.Sprintf("failed to list consents: %v", err))
	}
	for _, r := range records {
		if r.ID == consentID {
			return &r, nil
		}
	}
	return nil, serviceerror.CustomServiceError(serviceerror.ResourceNotFoundError, "consent not found")
}

func (s *auditService) fetchByKey(ctx context.Context, key CorrelationKey) ([]model.AuditEvent, error) {
	switch key.Kind {
	case KeyKindApplication:
		return s.events.ListByApplication(ctx, key.Value)
	case KeyKindMobile:
		return s.events.ListByMobile(ctx, key.Value)
	default:
		return s.events.ListByConsent(ctx, key.Value)
	}
}
