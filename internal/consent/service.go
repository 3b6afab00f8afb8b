package consent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/openbanking-labs/consent-admin-api/internal/consent/lineage"
	"github.com/openbanking-labs/consent-admin-api/internal/consent/model"
	"github.com/openbanking-labs/consent-admin-api/internal/export"
	"github.com/openbanking-labs/consent-admin-api/internal/system/error/serviceerror"
	"github.com/openbanking-labs/consent-admin-api/internal/system/utils"
	"github.com/openbanking-labs/consent-admin-api/internal/upstream"
)

// ConsentService defines the exported service interface
type ConsentService interface {
	ListConsents(ctx context.Context, subjectID string) ([]model.ConsentRecord, *serviceerror.ServiceError)
	GetLineages(ctx context.Context, subjectID string) (*lineage.Result, *serviceerror.ServiceError)
	Grant(ctx context.Context, req upstream.GrantRequest) (*model.ConsentRecord, *serviceerror.ServiceError)
	Revoke(ctx context.Context, consentID string) (*model.ConsentRecord, *serviceerror.ServiceError)
	ExportCSV(ctx context.Context, subjectID, from, to string) (string, *serviceerror.ServiceError)
}

// consentService implements the ConsentService interface
type consentService struct {
	records    upstream.RecordSource
	backfiller *lineage.Backfiller
	logger     *logrus.Logger

	// cache holds creation timestamps already recovered from audit
	// history, keyed by record id, so repeated listings do not re-query
	// audit for the same record.
	mu    sync.Mutex
	cache map[string]string
}

func newConsentService(records upstream.RecordSource, backfiller *lineage.Backfiller, logger *logrus.Logger) ConsentService {
	return &consentService{
		records:    records,
		backfiller: backfiller,
		logger:     logger,
		cache:      make(map[string]string),
	}
}

// ListConsents fetches the subject's records and patches missing creation
// times from audit history before returning them.
func (s *consentService) ListConsents(ctx context.Context, subjectID string) ([]model.ConsentRecord, *serviceerror.ServiceError) {
	records, err := s.records.ListConsents(ctx, subjectID)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.UpstreamError, fmt.Sprintf("failed to list consents: %v", err))
	}

	resolved := s.backfiller.BackfillCreatedAt(ctx, records, s.cacheSnapshot())
	s.mergeCache(resolved)

	for i := range records {
		if records[i].CreatedAt == "" {
			if ts, ok := resolved[records[i].ID]; ok {
				records[i].CreatedAt = ts
			}
		}
	}

	s.logger.WithFields(logrus.Fields{
		"subject_id": subjectID,
		"count":      len(records),
	}).Debug("Listed consent records")

	return records, nil
}

// GetLineages builds version chains over the subject's backfilled records.
func (s *consentService) GetLineages(ctx context.Context, subjectID string) (*lineage.Result, *serviceerror.ServiceError) {
	records, serviceErr := s.ListConsents(ctx, subjectID)
	if serviceErr != nil {
		return nil, serviceErr
	}
	result := lineage.BuildLineages(records)
	return &result, nil
}

// Grant proxies a consent creation to the backend.
func (s *consentService) Grant(ctx context.Context, req upstream.GrantRequest) (*model.ConsentRecord, *serviceerror.ServiceError) {
	if err := utils.ValidateRequired("subject_id", req.SubjectID); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}
	if err := utils.ValidateRequired("purpose", req.Purpose); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}

	record, err := s.records.Grant(ctx, req)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.UpstreamError, fmt.Sprintf("grant failed: %v", err))
	}

	s.logger.WithFields(logrus.Fields{
		"consent_id": record.ID,
		"subject_id": record.SubjectID,
	}).Info("Consent granted")

	return &record, nil
}

// Revoke proxies a consent revocation to the backend.
func (s *consentService) Revoke(ctx context.Context, consentID string) (*model.ConsentRecord, *serviceerror.ServiceError) {
	if err := utils.ValidateConsentID(consentID); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}

	record, err := s.records.Revoke(ctx, consentID)
	if err != nil {
		var statusErr *upstream.StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			return nil, serviceerror.CustomServiceError(serviceerror.ResourceNotFoundError, "consent not found")
		}
		return nil, serviceerror.CustomServiceError(serviceerror.UpstreamError, fmt.Sprintf("revoke failed: %v", err))
	}

	s.logger.WithField("consent_id", record.ID).Info("Consent revoked")

	return &record, nil
}

// ExportCSV serializes the subject's records to CSV, optionally restricted
// to an inclusive creation-date range.
func (s *consentService) ExportCSV(ctx context.Context, subjectID, from, to string) (string, *serviceerror.ServiceError) {
	records, serviceErr := s.ListConsents(ctx, subjectID)
	if serviceErr != nil {
		return "", serviceErr
	}

	records = filterByCreatedAt(records, from, to)
	if len(records) == 0 {
		return "", serviceerror.CustomServiceError(serviceerror.ResourceNotFoundError, "no matching consents found for the selected filters")
	}

	return export.ToCSV(export.RecordRows(records), export.RecordHeaders), nil
}

// filterByCreatedAt keeps records whose creation time falls within the
// inclusive [from, to] range. Unparseable bounds are ignored; records with
// unresolved timestamps are excluded only when a bound is active.
func filterByCreatedAt(records []model.ConsentRecord, from, to string) []model.ConsentRecord {
	fromTime, hasFrom := utils.ParseTimestamp(from)
	toTime, hasTo := utils.ParseTimestamp(to)
	if !hasFrom && !hasTo {
		return records
	}
	if hasTo {
		toTime = utils.EndOfDay(toTime)
	}

	kept := make([]model.ConsentRecord, 0, len(records))
	for _, r := range records {
		ts, ok := utils.ParseTimestamp(r.CreatedAt)
		if !ok {
			continue
		}
		if hasFrom && ts.Before(fromTime) {
			continue
		}
		if hasTo && ts.After(toTime) {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

func (s *consentService) cacheSnapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make(map[string]string, len(s.cache))
	for id, ts := range s.cache {
		snapshot[id] = ts
	}
	return snapshot
}

func (s *consentService) mergeCache(resolved map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ts := range resolved {
		s.cache[id] = ts
	}
}
