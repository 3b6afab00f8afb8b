package lineage

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	auditmodel "github.com/openbanking-labs/consent-admin-api/internal/audit/model"
	"github.com/openbanking-labs/consent-admin-api/internal/consent/model"
)

// AuditLookup fetches the audit history of one consent record, assumed to be
// in chronological order.
type AuditLookup func(ctx context.Context, consentID string) ([]auditmodel.AuditEvent, error)

// Backfiller resolves missing creation timestamps from audit history.
type Backfiller struct {
	lookup      AuditLookup
	concurrency int
	logger      *logrus.Logger
}

func NewBackfiller(lookup AuditLookup, concurrency int, logger *logrus.Logger) *Backfiller {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Backfiller{lookup: lookup, concurrency: concurrency, logger: logger}
}

// BackfillCreatedAt resolves creation timestamps for records whose
// normalized createdAt is absent. Cache entries pass through untouched and
// suppress the audit lookup, making repeated calls cheap and idempotent.
//
// Lookups fan out concurrently; a failed lookup is logged and skipped so the
// batch always returns partial results. Each record id writes to a distinct
// key of the result map.
func (b *Backfiller) BackfillCreatedAt(ctx context.Context, records []model.ConsentRecord, cache map[string]string) map[string]string {
	resolved := make(map[string]string)
	for id, ts := range cache {
		resolved[id] = ts
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	seen := make(map[string]bool)
	for _, record := range records {
		if record.CreatedAt != "" || record.ID == "" {
			continue
		}
		if _, ok := resolved[record.ID]; ok {
			continue
		}
		if seen[record.ID] {
			continue
		}
		seen[record.ID] = true

		consentID := record.ID
		g.Go(func() error {
			events, err := b.lookup(ctx, consentID)
			if err != nil {
				if b.logger != nil {
					b.logger.WithError(err).WithField("consent_id", consentID).
						Warn("Audit lookup failed during timestamp backfill")
				}
				return nil
			}
			ts, ok := grantTimestamp(events)
			if !ok {
				return nil
			}
			mu.Lock()
			resolved[consentID] = ts
			mu.Unlock()
			return nil
		})
	}

	// Workers never return errors; Wait only orders the map writes.
	_ = g.Wait()
	return resolved
}

// grantTimestamp selects the creation timestamp from an audit history:
// the first event whose action contains "grant", else the first event in
// the (chronological) list. An empty history resolves nothing.
func grantTimestamp(events []auditmodel.AuditEvent) (string, bool) {
	for _, ev := range events {
		if ev.IsGrant() && ev.Timestamp != "" {
			return ev.Timestamp, true
		}
	}
	for _, ev := range events {
		if ev.Timestamp != "" {
			return ev.Timestamp, true
		}
	}
	return "", false
}
