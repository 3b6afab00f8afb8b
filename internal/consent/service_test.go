package consent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditmodel "github.com/openbanking-labs/consent-admin-api/internal/audit/model"
	"github.com/openbanking-labs/consent-admin-api/internal/consent/lineage"
	"github.com/openbanking-labs/consent-admin-api/internal/consent/model"
	"github.com/openbanking-labs/consent-admin-api/internal/system/error/serviceerror"
	"github.com/openbanking-labs/consent-admin-api/internal/upstream"
)

type fakeRecordSource struct {
	records   []model.ConsentRecord
	listErr   error
	granted   *model.ConsentRecord
	grantErr  error
	revoked   *model.ConsentRecord
	revokeErr error
}

func (f *fakeRecordSource) ListConsents(_ context.Context, _ string) ([]model.ConsentRecord, error) {
	return f.records, f.listErr
}

func (f *fakeRecordSource) Grant(_ context.Context, _ upstream.GrantRequest) (model.ConsentRecord, error) {
	if f.grantErr != nil {
		return model.ConsentRecord{}, f.grantErr
	}
	return *f.granted, nil
}

func (f *fakeRecordSource) Revoke(_ context.Context, _ string) (model.ConsentRecord, error) {
	if f.revokeErr != nil {
		return model.ConsentRecord{}, f.revokeErr
	}
	return *f.revoked, nil
}

func newTestService(records upstream.RecordSource, lookup lineage.AuditLookup) ConsentService {
	if lookup == nil {
		lookup = func(context.Context, string) ([]auditmodel.AuditEvent, error) {
			return nil, nil
		}
	}
	logger := logrus.New()
	return newConsentService(records, lineage.NewBackfiller(lookup, 2, logger), logger)
}

func TestListConsentsBackfillsMissingCreatedAt(t *testing.T) {
	source := &fakeRecordSource{records: []model.ConsentRecord{
		{ID: "c-1", CreatedAt: "2024-01-01T00:00:00Z"},
		{ID: "c-2"},
	}}
	lookup := func(_ context.Context, id string) ([]auditmodel.AuditEvent, error) {
		require.Equal(t, "c-2", id)
		return []auditmodel.AuditEvent{
			{Action: "CONSENT_GRANTED", Timestamp: "2024-02-01T09:00:00Z"},
		}, nil
	}

	service := newTestService(source, lookup)

	records, serviceErr := service.ListConsents(context.Background(), "s-1")
	require.Nil(t, serviceErr)
	require.Len(t, records, 2)
	assert.Equal(t, "2024-01-01T00:00:00Z", records[0].CreatedAt)
	assert.Equal(t, "2024-02-01T09:00:00Z", records[1].CreatedAt)
}

func TestListConsentsCachesBackfilledTimestamps(t *testing.T) {
	source := &fakeRecordSource{records: []model.ConsentRecord{{ID: "c-1"}}}
	var lookups atomic.Int32
	lookup := func(context.Context, string) ([]auditmodel.AuditEvent, error) {
		lookups.Add(1)
		return []auditmodel.AuditEvent{{Action: "grant", Timestamp: "2024-02-01T09:00:00Z"}}, nil
	}

	service := newTestService(source, lookup)

	_, serviceErr := service.ListConsents(context.Background(), "s-1")
	require.Nil(t, serviceErr)
	_, serviceErr = service.ListConsents(context.Background(), "s-1")
	require.Nil(t, serviceErr)

	assert.Equal(t, int32(1), lookups.Load())
}

func TestListConsentsUpstreamFailure(t *testing.T) {
	source := &fakeRecordSource{listErr: errors.New("backend down")}
	service := newTestService(source, nil)

	_, serviceErr := service.ListConsents(context.Background(), "s-1")
	require.NotNil(t, serviceErr)
	assert.Equal(t, serviceerror.UpstreamError.Code, serviceErr.Code)
}

func TestGetLineagesBuildsChains(t *testing.T) {
	source := &fakeRecordSource{records: []model.ConsentRecord{
		{ID: "v1", ApplicationNumber: "APP-1", ProductID: "loan", Purpose: "marketing", TemplateType: "tnc", TemplateVersion: 1, Status: model.StatusRevoked, CreatedAt: "2024-01-01T00:00:00Z"},
		{ID: "v2", ApplicationNumber: "APP-1", ProductID: "loan", Purpose: "marketing", TemplateType: "tnc", TemplateVersion: 2, Status: model.StatusGranted, CreatedAt: "2024-01-02T00:00:00Z"},
	}}

	service := newTestService(source, nil)

	result, serviceErr := service.GetLineages(context.Background(), "s-1")
	require.Nil(t, serviceErr)
	require.Len(t, result.Chains, 1)
	assert.Equal(t, "v2", result.Chains[0].CurrentID)
}

func TestGrantValidatesRequiredFields(t *testing.T) {
	service := newTestService(&fakeRecordSource{}, nil)

	_, serviceErr := service.Grant(context.Background(), upstream.GrantRequest{Purpose: "marketing"})
	require.NotNil(t, serviceErr)
	assert.Equal(t, serviceerror.ValidationError.Code, serviceErr.Code)

	_, serviceErr = service.Grant(context.Background(), upstream.GrantRequest{SubjectID: "s-1"})
	require.NotNil(t, serviceErr)
	assert.Equal(t, serviceerror.ValidationError.Code, serviceErr.Code)
}

func TestGrantReturnsCreatedRecord(t *testing.T) {
	source := &fakeRecordSource{granted: &model.ConsentRecord{ID: "c-new", SubjectID: "s-1"}}
	service := newTestService(source, nil)

	record, serviceErr := service.Grant(context.Background(), upstream.GrantRequest{SubjectID: "s-1", Purpose: "marketing"})
	require.Nil(t, serviceErr)
	assert.Equal(t, "c-new", record.ID)
}

func TestRevokeMapsUpstreamNotFound(t *testing.T) {
	source := &fakeRecordSource{revokeErr: &upstream.StatusError{Code: 404, Body: "gone"}}
	service := newTestService(source, nil)

	_, serviceErr := service.Revoke(context.Background(), "missing")
	require.NotNil(t, serviceErr)
	assert.Equal(t, serviceerror.ResourceNotFoundError.Code, serviceErr.Code)
}

func TestRevokeMapsWrappedUpstreamNotFound(t *testing.T) {
	wrapped := fmt.Errorf("revoke consent: %w", &upstream.StatusError{Code: 404, Body: "gone"})
	source := &fakeRecordSource{revokeErr: wrapped}
	service := newTestService(source, nil)

	_, serviceErr := service.Revoke(context.Background(), "missing")
	require.NotNil(t, serviceErr)
	assert.Equal(t, serviceerror.ResourceNotFoundError.Code, serviceErr.Code)
}

func TestRevokeOtherUpstreamFailuresStayServerErrors(t *testing.T) {
	source := &fakeRecordSource{revokeErr: errors.New("connection refused")}
	service := newTestService(source, nil)

	_, serviceErr := service.Revoke(context.Background(), "c-1")
	require.NotNil(t, serviceErr)
	assert.Equal(t, serviceerror.UpstreamError.Code, serviceErr.Code)
}

func TestExportCSVFiltersByDateRange(t *testing.T) {
	source := &fakeRecordSource{records: []model.ConsentRecord{
		{ID: "in", CreatedAt: "2024-03-05T23:59:59.999Z"},
		{ID: "out", CreatedAt: "2024-03-06T00:00:00.000Z"},
		{ID: "unresolved"},
	}}

	service := newTestService(source, nil)

	body, serviceErr := service.ExportCSV(context.Background(), "s-1", "2024-03-01", "2024-03-05")
	require.Nil(t, serviceErr)
	lines := strings.Split(body, "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "in,"))
}

func TestExportCSVEmptyResultIsNotFound(t *testing.T) {
	service := newTestService(&fakeRecordSource{}, nil)

	_, serviceErr := service.ExportCSV(context.Background(), "s-1", "", "")
	require.NotNil(t, serviceErr)
	assert.Equal(t, serviceerror.ResourceNotFoundError.Code, serviceErr.Code)
}
