package lineage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbanking-labs/consent-admin-api/internal/consent/model"
)

func record(id, app, product, purpose, templateType string, version int, status, createdAt string) model.ConsentRecord {
	return model.ConsentRecord{
		ID:                id,
		ApplicationNumber: app,
		ProductID:         product,
		Purpose:           purpose,
		TemplateType:      templateType,
		TemplateVersion:   version,
		Status:            status,
		CreatedAt:         createdAt,
	}
}

func TestKeyFor(t *testing.T) {
	r := record("c-1", "APP-1", "loan", "marketing", "tnc", 1, model.StatusGranted, "")
	assert.Equal(t, GroupKey("APP-1||loan||marketing||tnc"), KeyFor(r))

	missing := record("c-2", "APP-1", "", "marketing", "", 1, model.StatusGranted, "")
	assert.Equal(t, GroupKey("APP-1||||marketing||"), KeyFor(missing))
}

func TestBuildLineagesOrdersByVersionThenCreatedAt(t *testing.T) {
	records := []model.ConsentRecord{
		record("v2", "APP-1", "loan", "marketing", "tnc", 2, model.StatusGranted, "2024-01-03T00:00:00Z"),
		record("v1a", "APP-1", "loan", "marketing", "tnc", 1, model.StatusRevoked, "2024-01-01T00:00:00Z"),
		record("v3", "APP-1", "loan", "marketing", "tnc", 3, model.StatusGranted, "2024-01-04T00:00:00Z"),
		record("v1b", "APP-1", "loan", "marketing", "tnc", 1, model.StatusRevoked, "2024-01-02T00:00:00Z"),
	}

	result := BuildLineages(records)
	require.Len(t, result.Chains, 1)

	chain := result.Chains[0]
	ids := make([]string, 0, len(chain.Records))
	for _, r := range chain.Records {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"v1a", "v1b", "v2", "v3"}, ids)
	assert.Equal(t, "v3", chain.CurrentID)
	assert.False(t, chain.FullyRevoked)
	assert.Equal(t, "v3", result.CurrentByKey[chain.Key])
}

func TestBuildLineagesIsPermutationStable(t *testing.T) {
	base := []model.ConsentRecord{
		record("a", "APP-1", "loan", "marketing", "tnc", 1, model.StatusRevoked, "2024-01-01T00:00:00Z"),
		record("b", "APP-1", "loan", "marketing", "tnc", 2, model.StatusGranted, "2024-01-02T00:00:00Z"),
		record("c", "APP-2", "card", "scoring", "tnc", 1, model.StatusGranted, "2024-01-03T00:00:00Z"),
	}

	expected := BuildLineages(base)

	permutations := [][]model.ConsentRecord{
		{base[2], base[0], base[1]},
		{base[1], base[2], base[0]},
		{base[2], base[1], base[0]},
	}
	for _, p := range permutations {
		assert.Equal(t, expected, BuildLineages(p))
	}
}

func TestBuildLineagesCurrentIsLastNonRevoked(t *testing.T) {
	records := []model.ConsentRecord{
		record("v1", "APP-1", "loan", "marketing", "tnc", 1, model.StatusGranted, "2024-01-01T00:00:00Z"),
		record("v2", "APP-1", "loan", "marketing", "tnc", 2, model.StatusGranted, "2024-01-02T00:00:00Z"),
		record("v3", "APP-1", "loan", "marketing", "tnc", 3, model.StatusRevoked, "2024-01-03T00:00:00Z"),
	}

	result := BuildLineages(records)
	require.Len(t, result.Chains, 1)
	assert.Equal(t, "v2", result.Chains[0].CurrentID)
}

func TestBuildLineagesFullyRevokedChain(t *testing.T) {
	records := []model.ConsentRecord{
		record("v1", "APP-1", "loan", "marketing", "tnc", 1, model.StatusRevoked, "2024-01-01T00:00:00Z"),
		record("v2", "APP-1", "loan", "marketing", "tnc", 2, model.StatusRevoked, "2024-01-02T00:00:00Z"),
	}

	result := BuildLineages(records)
	require.Len(t, result.Chains, 1)
	assert.Empty(t, result.Chains[0].CurrentID)
	assert.True(t, result.Chains[0].FullyRevoked)
	assert.Empty(t, result.CurrentByKey)
}

func TestBuildLineagesSkipsRecordsWithoutApplicationNumber(t *testing.T) {
	records := []model.ConsentRecord{
		record("orphan", "", "loan", "marketing", "tnc", 1, model.StatusGranted, "2024-01-01T00:00:00Z"),
		record("kept", "APP-1", "loan", "marketing", "tnc", 1, model.StatusGranted, "2024-01-02T00:00:00Z"),
	}

	result := BuildLineages(records)
	require.Len(t, result.Chains, 1)
	require.Len(t, result.Chains[0].Records, 1)
	assert.Equal(t, "kept", result.Chains[0].Records[0].ID)
}

func TestBuildLineagesSeparatesGroupsByKey(t *testing.T) {
	records := []model.ConsentRecord{
		record("a", "APP-1", "loan", "marketing", "tnc", 1, model.StatusGranted, "2024-01-01T00:00:00Z"),
		record("b", "APP-1", "loan", "scoring", "tnc", 1, model.StatusGranted, "2024-01-02T00:00:00Z"),
		record("c", "APP-2", "loan", "marketing", "tnc", 1, model.StatusGranted, "2024-01-03T00:00:00Z"),
	}

	result := BuildLineages(records)
	assert.Len(t, result.Chains, 3)
}
