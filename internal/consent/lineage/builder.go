package lineage

import (
	"sort"
	"strings"

	"github.com/openbanking-labs/consent-admin-api/internal/consent/model"
)

// GroupKey identifies one logical subject-relationship lineage.
//
// Note: the key deliberately omits subjectId, matching the production
// grouping rule. Two subjects sharing an application number merge into one
// chain; pending product clarification whether that is intended.
type GroupKey string

const keySeparator = "||"

// KeyFor builds the lineage group key for a record. Missing components
// degrade to the empty string rather than erroring.
func KeyFor(r model.ConsentRecord) GroupKey {
	return GroupKey(strings.Join([]string{
		r.ApplicationNumber,
		r.ProductID,
		r.Purpose,
		r.TemplateType,
	}, keySeparator))
}

// Chain is the ordered version history of one lineage group.
type Chain struct {
	Key          GroupKey              `json:"key"`
	Records      []model.ConsentRecord `json:"records"`
	CurrentID    string                `json:"currentId,omitempty"`
	FullyRevoked bool                  `json:"fullyRevoked"`
}

// Result is the output of BuildLineages.
type Result struct {
	Chains       []Chain             `json:"chains"`
	CurrentByKey map[GroupKey]string `json:"currentByKey"`
}

// BuildLineages groups consent records into version chains and flags the
// current record of each chain. Records without an application number have
// no stable group key and are skipped; they still appear in plain listings.
//
// The function is pure and deterministic: any permutation of the input
// produces identical chains and identical current-record selection.
func BuildLineages(records []model.ConsentRecord) Result {
	groups := make(map[GroupKey][]model.ConsentRecord)
	for _, r := range records {
		if r.ApplicationNumber == "" {
			continue
		}
		key := KeyFor(r)
		groups[key] = append(groups[key], r)
	}

	result := Result{
		Chains:       make([]Chain, 0, len(groups)),
		CurrentByKey: make(map[GroupKey]string, len(groups)),
	}

	keys := make([]GroupKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, key := range keys {
		chain := groups[key]
		sortChain(chain)

		currentID := ""
		for i := len(chain) - 1; i >= 0; i-- {
			if !chain[i].Revoked() {
				currentID = chain[i].ID
				break
			}
		}

		if currentID != "" {
			result.CurrentByKey[key] = currentID
		}
		result.Chains = append(result.Chains, Chain{
			Key:          key,
			Records:      chain,
			CurrentID:    currentID,
			FullyRevoked: currentID == "",
		})
	}

	return result
}

// sortChain orders a chain by template version ascending, tie-broken by the
// ISO createdAt string. Normalized timestamps are ISO-8601, so lexicographic
// comparison is chronological. The sort is stable: records with equal keys
// keep their relative input order.
func sortChain(chain []model.ConsentRecord) {
	sort.SliceStable(chain, func(i, j int) bool {
		if chain[i].TemplateVersion != chain[j].TemplateVersion {
			return chain[i].TemplateVersion < chain[j].TemplateVersion
		}
		return chain[i].CreatedAt < chain[j].CreatedAt
	})
}
