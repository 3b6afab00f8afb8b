package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openbanking-labs/consent-admin-api/internal/consent/model"
)

func TestChooseCorrelationKeyPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		record   model.ConsentRecord
		expected CorrelationKey
	}{
		{
			name:     "application number wins",
			record:   model.ConsentRecord{ID: "c-1", ApplicationNumber: "APP-1", MobileNumber: "0771234567"},
			expected: CorrelationKey{Kind: KeyKindApplication, Value: "APP-1"},
		},
		{
			name:     "mobile number when no application",
			record:   model.ConsentRecord{ID: "c-2", MobileNumber: "0771234567"},
			expected: CorrelationKey{Kind: KeyKindMobile, Value: "0771234567"},
		},
		{
			name:     "consent id as final fallback",
			record:   model.ConsentRecord{ID: "c-3"},
			expected: CorrelationKey{Kind: KeyKindConsent, Value: "c-3"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ChooseCorrelationKey(tc.record))
		})
	}
}
