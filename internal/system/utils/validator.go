package utils

import "fmt"

// ValidateRequired validates a field is not empty
func ValidateRequired(fieldName, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateConsentID validates a consent record identifier. Upstream ids are
// opaque strings, so only presence and length are checked.
func ValidateConsentID(consentID string) error {
	if err := ValidateRequired("consentId", consentID); err != nil {
		return err
	}
	if len(consentID) > 100 {
		return fmt.Errorf("consent ID too long (max 100 chars)")
	}
	return nil
}
