package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Consent record status values after normalization.
const (
	StatusGranted = "granted"
	StatusRevoked = "revoked"
)

// ConsentRecord is the canonical consent record shape. All downstream logic
// (lineage grouping, correlation, filtering, export) works on this shape
// only; variant upstream field names are folded in at the decode boundary.
type ConsentRecord struct {
	ID                string `json:"id"`
	SubjectID         string `json:"subjectId,omitempty"`
	ApplicationNumber string `json:"applicationNumber,omitempty"`
	MobileNumber      string `json:"mobileNumber,omitempty"`
	ProductID         string `json:"productId,omitempty"`
	Purpose           string `json:"purpose,omitempty"`
	TemplateType      string `json:"templateType,omitempty"`
	TemplateVersion   int    `json:"templateVersion"`
	TenantID          string `json:"tenantId,omitempty"`
	Status            string `json:"status"`
	CreatedAt         string `json:"createdAt,omitempty"`
}

// Revoked reports whether the record is in the revoked state.
func (r ConsentRecord) Revoked() bool {
	return r.Status == StatusRevoked
}

// rawRecord carries every historical spelling the backend has used for
// consent record fields. Only the normalized form escapes this package.
type rawRecord struct {
	ID                string `json:"id"`
	ConsentID         string `json:"consent_id"`
	SubjectID         string `json:"subject_id"`
	SubjectIDCamel    string `json:"subjectId"`
	ApplicationNumber string `json:"application_number"`
	MobileNumber      string `json:"mobile_number"`
	MSISDN            string `json:"msisdn"`
	ProductID         string `json:"product_id"`
	ProductIDCamel    string `json:"productId"`
	Purpose           string `json:"purpose"`
	DataUseCase       string `json:"data_use_case"`
	UseCase           string `json:"use_case"`
	TemplateType      string `json:"template_type"`
	Version           any    `json:"version"`
	TemplateVersion   any    `json:"template_version"`
	TenantID          string `json:"tenant_id"`
	Status            string `json:"status"`
	CreatedAt         string `json:"created_at"`
	CreatedAtCamel    string `json:"createdAt"`
	CreationTime      string `json:"creation_time"`
	CreatedTime       string `json:"created_time"`
}

func (raw rawRecord) normalize() ConsentRecord {
	return ConsentRecord{
		ID:                firstNonEmpty(raw.ID, raw.ConsentID),
		SubjectID:         firstNonEmpty(raw.SubjectID, raw.SubjectIDCamel),
		ApplicationNumber: raw.ApplicationNumber,
		MobileNumber:      firstNonEmpty(raw.MobileNumber, raw.MSISDN),
		ProductID:         firstNonEmpty(raw.ProductID, raw.ProductIDCamel),
		Purpose:           firstNonEmpty(raw.Purpose, raw.DataUseCase, raw.UseCase),
		TemplateType:      raw.TemplateType,
		TemplateVersion:   versionNumber(firstVersion(raw.TemplateVersion, raw.Version)),
		TenantID:          raw.TenantID,
		Status:            normalizeStatus(raw.Status),
		CreatedAt:         firstNonEmpty(raw.CreatedAt, raw.CreatedAtCamel, raw.CreationTime, raw.CreatedTime),
	}
}

// DecodeRecords decodes an upstream consent listing into canonical records.
func DecodeRecords(data []byte) ([]ConsentRecord, error) {
	var raws []rawRecord
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, err
	}
	records := make([]ConsentRecord, 0, len(raws))
	for _, raw := range raws {
		records = append(records, raw.normalize())
	}
	return records, nil
}

// DecodeRecord decodes a single upstream consent document.
func DecodeRecord(data []byte) (ConsentRecord, error) {
	var raw rawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return ConsentRecord{}, err
	}
	return raw.normalize(), nil
}

func normalizeStatus(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	if s == "" {
		return StatusGranted
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstVersion(values ...any) any {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// versionNumber coerces a template version to a comparable integer.
// Non-numeric and absent versions compare as 0.
func versionNumber(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
	}
	return 0
}
