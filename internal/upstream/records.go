package upstream

import (
	"context"
	"net/url"

	"github.com/openbanking-labs/consent-admin-api/internal/consent/model"
)

// RecordSource is the black-box consent record collaborator.
type RecordSource interface {
	ListConsents(ctx context.Context, subjectID string) ([]model.ConsentRecord, error)
	Grant(ctx context.Context, req GrantRequest) (model.ConsentRecord, error)
	Revoke(ctx context.Context, consentID string) (model.ConsentRecord, error)
}

// GrantRequest is the payload for creating a consent record upstream.
// Both purpose spellings are sent for compatibility with older backend
// builds that still read the legacy field.
type GrantRequest struct {
	SubjectID         string         `json:"subject_id"`
	ApplicationNumber string         `json:"application_number,omitempty"`
	MobileNumber      string         `json:"mobile_number,omitempty"`
	ProductID         string         `json:"product_id,omitempty"`
	Purpose           string         `json:"purpose"`
	DataUseCase       string         `json:"data_use_case,omitempty"`
	TemplateType      string         `json:"template_type,omitempty"`
	Meta              map[string]any `json:"meta,omitempty"`
}

type recordSource struct {
	client *Client
}

func NewRecordSource(client *Client) RecordSource {
	return &recordSource{client: client}
}

func (s *recordSource) ListConsents(ctx context.Context, subjectID string) ([]model.ConsentRecord, error) {
	query := url.Values{}
	if subjectID != "" {
		query.Set("subject_id", subjectID)
	}
	var records []model.ConsentRecord
	err := s.client.getJSON(ctx, "/consents", query, func(data []byte) error {
		decoded, err := model.DecodeRecords(data)
		if err != nil {
			return err
		}
		records = decoded
		return nil
	})
	return records, err
}

func (s *recordSource) Grant(ctx context.Context, req GrantRequest) (model.ConsentRecord, error) {
	if req.DataUseCase == "" {
		req.DataUseCase = req.Purpose
	}
	var record model.ConsentRecord
	err := s.client.postJSON(ctx, "/consents", req, func(data []byte) error {
		decoded, err := model.DecodeRecord(data)
		if err != nil {
			return err
		}
		record = decoded
		return nil
	})
	return record, err
}

func (s *recordSource) Revoke(ctx context.Context, consentID string) (model.ConsentRecord, error) {
	var record model.ConsentRecord
	err := s.client.patchJSON(ctx, "/consents/"+url.PathEscape(consentID)+"/revoke", nil, func(data []byte) error {
		decoded, err := model.DecodeRecord(data)
		if err != nil {
			return err
		}
		record = decoded
		return nil
	})
	return record, err
}
