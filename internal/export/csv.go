package export

import (
	"sort"
	"strconv"
	"strings"

	auditmodel "github.com/openbanking-labs/consent-admin-api/internal/audit/model"
	consentmodel "github.com/openbanking-labs/consent-admin-api/internal/consent/model"
	"github.com/openbanking-labs/consent-admin-api/internal/system/constants"
)

// EventHeaders is the fixed column order for audit event exports.
var EventHeaders = []string{
	"timestamp",
	"action",
	"application_number",
	"mobile_number",
	"product_id",
	"purpose",
	"actor_type",
	"source_channel",
	"consent_id",
	"tenant_id",
}

// RecordHeaders is the fixed column order for consent record exports.
var RecordHeaders = []string{
	"id",
	"subject_id",
	"application_number",
	"mobile_number",
	"product_id",
	"purpose",
	"template_type",
	"template_version",
	"status",
	"created_at",
}

// ToCSV serializes row maps to CSV text. When headers is nil the column set
// is derived from the first row; empty input yields the empty string and the
// caller must suppress the download instead of emitting an empty file.
//
// Escaping is the exact rule spreadsheet consumers of these exports depend
// on: a cell is quoted only when it contains a comma, double quote or
// newline, internal quotes are doubled, rows are joined with "\n".
func ToCSV(rows []map[string]string, headers []string) string {
	if len(rows) == 0 {
		return ""
	}
	if headers == nil {
		headers = make([]string, 0, len(rows[0]))
		for h := range rows[0] {
			headers = append(headers, h)
		}
		// Derived header order must be deterministic across runs.
		sort.Strings(headers)
	}

	var b strings.Builder
	writeRowValues(&b, headers)
	for _, row := range rows {
		b.WriteByte('\n')
		cells := make([]string, len(headers))
		for i, h := range headers {
			cells[i] = row[h]
		}
		writeRowValues(&b, cells)
	}
	return b.String()
}

func writeRowValues(b *strings.Builder, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(escapeCell(cell))
	}
}

func escapeCell(cell string) string {
	if !strings.ContainsAny(cell, ",\"\n") {
		return cell
	}
	return `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
}

// EventRows shapes audit events into export rows matching EventHeaders.
func EventRows(events []auditmodel.AuditEvent) []map[string]string {
	rows := make([]map[string]string, 0, len(events))
	for _, ev := range events {
		rows = append(rows, map[string]string{
			"timestamp":          ev.Timestamp,
			"action":             ev.Action,
			"application_number": ev.ApplicationNumber,
			"mobile_number":      ev.MobileNumber,
			"product_id":         ev.ProductID,
			"purpose":            ev.Purpose,
			"actor_type":         ev.ActorType,
			"source_channel":     ev.SourceChannel,
			"consent_id":         ev.ConsentID,
			"tenant_id":          ev.TenantID,
		})
	}
	return rows
}

// RecordRows shapes consent records into export rows matching RecordHeaders.
// Unresolved creation times are exported as the literal "unknown".
func RecordRows(records []consentmodel.ConsentRecord) []map[string]string {
	rows := make([]map[string]string, 0, len(records))
	for _, r := range records {
		createdAt := r.CreatedAt
		if createdAt == "" {
			createdAt = constants.UnknownTimestamp
		}
		rows = append(rows, map[string]string{
			"id":                 r.ID,
			"subject_id":         r.SubjectID,
			"application_number": r.ApplicationNumber,
			"mobile_number":      r.MobileNumber,
			"product_id":         r.ProductID,
			"purpose":            r.Purpose,
			"template_type":      r.TemplateType,
			"template_version":   strconv.Itoa(r.TemplateVersion),
			"status":             r.Status,
			"created_at":         createdAt,
		})
	}
	return rows
}
