package audit

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/openbanking-labs/consent-admin-api/internal/upstream"
)

// Initialize sets up the audit module and registers its routes on the
// authenticated route group. The per-consent route reuses the :consentId
// parameter name registered by the consent module.
func Initialize(rg *gin.RouterGroup, events upstream.AuditSource, records upstream.RecordSource, logger *logrus.Logger) AuditService {
	service := newAuditService(events, records, logger)
	handler := newAuditHandler(service, logger)

	rg.GET("/consents/:consentId/audit", handler.getConsentAudit)
	rg.GET("/audit", handler.listEvents)
	rg.GET("/audit/export.csv", handler.exportCSV)

	return service
}
