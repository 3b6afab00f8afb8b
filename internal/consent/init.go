package consent

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/openbanking-labs/consent-admin-api/internal/consent/lineage"
	"github.com/openbanking-labs/consent-admin-api/internal/upstream"
)

// Initialize sets up the consent module and registers its routes on the
// authenticated route group. Static routes are registered before the
// parameterized revoke route so gin resolves them as siblings.
func Initialize(rg *gin.RouterGroup, records upstream.RecordSource, backfiller *lineage.Backfiller, logger *logrus.Logger) ConsentService {
	service := newConsentService(records, backfiller, logger)
	handler := newConsentHandler(service, logger)

	rg.GET("/consents", handler.listConsents)
	rg.GET("/consents/lineages", handler.getLineages)
	rg.GET("/consents/export.csv", handler.exportCSV)
	rg.POST("/consents", handler.grant)
	rg.POST("/consents/:consentId/revoke", handler.revoke)

	return service
}
