package audit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/openbanking-labs/consent-admin-api/internal/auth"
	"github.com/openbanking-labs/consent-admin-api/internal/system/error/serviceerror"
	"github.com/openbanking-labs/consent-admin-api/internal/system/middleware"
	"github.com/openbanking-labs/consent-admin-api/internal/system/utils"
)

// auditHandler exposes audit trail operations over HTTP.
type auditHandler struct {
	service AuditService
	logger  *logrus.Logger
}

func newAuditHandler(service AuditService, logger *logrus.Logger) *auditHandler {
	return &auditHandler{service: service, logger: logger}
}

// getConsentAudit handles GET /consents/:consentId/audit.
func (h *auditHandler) getConsentAudit(c *gin.Context) {
	result, serviceErr := h.service.EventsForConsent(c.Request.Context(), sessionID(c), c.Param("consentId"))
	if serviceErr != nil {
		utils.SendError(c, serviceErr)
		return
	}

	c.JSON(http.StatusOK, result)
}

// sessionID identifies the viewer session behind a request: the token id of
// the operator's login, which stays constant across that login's requests.
func sessionID(c *gin.Context) string {
	v, ok := c.Get(auth.ContextKeyOperator)
	if !ok {
		return ""
	}
	claims, ok := v.(*auth.OperatorClaims)
	if !ok {
		return ""
	}
	return claims.ID
}

// listEvents handles GET /audit.
func (h *auditHandler) listEvents(c *gin.Context) {
	var criteria Criteria
	if err := c.ShouldBindQuery(&criteria); err != nil {
		middleware.RequestLogger(c, h.logger).WithError(err).Warn("Malformed audit query")
		utils.SendError(c, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, "invalid query parameters"))
		return
	}

	events, serviceErr := h.service.GlobalEvents(c.Request.Context(), criteria)
	if serviceErr != nil {
		utils.SendError(c, serviceErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}

// exportCSV handles GET /audit/export.csv.
func (h *auditHandler) exportCSV(c *gin.Context) {
	var criteria Criteria
	if err := c.ShouldBindQuery(&criteria); err != nil {
		middleware.RequestLogger(c, h.logger).WithError(err).Warn("Malformed audit export query")
		utils.SendError(c, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, "invalid query parameters"))
		return
	}

	body, serviceErr := h.service.ExportCSV(c.Request.Context(), criteria)
	if serviceErr != nil {
		utils.SendError(c, serviceErr)
		return
	}

	utils.SendCSV(c, "audit.csv", body)
}
