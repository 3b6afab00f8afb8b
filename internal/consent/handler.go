package consent

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/openbanking-labs/consent-admin-api/internal/consent/model"
	"github.com/openbanking-labs/consent-admin-api/internal/system/constants"
	"github.com/openbanking-labs/consent-admin-api/internal/system/error/serviceerror"
	"github.com/openbanking-labs/consent-admin-api/internal/system/middleware"
	"github.com/openbanking-labs/consent-admin-api/internal/system/utils"
	"github.com/openbanking-labs/consent-admin-api/internal/upstream"
)

// consentHandler exposes consent record operations over HTTP.
type consentHandler struct {
	service ConsentService
	logger  *logrus.Logger
}

func newConsentHandler(service ConsentService, logger *logrus.Logger) *consentHandler {
	return &consentHandler{service: service, logger: logger}
}

// listConsents handles GET /consents.
func (h *consentHandler) listConsents(c *gin.Context) {
	records, serviceErr := h.service.ListConsents(c.Request.Context(), subjectIDParam(c))
	if serviceErr != nil {
		utils.SendError(c, serviceErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"consents": presentRecords(records),
		"count":    len(records),
	})
}

// getLineages handles GET /consents/lineages.
func (h *consentHandler) getLineages(c *gin.Context) {
	result, serviceErr := h.service.GetLineages(c.Request.Context(), subjectIDParam(c))
	if serviceErr != nil {
		utils.SendError(c, serviceErr)
		return
	}

	for i := range result.Chains {
		result.Chains[i].Records = presentRecords(result.Chains[i].Records)
	}

	c.JSON(http.StatusOK, result)
}

// grant handles POST /consents.
func (h *consentHandler) grant(c *gin.Context) {
	var req upstream.GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RequestLogger(c, h.logger).WithError(err).Warn("Malformed grant request")
		utils.SendError(c, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, "invalid request body"))
		return
	}

	record, serviceErr := h.service.Grant(c.Request.Context(), req)
	if serviceErr != nil {
		utils.SendError(c, serviceErr)
		return
	}

	c.JSON(http.StatusCreated, record)
}

// revoke handles POST /consents/:consentId/revoke.
func (h *consentHandler) revoke(c *gin.Context) {
	record, serviceErr := h.service.Revoke(c.Request.Context(), c.Param("consentId"))
	if serviceErr != nil {
		utils.SendError(c, serviceErr)
		return
	}

	c.JSON(http.StatusOK, record)
}

// exportCSV handles GET /consents/export.csv.
func (h *consentHandler) exportCSV(c *gin.Context) {
	body, serviceErr := h.service.ExportCSV(
		c.Request.Context(),
		subjectIDParam(c),
		c.Query("from"),
		c.Query("to"),
	)
	if serviceErr != nil {
		utils.SendError(c, serviceErr)
		return
	}

	utils.SendCSV(c, "consents.csv", body)
}

// subjectIDParam reads the subject filter, accepting both query spellings.
func subjectIDParam(c *gin.Context) string {
	if v := c.Query("subjectId"); v != "" {
		return v
	}
	return c.Query("subject_id")
}

// presentRecords substitutes the "unknown" marker for creation times that
// could not be resolved from audit history. The empty string stays internal
// so sorting and filtering never see the marker.
func presentRecords(records []model.ConsentRecord) []model.ConsentRecord {
	presented := make([]model.ConsentRecord, len(records))
	copy(presented, records)
	for i := range presented {
		if presented[i].CreatedAt == "" {
			presented[i].CreatedAt = constants.UnknownTimestamp
		}
	}
	return presented
}
