package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openbanking-labs/consent-admin-api/internal/system/constants"
	"github.com/openbanking-labs/consent-admin-api/internal/system/error/apierror"
	"github.com/openbanking-labs/consent-admin-api/internal/system/error/serviceerror"
)

// SendError writes a ServiceError as an HTTP response with appropriate status code
func SendError(c *gin.Context, err *serviceerror.ServiceError) {
	statusCode := http.StatusInternalServerError
	if err.Type == serviceerror.ClientErrorType {
		switch err.Code {
		case serviceerror.ResourceNotFoundError.Code:
			statusCode = http.StatusNotFound
		case serviceerror.UnauthorizedError.Code:
			statusCode = http.StatusUnauthorized
		case serviceerror.SupersededError.Code:
			statusCode = http.StatusConflict
		default:
			statusCode = http.StatusBadRequest
		}
	}

	c.AbortWithStatusJSON(statusCode, apierror.ErrorResponse{
		Code:        err.Error,
		Description: err.ErrorDescription,
	})
}

// SendCSV writes CSV text as a downloadable attachment.
func SendCSV(c *gin.Context, filename, body string) {
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, constants.ContentTypeCSV, []byte(body))
}
