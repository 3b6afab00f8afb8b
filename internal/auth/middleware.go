package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openbanking-labs/consent-admin-api/internal/system/constants"
	"github.com/openbanking-labs/consent-admin-api/internal/system/error/serviceerror"
	"github.com/openbanking-labs/consent-admin-api/internal/system/utils"
)

// ContextKeyOperator is the gin context key carrying the authenticated
// operator's claims.
const ContextKeyOperator = "operator"

// RequireAuth rejects requests without a valid Bearer token.
func RequireAuth(service AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(constants.AuthorizationHeaderName)
		token, found := strings.CutPrefix(header, constants.TokenTypeBearer+" ")
		if !found || token == "" {
			utils.SendError(c, serviceerror.CustomServiceError(serviceerror.UnauthorizedError, "missing bearer token"))
			return
		}

		claims, err := service.Validate(token)
		if err != nil {
			utils.SendError(c, serviceerror.CustomServiceError(serviceerror.UnauthorizedError, "invalid or expired token"))
			return
		}

		c.Set(ContextKeyOperator, claims)
		c.Next()
	}
}
