package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/openbanking-labs/consent-admin-api/internal/system/error/serviceerror"
	"github.com/openbanking-labs/consent-admin-api/internal/system/middleware"
	"github.com/openbanking-labs/consent-admin-api/internal/system/utils"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"tokenType"`
	ExpiresIn int64  `json:"expiresIn"`
}

type authHandler struct {
	service AuthService
	logger  *logrus.Logger
}

func newAuthHandler(service AuthService, logger *logrus.Logger) *authHandler {
	return &authHandler{service: service, logger: logger}
}

// login handles POST /auth/login
func (h *authHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, "username and password are required"))
		return
	}

	token, ttl, err := h.service.Login(req.Username, req.Password)
	if err != nil {
		middleware.RequestLogger(c, h.logger).WithField("username", req.Username).
			Warn("Operator login failed")
		utils.SendError(c, serviceerror.CustomServiceError(serviceerror.UnauthorizedError, "invalid username or password"))
		return
	}

	middleware.RequestLogger(c, h.logger).WithField("username", req.Username).
		Info("Operator logged in")

	c.JSON(http.StatusOK, loginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(ttl.Seconds()),
	})
}
