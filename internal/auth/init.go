package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/openbanking-labs/consent-admin-api/internal/system/config"
)

// Initialize sets up the auth module and registers the login route on the
// public route group.
func Initialize(public *gin.RouterGroup, cfg *config.AuthConfig, logger *logrus.Logger) AuthService {
	service := newAuthService(cfg)
	handler := newAuthHandler(service, logger)

	public.POST("/auth/login", handler.login)

	return service
}
