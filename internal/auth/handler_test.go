package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbanking-labs/consent-admin-api/internal/system/config"
)

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.AuthConfig{
		SigningKey: "test-signing-key",
		Issuer:     "consent-admin-api",
		TokenTTL:   time.Hour,
		Operators: []config.OperatorAccount{
			{Username: "admin", Password: "secret", Role: "administrator"},
		},
	}

	engine := gin.New()
	public := engine.Group("/api/v1")
	service := Initialize(public, cfg, logrus.New())

	protected := engine.Group("/api/v1")
	protected.Use(RequireAuth(service))
	protected.GET("/whoami", func(c *gin.Context) {
		claims := c.MustGet(ContextKeyOperator).(*OperatorClaims)
		c.JSON(http.StatusOK, gin.H{"username": claims.Subject, "role": claims.Role})
	})

	return engine
}

func doLogin(t *testing.T, engine *gin.Engine, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestLoginIssuesUsableToken(t *testing.T) {
	engine := setupTestRouter(t)

	rec := doLogin(t, engine, "admin", "secret")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	require.NotEmpty(t, resp.Token)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	whoami := httptest.NewRecorder()
	engine.ServeHTTP(whoami, req)

	require.Equal(t, http.StatusOK, whoami.Code)
	assert.Contains(t, whoami.Body.String(), `"username":"admin"`)
	assert.Contains(t, whoami.Body.String(), `"role":"administrator"`)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	engine := setupTestRouter(t)

	rec := doLogin(t, engine, "admin", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRejectsMissingFields(t *testing.T) {
	engine := setupTestRouter(t)

	rec := doLogin(t, engine, "admin", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	engine := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req.Header.Set("Authorization", "Bearer bogus")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
