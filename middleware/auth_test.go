package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/nodonorteit/wspbot/models"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, tenantID string, expiry time.Time) string {
	t.Helper()
	claims := models.UserClaims{
		UserID:   "u1",
		Email:    "user@example.com",
		Name:     "User",
		Role:     "tenant_admin",
		TenantID: tenantID,
		IsActive: true,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api", AuthMiddleware(testSecret))
	api.GET("/sessions/:tenantId/status", RequireTenant(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"tenant": c.Param("tenantId")})
	})
	return r
}

func doRequest(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/sessions/acme/status", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthAllowsMatchingTenant(t *testing.T) {
	r := testRouter()
	token := signToken(t, testSecret, "acme", time.Now().Add(time.Hour))

	rec := doRequest(r, token)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestAuthRejectsTenantMismatch(t *testing.T) {
	r := testRouter()
	token := signToken(t, testSecret, "other-tenant", time.Now().Add(time.Hour))

	rec := doRequest(r, token)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestAuthRejectsMissingToken(t *testing.T) {
	r := testRouter()

	rec := doRequest(r, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthRejectsWrongSecret(t *testing.T) {
	r := testRouter()
	token := signToken(t, "wrong-secret", "acme", time.Now().Add(time.Hour))

	rec := doRequest(r, token)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthRejectsExpiredToken(t *testing.T) {
	r := testRouter()
	token := signToken(t, testSecret, "acme", time.Now().Add(-time.Hour))

	rec := doRequest(r, token)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
