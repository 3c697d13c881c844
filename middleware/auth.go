package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/nodonorteit/wspbot/models"
)

const claimsKey = "userClaims"

// AuthMiddleware verifies the bearer token and stores the decoded principal
// on the request context. The tenant claim is trusted as-is and never
// re-derived.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.Fail("Access token required"))
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		claims := &models.UserClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			zap.L().Warn("auth middleware rejected token", zap.Error(err))
			message := "Invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				message = "Token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.Fail(message))
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireTenant enforces that the authenticated principal owns the tenant
// named in the path.
func RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFrom(c)
		if claims == nil || claims.TenantID == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, models.Fail("Tenant access required"))
			return
		}
		if claims.TenantID != c.Param("tenantId") {
			c.AbortWithStatusJSON(http.StatusForbidden, models.Fail("Access denied to this tenant"))
			return
		}
		c.Next()
	}
}

// ClaimsFrom extracts the decoded principal, or nil when unauthenticated.
func ClaimsFrom(c *gin.Context) *models.UserClaims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, ok := v.(*models.UserClaims)
	if !ok {
		return nil
	}
	return claims
}
