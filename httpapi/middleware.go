package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by internal service tokens.
type Claims struct {
	jwt.RegisteredClaims
	ServiceName string `json:"service_name"`
}

// GenerateToken signs a short-lived token for an internal caller. Used by the
// dev tooling and by tests.
func GenerateToken(secret, serviceName string) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "payment-service",
		},
		ServiceName: serviceName,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// JWTAuth verifies the bearer token of internal callers.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Authorization header is required.",
			})
			return
		}

		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid bearer token format.",
			})
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid token.",
			})
			return
		}

		c.Set("service_name", claims.ServiceName)
		c.Next()
	}
}

// ClientFilter rejects callers whose IP is not allowlisted. An empty allowlist
// disables the filter.
func ClientFilter(allowed []string, log *slog.Logger) gin.HandlerFunc {
	allowset := make(map[string]struct{}, len(allowed))
	for _, ip := range allowed {
		allowset[ip] = struct{}{}
	}

	return func(c *gin.Context) {
		if len(allowset) == 0 {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if _, ok := allowset[ip]; !ok {
			log.Warn("rejected request from unlisted client", "ip", ip, "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Access denied: your IP is not allowed.",
			})
			return
		}

		c.Next()
	}
}

// Recovery turns panics into 500 responses instead of dropped connections.
func Recovery(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic while serving request", "method", c.Request.Method, "path", c.Request.URL.Path, "panic", r)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"message": "Internal server error.",
				})
			}
		}()

		c.Next()
	}
}
