package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/hokuto/run-telemetry-go/pkg/response"
)

// ContextUserID is the gin context key carrying the authenticated user id.
const ContextUserID = "userID"

// Auth validates the Bearer token on incoming requests and stores the subject
// claim as the user id. Requests without a valid token are rejected with 401.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			response.Unauthorized(c, "Missing bearer token")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			response.Unauthorized(c, "Invalid token")
			c.Abort()
			return
		}

		subject, err := token.Claims.GetSubject()
		if err != nil || subject == "" {
			response.Unauthorized(c, "Token has no subject")
			c.Abort()
			return
		}

		c.Set(ContextUserID, subject)
		c.Next()
	}
}

// UserID returns the authenticated user id stored by Auth, or "".
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
