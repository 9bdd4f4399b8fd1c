package middleware

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context key under which HostAuth stores the authorized session id.
const HostSessionKey = "host_session_id"

func jwtSecret() []byte {
	return []byte(os.Getenv("JWT_SECRET"))
}

// IssueHostToken mints the controller credential returned on session
// creation. Whoever holds it drives that one session: start, advance,
// dashboard view, DJ scripts.
func IssueHostToken(sessionID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"session_id": sessionID,
		"role":       "host",
		"iat":        now.Unix(),
		"exp":        now.Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

// HostAuth guards controller endpoints. The token must be valid and, when
// the route carries an :id parameter, scoped to that same session.
func HostAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing host token"})
			return
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return jwtSecret(), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid host token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid host token"})
			return
		}
		sessionID, _ := claims["session_id"].(string)
		if param := c.Param("id"); param != "" && param != sessionID {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token is for a different session"})
			return
		}

		c.Set(HostSessionKey, sessionID)
		c.Next()
	}
}
