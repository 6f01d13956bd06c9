package middlewares

import (
	"log/slog"
	"net/http"
	"strings"

	authUtils "civicreport-be/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// AuthCookie carries the token for browser clients.
	AuthCookie = "auth_token"

	UserIDKey   = "user_id"
	UserNameKey = "user_name"
)

// TokenParser verifies a token and returns its claims.
type TokenParser interface {
	Parse(token string) (*authUtils.Claims, error)
}

// AuthMiddleware accepts a bearer token or the auth_token cookie and stores
// the caller's id and display name on the context.
func AuthMiddleware(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := requestToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No authorization token provided"})
			c.Abort()
			return
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			slog.DebugContext(c.Request.Context(), "token validation failed", slog.String("error", err.Error()))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization token"})
			c.Abort()
			return
		}
		if _, err := primitive.ObjectIDFromHex(claims.UserID); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		setUser(c, claims)
		c.Next()
	}
}

// OptionalAuth identifies the caller when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := requestToken(c); tokenString != "" {
			claims, err := tokens.Parse(tokenString)
			if err == nil {
				if _, err := primitive.ObjectIDFromHex(claims.UserID); err == nil {
					setUser(c, claims)
				}
			}
		}
		c.Next()
	}
}

func requestToken(c *gin.Context) string {
	if token := bearerToken(c.Request.Header.Get("Authorization")); token != "" {
		return token
	}
	token, _ := c.Cookie(AuthCookie)
	return token
}

func setUser(c *gin.Context, claims *authUtils.Claims) {
	c.Set(UserIDKey, claims.UserID)
	c.Set(UserNameKey, claims.Name)
}

// CurrentUser returns the authenticated caller set by AuthMiddleware.
func CurrentUser(c *gin.Context) (id primitive.ObjectID, name string, ok bool) {
	raw := c.GetString(UserIDKey)
	if raw == "" {
		return primitive.NilObjectID, "", false
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, "", false
	}
	return id, c.GetString(UserNameKey), true
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}
