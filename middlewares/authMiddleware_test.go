package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	authUtils "civicreport-be/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "middleware-test-secret"

func newAuthRouter(t *testing.T) (*gin.Engine, *authUtils.TokenIssuer) {
	t.Helper()
	issuer := authUtils.NewTokenIssuer(testSecret, time.Hour)
	r := gin.New()
	r.GET("/me", AuthMiddleware(issuer), func(c *gin.Context) {
		id, name, ok := CurrentUser(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": id.Hex(), "name": name})
	})
	return r, issuer
}

func TestAuthMiddleware_BearerHeader(t *testing.T) {
	r, issuer := newAuthRouter(t)
	userID := primitive.NewObjectID().Hex()
	token, err := issuer.Generate(userID, "Ana")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"`+userID+`","name":"Ana"}`, w.Body.String())
}

func TestAuthMiddleware_Cookie(t *testing.T) {
	r, issuer := newAuthRouter(t)
	token, err := issuer.Generate(primitive.NewObjectID().Hex(), "Ana")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: AuthCookie, Value: token})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	r, _ := newAuthRouter(t)
	foreign, err := authUtils.NewTokenIssuer("some-other-secret-x", time.Hour).Generate(primitive.NewObjectID().Hex(), "Eve")
	require.NoError(t, err)
	nonObjectID, err := authUtils.NewTokenIssuer(testSecret, time.Hour).Generate("not-an-object-id", "Eve")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"garbage", "Bearer abc.def.ghi"},
		{"wrong secret", "Bearer " + foreign},
		{"bad subject", "Bearer " + nonObjectID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	issuer := authUtils.NewTokenIssuer(testSecret, time.Hour)
	r := gin.New()
	r.GET("/issues", OptionalAuth(issuer), func(c *gin.Context) {
		id, _, ok := CurrentUser(c)
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, id.Hex())
	})
	userID := primitive.NewObjectID().Hex()
	token, err := issuer.Generate(userID, "Ana")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"no token", "", "anonymous"},
		{"valid token", "Bearer " + token, userID},
		{"invalid token", "Bearer abc.def.ghi", "anonymous"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/issues", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, w.Body.String())
		})
	}
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer abc"))
	assert.Equal(t, "abc", bearerToken("abc"))
	assert.Equal(t, "", bearerToken("  "))
}
