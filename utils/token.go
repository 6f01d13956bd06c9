package authUtils

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims identifies the user a token was issued to. The display name rides
// along so comment attribution does not need a user lookup.
type Claims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	jwt.StandardClaims
}

// TokenIssuer signs and verifies HS256 tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL is how long issued tokens stay valid.
func (t *TokenIssuer) TTL() time.Duration { return t.ttl }

// Generate issues a token for the given user.
func (t *TokenIssuer) Generate(userID, name string) (string, error) {
	if len(t.secret) == 0 {
		return "", fmt.Errorf("token: signing secret is not configured")
	}
	issuedAt := t.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		Name:   name,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  issuedAt.Unix(),
			ExpiresAt: issuedAt.Add(t.ttl).Unix(),
		},
	})
	return token.SignedString(t.secret)
}

// Parse verifies the signature and expiry and returns the claims.
func (t *TokenIssuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user_id claim", ErrInvalidToken)
	}
	return claims, nil
}
