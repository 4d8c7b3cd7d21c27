// Package identity turns request credentials into a caller identity. Sign-in
// and token issuance belong to an external provider; this package only
// verifies the tokens it hands out.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the subject of a verified token. The zero value is anonymous.
type Identity struct {
	UserID   string
	Email    string
	Username string
}

func (i Identity) Anonymous() bool { return i.UserID == "" }

var (
	ErrMalformedHeader = errors.New("identity: authorization header must be \"Bearer <token>\"")
	ErrInvalidToken    = errors.New("identity: invalid token")
)

type Claims struct {
	Email             string `json:"email,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	jwt.RegisteredClaims
}

// JWTProvider verifies HS256 tokens signed with a shared secret.
type JWTProvider struct {
	secret []byte
}

func NewJWTProvider(secret string) *JWTProvider {
	return &JWTProvider{secret: []byte(secret)}
}

// FromHeader resolves an Authorization header value. An empty header is an
// anonymous identity, not an error.
func (p *JWTProvider) FromHeader(header string) (Identity, error) {
	if strings.TrimSpace(header) == "" {
		return Identity{}, nil
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return Identity{}, ErrMalformedHeader
	}
	return p.Parse(parts[1])
}

func (p *JWTProvider) Parse(tokenString string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{
		UserID:   claims.Subject,
		Email:    claims.Email,
		Username: claims.PreferredUsername,
	}, nil
}

// Sign issues a token for id that expires after ttl.
func (p *JWTProvider) Sign(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:             id.Email,
		PreferredUsername: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}
