package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"chat-core/domain"
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates session tokens. The secret is injected at
// startup; nothing in this package holds key material at package level.
type TokenIssuer struct {
	secret   []byte
	issuer   string
	duration time.Duration
}

func NewTokenIssuer(secret []byte, issuer string, duration time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, issuer: issuer, duration: duration}
}

// Generate creates a signed JWT for a specific user.
func (ti *TokenIssuer) Generate(username domain.Identity) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		Username: string(username),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    ti.issuer,
		},
	}

	// HS256: HMAC with SHA256.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ti.secret)
}

// Validate parses and validates the signature and expiration of a JWT string.
func (ti *TokenIssuer) Validate(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return ti.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}
