package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidConfirmationLink = errors.New("invalid confirmation link")
	ErrConfirmationExpired     = errors.New("email link is invalid or has expired")
)

// confirmationClaims binds a confirmation token to an identity and a purpose.
type confirmationClaims struct {
	jwt.RegisteredClaims
	Purpose string `json:"purpose"`
}

// ConfirmationTokens issues and verifies the signed tokens carried in email
// confirmation links as token_hash.
type ConfirmationTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewConfirmationTokens(secret string, ttl time.Duration) *ConfirmationTokens {
	return &ConfirmationTokens{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue returns a token for identityID valid for purpose.
func (t *ConfirmationTokens) Issue(identityID, purpose string) (string, error) {
	now := t.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, confirmationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		Purpose: purpose,
	})

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign confirmation token: %w", err)
	}
	return signed, nil
}

// Verify checks the token and returns the identity ID it was issued for.
func (t *ConfirmationTokens) Verify(tokenString, purpose string) (string, error) {
	claims := &confirmationClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrConfirmationExpired
		}
		return "", ErrInvalidConfirmationLink
	}
	if !token.Valid || claims.Purpose != purpose || claims.Subject == "" {
		return "", ErrInvalidConfirmationLink
	}
	return claims.Subject, nil
}
