package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Verification methods carried in tokens
const (
	MethodPassword = "password"
	MethodFace     = "face"
)

const minSecretLength = 32

// VerificationClaims are the claims of a token issued after a successful check
type VerificationClaims struct {
	jwt.RegisteredClaims
	Method string `json:"method"`
}

// TokenIssuer signs and validates HS256 verification tokens
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer; the secret must be at least 32 bytes
func NewTokenIssuer(secret, issuer string, ttl time.Duration) (*TokenIssuer, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("token secret must be at least %d bytes", minSecretLength)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive")
	}
	return &TokenIssuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue returns a signed token for userID
func (i *TokenIssuer) Issue(userID, method string) (string, error) {
	now := i.now()
	claims := &VerificationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Method: method,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign verification token: %w", err)
	}
	return signed, nil
}

// Parse validates the token and returns its claims
func (i *TokenIssuer) Parse(tokenString string) (*VerificationClaims, error) {
	claims := &VerificationClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return i.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if claims.Method != MethodPassword && claims.Method != MethodFace {
		return nil, fmt.Errorf("%w: unknown method %q", ErrInvalidToken, claims.Method)
	}
	return claims, nil
}

// IsTokenError reports whether err came from token validation
func IsTokenError(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}
