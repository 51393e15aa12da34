// Package token encodes and decodes signed, expiring claim sets as JWTs.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Balorum/PhotoShare/internal/domain"
)

// Reason classifies a decode failure
type Reason string

const (
	ReasonInvalidSignature Reason = "invalid_signature"
	ReasonExpired          Reason = "expired"
	ReasonMalformed        Reason = "malformed"
)

// DecodeError is returned by Decode
type DecodeError struct {
	Reason Reason
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("token %s: %v", e.Reason, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type jwtClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Codec signs and verifies tokens with a shared HMAC secret
type Codec struct {
	secret []byte
	method jwt.SigningMethod
	now    func() time.Time
}

// NewCodec creates a Codec. algorithm is HS256, HS384 or HS512; now may be nil.
func NewCodec(secret, algorithm string, now func() time.Time) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}

	var method jwt.SigningMethod
	switch algorithm {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}

	if now == nil {
		now = time.Now
	}
	return &Codec{secret: []byte(secret), method: method, now: now}, nil
}

// Now returns the codec's current time
func (c *Codec) Now() time.Time {
	return c.now()
}

// Encode signs claims
func (c *Codec) Encode(claims domain.Claims) (string, error) {
	t := jwt.NewWithClaims(c.method, jwtClaims{
		Scope: string(claims.Scope),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        claims.ID,
			Subject:   claims.Subject,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})

	signed, err := t.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Leeway keeps a token valid through the second named by its exp claim,
// so Decode fails only once the current time is past expiry.
const Leeway = time.Second

// Decode verifies the signature and expiry of raw and returns its claims
func (c *Codec) Decode(raw string) (*domain.Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(Leeway),
	)

	var claims jwtClaims
	_, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return toDomain(&claims), nil
}

// Peek reads claims without verifying the signature or expiry.
// Only use it for bookkeeping on tokens that were already verified.
func (c *Codec) Peek(raw string) (*domain.Claims, error) {
	var claims jwtClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return nil, &DecodeError{Reason: ReasonMalformed, Err: err}
	}
	return toDomain(&claims), nil
}

func classify(err error) *DecodeError {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return &DecodeError{Reason: ReasonInvalidSignature, Err: err}
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return &DecodeError{Reason: ReasonExpired, Err: err}
	default:
		return &DecodeError{Reason: ReasonMalformed, Err: err}
	}
}

func toDomain(c *jwtClaims) *domain.Claims {
	out := &domain.Claims{
		ID:      c.ID,
		Subject: c.Subject,
		Scope:   domain.Scope(c.Scope),
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out
}
