// Package actiontoken signs and verifies the short-lived tokens that
// authorize a confirmed run/delete of one event.
package actiontoken

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultTTL = 15 * time.Minute
	issuer     = "crontrol"
)

// ErrInvalidToken covers bad signatures, expiry and claim mismatches.
var ErrInvalidToken = errors.New("invalid action token")

// Claims identify the action and the event it applies to.
type Claims struct {
	Kind string `json:"kind"`
	Hook string `json:"hook"`
	Sig  string `json:"sig"`
	At   int64  `json:"at"`
	jwt.RegisteredClaims
}

// Issuer signs action tokens with HS256.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// New creates an issuer. An empty secret generates a random one, so tokens
// do not survive a restart.
func New(secret string, ttl time.Duration) *Issuer {
	if secret == "" {
		b := make([]byte, 32)
		_, _ = rand.Read(b)
		secret = hex.EncodeToString(b)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// SetClock overrides the time source (tests).
func (i *Issuer) SetClock(now func() time.Time) {
	if now != nil {
		i.now = now
	}
}

// Sign returns a token for kind on the event (hook, sig, at).
func (i *Issuer) Sign(kind, hook, sig string, at int64) (string, error) {
	now := i.now()
	claims := Claims{
		Kind: kind,
		Hook: hook,
		Sig:  sig,
		At:   at,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify parses and validates a token.
func (i *Issuer) Verify(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyFor checks the token and that it was issued for exactly this action.
func (i *Issuer) VerifyFor(token, kind, hook, sig string, at int64) (*Claims, error) {
	c, err := i.Verify(token)
	if err != nil {
		return nil, err
	}
	if c.Kind != kind || c.Hook != hook || c.Sig != sig || c.At != at {
		return nil, fmt.Errorf("%w: claims do not match %s %s/%s@%d", ErrInvalidToken, kind, hook, sig, at)
	}
	return c, nil
}
