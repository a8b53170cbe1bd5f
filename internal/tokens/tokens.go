package tokens

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/portfolio-site/portfolio-api/internal/apierr"
	"github.com/portfolio-site/portfolio-api/internal/config"
	"github.com/portfolio-site/portfolio-api/internal/models"
)

// Claims is the payload carried by an access token. Subject and UserID both
// hold the hex user id; UserID keeps the "id" claim older clients read.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role,omitempty"`
}

// Issuer signs and verifies HS256 access tokens with a single shared secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(cfg config.JWTConfig) *Issuer {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Issuer{secret: []byte(cfg.Secret), ttl: ttl, now: time.Now}
}

// WithClock replaces the time source used for iat/exp and validation.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// TTL returns the lifetime of issued tokens.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue creates a signed access token for u.
func (i *Issuer) Issue(u *models.User) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.ttl)
	id := u.ID.Hex()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UserID: id,
		Email:  u.Email,
		Role:   u.Role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify checks the signature, algorithm and expiry of raw and returns its
// claims. Every failure is reported as Unauthorized.
func (i *Issuer) Verify(ctx context.Context, raw string) (*Claims, error) {
	if raw == "" {
		return nil, apierr.Unauthenticated("missing token")
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, apierr.Wrap(apierr.Unauthorized, "invalid token", err)
	}
	if claims.Subject == "" {
		claims.Subject = claims.UserID
	}
	if claims.Subject == "" {
		return nil, apierr.Unauthenticated("invalid token")
	}
	return claims, nil
}
