package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"vendorchat/internal/domain/entity"
)

const issuer = "vendorchat"

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator signs and verifies HS256 tokens.
type Authenticator struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func New(secret string, expiry time.Duration) (*Authenticator, error) {
	if secret == "" {
		return nil, errors.New("jwtauth: secret is required")
	}
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &Authenticator{secret: []byte(secret), expiry: expiry, now: time.Now}, nil
}

// Issue mints a token for who.
func (a *Authenticator) Issue(who entity.Identity) (string, time.Time, error) {
	if who.UserID == "" || !who.Role.Valid() {
		return "", time.Time{}, errors.New("jwtauth: identity is incomplete")
	}
	now := a.now()
	expires := now.Add(a.expiry)
	claims := Claims{
		Role: who.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   who.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// GenerateDevToken satisfies the dev token handler.
func (a *Authenticator) GenerateDevToken(_ context.Context, who entity.Identity) (string, error) {
	tok, _, err := a.Issue(who)
	return tok, err
}

func (a *Authenticator) Verify(_ context.Context, token string) (entity.Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return entity.Identity{}, fmt.Errorf("jwtauth: %w", err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return entity.Identity{}, errors.New("jwtauth: invalid token")
	}
	if !claims.VerifyIssuer(issuer, true) {
		return entity.Identity{}, errors.New("jwtauth: unexpected issuer")
	}
	role, err := entity.ParseRole(claims.Role)
	if err != nil {
		return entity.Identity{}, fmt.Errorf("jwtauth: %w", err)
	}
	return entity.Identity{UserID: claims.Subject, Role: role}, nil
}
