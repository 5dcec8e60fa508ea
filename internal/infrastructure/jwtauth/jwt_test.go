package jwtauth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendorchat/internal/domain/entity"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	a, err := New("s3cret", time.Hour)
	require.NoError(t, err)

	who := entity.Identity{UserID: "cust-1", Role: entity.RoleCustomer}
	tok, expires, err := a.Issue(who)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	got, err := a.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, who, got)
}

func TestVerify_RejectsForeignAndExpiredTokens(t *testing.T) {
	a, err := New("s3cret", time.Hour)
	require.NoError(t, err)
	other, err := New("different", time.Hour)
	require.NoError(t, err)

	foreign, _, err := other.Issue(entity.Identity{UserID: "u", Role: entity.RoleVendor})
	require.NoError(t, err)
	_, err = a.Verify(context.Background(), foreign)
	assert.Error(t, err)

	a.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, err := a.Issue(entity.Identity{UserID: "u", Role: entity.RoleVendor})
	require.NoError(t, err)
	a.now = time.Now
	_, err = a.Verify(context.Background(), expired)
	assert.Error(t, err)

	noRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u", Issuer: issuer},
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = a.Verify(context.Background(), noRole)
	assert.Error(t, err)

	_, err = a.Verify(context.Background(), "garbage")
	assert.Error(t, err)
}

func TestNew_RequiresSecret(t *testing.T) {
	_, err := New("", time.Hour)
	assert.Error(t, err)
}
