package token

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"dine-order/internal/order/app/core"
	myerrors "dine-order/internal/xpkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueSignsToken(t *testing.T) {
	var buf bytes.Buffer
	err := issue(&buf, "secret", &params{subject: "waiter-1", role: core.RoleStaff, ttl: time.Hour})
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(strings.TrimSpace(buf.String()), claims, func(*jwt.Token) (any, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)
	assert.True(t, tok.Valid)
	assert.Equal(t, "waiter-1", claims["sub"])
	assert.Equal(t, "staff", claims["role"])
}

func TestParseParams(t *testing.T) {
	p, err := parseParams([]string{"--subject=ops", "--role=admin", "--ttl=30m"})
	require.NoError(t, err)
	assert.Equal(t, core.RoleAdmin, p.role)
	assert.Equal(t, 30*time.Minute, p.ttl)

	for _, args := range [][]string{
		{},
		{"--subject=ops", "--role=owner"},
		{"--subject=ops", "--ttl=-1h"},
	} {
		_, err := parseParams(args)
		assert.ErrorIs(t, err, myerrors.ErrParseCmd, "%v", args)
	}
}
