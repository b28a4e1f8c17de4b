package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Totarae/psabot/internal/auth"
)

type members map[int64]error

func (m members) IsMember(_ context.Context, userID int64) (bool, error) {
	err, ok := m[userID]
	if !ok {
		return false, nil
	}
	return err == nil, err
}

func TestGate_Check(t *testing.T) {
	netErr := errors.New("network down")
	g := auth.NewGate(members{
		1: nil,
		2: auth.ErrNotParticipant,
		3: netErr,
	})
	ctx := context.Background()

	assert.NoError(t, g.Check(ctx, 1))
	assert.ErrorIs(t, g.Check(ctx, 2), auth.ErrNotAllowed)
	assert.ErrorIs(t, g.Check(ctx, 4), auth.ErrNotAllowed)

	err := g.Check(ctx, 3)
	assert.ErrorIs(t, err, netErr)
	assert.NotErrorIs(t, err, auth.ErrNotAllowed)
}

func TestErrNotAllowed_Message(t *testing.T) {
	assert.Equal(t, "You are not allowed to use this bot.", auth.ErrNotAllowed.Error())
}

func TestTokenRoundTrip(t *testing.T) {
	a := auth.New("test-secret")
	token := a.Token(123456)

	parts := strings.SplitN(token, ":", 2)
	require.Len(t, parts, 2)
	assert.Equal(t, "123456", parts[0])

	id, err := a.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(123456), id)
}

func TestParseToken_Invalid(t *testing.T) {
	a := auth.New("test-secret")
	other := auth.New("other-secret")

	for _, token := range []string{
		"",
		"invalidformat",
		"123:bad-signature",
		other.Token(123),
	} {
		_, err := a.ParseToken(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken, token)
	}
}

func TestParseToken_EmptySecretRejectsEverything(t *testing.T) {
	a := auth.New("")
	_, err := a.ParseToken(a.Token(1))
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestValidateUserID(t *testing.T) {
	a := auth.New("test-secret")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+a.Token(77))
	id, ok := a.ValidateUserID(req)
	assert.True(t, ok)
	assert.Equal(t, int64(77), id)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", a.Token(77))
	_, ok = a.ValidateUserID(req)
	assert.False(t, ok)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok = a.ValidateUserID(req)
	assert.False(t, ok)
}
