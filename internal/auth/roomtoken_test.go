package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/screencopilot/internal/utils"
)

func TestMintAndParse(t *testing.T) {
	t.Parallel()

	tokens := NewRoomTokens("s3cret", 0)
	raw, err := tokens.Mint("demo", "viewer-1")
	require.NoError(t, err)

	claims, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "viewer-1", claims.Subject)
	assert.Equal(t, RoomGrant{RoomJoin: true, Room: "demo"}, claims.Grant)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestParseRejects(t *testing.T) {
	t.Parallel()

	tokens := NewRoomTokens("s3cret", time.Minute)
	good, err := tokens.Mint("demo", "viewer-1")
	require.NoError(t, err)

	expired := NewRoomTokens("s3cret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Mint("demo", "viewer-1")
	require.NoError(t, err)

	noGrant, err := jwt.NewWithClaims(jwt.SigningMethodHS256, RoomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "viewer-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	cases := map[string]struct {
		tokens *RoomTokens
		raw    string
	}{
		"wrong secret": {NewRoomTokens("other", 0), good},
		"expired":      {tokens, old},
		"garbage":      {tokens, "not.a.jwt"},
		"no grant":     {tokens, noGrant},
	}
	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := tc.tokens.Parse(tc.raw)
			assert.True(t, utils.IsCode(err, utils.CodeUnauthorized), "got %v", err)
		})
	}
}

func TestMintValidates(t *testing.T) {
	t.Parallel()

	_, err := NewRoomTokens("s3cret", 0).Mint("", "viewer")
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	_, err = NewRoomTokens("", 0).Mint("demo", "viewer")
	assert.ErrorIs(t, err, utils.ErrNotConfigured)
}
