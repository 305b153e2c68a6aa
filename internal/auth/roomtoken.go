// Package auth mints and verifies room access tokens: HS256 JWTs whose
// subject is the participant identity and whose grant names one room.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yoockh/screencopilot/internal/utils"
)

const DefaultTokenTTL = time.Hour

type RoomGrant struct {
	RoomJoin bool   `json:"roomJoin"`
	Room     string `json:"room"`
}

type RoomClaims struct {
	jwt.RegisteredClaims
	Grant RoomGrant `json:"grant"`
}

type RoomTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewRoomTokens(secret string, ttl time.Duration) *RoomTokens {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &RoomTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *RoomTokens) Mint(room, identity string) (string, error) {
	const op = "RoomTokens.Mint"

	if room == "" || identity == "" {
		return "", utils.E(utils.CodeInvalidArgument, op, "roomName and identity required", nil)
	}
	if len(t.secret) == 0 {
		return "", utils.E(utils.CodeInternal, op, "token secret is not set", utils.ErrNotConfigured)
	}

	now := t.now()
	claims := RoomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		Grant: RoomGrant{RoomJoin: true, Room: room},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "token mint failed", err)
	}
	return signed, nil
}

func (t *RoomTokens) Parse(raw string) (*RoomClaims, error) {
	const op = "RoomTokens.Parse"

	if len(t.secret) == 0 {
		return nil, utils.E(utils.CodeInternal, op, "token secret is not set", utils.ErrNotConfigured)
	}

	claims := &RoomClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || tok == nil || !tok.Valid {
		return nil, utils.E(utils.CodeUnauthorized, op, "invalid token", err)
	}
	if claims.Subject == "" || !claims.Grant.RoomJoin || claims.Grant.Room == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "token has no room grant", nil)
	}
	return claims, nil
}
