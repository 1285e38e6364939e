package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrBadToken = errors.New("invalid token")

const DefaultTokenTTL = 15 * time.Minute

type Claims struct {
	UserID  string `json:"uid"`
	IsAdmin bool   `json:"adm,omitempty"`
	jwt.RegisteredClaims
}

type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *Tokens) Issue(id Identity) (string, error) {
	now := t.now()
	c := Claims{
		UserID:  id.UserID.String(),
		IsAdmin: id.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
}

func (t *Tokens) Parse(raw string) (Identity, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(tok *jwt.Token) (any, error) {
		// block alg confusion
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadToken
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return Identity{}, errors.Join(ErrBadToken, err)
	}
	c, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return Identity{}, ErrBadToken
	}
	uid, err := uuid.Parse(c.UserID)
	if err != nil {
		return Identity{}, ErrBadToken
	}
	return Identity{UserID: uid, IsAdmin: c.IsAdmin}, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <jwt>" value.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
