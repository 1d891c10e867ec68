package auth

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
)

type claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 bearer tokens carrying a Session.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates a Tokens signer. A zero ttl defaults to 24 hours.
func NewTokens(secret []byte, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Tokens{secret: secret, ttl: ttl, now: time.Now}
}

// Issue signs a token for the given session.
func (t *Tokens) Issue(s Session) (string, error) {
	if s.IsZero() || !s.Role.Valid() {
		return "", errors.New("issue token: incomplete session")
	}
	now := t.now()
	c := claims{
		Role: s.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

// Verify parses a signed token and returns the session it carries.
// Any parse, signature, expiry or claim problem yields ErrUnauthenticated.
func (t *Tokens) Verify(token string) (Session, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Session{}, errors.Wrap(ErrUnauthenticated, err.Error())
	}
	if c.Subject == "" || !c.Role.Valid() {
		return Session{}, ErrUnauthenticated
	}
	return Session{UserID: c.Subject, Role: c.Role}, nil
}
