package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"taskwhisker/internal/user"
)

// SessionClaims is the signed session carried in the Authorization header.
type SessionClaims struct {
	jwt.RegisteredClaims

	Email string    `json:"email"`
	Role  user.Role `json:"role"`
}

type Tokens struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

func (t Tokens) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// Issue signs an HS256 session token for u.
func (t Tokens) Issue(u user.User) (string, time.Time, error) {
	if len(t.Secret) == 0 {
		return "", time.Time{}, fmt.Errorf("missing signing secret")
	}
	now := t.now()
	exp := now.Add(t.TTL)
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: u.Email,
		Role:  u.Role,
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, exp, nil
}

// Verify checks signature and expiry and returns the session the token carries.
func (t Tokens) Verify(tokenString string) (*Session, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("missing token")
	}
	if len(t.Secret) == 0 {
		return nil, fmt.Errorf("missing signing secret")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	claims := &SessionClaims{}
	tok, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return t.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" && claims.Email == "" {
		return nil, fmt.Errorf("token carries no identity")
	}
	role, err := user.ParseRole(string(claims.Role))
	if err != nil {
		return nil, err
	}

	return &Session{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Role:      role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
