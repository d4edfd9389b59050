package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost matches the cost the seed tooling has always used.
const PasswordCost = 12

var ErrInvalidCredentials = errors.New("invalid email or password")

func HashPassword(plain string) (string, error) {
	if plain == "" {
		return "", errors.New("empty password")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword compares a bcrypt hash with a candidate password.
// An account without a hash can never log in.
func CheckPassword(hash, plain string) error {
	if hash == "" || plain == "" {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
