package user

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleOperator Role = "OPERATOR"
	RoleSitter   Role = "SITTER"
)

func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleOperator:
		return RoleOperator, nil
	case RoleSitter:
		return RoleSitter, nil
	default:
		return "", fmt.Errorf("unknown role: %s", s)
	}
}

type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Role           Role      `json:"role"`
	HashedPassword string    `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
}

// DisplayName prefers the name and falls back to the email.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
