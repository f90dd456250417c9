package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	// RoleCustomer is assigned to users created lazily from order intake.
	RoleCustomer Role = "customer"
	// RoleService identifies trusted machine callers (payments system, scheduler).
	RoleService Role = "service"
	RoleAdmin   Role = "admin"
)

func (r Role) String() string { return string(r) }

func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(s)) {
	case RoleCustomer:
		return RoleCustomer, true
	case RoleService:
		return RoleService, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// User is a customer identity keyed by email. Users are created lazily on the
// first order that references a new email and are never deleted; orders and
// replacement requests back-reference them weakly.
type User struct {
	ID        uuid.UUID
	Email     string
	Name      string
	Phone     *string
	Role      Role
	CreatedAt time.Time
}

func NewCustomer(email, name string, phone *string) *User {
	if strings.TrimSpace(name) == "" {
		name = "Cliente"
	}
	return &User{
		ID:    uuid.New(),
		Email: strings.ToLower(strings.TrimSpace(email)),
		Name:  name,
		Phone: phone,
		Role:  RoleCustomer,
	}
}
