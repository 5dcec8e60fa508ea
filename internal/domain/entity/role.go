package entity

import (
	"fmt"
	"strings"
)

// Role identifies which side of a thread a user acts as. It has exactly two
// variants; the zero value is invalid.
type Role uint8

const (
	RoleCustomer Role = iota + 1
	RoleVendor
)

// ParseRole accepts "customer"/"vendor" in any case.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "customer":
		return RoleCustomer, nil
	case "vendor":
		return RoleVendor, nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleVendor
}

// Counterpart returns the other side of the thread.
func (r Role) Counterpart() Role {
	switch r {
	case RoleCustomer:
		return RoleVendor
	case RoleVendor:
		return RoleCustomer
	}
	panic(fmt.Sprintf("entity: counterpart of invalid role %d", r))
}

func (r Role) String() string {
	switch r {
	case RoleCustomer:
		return "customer"
	case RoleVendor:
		return "vendor"
	}
	return "invalid"
}

// SenderType is the stored upper-case form used in the messages relation.
func (r Role) SenderType() string {
	return strings.ToUpper(r.String())
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("entity: cannot marshal invalid role %d", r)
	}
	return []byte(r.SenderType()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Identity is an authenticated caller.
type Identity struct {
	UserID string
	Role   Role
}
