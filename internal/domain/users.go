package domain

import "strings"

// Role is the kind of user acting through a session
type Role string

const (
	RoleTrader Role = "TRADER"
	RoleAgent  Role = "AGENT"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleTrader, RoleAgent:
		return true
	}
	return false
}

// Agent is a commission agent traders can link to
type Agent struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	ID        int64  `json:"id"`
	Active    bool   `json:"active"`
}

// FullName joins first and last name
func (a Agent) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// AssociatedTrader is a trader linked to an agent
type AssociatedTrader struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role,omitempty"`
	ID        int64  `json:"id"`
	Active    bool   `json:"active"`
}

// Profile is the personal data of a user
type Profile struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role,omitempty"`
	ID        int64  `json:"id"`
	Active    bool   `json:"active"`
}

// ProfileUpdate carries the fields a user may change
type ProfileUpdate struct {
	FirstName string `json:"first_name" validate:"required,min=2"`
	LastName  string `json:"last_name" validate:"required,min=2"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required,len=10,numeric"`
}
