// Package identity holds the user directory: the patients, HCPs and billing
// staff the rest of the system references by id.
package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/billing/internal/apperr"
	"github.com/clinicore/billing/internal/platform/auth"
)

// User is a directory entry. Role is one of the auth role constants.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Role      string    `json:"role" db:"role"`
	FirstName string    `json:"first_name,omitempty" db:"first_name"`
	LastName  string    `json:"last_name,omitempty" db:"last_name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

var validRoles = map[string]bool{
	auth.RoleAdmin: true, auth.RoleBillingSpecialist: true, auth.RoleHCP: true, auth.RolePatient: true,
}

// Validate checks the username and role.
func (u *User) Validate() error {
	if u.Username == "" {
		return apperr.Validation("username is required")
	}
	if !validRoles[u.Role] {
		return apperr.Validation("invalid role: %s", u.Role)
	}
	return nil
}
