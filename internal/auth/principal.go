package auth

import "github.com/sewain/backend/internal/principal"

// Principal is re-exported so transport code keeps a single import for the
// auth surface; the definition lives in its own leaf package because the
// rental engine needs it without depending on auth.
type Principal = principal.Principal

const (
	RoleCustomer = principal.RoleCustomer
	RoleAdmin    = principal.RoleAdmin
)
