package model

// Roles stored in users.role.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// User mirrors the users table.  Username is the identity passed to every
// booking call.
type User struct {
	Username     string
	PasswordHash string
	Role         string
}
