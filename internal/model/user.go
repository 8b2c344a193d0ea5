package model

import "time"

// Role is the closed set of roles a user can hold. Every authorization
// decision switches over these constants; free-form strings are rejected
// at the edges by IsValid.
type Role string

const (
	RoleStandard    Role = "standard"     // regular ticket reporter
	RoleServiceDesk Role = "service_desk" // triages and resolves tickets
	RoleAdmin       Role = "admin"        // manages users and roles
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleStandard, RoleServiceDesk, RoleAdmin:
		return true
	}
	return false
}

// User mirrors the `users` table. The password hash never leaves the
// repository/service layers; handlers expose PublicUser instead.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Name         – display name, non-empty.
//  Email        – unique, stored lowercased.
//  PasswordHash – bcrypt hashed password.
//  Role         – one of the Role constants.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the caller-visible projection of a User. It deliberately
// omits the password hash.
type PublicUser struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Public converts a stored user into its caller-visible form.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}
