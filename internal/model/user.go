package model

// Role is one of the four dashboards a user can sign in to.
type Role string

const (
	RolePatient    Role = "patient"
	RoleDoctor     Role = "doctor"
	RolePharmacist Role = "pharmacist"
	RoleAdmin      Role = "admin"
)

// Roles lists every role in display order.
var Roles = []Role{RolePatient, RoleDoctor, RolePharmacist, RoleAdmin}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// User is a record of the users collection.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash,omitempty"`
	Role         Role   `json:"role"`
	CreatedAt    int64  `json:"createdAt,omitempty"`
}

// Public returns a copy without the password hash, safe to send to clients.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}

type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,personname"`
	Email    string `json:"email" validate:"required,simpleemail"`
	Password string `json:"password" validate:"required,strongpassword"`
	Role     Role   `json:"role" validate:"required,oneof=patient doctor pharmacist admin"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     Role   `json:"role" validate:"required,oneof=patient doctor pharmacist admin"`
}
