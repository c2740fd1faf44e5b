package domain

import (
	"time"
)

type User struct {
	ID             int64      `json:"id" db:"id"`
	Email          string     `json:"email" db:"email"`
	PasswordHash   string     `json:"-" db:"password_hash"`
	FirstName      string     `json:"first_name" db:"first_name"`
	LastName       string     `json:"last_name" db:"last_name"`
	Phone          string     `json:"phone,omitempty" db:"phone"`
	EmailConfirmed bool       `json:"email_confirmed" db:"email_confirmed"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	IsAdmin        bool       `json:"is_admin" db:"is_admin"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
}

// FullName joins first and last name for greetings in outgoing mail.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}
