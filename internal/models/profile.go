package models

import (
	"time"
)

// Profile is the student profile materialized when a pending signup is
// verified. The profile CRUD surface lives elsewhere; this package only needs
// enough shape for creation and email ownership checks.
type Profile struct {
	ID           string    `json:"id"`
	SignupID     string    `json:"signup_id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
