package model

import "time"

// User represents a registered driver as stored in the `users` table.
// PasswordHash never leaves the service: it carries no JSON name and
// listing queries do not select it.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Name         – display name.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  PhoneNo      – contact phone number.
//  Address      – postal address.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    `json:"user_id"`       // users.user_id
	Name         string    `json:"user_name"`     // users.user_name
	Email        string    `json:"user_email"`    // users.user_email
	PasswordHash string    `json:"-"`             // users.user_password_hash
	PhoneNo      string    `json:"user_phone_no"` // users.user_phone_no
	Address      string    `json:"user_address"`  // users.user_address
	CreatedAt    time.Time `json:"created_at"`    // users.created_at
	UpdatedAt    time.Time `json:"updated_at"`    // users.updated_at
}
