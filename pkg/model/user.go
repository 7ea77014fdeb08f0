package model

import "time"

const (
	UserTypePatient = "patient"
	UserTypeDoctor  = "doctor"
)

// User is one account record, patient or doctor. UserType is immutable
// after the first successful write; it decides which dashboard the account
// may access and is never inferred.
type User struct {
	ID             string       `json:"id,omitempty" bson:"_id,omitempty"`
	Name           string       `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Email          string       `json:"email" bson:"email" validate:"required,email"`
	UserType       string       `json:"user_type" bson:"user_type" validate:"required,oneof=patient doctor"`
	PasswordHash   string       `json:"-" bson:"password_hash"`
	Specialization string       `json:"specialization,omitempty" bson:"specialization,omitempty"`
	SlotsAvailable []string     `json:"slots_available,omitempty" bson:"slots_available,omitempty"`
	Bookings       []BookingRef `json:"bookings,omitempty" bson:"bookings,omitempty"`
	CreatedAt      time.Time    `json:"created_at" bson:"created_at"`
}

type RegisterRequest struct {
	Name           string `json:"name" validate:"required,min=2,max=100"`
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=8,max=72"`
	UserType       string `json:"user_type" validate:"required,oneof=patient doctor"`
	Specialization string `json:"specialization,omitempty" validate:"omitempty,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	UserType string `json:"user_type" validate:"omitempty,oneof=patient doctor"`
}

type Session struct {
	Token    string `json:"token"`
	UserID   string `json:"user_id"`
	UserType string `json:"user_type"`
	Name     string `json:"name"`
}

// EmailTypeCheck reports whether an email is already registered and, if so,
// whether the registered type conflicts with the attempted one.
type EmailTypeCheck struct {
	Exists   bool   `json:"exists"`
	UserType string `json:"user_type,omitempty"`
	Mismatch bool   `json:"mismatch"`
}
