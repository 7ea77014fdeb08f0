package model

import "time"

// Doctor is the denormalized record keyed by doctor id. It is authoritative
// for availability; the user record with the same person carries a
// best-effort mirror of slots and bookings.
type Doctor struct {
	ID             string       `json:"id,omitempty" bson:"_id,omitempty"`
	Name           string       `json:"name" bson:"name" validate:"omitempty,max=100"`
	Email          string       `json:"email,omitempty" bson:"email,omitempty" validate:"omitempty,email"`
	Specialization string       `json:"specialization,omitempty" bson:"specialization,omitempty" validate:"omitempty,max=100"`
	SlotsAvailable []string     `json:"slots_available" bson:"slots_available"`
	Bookings       []BookingRef `json:"bookings" bson:"bookings"`
	LinkedUserID   string       `json:"user_id,omitempty" bson:"user_id,omitempty"`
	UserType       string       `json:"user_type,omitempty" bson:"user_type,omitempty"`
	Revision       int64        `json:"-" bson:"revision,omitempty"`
	LastUpdated    time.Time    `json:"last_updated,omitempty" bson:"last_updated,omitempty"`
	LastSwept      time.Time    `json:"last_swept,omitempty" bson:"last_swept,omitempty"`
}

// BookingRef is the denormalized mirror of one appointment inside a doctor
// or user record. The appointment record stays the source of truth for
// status; this entry is a cache.
type BookingRef struct {
	AppointmentID string `json:"appointment_id" bson:"appointment_id"`
	PatientName   string `json:"patient_name" bson:"patient_name"`
	PatientID     string `json:"patient_id" bson:"patient_id"`
	Time          string `json:"time" bson:"time"`
	Date          string `json:"date" bson:"date"`
	Status        string `json:"status,omitempty" bson:"status,omitempty"`
}

// DoctorHints carries best-effort profile data used to synthesize or repair
// a doctor record. Hints only fill gaps, never overwrite present data.
type DoctorHints struct {
	Name           string `json:"name,omitempty"`
	Email          string `json:"email,omitempty"`
	Specialization string `json:"specialization,omitempty"`
}
