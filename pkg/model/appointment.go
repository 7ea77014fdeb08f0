package model

import "time"

const (
	StatusUpcoming  = "upcoming"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// DateParts is the normalized calendar-date structure stored alongside the
// raw date value. Callers reconstruct display strings from it, preferring
// the normalized form when present.
type DateParts struct {
	Year  int    `json:"year" bson:"year"`
	Month int    `json:"month" bson:"month"`
	Day   int    `json:"day" bson:"day"`
	ISO   string `json:"iso" bson:"iso"`
}

// Appointment is the authoritative record for one booking and its status.
// Doctor and user records carry BookingRef mirrors that follow it.
type Appointment struct {
	ID             string    `json:"id,omitempty" bson:"_id,omitempty"`
	DoctorID       string    `json:"doctor_id" bson:"doctor_id" validate:"required"`
	PatientID      string    `json:"patient_id" bson:"patient_id" validate:"required"`
	PatientName    string    `json:"patient_name" bson:"patient_name" validate:"required"`
	DoctorName     string    `json:"doctor_name,omitempty" bson:"doctor_name,omitempty"`
	DoctorEmail    string    `json:"doctor_email,omitempty" bson:"doctor_email,omitempty"`
	Specialization string    `json:"specialization,omitempty" bson:"specialization,omitempty"`
	Time           string    `json:"time" bson:"time" validate:"required"`
	Date           time.Time `json:"date" bson:"date"`
	FormattedDate  DateParts `json:"formatted_date" bson:"formatted_date"`
	Status         string    `json:"status" bson:"status" validate:"required,oneof=upcoming completed cancelled"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

// BookingRequest is the booking payload. Date is optional and defaults to
// the current day; Time is the HH:MM wall-clock component.
type BookingRequest struct {
	DoctorID       string `json:"doctor_id"`
	PatientID      string `json:"patient_id"`
	PatientName    string `json:"patient_name"`
	Time           string `json:"time"`
	Date           string `json:"date,omitempty"`
	DoctorName     string `json:"doctor_name,omitempty"`
	DoctorEmail    string `json:"doctor_email,omitempty"`
	Specialization string `json:"specialization,omitempty"`
}

// NewDateParts normalizes a calendar date for storage.
func NewDateParts(t time.Time) DateParts {
	return DateParts{
		Year:  t.Year(),
		Month: int(t.Month()),
		Day:   t.Day(),
		ISO:   t.Format("2006-01-02"),
	}
}
