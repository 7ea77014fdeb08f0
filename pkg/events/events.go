package events

import (
	"context"
	"time"
)

type Type string

const (
	SlotsAdded               Type = "availability.slots_added"
	SlotRemoved              Type = "availability.slot_removed"
	SlotsSwept               Type = "availability.slots_swept"
	AppointmentBooked        Type = "appointment.booked"
	AppointmentStatusChanged Type = "appointment.status_changed"
)

// Event is one availability or appointment lifecycle notification. Events
// are keyed by doctor id so per-doctor ordering is preserved.
type Event struct {
	Type          Type      `json:"type"`
	DoctorID      string    `json:"doctor_id,omitempty"`
	AppointmentID string    `json:"appointment_id,omitempty"`
	Slots         []string  `json:"slots,omitempty"`
	Status        string    `json:"status,omitempty"`
	RemovedCount  int       `json:"removed_count,omitempty"`
	At            time.Time `json:"at"`
}

// Publisher fans events out to interested consumers. Publishing is
// best-effort: failures are logged by implementations, never returned,
// so an unreachable broker cannot fail a booking.
type Publisher interface {
	Publish(ctx context.Context, event Event)
	Close() error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, Event) {}
func (noopPublisher) Close() error                   { return nil }

// NewNoopPublisher is used when no brokers are configured.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}
