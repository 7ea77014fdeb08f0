// Package service implements the appointment ledger. The appointments
// collection is the source of truth; the doctor document's bookings list
// and any linked user record carry denormalized mirrors that follow it.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	appterrors "medportal/internal/appointments/errors"
	apptrepo "medportal/internal/appointments/repository"
	doctorserrors "medportal/internal/doctors/errors"
	"medportal/internal/doctors/reconciler"
	doctorrepo "medportal/internal/doctors/repository"
	"medportal/internal/slot"
	userrepo "medportal/internal/users/repository"
	"medportal/pkg/config"
	apperrors "medportal/pkg/errors"
	"medportal/pkg/events"
	"medportal/pkg/model"
)

type AppointmentService interface {
	Book(ctx context.Context, req *model.BookingRequest) (*model.Appointment, error)
	Get(ctx context.Context, appointmentID string) (*model.Appointment, error)
	SetStatus(ctx context.Context, appointmentID string, status string) error
	ListForDoctor(ctx context.Context, doctorID string) ([]*model.Appointment, error)
	ListForPatient(ctx context.Context, patientID string) ([]*model.Appointment, error)
}

type appointmentService struct {
	cfg          *config.Config
	appointments apptrepo.AppointmentRepository
	doctors      doctorrepo.DoctorRepository
	users        userrepo.UserRepository
	reconciler   reconciler.Reconciler
	publisher    events.Publisher
}

func NewAppointmentService(
	cfg *config.Config,
	appointments apptrepo.AppointmentRepository,
	doctors doctorrepo.DoctorRepository,
	users userrepo.UserRepository,
	rec reconciler.Reconciler,
	publisher events.Publisher,
) AppointmentService {
	return &appointmentService{
		cfg:          cfg,
		appointments: appointments,
		doctors:      doctors,
		users:        users,
		reconciler:   rec,
		publisher:    publisher,
	}
}

// Book creates the appointment record, consumes the matching slot from the
// doctor's schedule, and appends a mirror entry to the doctor's bookings.
// The sub-writes run sequentially and are not atomic: a failure after the
// appointment is created leaves it in place with the slot not yet removed.
func (s *appointmentService) Book(ctx context.Context, req *model.BookingRequest) (*model.Appointment, error) {
	for _, field := range []struct{ name, value string }{
		{"doctorId", req.DoctorID},
		{"patientId", req.PatientID},
		{"patientName", req.PatientName},
		{"time", req.Time},
	} {
		if field.value == "" {
			return nil, apperrors.MissingField(field.name)
		}
	}

	date, err := parseBookingDate(req.Date)
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Unparseable date: %s", req.Date))
	}

	appointment := &model.Appointment{
		ID:             uuid.NewString(),
		DoctorID:       req.DoctorID,
		PatientID:      req.PatientID,
		PatientName:    req.PatientName,
		DoctorName:     req.DoctorName,
		DoctorEmail:    req.DoctorEmail,
		Specialization: req.Specialization,
		Time:           req.Time,
		Date:           date,
		FormattedDate:  model.NewDateParts(date),
		Status:         model.StatusUpcoming,
	}

	if err := s.appointments.Create(ctx, appointment); err != nil {
		return nil, apperrors.Internal("Failed to create appointment", err)
	}

	doctor, err := s.reconciler.Ensure(ctx, req.DoctorID, model.DoctorHints{
		Name:           req.DoctorName,
		Email:          req.DoctorEmail,
		Specialization: req.Specialization,
	})
	if err != nil {
		return nil, apperrors.Internal("Appointment created but doctor record could not be updated", err)
	}

	// The slot may be stored canonically or, for older records, as the
	// bare time string. Consume both spellings.
	canonical := slot.ID(date, req.Time)
	slots := make([]string, 0, len(doctor.SlotsAvailable))
	for _, existing := range doctor.SlotsAvailable {
		if existing == canonical || existing == req.Time {
			continue
		}
		slots = append(slots, existing)
	}

	bookings := append(doctor.Bookings, model.BookingRef{
		AppointmentID: appointment.ID,
		PatientName:   appointment.PatientName,
		PatientID:     appointment.PatientID,
		Time:          appointment.Time,
		Date:          appointment.FormattedDate.ISO,
		Status:        model.StatusUpcoming,
	})

	if err := s.doctors.UpdateSlotsAndBookings(ctx, doctor.ID, slots, bookings, time.Now().UTC()); err != nil {
		return nil, apperrors.Internal("Appointment created but doctor record could not be updated", err)
	}

	s.syncBookingMirrors(ctx, doctor, slots, bookings)

	s.publisher.Publish(ctx, events.Event{
		Type:          events.AppointmentBooked,
		DoctorID:      appointment.DoctorID,
		AppointmentID: appointment.ID,
		Slots:         []string{canonical},
		At:            time.Now().UTC(),
	})

	s.cfg.Log.Info("appointment booked",
		"appointment_id", appointment.ID,
		"doctor_id", appointment.DoctorID,
		"patient_id", appointment.PatientID)

	return appointment, nil
}

// SetStatus transitions an upcoming appointment to completed or cancelled.
// The appointment record is updated first; the doctor and linked-user
// mirrors follow independently, and a mirror failure never rolls back or
// blocks the others.
func (s *appointmentService) SetStatus(ctx context.Context, appointmentID string, status string) error {
	if appointmentID == "" {
		return apperrors.MissingField("appointmentId")
	}
	if status != model.StatusCompleted && status != model.StatusCancelled {
		return apperrors.InvalidInput(fmt.Sprintf("Unsupported status: %s", status))
	}

	appointment, err := s.appointments.FindByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, appterrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Appointment", appointmentID)
		}
		return apperrors.Internal("Failed to load appointment", err)
	}

	if appointment.Status == status {
		return nil
	}
	if appointment.Status != model.StatusUpcoming {
		return apperrors.Conflict(fmt.Sprintf("Appointment is already %s", appointment.Status))
	}

	if err := s.appointments.UpdateStatus(ctx, appointmentID, status); err != nil {
		return apperrors.Internal("Failed to update appointment status", err)
	}

	if err := s.doctors.UpdateBookingStatus(ctx, appointment.DoctorID, appointmentID, status); err != nil {
		s.cfg.Log.Warn("failed to update doctor bookings mirror",
			"appointment_id", appointmentID, "doctor_id", appointment.DoctorID, "error", err)
	}

	if doctor, err := s.doctors.FindByID(ctx, appointment.DoctorID); err != nil {
		if !errors.Is(err, doctorserrors.ErrNotFound) {
			s.cfg.Log.Warn("failed to load doctor for mirror update",
				"doctor_id", appointment.DoctorID, "error", err)
		}
	} else if doctor.LinkedUserID != "" {
		if err := s.users.UpdateBookingStatusMirror(ctx, doctor.LinkedUserID, appointmentID, status); err != nil {
			s.cfg.Log.Warn("failed to update linked user bookings mirror",
				"appointment_id", appointmentID, "user_id", doctor.LinkedUserID, "error", err)
		}
	}

	s.publisher.Publish(ctx, events.Event{
		Type:          events.AppointmentStatusChanged,
		DoctorID:      appointment.DoctorID,
		AppointmentID: appointmentID,
		Status:        status,
		At:            time.Now().UTC(),
	})

	s.cfg.Log.Info("appointment status changed",
		"appointment_id", appointmentID, "status", status)

	return nil
}

func (s *appointmentService) Get(ctx context.Context, appointmentID string) (*model.Appointment, error) {
	if appointmentID == "" {
		return nil, apperrors.MissingField("appointmentId")
	}

	appointment, err := s.appointments.FindByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, appterrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Appointment", appointmentID)
		}
		return nil, apperrors.Internal("Failed to load appointment", err)
	}
	return appointment, nil
}

func (s *appointmentService) ListForDoctor(ctx context.Context, doctorID string) ([]*model.Appointment, error) {
	if doctorID == "" {
		return nil, apperrors.MissingField("doctorId")
	}

	appointments, err := s.appointments.FindByDoctor(ctx, doctorID)
	if err != nil {
		return nil, apperrors.Internal("Failed to list appointments", err)
	}
	if appointments == nil {
		appointments = []*model.Appointment{}
	}
	return appointments, nil
}

func (s *appointmentService) ListForPatient(ctx context.Context, patientID string) ([]*model.Appointment, error) {
	if patientID == "" {
		return nil, apperrors.MissingField("patientId")
	}

	appointments, err := s.appointments.FindByPatient(ctx, patientID)
	if err != nil {
		return nil, apperrors.Internal("Failed to list appointments", err)
	}
	if appointments == nil {
		appointments = []*model.Appointment{}
	}
	return appointments, nil
}

// syncBookingMirrors copies the post-booking slot and booking state onto the
// linked user record.
func (s *appointmentService) syncBookingMirrors(ctx context.Context, doctor *model.Doctor, slots []string, bookings []model.BookingRef) {
	if doctor.LinkedUserID == "" {
		return
	}
	if err := s.users.UpdateSlotsMirror(ctx, doctor.LinkedUserID, slots); err != nil {
		s.cfg.Log.Warn("failed to sync slots to linked user record",
			"user_id", doctor.LinkedUserID, "error", err)
	}
	if err := s.users.UpdateBookingsMirror(ctx, doctor.LinkedUserID, bookings); err != nil {
		s.cfg.Log.Warn("failed to sync bookings to linked user record",
			"user_id", doctor.LinkedUserID, "error", err)
	}
}

func parseBookingDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now(), nil
	}
	if date, err := time.Parse("2006-01-02", raw); err == nil {
		return date, nil
	}
	return time.Parse(time.RFC3339, raw)
}
