// Package sweeper removes availability slots whose instant has passed and
// completes appointments that were never manually closed out. It runs on
// timers and is also triggered opportunistically around ledger operations.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	apptrepo "medportal/internal/appointments/repository"
	apptservice "medportal/internal/appointments/service"
	doctorserrors "medportal/internal/doctors/errors"
	doctorrepo "medportal/internal/doctors/repository"
	"medportal/internal/slot"
	userrepo "medportal/internal/users/repository"
	"medportal/pkg/config"
	"medportal/pkg/events"
	"medportal/pkg/model"
)

type Sweeper interface {
	Sweep(ctx context.Context, doctorID string, now time.Time) (int, error)
	CompletePastAppointments(ctx context.Context, doctorID string, now time.Time) (int, error)
}

type sweeper struct {
	cfg          *config.Config
	doctors      doctorrepo.DoctorRepository
	users        userrepo.UserRepository
	appointments apptrepo.AppointmentRepository
	ledger       apptservice.AppointmentService
	publisher    events.Publisher
}

func New(
	cfg *config.Config,
	doctors doctorrepo.DoctorRepository,
	users userrepo.UserRepository,
	appointments apptrepo.AppointmentRepository,
	ledger apptservice.AppointmentService,
	publisher events.Publisher,
) Sweeper {
	return &sweeper{
		cfg:          cfg,
		doctors:      doctors,
		users:        users,
		appointments: appointments,
		ledger:       ledger,
		publisher:    publisher,
	}
}

// Sweep removes every slot whose instant is in the past and stamps the
// record. Slots that fail to parse are kept: an unreadable slot must never
// be silently deleted. A missing doctor record counts as a clean sweep of
// nothing, and a corrupt slots field is logged and skipped rather than
// failing the run.
func (s *sweeper) Sweep(ctx context.Context, doctorID string, now time.Time) (int, error) {
	doctor, err := s.doctors.FindByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, doctorserrors.ErrNotFound) {
			return 0, nil
		}
		if errors.Is(err, doctorserrors.ErrMalformed) {
			s.cfg.Log.Warn("skipping sweep of corrupt doctor record", "doctor_id", doctorID, "error", err)
			return 0, nil
		}
		return 0, fmt.Errorf("failed to load doctor %s for sweep: %w", doctorID, err)
	}

	retained := make([]string, 0, len(doctor.SlotsAvailable))
	removed := 0
	for _, raw := range doctor.SlotsAvailable {
		if _, parseErr := slot.Parse(raw); parseErr != nil {
			retained = append(retained, raw)
			continue
		}
		if slot.IsPast(raw, now) {
			removed++
			continue
		}
		retained = append(retained, raw)
	}

	if removed == 0 {
		return 0, nil
	}

	if err := s.doctors.ReplaceSlotsAfterSweep(ctx, doctorID, retained, now); err != nil {
		return 0, fmt.Errorf("failed to persist sweep for doctor %s: %w", doctorID, err)
	}

	if doctor.LinkedUserID != "" {
		if err := s.users.UpdateSlotsMirror(ctx, doctor.LinkedUserID, retained); err != nil {
			s.cfg.Log.Warn("failed to sync swept slots to linked user record",
				"user_id", doctor.LinkedUserID, "error", err)
		}
	}

	s.publisher.Publish(ctx, events.Event{
		Type:         events.SlotsSwept,
		DoctorID:     doctorID,
		RemovedCount: removed,
		At:           now.UTC(),
	})

	s.cfg.Log.Info("swept expired slots", "doctor_id", doctorID, "removed", removed)
	return removed, nil
}

// CompletePastAppointments transitions every upcoming appointment whose
// instant is at or before now to completed. Individual failures do not stop
// the rest of the batch.
func (s *sweeper) CompletePastAppointments(ctx context.Context, doctorID string, now time.Time) (int, error) {
	upcoming, err := s.appointments.FindUpcomingByDoctor(ctx, doctorID)
	if err != nil {
		return 0, fmt.Errorf("failed to list upcoming appointments for doctor %s: %w", doctorID, err)
	}

	completed := 0
	for _, appointment := range upcoming {
		instant, err := appointmentInstant(appointment, now)
		if err != nil {
			s.cfg.Log.Warn("skipping appointment with unresolvable time",
				"appointment_id", appointment.ID, "time", appointment.Time, "error", err)
			continue
		}
		if instant.After(now) {
			continue
		}
		if err := s.ledger.SetStatus(ctx, appointment.ID, model.StatusCompleted); err != nil {
			s.cfg.Log.Warn("failed to auto-complete appointment",
				"appointment_id", appointment.ID, "error", err)
			continue
		}
		completed++
	}

	return completed, nil
}

func appointmentInstant(appointment *model.Appointment, now time.Time) (time.Time, error) {
	date := appointment.Date
	if appointment.FormattedDate.ISO != "" {
		if parsed, err := time.Parse("2006-01-02", appointment.FormattedDate.ISO); err == nil {
			date = parsed
		}
	}
	return slot.Instant(slot.ID(date, appointment.Time), now)
}
