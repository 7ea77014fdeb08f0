// Package service implements slot availability on top of the doctors
// collection, with a write-through fallback to the users collection for
// doctors whose dedicated document does not exist yet. Reads are
// deliberately forgiving: a missing or corrupt record presents as an
// empty schedule rather than an error.
package service

import (
	"context"
	"errors"
	"time"

	doctorserrors "medportal/internal/doctors/errors"
	"medportal/internal/doctors/reconciler"
	doctorrepo "medportal/internal/doctors/repository"
	userserrors "medportal/internal/users/errors"
	userrepo "medportal/internal/users/repository"
	"medportal/pkg/config"
	apperrors "medportal/pkg/errors"
	"medportal/pkg/events"
	"medportal/pkg/model"
)

type AvailabilityService interface {
	Get(ctx context.Context, doctorID string) ([]string, error)
	Add(ctx context.Context, doctorID string, slots []string) ([]string, error)
	Remove(ctx context.Context, doctorID string, slot string) ([]string, error)
}

type availabilityService struct {
	cfg        *config.Config
	doctors    doctorrepo.DoctorRepository
	users      userrepo.UserRepository
	reconciler reconciler.Reconciler
	publisher  events.Publisher
}

func NewAvailabilityService(
	cfg *config.Config,
	doctors doctorrepo.DoctorRepository,
	users userrepo.UserRepository,
	rec reconciler.Reconciler,
	publisher events.Publisher,
) AvailabilityService {
	return &availabilityService{
		cfg:        cfg,
		doctors:    doctors,
		users:      users,
		reconciler: rec,
		publisher:  publisher,
	}
}

// Get returns the doctor's slots. It never fails: absent, corrupt, or
// unreadable records all present as an empty schedule. When no doctor
// document exists at all, an empty one is created so later writes and
// change-stream subscriptions have something to attach to.
func (s *availabilityService) Get(ctx context.Context, doctorID string) ([]string, error) {
	if doctorID == "" {
		return []string{}, nil
	}

	doctor, err := s.doctors.FindByID(ctx, doctorID)
	if err == nil {
		if doctor.SlotsAvailable == nil {
			return []string{}, nil
		}
		return doctor.SlotsAvailable, nil
	}

	switch {
	case errors.Is(err, doctorserrors.ErrNotFound):
		if _, ensureErr := s.reconciler.Ensure(ctx, doctorID, model.DoctorHints{}); ensureErr != nil {
			s.cfg.Log.Warn("could not materialize doctor document", "doctor_id", doctorID, "error", ensureErr)
		}
	case errors.Is(err, doctorserrors.ErrMalformed):
		s.cfg.Log.Warn("doctor document has corrupt slots field", "doctor_id", doctorID, "error", err)
	default:
		s.cfg.Log.Error("failed to read doctor slots", "doctor_id", doctorID, "error", err)
	}

	return []string{}, nil
}

// Add merges the given slots into the doctor's schedule as a set union.
// Adding a slot that is already present is a no-op, so retried requests
// are safe.
func (s *availabilityService) Add(ctx context.Context, doctorID string, slots []string) ([]string, error) {
	if doctorID == "" {
		return nil, apperrors.MissingField("doctorId")
	}
	if len(slots) == 0 {
		return s.Get(ctx, doctorID)
	}

	merged, err := s.apply(ctx, doctorID, func(existing []string) []string {
		return union(existing, slots)
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.Event{
		Type:     events.SlotsAdded,
		DoctorID: doctorID,
		Slots:    slots,
		At:       time.Now().UTC(),
	})

	return merged, nil
}

// Remove deletes one slot from the doctor's schedule. Removing a slot
// that is not there is a no-op.
func (s *availabilityService) Remove(ctx context.Context, doctorID string, slot string) ([]string, error) {
	if doctorID == "" {
		return nil, apperrors.MissingField("doctorId")
	}
	if slot == "" {
		return nil, apperrors.MissingField("slot")
	}

	remaining, err := s.apply(ctx, doctorID, func(existing []string) []string {
		return without(existing, slot)
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.Event{
		Type:     events.SlotRemoved,
		DoctorID: doctorID,
		Slots:    []string{slot},
		At:       time.Now().UTC(),
	})

	return remaining, nil
}

// apply reads the doctor's current slots, runs mutate over them, and
// persists the result using the configured write strategy. Doctors with
// no dedicated document fall back to their user account record.
func (s *availabilityService) apply(ctx context.Context, doctorID string, mutate func([]string) []string) ([]string, error) {
	doctor, err := s.doctors.FindByID(ctx, doctorID)
	if err == nil {
		return s.writeDoctor(ctx, doctor, mutate)
	}

	if errors.Is(err, doctorserrors.ErrMalformed) {
		// Corrupt slots field: start from an empty set rather than lose the write.
		s.cfg.Log.Warn("replacing corrupt slots field", "doctor_id", doctorID)
		return s.writeDoctor(ctx, &model.Doctor{ID: doctorID, SlotsAvailable: []string{}}, mutate)
	}
	if !errors.Is(err, doctorserrors.ErrNotFound) {
		return nil, apperrors.Internal("Failed to load doctor", err)
	}

	return s.applyViaUser(ctx, doctorID, mutate)
}

// applyViaUser handles doctors that registered an account but never got a
// dedicated doctor document: the user record is written through, and a
// linked doctor document is materialized alongside it.
func (s *availabilityService) applyViaUser(ctx context.Context, doctorID string, mutate func([]string) []string) ([]string, error) {
	user, err := s.users.FindByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			// Nothing anywhere: create the doctor document and write to it.
			doctor, ensureErr := s.reconciler.Ensure(ctx, doctorID, model.DoctorHints{})
			if ensureErr != nil {
				return nil, apperrors.Internal("Failed to create doctor record", ensureErr)
			}
			return s.writeDoctor(ctx, doctor, mutate)
		}
		if errors.Is(err, userserrors.ErrMalformed) {
			s.cfg.Log.Warn("user record is malformed, creating doctor document", "doctor_id", doctorID, "error", err)
			doctor, ensureErr := s.reconciler.Ensure(ctx, doctorID, model.DoctorHints{})
			if ensureErr != nil {
				return nil, apperrors.Internal("Failed to create doctor record", ensureErr)
			}
			return s.writeDoctor(ctx, doctor, mutate)
		}
		return nil, apperrors.Internal("Failed to load user record", err)
	}

	if user.UserType != model.UserTypeDoctor {
		return nil, apperrors.InvalidInput("Record exists but does not belong to a doctor")
	}

	slots := mutate(user.SlotsAvailable)
	if err := s.users.UpdateSlotsMirror(ctx, user.ID, slots); err != nil {
		return nil, apperrors.Internal("Failed to update slots", err)
	}

	// Materialize the dedicated document so future operations hit it
	// directly. The user write above already succeeded, so a failure
	// here only delays the migration.
	doctor := &model.Doctor{
		ID:             doctorID,
		Name:           user.Name,
		Email:          user.Email,
		Specialization: user.Specialization,
		SlotsAvailable: slots,
		Bookings:       user.Bookings,
		LinkedUserID:   user.ID,
		UserType:       model.UserTypeDoctor,
	}
	if doctor.Bookings == nil {
		doctor.Bookings = []model.BookingRef{}
	}
	if err := s.doctors.Save(ctx, doctor); err != nil {
		s.cfg.Log.Warn("could not materialize doctor document from user record",
			"doctor_id", doctorID, "error", err)
	}

	return slots, nil
}

func (s *availabilityService) writeDoctor(ctx context.Context, doctor *model.Doctor, mutate func([]string) []string) ([]string, error) {
	slots := mutate(doctor.SlotsAvailable)

	if s.cfg.WriteStrategy == config.WriteStrategyCompareAndSwap {
		written, err := s.writeCAS(ctx, doctor, mutate, slots)
		if err != nil {
			return nil, err
		}
		slots = written
	} else {
		if err := s.doctors.UpdateSlots(ctx, doctor.ID, slots, time.Now().UTC()); err != nil {
			return nil, apperrors.Internal("Failed to update slots", err)
		}
	}

	s.syncUserMirror(ctx, doctor.LinkedUserID, slots)
	return slots, nil
}

// writeCAS retries the conditional write against the record's revision
// counter, re-reading and re-applying the mutation after each conflict.
func (s *availabilityService) writeCAS(ctx context.Context, doctor *model.Doctor, mutate func([]string) []string, slots []string) ([]string, error) {
	revision := doctor.Revision

	for attempt := 0; attempt < s.cfg.CASMaxRetries; attempt++ {
		matched, err := s.doctors.UpdateSlotsCAS(ctx, doctor.ID, slots, revision, time.Now().UTC())
		if err != nil {
			return nil, apperrors.Internal("Failed to update slots", err)
		}
		if matched {
			return slots, nil
		}

		fresh, err := s.doctors.FindByID(ctx, doctor.ID)
		if err != nil {
			if errors.Is(err, doctorserrors.ErrMalformed) {
				// The record is unreadable, so no revision can be trusted;
				// replace its slots outright.
				slots = mutate([]string{})
				if err := s.doctors.UpdateSlots(ctx, doctor.ID, slots, time.Now().UTC()); err != nil {
					return nil, apperrors.Internal("Failed to update slots", err)
				}
				return slots, nil
			}
			return nil, apperrors.Internal("Failed to reload doctor during conflicting update", err)
		}
		revision = fresh.Revision
		slots = mutate(fresh.SlotsAvailable)
	}

	return nil, apperrors.Conflict("Slot update lost repeatedly to concurrent writers")
}

// syncUserMirror copies slots onto the linked user record. Mirror drift is
// tolerated: failures are logged, never surfaced.
func (s *availabilityService) syncUserMirror(ctx context.Context, linkedUserID string, slots []string) {
	if linkedUserID == "" {
		return
	}
	if err := s.users.UpdateSlotsMirror(ctx, linkedUserID, slots); err != nil {
		s.cfg.Log.Warn("failed to sync slots to linked user record",
			"user_id", linkedUserID, "error", err)
	}
}

func union(existing, added []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(added))
	merged := make([]string, 0, len(existing)+len(added))
	for _, slot := range existing {
		if _, ok := seen[slot]; ok {
			continue
		}
		seen[slot] = struct{}{}
		merged = append(merged, slot)
	}
	for _, slot := range added {
		if _, ok := seen[slot]; ok {
			continue
		}
		seen[slot] = struct{}{}
		merged = append(merged, slot)
	}
	return merged
}

func without(existing []string, slot string) []string {
	remaining := make([]string, 0, len(existing))
	for _, s := range existing {
		if s == slot {
			continue
		}
		remaining = append(remaining, s)
	}
	return remaining
}
