// Package reconciler keeps doctor documents structurally sound. Records
// created by older portal versions can miss the array fields the rest of
// the system assumes exist; Ensure and Repair bring them up to shape
// without ever clobbering data that is already there.
package reconciler

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	doctorserrors "medportal/internal/doctors/errors"
	doctorrepo "medportal/internal/doctors/repository"
	userserrors "medportal/internal/users/errors"
	userrepo "medportal/internal/users/repository"
	"medportal/pkg/logger"
	"medportal/pkg/model"
)

type Reconciler interface {
	Ensure(ctx context.Context, doctorID string, hints model.DoctorHints) (*model.Doctor, error)
	Repair(ctx context.Context, doctorID string, hints model.DoctorHints) error
}

type reconciler struct {
	doctors doctorrepo.DoctorRepository
	users   userrepo.UserRepository
	log     *logger.Logger
}

func New(doctors doctorrepo.DoctorRepository, users userrepo.UserRepository, log *logger.Logger) Reconciler {
	return &reconciler{
		doctors: doctors,
		users:   users,
		log:     log,
	}
}

// Ensure returns the existing doctor document, or synthesizes one from the
// hints merged with the matching user account. Calling it for a doctor that
// already exists is a no-op read.
func (r *reconciler) Ensure(ctx context.Context, doctorID string, hints model.DoctorHints) (*model.Doctor, error) {
	existing, err := r.doctors.FindByID(ctx, doctorID)
	if err == nil {
		return existing, nil
	}
	if errors.Is(err, doctorserrors.ErrMalformed) {
		// The document is there, just misshapen. Repair instead of replace.
		if repairErr := r.Repair(ctx, doctorID, hints); repairErr != nil {
			return nil, repairErr
		}
		return r.doctors.FindByID(ctx, doctorID)
	}
	if !errors.Is(err, doctorserrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to load doctor %s: %w", doctorID, err)
	}

	doctor := &model.Doctor{
		ID:             doctorID,
		Name:           hints.Name,
		Email:          hints.Email,
		Specialization: hints.Specialization,
		SlotsAvailable: []string{},
		Bookings:       []model.BookingRef{},
		UserType:       model.UserTypeDoctor,
	}

	// A user account with the same id supplies identity fields the hints
	// left blank, and links the two records for mirror writes.
	user, userErr := r.users.FindByID(ctx, doctorID)
	if userErr == nil && user.UserType == model.UserTypeDoctor {
		doctor.LinkedUserID = user.ID
		if doctor.Name == "" {
			doctor.Name = user.Name
		}
		if doctor.Email == "" {
			doctor.Email = user.Email
		}
		if doctor.Specialization == "" {
			doctor.Specialization = user.Specialization
		}
	} else if userErr != nil && !errors.Is(userErr, userserrors.ErrNotFound) {
		r.log.Warn("could not consult user record while creating doctor",
			"doctor_id", doctorID, "error", userErr)
	}

	if err := r.doctors.Save(ctx, doctor); err != nil {
		return nil, fmt.Errorf("failed to create doctor %s: %w", doctorID, err)
	}

	r.log.Info("created missing doctor document", "doctor_id", doctorID)
	return doctor, nil
}

// Repair fills absent fields on an existing doctor document. Arrays become
// empty, identity fields take the hint values, and anything already present
// stays exactly as it was.
func (r *reconciler) Repair(ctx context.Context, doctorID string, hints model.DoctorHints) error {
	fields := bson.M{
		"slots_available": []string{},
		"bookings":        []model.BookingRef{},
	}
	if hints.Name != "" {
		fields["name"] = hints.Name
	}
	if hints.Email != "" {
		fields["email"] = hints.Email
	}
	if hints.Specialization != "" {
		fields["specialization"] = hints.Specialization
	}

	err := r.doctors.SetMissingArrayFields(ctx, doctorID, fields)
	if err == nil {
		return nil
	}
	if errors.Is(err, doctorserrors.ErrNotFound) {
		_, ensureErr := r.Ensure(ctx, doctorID, hints)
		return ensureErr
	}
	return fmt.Errorf("failed to repair doctor %s: %w", doctorID, err)
}
