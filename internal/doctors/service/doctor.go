package service

import (
	"context"
	"errors"

	doctorserrors "medportal/internal/doctors/errors"
	"medportal/internal/doctors/repository"
	"medportal/pkg/config"
	apperrors "medportal/pkg/errors"
)

type DoctorSummary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email,omitempty"`
	Specialization string `json:"specialization,omitempty"`
	SlotCount      int    `json:"slotCount"`
}

type DoctorService interface {
	List(ctx context.Context) ([]DoctorSummary, error)
	Get(ctx context.Context, id string) (*DoctorSummary, error)
}

type doctorService struct {
	cfg  *config.Config
	repo repository.DoctorRepository
}

func NewDoctorService(cfg *config.Config, repo repository.DoctorRepository) DoctorService {
	return &doctorService{cfg: cfg, repo: repo}
}

func (s *doctorService) List(ctx context.Context) ([]DoctorSummary, error) {
	doctors, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to list doctors", err)
	}

	summaries := make([]DoctorSummary, 0, len(doctors))
	for _, doctor := range doctors {
		summaries = append(summaries, DoctorSummary{
			ID:             doctor.ID,
			Name:           doctor.Name,
			Email:          doctor.Email,
			Specialization: doctor.Specialization,
			SlotCount:      len(doctor.SlotsAvailable),
		})
	}
	return summaries, nil
}

func (s *doctorService) Get(ctx context.Context, id string) (*DoctorSummary, error) {
	if id == "" {
		return nil, apperrors.MissingField("doctorId")
	}

	doctor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, doctorserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Doctor", id)
		}
		if errors.Is(err, doctorserrors.ErrMalformed) {
			return nil, apperrors.Parse("Doctor record is malformed", err)
		}
		return nil, apperrors.Internal("Failed to load doctor", err)
	}

	return &DoctorSummary{
		ID:             doctor.ID,
		Name:           doctor.Name,
		Email:          doctor.Email,
		Specialization: doctor.Specialization,
		SlotCount:      len(doctor.SlotsAvailable),
	}, nil
}
