package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	userserrors "medportal/internal/users/errors"
	"medportal/internal/users/repository"
	"medportal/pkg/config"
	apperrors "medportal/pkg/errors"
	"medportal/pkg/model"
)

type UserService interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.Session, error)
	Login(ctx context.Context, req *model.LoginRequest) (*model.Session, error)
	CheckEmail(ctx context.Context, email string, expectedType string) (*model.EmailTypeCheck, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	ListPatients(ctx context.Context) ([]*model.User, error)
	UpdateProfile(ctx context.Context, id string, name string) error
}

type userService struct {
	cfg      *config.Config
	repo     repository.UserRepository
	validate *validator.Validate
}

func NewUserService(cfg *config.Config, repo repository.UserRepository) UserService {
	return &userService{
		cfg:      cfg,
		repo:     repo,
		validate: validator.New(),
	}
}

func (s *userService) Register(ctx context.Context, req *model.RegisterRequest) (*model.Session, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.Validation("Invalid registration request", map[string]any{"error": err.Error()})
	}
	if req.UserType != model.UserTypePatient && req.UserType != model.UserTypeDoctor {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Unknown user type: %s", req.UserType))
	}

	if existing, err := s.repo.FindByEmail(ctx, req.Email); err == nil && existing != nil {
		return nil, apperrors.Conflict(fmt.Sprintf("Email %s is already registered as a %s", req.Email, existing.UserType))
	} else if err != nil && !errors.Is(err, userserrors.ErrNotFound) {
		return nil, apperrors.Internal("Failed to check existing account", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Internal("Failed to hash password", err)
	}

	user := &model.User{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Email:          req.Email,
		UserType:       req.UserType,
		PasswordHash:   string(hash),
		Specialization: req.Specialization,
	}
	if user.UserType == model.UserTypeDoctor {
		user.SlotsAvailable = []string{}
		user.Bookings = []model.BookingRef{}
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, userserrors.ErrEmailTaken) {
			return nil, apperrors.Conflict(fmt.Sprintf("Email %s is already registered", req.Email))
		}
		return nil, apperrors.Internal("Failed to create account", err)
	}

	s.cfg.Log.Info("user registered", "user_id", user.ID, "user_type", user.UserType)

	return s.issueSession(user)
}

func (s *userService) Login(ctx context.Context, req *model.LoginRequest) (*model.Session, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.Validation("Invalid login request", map[string]any{"error": err.Error()})
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("Invalid email or password")
		}
		return nil, apperrors.Internal("Failed to look up account", err)
	}

	// User type is fixed at registration. Logging in through the wrong
	// portal tells the caller which one to use instead.
	if req.UserType != "" && req.UserType != user.UserType {
		return nil, apperrors.Forbidden(fmt.Sprintf("This email is registered as a %s account", user.UserType))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperrors.Unauthorized("Invalid email or password")
	}

	s.cfg.Log.Info("user logged in", "user_id", user.ID, "user_type", user.UserType)

	return s.issueSession(user)
}

func (s *userService) CheckEmail(ctx context.Context, email string, expectedType string) (*model.EmailTypeCheck, error) {
	if email == "" {
		return nil, apperrors.MissingField("email")
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return &model.EmailTypeCheck{Exists: false}, nil
		}
		return nil, apperrors.Internal("Failed to check email", err)
	}

	return &model.EmailTypeCheck{
		Exists:   true,
		UserType: user.UserType,
		Mismatch: expectedType != "" && expectedType != user.UserType,
	}, nil
}

func (s *userService) GetUser(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperrors.MissingField("userId")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("User", id)
		}
		return nil, apperrors.Internal("Failed to load user", err)
	}
	return user, nil
}

func (s *userService) ListPatients(ctx context.Context) ([]*model.User, error) {
	patients, err := s.repo.FindPatients(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to list patients", err)
	}
	if patients == nil {
		patients = []*model.User{}
	}
	return patients, nil
}

func (s *userService) UpdateProfile(ctx context.Context, id string, name string) error {
	if id == "" {
		return apperrors.MissingField("userId")
	}
	if name == "" {
		return apperrors.MissingField("name")
	}

	if err := s.repo.UpdateName(ctx, id, name); err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("User", id)
		}
		return apperrors.Internal("Failed to update profile", err)
	}
	return nil
}

func (s *userService) issueSession(user *model.User) (*model.Session, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":       user.ID,
		"user_type": user.UserType,
		"iat":       now.Unix(),
		"exp":       now.Add(s.cfg.TokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, apperrors.Internal("Failed to sign token", err)
	}

	return &model.Session{
		Token:    signed,
		UserID:   user.ID,
		UserType: user.UserType,
		Name:     user.Name,
	}, nil
}
