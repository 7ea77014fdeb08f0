package service

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	userserrors "medportal/internal/users/errors"
	"medportal/pkg/config"
	apperrors "medportal/pkg/errors"
	"medportal/pkg/logger"
	"medportal/pkg/model"
)

type mockUserRepository struct {
	findByIDFunc                  func(ctx context.Context, id string) (*model.User, error)
	findByEmailFunc               func(ctx context.Context, email string) (*model.User, error)
	findPatientsFunc              func(ctx context.Context) ([]*model.User, error)
	createFunc                    func(ctx context.Context, user *model.User) error
	updateNameFunc                func(ctx context.Context, id string, name string) error
	updateSlotsMirrorFunc         func(ctx context.Context, id string, slots []string) error
	updateBookingsMirrorFunc      func(ctx context.Context, id string, bookings []model.BookingRef) error
	updateBookingStatusMirrorFunc func(ctx context.Context, id string, appointmentID string, status string) error
}

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return m.findByEmailFunc(ctx, email)
}

func (m *mockUserRepository) FindPatients(ctx context.Context) ([]*model.User, error) {
	return m.findPatientsFunc(ctx)
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	return m.createFunc(ctx, user)
}

func (m *mockUserRepository) UpdateName(ctx context.Context, id string, name string) error {
	return m.updateNameFunc(ctx, id, name)
}

func (m *mockUserRepository) UpdateSlotsMirror(ctx context.Context, id string, slots []string) error {
	return m.updateSlotsMirrorFunc(ctx, id, slots)
}

func (m *mockUserRepository) UpdateBookingsMirror(ctx context.Context, id string, bookings []model.BookingRef) error {
	return m.updateBookingsMirrorFunc(ctx, id, bookings)
}

func (m *mockUserRepository) UpdateBookingStatusMirror(ctx context.Context, id string, appointmentID string, status string) error {
	return m.updateBookingStatusMirrorFunc(ctx, id, appointmentID, status)
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
		Log:       logger.New(logger.Config{Level: logger.ERROR, Format: logger.TEXT}),
	}
}

func TestRegister_CreatesDoctorWithEmptyArrays(t *testing.T) {
	var created *model.User
	repo := &mockUserRepository{
		findByEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
			return nil, userserrors.ErrNotFound
		},
		createFunc: func(ctx context.Context, user *model.User) error {
			created = user
			return nil
		},
	}

	svc := NewUserService(testConfig(), repo)
	session, err := svc.Register(context.Background(), &model.RegisterRequest{
		Name:           "Dr. Chen",
		Email:          "chen@example.com",
		Password:       "a-long-password",
		UserType:       model.UserTypeDoctor,
		Specialization: "Cardiology",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if session.Token == "" {
		t.Error("expected a signed token")
	}
	if session.UserType != model.UserTypeDoctor {
		t.Errorf("expected session user type doctor, got %s", session.UserType)
	}
	if created == nil {
		t.Fatal("expected Create to be called")
	}
	if created.SlotsAvailable == nil || created.Bookings == nil {
		t.Error("expected doctor record to be created with empty arrays")
	}
	if created.PasswordHash == "a-long-password" {
		t.Error("expected password to be hashed")
	}
}

func TestRegister_RejectsTakenEmail(t *testing.T) {
	repo := &mockUserRepository{
		findByEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "u1", Email: email, UserType: model.UserTypePatient}, nil
		},
	}

	svc := NewUserService(testConfig(), repo)
	_, err := svc.Register(context.Background(), &model.RegisterRequest{
		Name:     "Someone",
		Email:    "taken@example.com",
		Password: "a-long-password",
		UserType: model.UserTypeDoctor,
	})
	if err == nil {
		t.Fatal("expected error for taken email")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeConflict {
		t.Errorf("expected conflict error, got %v", err)
	}
}

func TestRegister_RejectsShortPassword(t *testing.T) {
	svc := NewUserService(testConfig(), &mockUserRepository{})
	_, err := svc.Register(context.Background(), &model.RegisterRequest{
		Name:     "Someone",
		Email:    "s@example.com",
		Password: "short",
		UserType: model.UserTypePatient,
	})
	if err == nil {
		t.Fatal("expected validation error for short password")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestLogin_Succeeds(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.MinCost)
	repo := &mockUserRepository{
		findByEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{
				ID:           "u1",
				Name:         "Pat",
				Email:        email,
				UserType:     model.UserTypePatient,
				PasswordHash: string(hash),
			}, nil
		},
	}

	svc := NewUserService(testConfig(), repo)
	session, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    "pat@example.com",
		Password: "correct-password",
		UserType: model.UserTypePatient,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if session.UserID != "u1" {
		t.Errorf("expected user id u1, got %s", session.UserID)
	}
}

func TestLogin_RejectsWrongPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.MinCost)
	repo := &mockUserRepository{
		findByEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "u1", Email: email, UserType: model.UserTypePatient, PasswordHash: string(hash)}, nil
		},
	}

	svc := NewUserService(testConfig(), repo)
	_, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    "pat@example.com",
		Password: "wrong-password",
	})
	if err == nil {
		t.Fatal("expected error for wrong password")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeUnauthorized {
		t.Errorf("expected unauthorized error, got %v", err)
	}
}

func TestLogin_RejectsWrongPortal(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.MinCost)
	repo := &mockUserRepository{
		findByEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "d1", Email: email, UserType: model.UserTypeDoctor, PasswordHash: string(hash)}, nil
		},
	}

	svc := NewUserService(testConfig(), repo)
	_, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    "doc@example.com",
		Password: "correct-password",
		UserType: model.UserTypePatient,
	})
	if err == nil {
		t.Fatal("expected error for wrong portal")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeForbidden {
		t.Errorf("expected forbidden error, got %v", err)
	}
}

func TestCheckEmail(t *testing.T) {
	repo := &mockUserRepository{
		findByEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
			if email == "doc@example.com" {
				return &model.User{ID: "d1", UserType: model.UserTypeDoctor}, nil
			}
			return nil, userserrors.ErrNotFound
		},
	}
	svc := NewUserService(testConfig(), repo)

	check, err := svc.CheckEmail(context.Background(), "doc@example.com", model.UserTypePatient)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !check.Exists || !check.Mismatch || check.UserType != model.UserTypeDoctor {
		t.Errorf("expected exists+mismatch doctor, got %+v", check)
	}

	check, err = svc.CheckEmail(context.Background(), "nobody@example.com", "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if check.Exists {
		t.Error("expected unknown email to not exist")
	}
}

func TestListPatients_NilBecomesEmpty(t *testing.T) {
	repo := &mockUserRepository{
		findPatientsFunc: func(ctx context.Context) ([]*model.User, error) {
			return nil, nil
		},
	}
	svc := NewUserService(testConfig(), repo)

	patients, err := svc.ListPatients(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if patients == nil {
		t.Error("expected empty slice, got nil")
	}
}
