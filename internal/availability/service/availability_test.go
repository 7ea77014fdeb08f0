package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	doctorserrors "medportal/internal/doctors/errors"
	userserrors "medportal/internal/users/errors"
	"medportal/pkg/config"
	"medportal/pkg/events"
	"medportal/pkg/logger"
	"medportal/pkg/model"
)

type mockDoctorRepository struct {
	findByIDFunc       func(ctx context.Context, id string) (*model.Doctor, error)
	saveFunc           func(ctx context.Context, doctor *model.Doctor) error
	updateSlotsFunc    func(ctx context.Context, id string, slots []string, at time.Time) error
	updateSlotsCASFunc func(ctx context.Context, id string, slots []string, expectedRevision int64, at time.Time) (bool, error)
}

func (m *mockDoctorRepository) FindByID(ctx context.Context, id string) (*model.Doctor, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockDoctorRepository) FindAll(ctx context.Context) ([]*model.Doctor, error) {
	return nil, nil
}

func (m *mockDoctorRepository) Save(ctx context.Context, doctor *model.Doctor) error {
	if m.saveFunc == nil {
		return nil
	}
	return m.saveFunc(ctx, doctor)
}

func (m *mockDoctorRepository) UpdateSlots(ctx context.Context, id string, slots []string, at time.Time) error {
	return m.updateSlotsFunc(ctx, id, slots, at)
}

func (m *mockDoctorRepository) UpdateSlotsCAS(ctx context.Context, id string, slots []string, expectedRevision int64, at time.Time) (bool, error) {
	return m.updateSlotsCASFunc(ctx, id, slots, expectedRevision, at)
}

func (m *mockDoctorRepository) ReplaceSlotsAfterSweep(ctx context.Context, id string, slots []string, at time.Time) error {
	return nil
}

func (m *mockDoctorRepository) UpdateSlotsAndBookings(ctx context.Context, id string, slots []string, bookings []model.BookingRef, at time.Time) error {
	return nil
}

func (m *mockDoctorRepository) SetMissingArrayFields(ctx context.Context, id string, fields bson.M) error {
	return nil
}

func (m *mockDoctorRepository) UpdateBookingStatus(ctx context.Context, id string, appointmentID string, status string) error {
	return nil
}

func (m *mockDoctorRepository) Watch(ctx context.Context, id string) (*mongo.ChangeStream, error) {
	return nil, nil
}

type mockUserRepository struct {
	findByIDFunc          func(ctx context.Context, id string) (*model.User, error)
	updateSlotsMirrorFunc func(ctx context.Context, id string, slots []string) error
}

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFunc == nil {
		return nil, userserrors.ErrNotFound
	}
	return m.findByIDFunc(ctx, id)
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, userserrors.ErrNotFound
}

func (m *mockUserRepository) FindPatients(ctx context.Context) ([]*model.User, error) {
	return nil, nil
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	return nil
}

func (m *mockUserRepository) UpdateName(ctx context.Context, id string, name string) error {
	return nil
}

func (m *mockUserRepository) UpdateSlotsMirror(ctx context.Context, id string, slots []string) error {
	if m.updateSlotsMirrorFunc == nil {
		return nil
	}
	return m.updateSlotsMirrorFunc(ctx, id, slots)
}

func (m *mockUserRepository) UpdateBookingsMirror(ctx context.Context, id string, bookings []model.BookingRef) error {
	return nil
}

func (m *mockUserRepository) UpdateBookingStatusMirror(ctx context.Context, id string, appointmentID string, status string) error {
	return nil
}

type mockReconciler struct {
	ensureFunc func(ctx context.Context, doctorID string, hints model.DoctorHints) (*model.Doctor, error)
}

func (m *mockReconciler) Ensure(ctx context.Context, doctorID string, hints model.DoctorHints) (*model.Doctor, error) {
	return m.ensureFunc(ctx, doctorID, hints)
}

func (m *mockReconciler) Repair(ctx context.Context, doctorID string, hints model.DoctorHints) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		WriteStrategy: config.WriteStrategyLastWriteWins,
		CASMaxRetries: 3,
		Log:           logger.New(logger.Config{Level: logger.ERROR, Format: logger.TEXT}),
	}
}

func newService(cfg *config.Config, doctors *mockDoctorRepository, users *mockUserRepository, rec *mockReconciler) AvailabilityService {
	if rec == nil {
		rec = &mockReconciler{
			ensureFunc: func(ctx context.Context, doctorID string, hints model.DoctorHints) (*model.Doctor, error) {
				return &model.Doctor{ID: doctorID, SlotsAvailable: []string{}, Bookings: []model.BookingRef{}}, nil
			},
		}
	}
	return NewAvailabilityService(cfg, doctors, users, rec, events.NewNoopPublisher())
}

func TestGet_EmptyDoctorID(t *testing.T) {
	svc := newService(testConfig(), &mockDoctorRepository{}, &mockUserRepository{}, nil)

	slots, err := svc.Get(context.Background(), "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if slots == nil || len(slots) != 0 {
		t.Errorf("expected empty slice, got %v", slots)
	}
}

func TestGet_MissingDoctorMaterializesAndReturnsEmpty(t *testing.T) {
	ensured := false
	doctors := &mockDoctorRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Doctor, error) {
			return nil, doctorserrors.ErrNotFound
		},
	}
	rec := &mockReconciler{
		ensureFunc: func(ctx context.Context, doctorID string, hints model.DoctorHints) (*model.Doctor, error) {
			ensured = true
			return &model.Doctor{ID: doctorID, SlotsAvailable: []string{}}, nil
		},
	}

	svc := newService(testConfig(), doctors, &mockUserRepository{}, rec)
	slots, err := svc.Get(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("expected empty slots, got %v", slots)
	}
	if !ensured {
		t.Error("expected missing doctor document to be materialized")
	}
}

func TestGet_CorruptSlotsFieldReturnsEmpty(t *testing.T) {
	doctors := &mockDoctorRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Doctor, error) {
			return nil, doctorserrors.ErrMalformed
		},
	}

	svc := newService(testConfig(), doctors, &mockUserRepository{}, nil)
	slots, err := svc.Get(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if slots == nil || len(slots) != 0 {
		t.Errorf("expected empty slice, got %v", slots)
	}
}

func TestGet_StoreErrorReturnsEmpty(t *testing.T) {
	doctors := &mockDoctorRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Doctor, error) {
			return nil, errors.New("connection reset")
		},
	}

	svc := newService(testConfig(), doctors, &mockUserRepository{}, nil)
	slots, err := svc.Get(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if slots == nil || len(slots) != 0 {
		t.Errorf("expected empty slice, got %v", slots)
	}
}

func TestAdd_SetUnion(t *testing.T) {
	var written []string
	doctors := &mockDoctorRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Doctor, error) {
			return &model.Doctor{
				ID:             id,
				SlotsAvailable: []string{"2025-6-1-09:00", "2025-6-1-10:00"},
			}, nil
		},
		updateSlotsFunc: func(ctx context.Context, id string, slots []string, at time.Time) error {
			written = slots
			return nil
		},
	}

	svc := newService(testConfig(), doctors, &mockUserRepository{}, nil)
	merged, err := svc.Add(context.Background(), "doc-1", []string{"2025-6-1-10:00", "2025-6-1-11:00"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := []string{"2025-6-1-09:00", "2025-6-1-10:00", "2025-6-1-11:00"}
	if !reflect.DeepEqual(merged, want) {
		t.Errorf("expected union %v, got %v", want, merged)
	}
	if !reflect.DeepEqual(written, want) {
		t.Errorf("expected union written to store, got %v", written)
	}
}

func TestAdd_IsIdempotent(t *testing.T) {
	existing := []string{"2025-6-1-09:00"}
	var written []string
	doctors := &mockDoctorRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Doctor, error) {
			return &model.Doctor{ID: id, SlotsAvailable: existing}, nil
		},
		updateSlotsFunc: func(ctx context.Context, id string, slots []string, at time.Time) error {
			written = slots
			return nil
		},
	}

	svc := newService(testConfig(), doctors, &mockUserRepository{}, nil)
	merged, err := svc.Add(context.Background(), "doc-1", []string{"2025-6-1-09:00"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !reflect.DeepEqual(merged, existing) || !reflect.DeepEqual(written, existing) {
		t.Errorf("expected re-adding an existing slot to change nothing, got %v", merged)
	}
}

func TestAdd_MissingDoctorID(t *testing.T) {
	svc := newService(testConfig(), &mockDoctorRepository{}, &mockUserRepository{}, nil)
	_, err := svc.Add(context.Background(), "", []string{"2025-6-1-09:00"})
	if err == nil {
		t.Fatal("expected error for missing doctorId")
	}
}

func TestAdd_FallsBackToUserRecord(t *testing.T) {
	var userWritten []string
	var materialized *model.Doctor
	doctors := &mockDoctorRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Doctor, error) {
			return nil, doctorserrors.ErrNotFound
		},
		saveFunc: func(ctx context.Context, doctor *model.Doctor) error {
			materialized = doctor
			return nil
		},
	}
	users := &mockUserRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{
				ID:             id,
				Name:           "Dr. Chen",
				UserType:       model.UserTypeDoctor,
				SlotsAvailable: []string{"2025-6-1-09:00"},
			}, nil
		},
		updateSlotsMirrorFunc: func(ctx context.Context, id string, slots []string) error {
			userWritten = slots
			return nil
		},
	}

	svc := newService(testConfig(), doctors, users, nil)
	merged, err := svc.Add(context.Background(), "doc-1", []string{"2025-6-1-10:00"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := []string{"2025-6-1-09:00", "2025-6-1-10:00"}
	if !reflect.DeepEqual(merged, want) || !reflect.DeepEqual(userWritten, want) {
		t.Errorf("expected write-through to user record with %v, got %v / %v", want, merged, userWritten)
	}
	if materialized == nil {
		t.Fatal("expected doctor document to be materialized")
	}
	if materialized.LinkedUserID != "doc-1" || materialized.Name != "Dr. Chen" {
		t.Errorf("expected materialized doctor linked to user, got %+v", materialized)
	}
}

func TestRemove_IsIdempotent(t *testing.T) {
	existing := []string{"2025-6-1-09:00", "2025-6-1-10:00"}
	var written []string
	doctors := &mockDoctorRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Doctor, error) {
			return &model.Doctor{ID: id, SlotsAvailable: existing}, nil
		},
		updateSlotsFunc: func(ctx context.Context, id string, slots []string, at time.Time) error {
			written = slots
			return nil
		},
	}

	svc := newService(testConfig(), doctors, &mockUserRepository{}, nil)

	remaining, err := svc.Remove(context.Background(), "doc-1", "2025-6-1-09:00")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !reflect.DeepEqual(remaining, []string{"2025-6-1-10:00"}) {
		t.Errorf("expected slot removed, got %v", remaining)
	}

	remaining, err = svc.Remove(context.Background(), "doc-1", "not-a-known-slot")
	if err != nil {
		t.Fatalf("expected no error removing an absent slot, got %v", err)
	}
	if !reflect.DeepEqual(written, existing) {
		t.Errorf("expected store unchanged, got %v", written)
	}
	if !reflect.DeepEqual(remaining, existing) {
		t.Errorf("expected unchanged list, got %v", remaining)
	}
}

func TestWrite_MirrorFailureIsSwallowed(t *testing.T) {
	doctors := &mockDoctorRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Doctor, error) {
			return &model.Doctor{ID: id, SlotsAvailable: []string{}, LinkedUserID: "user-1"}, nil
		},
		updateSlotsFunc: func(ctx context.Context, id string, slots []string, at time.Time) error {
			return nil
		},
	}
	users := &mockUserRepository{
		updateSlotsMirrorFunc: func(ctx context.Context, id string, slots []string) error {
			return errors.New("mirror unavailable")
		},
	}

	svc := newService(testConfig(), doctors, users, nil)
	_, err := svc.Add(context.Background(), "doc-1", []string{"2025-6-1-09:00"})
	if err != nil {
		t.Fatalf("expected mirror failure to be swallowed, got %v", err)
	}
}

func TestAdd_CASRetriesOnConflict(t *testing.T) {
	cfg := testConfig()
	cfg.WriteStrategy = config.WriteStrategyCompareAndSwap

	reads := 0
	casCalls := 0
	doctors := &mockDoctorRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Doctor, error) {
			reads++
			if reads == 1 {
				return &model.Doctor{ID: id, SlotsAvailable: []string{"a"}, Revision: 1}, nil
			}
			// A concurrent writer bumped the revision and added a slot.
			return &model.Doctor{ID: id, SlotsAvailable: []string{"a", "b"}, Revision: 2}, nil
		},
		updateSlotsCASFunc: func(ctx context.Context, id string, slots []string, expectedRevision int64, at time.Time) (bool, error) {
			casCalls++
			return expectedRevision == 2, nil
		},
	}

	svc := newService(cfg, doctors, &mockUserRepository{}, nil)
	merged, err := svc.Add(context.Background(), "doc-1", []string{"c"})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if casCalls != 2 {
		t.Errorf("expected 2 conditional writes, got %d", casCalls)
	}
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(merged, want) {
		t.Errorf("expected re-merged slots %v, got %v", want, merged)
	}
}

func TestAdd_CorruptRecordRecoveryUsesConfiguredStrategy(t *testing.T) {
	cfg := testConfig()
	cfg.WriteStrategy = config.WriteStrategyCompareAndSwap

	casCalls := 0
	directWrites := 0
	doctors := &mockDoctorRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Doctor, error) {
			return nil, doctorserrors.ErrMalformed
		},
		updateSlotsCASFunc: func(ctx context.Context, id string, slots []string, expectedRevision int64, at time.Time) (bool, error) {
			casCalls++
			if expectedRevision != 0 {
				t.Errorf("expected zero revision for unreadable record, got %d", expectedRevision)
			}
			// The corrupt record still carries some revision, so the
			// conditional write loses.
			return false, nil
		},
		updateSlotsFunc: func(ctx context.Context, id string, slots []string, at time.Time) error {
			directWrites++
			want := []string{"a"}
			if !reflect.DeepEqual(slots, want) {
				t.Errorf("expected replacement slots %v, got %v", want, slots)
			}
			return nil
		},
	}

	svc := newService(cfg, doctors, &mockUserRepository{}, nil)
	slots, err := svc.Add(context.Background(), "doc-1", []string{"a"})
	if err != nil {
		t.Fatalf("expected recovery write to succeed, got %v", err)
	}
	if casCalls != 1 {
		t.Errorf("expected the conditional write to be attempted, got %d calls", casCalls)
	}
	if directWrites != 1 {
		t.Errorf("expected one replacement write after unreadable reload, got %d", directWrites)
	}
	if !reflect.DeepEqual(slots, []string{"a"}) {
		t.Errorf("unexpected slots %v", slots)
	}
}

func TestAdd_CASGivesUpAfterMaxRetries(t *testing.T) {
	cfg := testConfig()
	cfg.WriteStrategy = config.WriteStrategyCompareAndSwap
	cfg.CASMaxRetries = 2

	doctors := &mockDoctorRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Doctor, error) {
			return &model.Doctor{ID: id, SlotsAvailable: []string{"a"}, Revision: 1}, nil
		},
		updateSlotsCASFunc: func(ctx context.Context, id string, slots []string, expectedRevision int64, at time.Time) (bool, error) {
			return false, nil
		},
	}

	svc := newService(cfg, doctors, &mockUserRepository{}, nil)
	_, err := svc.Add(context.Background(), "doc-1", []string{"b"})
	if err == nil {
		t.Fatal("expected conflict error after exhausted retries")
	}
}
