package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	doctorserrors "medportal/internal/doctors/errors"
	"medportal/pkg/config"
	"medportal/pkg/model"
)

const CollectionName = "doctors"

type DoctorRepository interface {
	FindByID(ctx context.Context, id string) (*model.Doctor, error)
	FindAll(ctx context.Context) ([]*model.Doctor, error)
	Save(ctx context.Context, doctor *model.Doctor) error
	UpdateSlots(ctx context.Context, id string, slots []string, at time.Time) error
	UpdateSlotsCAS(ctx context.Context, id string, slots []string, expectedRevision int64, at time.Time) (bool, error)
	ReplaceSlotsAfterSweep(ctx context.Context, id string, slots []string, at time.Time) error
	UpdateSlotsAndBookings(ctx context.Context, id string, slots []string, bookings []model.BookingRef, at time.Time) error
	SetMissingArrayFields(ctx context.Context, id string, fields bson.M) error
	UpdateBookingStatus(ctx context.Context, id string, appointmentID string, status string) error
	Watch(ctx context.Context, id string) (*mongo.ChangeStream, error)
}

type mongoDoctorRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoDoctorRepository(cfg *config.Config) DoctorRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoDoctorRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoDoctorRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoDoctorRepository) FindByID(ctx context.Context, id string) (*model.Doctor, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	raw, err := r.collection.FindOne(ctx, bson.M{"_id": id}).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, doctorserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find doctor: %w", err)
	}

	var doctor model.Doctor
	if err := bson.Unmarshal(raw, &doctor); err != nil {
		// Document exists but one of its fields has the wrong shape.
		return nil, fmt.Errorf("%w: %v", doctorserrors.ErrMalformed, err)
	}

	return &doctor, nil
}

func (r *mongoDoctorRepository) FindAll(ctx context.Context) ([]*model.Doctor, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find doctors: %w", err)
	}
	defer cursor.Close(ctx)

	var doctors []*model.Doctor
	if err = cursor.All(ctx, &doctors); err != nil {
		return nil, fmt.Errorf("failed to decode doctors: %w", err)
	}

	return doctors, nil
}

// Save creates or fully replaces the doctor record at its id.
func (r *mongoDoctorRepository) Save(ctx context.Context, doctor *model.Doctor) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if doctor.SlotsAvailable == nil {
		doctor.SlotsAvailable = []string{}
	}
	if doctor.Bookings == nil {
		doctor.Bookings = []model.BookingRef{}
	}
	doctor.LastUpdated = time.Now().UTC().Truncate(time.Millisecond)

	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": doctor.ID}, doctor, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save doctor: %w", err)
	}
	return nil
}

func (r *mongoDoctorRepository) UpdateSlots(ctx context.Context, id string, slots []string, at time.Time) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"slots_available": slots,
			"last_updated":    at,
		},
		"$inc": bson.M{"revision": 1},
	})
	if err != nil {
		return fmt.Errorf("failed to update slots: %w", err)
	}
	if result.MatchedCount == 0 {
		return doctorserrors.ErrNotFound
	}
	return nil
}

// UpdateSlotsCAS applies the slot set only if the record revision is still
// the one the caller read. Returns false on a lost race without writing.
func (r *mongoDoctorRepository) UpdateSlotsCAS(ctx context.Context, id string, slots []string, expectedRevision int64, at time.Time) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id}
	if expectedRevision == 0 {
		filter["revision"] = bson.M{"$in": bson.A{nil, int64(0)}}
	} else {
		filter["revision"] = expectedRevision
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{
			"slots_available": slots,
			"last_updated":    at,
		},
		"$inc": bson.M{"revision": 1},
	})
	if err != nil {
		return false, fmt.Errorf("failed to update slots: %w", err)
	}
	return result.MatchedCount == 1, nil
}

// ReplaceSlotsAfterSweep writes the retained set directly, bypassing merge
// semantics, and stamps last_swept.
func (r *mongoDoctorRepository) ReplaceSlotsAfterSweep(ctx context.Context, id string, slots []string, at time.Time) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"slots_available": slots,
			"last_swept":      at,
			"last_updated":    at,
		},
		"$inc": bson.M{"revision": 1},
	})
	if err != nil {
		return fmt.Errorf("failed to replace slots: %w", err)
	}
	if result.MatchedCount == 0 {
		return doctorserrors.ErrNotFound
	}
	return nil
}

func (r *mongoDoctorRepository) UpdateSlotsAndBookings(ctx context.Context, id string, slots []string, bookings []model.BookingRef, at time.Time) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"slots_available": slots,
			"bookings":        bookings,
			"last_updated":    at,
		},
		"$inc": bson.M{"revision": 1},
	})
	if err != nil {
		return fmt.Errorf("failed to update slots and bookings: %w", err)
	}
	if result.MatchedCount == 0 {
		return doctorserrors.ErrNotFound
	}
	return nil
}

// SetMissingArrayFields fills absent fields only; present data is untouched.
func (r *mongoDoctorRepository) SetMissingArrayFields(ctx context.Context, id string, fields bson.M) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	setOnMissing := bson.M{}
	for field, value := range fields {
		setOnMissing[field] = bson.M{
			"$cond": bson.A{
				bson.M{"$eq": bson.A{bson.M{"$type": "$" + field}, "missing"}},
				value,
				"$" + field,
			},
		}
	}
	setOnMissing["last_updated"] = time.Now().UTC()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.A{bson.M{"$set": setOnMissing}})
	if err != nil {
		return fmt.Errorf("failed to repair doctor: %w", err)
	}
	if result.MatchedCount == 0 {
		return doctorserrors.ErrNotFound
	}
	return nil
}

func (r *mongoDoctorRepository) UpdateBookingStatus(ctx context.Context, id string, appointmentID string, status string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"bookings.$[entry].status": status,
			"last_updated":             time.Now().UTC(),
		}},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []any{bson.M{"entry.appointment_id": appointmentID}},
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if result.MatchedCount == 0 {
		return doctorserrors.ErrNotFound
	}
	return nil
}

// Watch opens a change stream scoped to one doctor record.
func (r *mongoDoctorRepository) Watch(ctx context.Context, id string) (*mongo.ChangeStream, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "documentKey._id", Value: id}}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	stream, err := r.collection.Watch(ctx, pipeline, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to watch doctor record: %w", err)
	}
	return stream, nil
}
