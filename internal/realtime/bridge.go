// Package realtime pushes slot-set changes out to observers. It rides the
// document store's change streams: one subscription per observed doctor,
// each notification carrying the full updated document.
package realtime

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"medportal/pkg/logger"
)

// Stream is the subset of *mongo.ChangeStream the bridge consumes, kept
// narrow so tests can drive the loop with a fake.
type Stream interface {
	Next(ctx context.Context) bool
	Decode(val any) error
	Err() error
	Close(ctx context.Context) error
}

// WatchFunc opens a change stream scoped to one doctor document.
type WatchFunc func(ctx context.Context, doctorID string) (Stream, error)

// OnUpdate receives the doctor's slot set after every observed change.
// A non-array or unreadable slots field is delivered as an empty set.
type OnUpdate func(slots []string)

type Bridge struct {
	watch WatchFunc
	log   *logger.Logger
}

func NewBridge(watch WatchFunc, log *logger.Logger) *Bridge {
	return &Bridge{
		watch: watch,
		log:   log,
	}
}

// Subscription keeps a change stream open until released. Unsubscribe is
// idempotent and blocks until the delivery loop has fully stopped.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *Subscription) Unsubscribe() {
	s.once.Do(s.cancel)
	<-s.done
}

type changeEvent struct {
	OperationType string   `bson:"operationType"`
	FullDocument  bson.Raw `bson:"fullDocument"`
}

// Subscribe opens a change stream on the doctor's record and invokes
// onUpdate with the normalized slot set for every notification. Delivery
// errors surface as onUpdate(empty) rather than as failures; the caller's
// view degrades to "no availability" the same way a failed read does.
func (b *Bridge) Subscribe(ctx context.Context, doctorID string, onUpdate OnUpdate) (*Subscription, error) {
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	stream, err := b.watch(streamCtx, doctorID)
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &Subscription{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go b.deliver(streamCtx, doctorID, stream, onUpdate, sub.done)

	return sub, nil
}

func (b *Bridge) deliver(ctx context.Context, doctorID string, stream Stream, onUpdate OnUpdate, done chan struct{}) {
	defer close(done)
	defer func() {
		if err := stream.Close(context.Background()); err != nil {
			b.log.Warn("failed to close change stream", "doctor_id", doctorID, "error", err)
		}
	}()

	for stream.Next(ctx) {
		var event changeEvent
		if err := stream.Decode(&event); err != nil {
			b.log.Warn("failed to decode change notification", "doctor_id", doctorID, "error", err)
			onUpdate([]string{})
			continue
		}
		onUpdate(extractSlots(event.FullDocument))
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		b.log.Warn("change stream failed", "doctor_id", doctorID, "error", err)
		onUpdate([]string{})
	}
}

// extractSlots pulls slots_available out of the raw document, tolerating a
// missing field, a non-array value, and non-string elements.
func extractSlots(doc bson.Raw) []string {
	slots := []string{}
	if len(doc) == 0 {
		return slots
	}

	field, err := doc.LookupErr("slots_available")
	if err != nil {
		return slots
	}
	array, ok := field.ArrayOK()
	if !ok {
		return slots
	}
	values, err := array.Values()
	if err != nil {
		return slots
	}

	for _, value := range values {
		if s, ok := value.StringValueOK(); ok {
			slots = append(slots, s)
		}
	}
	return slots
}
