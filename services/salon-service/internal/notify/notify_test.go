package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hawosalon/salon/libs/events"
	"github.com/hawosalon/salon/libs/kafkax"
	"github.com/hawosalon/salon/services/salon-service/internal/model"
	"github.com/hawosalon/salon/services/salon-service/internal/store/memory"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu    sync.Mutex
	msgs  []kafka.Message
	block chan struct{}
	err   error
}

func (p *capturePublisher) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msgs...)
	return p.err
}

func (p *capturePublisher) messages() []kafka.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]kafka.Message(nil), p.msgs...)
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func seed(t *testing.T) (*memory.Store, model.Staff) {
	t.Helper()
	st := memory.New()
	st.PutUser(model.User{ID: "user-1", Name: "Cleo", Email: "cleo@example.test", Role: "customer"})
	staff := model.Staff{Name: "Ana", Email: "ana@salon.test", Active: true}
	require.NoError(t, st.CreateStaff(context.Background(), &staff))
	return st, staff
}

func TestDispatcherPublishesWithRecipients(t *testing.T) {
	st, staff := seed(t)
	pub := &capturePublisher{}
	d := NewDispatcher(pub, st, discard(), nil, Options{Workers: 1})

	d.Notify(context.Background(), events.BookingEvent{
		EventID: "ev-1", Type: events.BookingRescheduled, BookingID: "b-1",
		UserID: "user-1", StaffID: staff.ID, NotifyStaff: true,
	})
	require.NoError(t, d.Close(context.Background()))

	msgs := pub.messages()
	require.Len(t, msgs, 1)
	require.Equal(t, string(events.BookingRescheduled), msgs[0].Topic)
	require.Equal(t, "b-1", string(msgs[0].Key))
	require.Equal(t, "ev-1", kafkax.ExtractEventMeta(msgs[0]).EventID)

	ev, err := events.Unmarshal(msgs[0].Value)
	require.NoError(t, err)
	require.Equal(t, []events.Recipient{
		{Name: "Cleo", Email: "cleo@example.test", Role: "customer"},
		{Name: "Ana", Email: "ana@salon.test", Role: "staff"},
	}, ev.Recipients)
}

func TestDispatcherSkipsStaffUnlessAsked(t *testing.T) {
	st, staff := seed(t)
	pub := &capturePublisher{}
	d := NewDispatcher(pub, st, discard(), nil, Options{Workers: 1})

	d.Notify(context.Background(), events.BookingEvent{
		EventID: "ev-2", Type: events.BookingStatusChanged, BookingID: "b-1",
		UserID: "user-1", StaffID: staff.ID,
	})
	d.Notify(context.Background(), events.BookingEvent{
		EventID: "ev-3", Type: events.BookingCreated, BookingID: "b-2", UserID: "ghost",
	})
	require.NoError(t, d.Close(context.Background()))

	msgs := pub.messages()
	require.Len(t, msgs, 2, "unknown users still produce an event")
	first, err := events.Unmarshal(msgs[0].Value)
	require.NoError(t, err)
	require.Len(t, first.Recipients, 1)
	second, err := events.Unmarshal(msgs[1].Value)
	require.NoError(t, err)
	require.Empty(t, second.Recipients)
}

func TestDispatcherDropsWhenFullOrClosed(t *testing.T) {
	st, _ := seed(t)
	pub := &capturePublisher{block: make(chan struct{})}
	d := NewDispatcher(pub, st, discard(), nil, Options{Workers: 1, QueueSize: 1, Timeout: time.Second})

	// One event occupies the worker, one fills the queue, the rest drop.
	for i := 0; i < 5; i++ {
		d.Notify(context.Background(), events.BookingEvent{EventID: "ev", Type: events.BookingCreated, BookingID: "b", UserID: "user-1"})
		time.Sleep(10 * time.Millisecond)
	}
	close(pub.block)
	require.NoError(t, d.Close(context.Background()))
	require.Len(t, pub.messages(), 2)

	d.Notify(context.Background(), events.BookingEvent{EventID: "late", Type: events.BookingCreated, BookingID: "b"})
	require.Len(t, pub.messages(), 2)
	require.NoError(t, d.Close(context.Background()), "close is idempotent")
}

func TestDispatcherPublishErrorDoesNotStopWorkers(t *testing.T) {
	st, _ := seed(t)
	pub := &capturePublisher{err: errors.New("broker down")}
	d := NewDispatcher(pub, st, discard(), nil, Options{Workers: 2})
	for i := 0; i < 3; i++ {
		d.Notify(context.Background(), events.BookingEvent{EventID: "ev", Type: events.BookingCancelled, BookingID: "b", UserID: "user-1"})
	}
	require.NoError(t, d.Close(context.Background()))
	require.Len(t, pub.messages(), 3)
}

func TestCloseHonoursDeadline(t *testing.T) {
	st, _ := seed(t)
	pub := &capturePublisher{block: make(chan struct{})}
	defer close(pub.block)
	d := NewDispatcher(pub, st, discard(), nil, Options{Workers: 1, Timeout: time.Minute})
	d.Notify(context.Background(), events.BookingEvent{EventID: "ev", Type: events.BookingCreated, BookingID: "b", UserID: "user-1"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)
}
