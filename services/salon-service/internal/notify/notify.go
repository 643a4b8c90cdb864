// Package notify publishes booking events to Kafka after commit. Dispatch is
// asynchronous: Notify enqueues and returns, a fixed pool of workers resolves
// recipients and writes the message.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hawosalon/salon/libs/events"
	"github.com/hawosalon/salon/libs/kafkax"
	"github.com/hawosalon/salon/libs/metrics"
	"github.com/hawosalon/salon/libs/otelx"
	"github.com/hawosalon/salon/services/salon-service/internal/model"
	"github.com/segmentio/kafka-go"
)

// Publisher is the subset of *kafka.Writer the dispatcher needs.
type Publisher interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Directory resolves contact details for recipients.
type Directory interface {
	GetUser(ctx context.Context, id string) (model.User, error)
	GetStaff(ctx context.Context, id string) (model.Staff, error)
}

type Options struct {
	Workers   int
	QueueSize int
	// Timeout bounds one publish including recipient lookup.
	Timeout time.Duration
}

type job struct {
	ev    events.BookingEvent
	trace otelx.TraceCarrier
}

type Dispatcher struct {
	pub     Publisher
	dir     Directory
	logger  *slog.Logger
	metrics *metrics.Registry
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan job
	wg     sync.WaitGroup
}

func NewDispatcher(pub Publisher, dir Directory, logger *slog.Logger, reg *metrics.Registry, opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	d := &Dispatcher{
		pub:     pub,
		dir:     dir,
		logger:  logger,
		metrics: reg,
		timeout: opts.Timeout,
		queue:   make(chan job, opts.QueueSize),
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// Notify never blocks. Events are dropped, with a warning, when the queue is
// full or the dispatcher is closed.
func (d *Dispatcher) Notify(ctx context.Context, ev events.BookingEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(ctx, ev, "dispatcher closed")
		return
	}
	select {
	case d.queue <- job{ev: ev, trace: otelx.CaptureTrace(ctx)}:
	default:
		d.drop(ctx, ev, "queue full")
	}
}

// Close stops accepting events and waits for queued ones to be published or
// for ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("notification queue not drained"), ctx.Err())
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for j := range d.queue {
		ctx, cancel := context.WithTimeout(j.trace.Restore(context.Background()), d.timeout)
		err := d.publish(ctx, j.ev)
		cancel()

		result := "ok"
		if err != nil {
			result = "error"
			d.logger.Error("notification publish failed", "event_id", j.ev.EventID, "type", j.ev.Type, "booking_id", j.ev.BookingID, "err", err)
		}
		if d.metrics != nil {
			d.metrics.NotificationsTotal.WithLabelValues(string(j.ev.Type), result).Inc()
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, ev events.BookingEvent) error {
	ev.Recipients = d.recipients(ctx, ev)
	payload, err := ev.Marshal()
	if err != nil {
		return err
	}
	meta := kafkax.EventMeta{EventID: ev.EventID, EventType: string(ev.Type)}
	msg := kafka.Message{
		Topic:   string(ev.Type),
		Key:     []byte(ev.BookingID),
		Value:   payload,
		Headers: kafkax.InjectTraceHeaders(ctx, meta.Headers()),
	}
	return d.pub.WriteMessages(ctx, msg)
}

// recipients resolves what it can; a missing contact is logged and skipped
// so the remaining recipients are still notified.
func (d *Dispatcher) recipients(ctx context.Context, ev events.BookingEvent) []events.Recipient {
	var out []events.Recipient
	if u, err := d.dir.GetUser(ctx, ev.UserID); err != nil {
		d.logger.Warn("notification recipient unresolved", "user_id", ev.UserID, "err", err)
	} else if u.Email != "" || u.Phone != "" {
		out = append(out, events.Recipient{Name: u.Name, Email: u.Email, Phone: u.Phone, Role: "customer"})
	}
	if ev.NotifyStaff && ev.StaffID != "" {
		if s, err := d.dir.GetStaff(ctx, ev.StaffID); err != nil {
			d.logger.Warn("notification recipient unresolved", "staff_id", ev.StaffID, "err", err)
		} else if s.Email != "" || s.Phone != "" {
			out = append(out, events.Recipient{Name: s.Name, Email: s.Email, Phone: s.Phone, Role: "staff"})
		}
	}
	return out
}

func (d *Dispatcher) drop(ctx context.Context, ev events.BookingEvent, reason string) {
	d.logger.WarnContext(ctx, "notification dropped", "reason", reason, "event_id", ev.EventID, "type", ev.Type)
	if d.metrics != nil {
		d.metrics.NotificationDropped.Inc()
	}
}

// LogPublisher stands in for Kafka when no brokers are configured.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		p.Logger.InfoContext(ctx, "notification", "topic", m.Topic, "key", string(m.Key), "payload", string(m.Value))
	}
	return nil
}
