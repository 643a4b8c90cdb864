package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/hawosalon/salon/libs/events"
	"github.com/hawosalon/salon/libs/metrics"
	"github.com/hawosalon/salon/services/notification-service/internal/email"
	"github.com/hawosalon/salon/services/notification-service/internal/storage"
	"github.com/segmentio/kafka-go"
)

type fakeEmail struct {
	sent []email.Message
	fail map[string]bool
}

func (f *fakeEmail) ProviderID() string { return "fake" }

func (f *fakeEmail) Send(_ context.Context, m email.Message) error {
	if f.fail[m.To] {
		return errors.New("mailbox unavailable")
	}
	f.sent = append(f.sent, m)
	return nil
}

type fakeSMS struct{ to []string }

func (f *fakeSMS) ProviderID() string { return "fake-sms" }

func (f *fakeSMS) Send(_ context.Context, to, _, _ string) error {
	f.to = append(f.to, to)
	return nil
}

type fakeLog struct {
	rows []storage.Notification
	err  error
	// failAt makes the n-th insert (1-based) fail once.
	failAt  int
	inserts int
}

func (f *fakeLog) Insert(_ context.Context, n storage.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.inserts++
	if f.inserts == f.failAt {
		return errors.New("insert failed")
	}
	f.rows = append(f.rows, n)
	return nil
}

func (f *fakeLog) Delivered(_ context.Context, eventID string) (map[string]bool, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]bool{}
	for _, n := range f.rows {
		if n.EventID == eventID && n.Status == "sent" {
			out[storage.DeliveryKey(n.Channel, n.Recipient)] = true
		}
	}
	return out, nil
}

func eventMessage(t *testing.T, ev events.BookingEvent) kafka.Message {
	t.Helper()
	raw, err := ev.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return kafka.Message{Topic: string(ev.Type), Value: raw}
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestHandleSendsToEveryRecipient(t *testing.T) {
	mail := &fakeEmail{fail: map[string]bool{"ana@salon.test": true}}
	text := &fakeSMS{}
	log := &fakeLog{}
	p := NewProcessor(mail, text, log, discard(), metrics.New("test"))

	err := p.Handle(context.Background(), eventMessage(t, events.BookingEvent{
		EventID: "ev-1", Type: events.BookingRescheduled, BookingID: "b-1",
		Date: "2026-03-02", StartTime: "10:00", EndTime: "11:00", Status: "confirmed",
		Recipients: []events.Recipient{
			{Name: "Cleo", Email: "cleo@example.test", Phone: "+100", Role: "customer"},
			{Name: "Ana", Email: "ana@salon.test", Role: "staff"},
		},
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(mail.sent) != 1 || mail.sent[0].To != "cleo@example.test" {
		t.Fatalf("unexpected emails %+v", mail.sent)
	}
	if !strings.HasPrefix(mail.sent[0].Subject, "Booking moved") {
		t.Fatalf("unexpected subject %q", mail.sent[0].Subject)
	}
	if len(text.to) != 1 || text.to[0] != "+100" {
		t.Fatalf("unexpected sms %v", text.to)
	}
	if len(log.rows) != 3 {
		t.Fatalf("expected 3 logged attempts, got %d", len(log.rows))
	}
	failed := log.rows[2]
	if failed.Status != "failed" || failed.Recipient != "ana@salon.test" || failed.Error == "" || failed.Role != "staff" {
		t.Fatalf("unexpected failure row %+v", failed)
	}
}

func TestHandleDropsInvalidMessages(t *testing.T) {
	log := &fakeLog{}
	p := NewProcessor(&fakeEmail{}, nil, log, discard(), nil)

	if err := p.Handle(context.Background(), kafka.Message{Value: []byte("{")}); err != nil {
		t.Fatalf("invalid json should be dropped, got %v", err)
	}
	if err := p.Handle(context.Background(), eventMessage(t, events.BookingEvent{EventID: "e", Type: events.BookingCreated, BookingID: "b"})); err != nil {
		t.Fatalf("event without recipients should be dropped, got %v", err)
	}
	if len(log.rows) != 0 {
		t.Fatalf("nothing should be logged, got %d rows", len(log.rows))
	}
}

func TestHandleReturnsLogFailure(t *testing.T) {
	p := NewProcessor(&fakeEmail{}, nil, &fakeLog{err: errors.New("db down")}, discard(), nil)
	err := p.Handle(context.Background(), eventMessage(t, events.BookingEvent{
		EventID: "e", Type: events.BookingCreated, BookingID: "b",
		Recipients: []events.Recipient{{Email: "cleo@example.test", Phone: "+100", Role: "customer"}},
	}))
	if err == nil {
		t.Fatal("expected storage error to be returned for retry")
	}
}

func TestHandleRetrySkipsDeliveredRecipients(t *testing.T) {
	mail := &fakeEmail{}
	log := &fakeLog{failAt: 2}
	p := NewProcessor(mail, nil, log, discard(), nil)
	msg := eventMessage(t, events.BookingEvent{
		EventID: "ev-9", Type: events.BookingCreated, BookingID: "b-9",
		Date: "2026-03-02", StartTime: "10:00", EndTime: "11:00", Status: "confirmed",
		Recipients: []events.Recipient{
			{Name: "Cleo", Email: "cleo@example.test", Role: "customer"},
			{Name: "Ana", Email: "ana@salon.test", Role: "staff"},
		},
	})

	if err := p.Handle(context.Background(), msg); err == nil {
		t.Fatal("expected the failed insert to be returned")
	}
	if err := p.Handle(context.Background(), msg); err != nil {
		t.Fatalf("retry: %v", err)
	}

	var toCleo, toAna int
	for _, m := range mail.sent {
		switch m.To {
		case "cleo@example.test":
			toCleo++
		case "ana@salon.test":
			toAna++
		}
	}
	if toCleo != 1 {
		t.Fatalf("customer emailed %d times, want 1", toCleo)
	}
	// Ana's first send went out but was never logged, so the retry sends again.
	if toAna != 2 {
		t.Fatalf("staff emailed %d times, want 2", toAna)
	}
	if len(log.rows) != 2 {
		t.Fatalf("expected 2 logged rows, got %d", len(log.rows))
	}
}
