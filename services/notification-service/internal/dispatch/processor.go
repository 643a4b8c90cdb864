// Package dispatch turns a booking event into emails and text messages for
// each of its recipients and logs every attempt.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hawosalon/salon/libs/events"
	"github.com/hawosalon/salon/libs/metrics"
	"github.com/hawosalon/salon/services/notification-service/internal/email"
	"github.com/hawosalon/salon/services/notification-service/internal/sms"
	"github.com/hawosalon/salon/services/notification-service/internal/storage"
	"github.com/segmentio/kafka-go"
)

// Log persists delivery attempts.
type Log interface {
	Insert(ctx context.Context, n storage.Notification) error
	Delivered(ctx context.Context, eventID string) (map[string]bool, error)
}

type Processor struct {
	email   email.Sender
	sms     sms.Sender
	log     Log
	logger  *slog.Logger
	metrics *metrics.Registry
}

// NewProcessor accepts a nil sms sender to disable text messages.
func NewProcessor(emailSender email.Sender, smsSender sms.Sender, log Log, logger *slog.Logger, reg *metrics.Registry) *Processor {
	return &Processor{email: emailSender, sms: smsSender, log: log, logger: logger, metrics: reg}
}

// Handle matches consumer.Handler. Undecodable messages are logged and
// dropped; only storage failures are returned for retry. Recipients already
// logged as sent for the event are skipped, so a retry after a partial run
// does not message them twice.
func (p *Processor) Handle(ctx context.Context, msg kafka.Message) error {
	ev, err := events.Unmarshal(msg.Value)
	if err != nil {
		p.logger.ErrorContext(ctx, "invalid booking event", "topic", msg.Topic, "offset", msg.Offset, "err", err)
		return nil
	}
	if len(ev.Recipients) == 0 {
		p.logger.WarnContext(ctx, "booking event without recipients", "event_id", ev.EventID, "booking_id", ev.BookingID)
		return nil
	}

	done, err := p.log.Delivered(ctx, ev.EventID)
	if err != nil {
		return fmt.Errorf("load deliveries: %w", err)
	}

	for _, r := range ev.Recipients {
		if r.Email != "" && !done[storage.DeliveryKey("email", r.Email)] {
			if err := p.sendEmail(ctx, ev, r); err != nil {
				return err
			}
		}
		if r.Phone != "" && p.sms != nil && !done[storage.DeliveryKey("sms", r.Phone)] {
			if err := p.sendSMS(ctx, ev, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Processor) sendEmail(ctx context.Context, ev events.BookingEvent, r events.Recipient) error {
	n := p.attempt(ev, r, "email", r.Email)
	m, err := email.Render(ev, r)
	if err == nil {
		n.Subject = m.Subject
		err = p.email.Send(ctx, m)
	}
	n.Provider = p.email.ProviderID()
	return p.record(ctx, n, err)
}

func (p *Processor) sendSMS(ctx context.Context, ev events.BookingEvent, r events.Recipient) error {
	n := p.attempt(ev, r, "sms", r.Phone)
	n.Provider = p.sms.ProviderID()
	err := p.sms.Send(ctx, r.Phone, email.SMSText(ev), ev.BookingID)
	return p.record(ctx, n, err)
}

func (p *Processor) attempt(ev events.BookingEvent, r events.Recipient, channel, to string) storage.Notification {
	return storage.Notification{
		EventID:   ev.EventID,
		EventType: string(ev.Type),
		BookingID: ev.BookingID,
		Channel:   channel,
		Recipient: to,
		Role:      r.Role,
	}
}

func (p *Processor) record(ctx context.Context, n storage.Notification, sendErr error) error {
	n.Status = "sent"
	if sendErr != nil {
		n.Status = "failed"
		n.Error = sendErr.Error()
		p.logger.ErrorContext(ctx, "notification delivery failed", "event_id", n.EventID, "channel", n.Channel, "recipient", n.Recipient, "err", sendErr)
	} else {
		p.logger.InfoContext(ctx, "notification delivered", "event_id", n.EventID, "channel", n.Channel, "booking_id", n.BookingID)
	}
	if p.metrics != nil {
		p.metrics.NotificationsTotal.WithLabelValues(n.EventType, n.Channel+"_"+n.Status).Inc()
	}
	if err := p.log.Insert(ctx, n); err != nil {
		return fmt.Errorf("record notification: %w", err)
	}
	return nil
}
