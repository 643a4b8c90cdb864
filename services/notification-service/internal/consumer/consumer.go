// Package consumer reads booking events from Kafka, skips ones already seen,
// and hands the rest to a Handler.
package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/hawosalon/salon/libs/kafkax"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Handler func(ctx context.Context, msg kafka.Message) error

// Reader is the subset of *kafka.Reader used here.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Inbox remembers events that were handled successfully.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Record(ctx context.Context, eventID, eventType string) error
}

type Options struct {
	MaxAttempts int
	Backoff     time.Duration
}

type Consumer struct {
	reader  Reader
	inbox   Inbox
	handler Handler
	logger  *slog.Logger
	opts    Options
}

func New(reader Reader, inbox Inbox, handler Handler, logger *slog.Logger, opts Options) *Consumer {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	return &Consumer{reader: reader, inbox: inbox, handler: handler, logger: logger, opts: opts}
}

// Run blocks until ctx ends. Offsets are committed after each message is
// handled or given up on. An event enters the inbox only once its handler
// succeeds, so delivery is at-least-once: a crash mid-handler replays the
// message, and the handler must tolerate seeing it again.
func (c *Consumer) Run(ctx context.Context) {
	defer func() { _ = c.reader.Close() }()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka fetch error", "err", err)
			if !sleep(ctx, c.opts.Backoff) {
				return
			}
			continue
		}

		if !c.process(ctx, msg) {
			return
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("kafka commit failed", "err", err, "topic", msg.Topic, "offset", msg.Offset)
		}
	}
}

// process returns false only when ctx ended mid-way.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	meta := kafkax.ExtractEventMeta(msg)
	spanCtx, span := otel.Tracer("kafka").Start(kafkax.ExtractTraceContext(ctx, msg), "kafka.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
			attribute.String("messaging.message_id", meta.EventID),
		),
	)
	defer span.End()

	seen, err := c.inbox.Seen(spanCtx, meta.EventID)
	if err != nil {
		// Without the inbox we cannot tell duplicates apart; handle anyway.
		c.logger.Error("inbox lookup failed", "err", err, "event_id", meta.EventID)
		span.RecordError(err)
	} else if seen {
		c.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
		return true
	}

	for attempt := 1; ; attempt++ {
		err := c.handler(spanCtx, msg)
		if err == nil {
			if err := c.inbox.Record(spanCtx, meta.EventID, meta.EventType); err != nil {
				c.logger.Error("inbox record failed", "err", err, "event_id", meta.EventID)
				span.RecordError(err)
			}
			return true
		}
		span.RecordError(err)
		if attempt >= c.opts.MaxAttempts {
			span.SetStatus(codes.Error, "handler failed")
			c.logger.Error("event dropped after retries", "event_id", meta.EventID, "attempts", attempt, "err", err)
			return true
		}
		c.logger.Warn("handler failed, retrying", "event_id", meta.EventID, "attempt", attempt, "err", err)
		if !sleep(ctx, c.opts.Backoff*time.Duration(attempt)) {
			return false
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
