package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hawosalon/salon/libs/kafkax"
	"github.com/segmentio/kafka-go"
)

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	closed    bool
	drained   chan struct{}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	select {
	case r.drained <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

type memInbox struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func (i *memInbox) Seen(_ context.Context, id string) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.err != nil {
		return false, i.err
	}
	return i.seen[id], nil
}

func (i *memInbox) Record(_ context.Context, id, _ string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.err != nil {
		return i.err
	}
	i.seen[id] = true
	return nil
}

func message(offset int64, eventID string) kafka.Message {
	return kafka.Message{
		Topic:   "booking.created",
		Offset:  offset,
		Headers: kafkax.EventMeta{EventID: eventID, EventType: "booking.created"}.Headers(),
	}
}

func runUntilDrained(t *testing.T, c *Consumer, r *fakeReader) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	select {
	case <-r.drained:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not drain the reader")
	}
	cancel()
	<-done
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestConsumerSkipsDuplicatesAndCommits(t *testing.T) {
	r := &fakeReader{
		msgs:    []kafka.Message{message(1, "ev-1"), message(2, "ev-1"), message(3, "ev-2")},
		drained: make(chan struct{}, 1),
	}
	var handled []string
	c := New(r, &memInbox{seen: map[string]bool{}}, func(_ context.Context, msg kafka.Message) error {
		handled = append(handled, kafkax.ExtractEventMeta(msg).EventID)
		return nil
	}, discard(), Options{})

	runUntilDrained(t, c, r)

	if len(handled) != 2 || handled[0] != "ev-1" || handled[1] != "ev-2" {
		t.Fatalf("unexpected handled events %v", handled)
	}
	if len(r.committed) != 3 {
		t.Fatalf("expected every offset committed, got %v", r.committed)
	}
	if !r.closed {
		t.Fatal("reader not closed")
	}
}

func TestConsumerRetriesHandler(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{message(1, "ev-1"), message(2, "ev-2")}, drained: make(chan struct{}, 1)}
	attempts := map[string]int{}
	c := New(r, &memInbox{seen: map[string]bool{}}, func(_ context.Context, msg kafka.Message) error {
		id := kafkax.ExtractEventMeta(msg).EventID
		attempts[id]++
		if id == "ev-1" && attempts[id] < 2 {
			return errors.New("db down")
		}
		if id == "ev-2" {
			return errors.New("always fails")
		}
		return nil
	}, discard(), Options{MaxAttempts: 3, Backoff: time.Millisecond})

	runUntilDrained(t, c, r)

	if attempts["ev-1"] != 2 || attempts["ev-2"] != 3 {
		t.Fatalf("unexpected attempts %v", attempts)
	}
	if len(r.committed) != 2 {
		t.Fatalf("poison message should still be committed, got %v", r.committed)
	}
}

func TestConsumerHandlesWhenInboxUnavailable(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{message(1, "ev-1")}, drained: make(chan struct{}, 1)}
	calls := 0
	c := New(r, &memInbox{err: errors.New("inbox down")}, func(context.Context, kafka.Message) error {
		calls++
		return nil
	}, discard(), Options{})

	runUntilDrained(t, c, r)
	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d", calls)
	}
}

func TestConsumerRecordsOnlyHandledEvents(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{message(1, "ev-ok"), message(2, "ev-bad")}, drained: make(chan struct{}, 1)}
	inbox := &memInbox{seen: map[string]bool{}}
	c := New(r, inbox, func(_ context.Context, msg kafka.Message) error {
		if kafkax.ExtractEventMeta(msg).EventID == "ev-bad" {
			return errors.New("smtp down")
		}
		return nil
	}, discard(), Options{MaxAttempts: 2, Backoff: time.Millisecond})

	runUntilDrained(t, c, r)

	if !inbox.seen["ev-ok"] {
		t.Fatal("handled event missing from inbox")
	}
	if inbox.seen["ev-bad"] {
		t.Fatal("failed event must not be recorded")
	}

	// A redelivery of the failed event reaches the handler again.
	r2 := &fakeReader{msgs: []kafka.Message{message(3, "ev-bad")}, drained: make(chan struct{}, 1)}
	calls := 0
	c2 := New(r2, inbox, func(context.Context, kafka.Message) error {
		calls++
		return nil
	}, discard(), Options{})
	runUntilDrained(t, c2, r2)
	if calls != 1 || !inbox.seen["ev-bad"] {
		t.Fatalf("expected redelivery handled and recorded, calls=%d", calls)
	}
}
