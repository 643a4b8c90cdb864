package events

import "testing"

func TestUnmarshalRejectsUnknownType(t *testing.T) {
	if _, err := Unmarshal([]byte(`{"event_id":"e","booking_id":"b","type":"booking.exploded"}`)); err == nil {
		t.Fatal("expected error for unknown event type")
	}
	if _, err := Unmarshal([]byte(`{"type":"booking.created"}`)); err == nil {
		t.Fatal("expected error for missing ids")
	}
	e, err := Unmarshal([]byte(`{"event_id":"e","booking_id":"b","type":"booking.cancelled","reason":"sick"}`))
	if err != nil || e.Reason != "sick" {
		t.Fatalf("unexpected result %+v err=%v", e, err)
	}
}
