package availability

import (
	"testing"
	"time"

	"github.com/hawosalon/salon/services/salon-service/internal/model"
)

func TestGenerateSlots_BookedHour(t *testing.T) {
	date, _ := ParseDate("2026-03-02")
	hours := model.DaySchedule{Working: true, Start: "09:00", End: "17:00"}
	busy := []model.Booking{booking("b1", "2026-03-02", "10:00", "11:00", model.StatusConfirmed)}

	slots := GenerateSlots(hours, date, DefaultStep, busy)
	if len(slots) != 16 {
		t.Fatalf("expected 16 slots, got %d", len(slots))
	}
	if slots[0].Start != "09:00" || slots[len(slots)-1].End != "17:00" {
		t.Fatalf("unexpected bounds %s..%s", slots[0].Start, slots[len(slots)-1].End)
	}
	for _, s := range slots {
		wantAvailable := s.Start != "10:00" && s.Start != "10:30"
		if s.Available != wantAvailable {
			t.Fatalf("slot %s-%s: available=%v, want %v", s.Start, s.End, s.Available, wantAvailable)
		}
	}
}

func TestGenerateSlots_DayEndExclusive(t *testing.T) {
	date, _ := ParseDate("2026-03-02")
	hours := model.DaySchedule{Working: true, Start: "09:00", End: "10:45"}

	slots := GenerateSlots(hours, date, 30*time.Minute, nil)
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(slots))
	}
	if last := slots[len(slots)-1]; last.Start != "10:00" || last.End != "10:30" {
		t.Fatalf("unexpected last slot %+v", last)
	}
}

func TestGenerateSlots_BreaksAndCancelled(t *testing.T) {
	date, _ := ParseDate("2026-03-02")
	hours := model.DaySchedule{
		Working: true, Start: "12:00", End: "14:00",
		Breaks: []model.Break{{Start: "13:00", End: "13:30"}},
	}
	busy := []model.Booking{booking("b1", "2026-03-02", "12:00", "12:30", model.StatusCancelled)}

	slots := GenerateSlots(hours, date, 0, busy)
	want := []bool{true, true, false, true}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d", len(want), len(slots))
	}
	for i, s := range slots {
		if s.Available != want[i] {
			t.Fatalf("slot %s: available=%v, want %v", s.Start, s.Available, want[i])
		}
	}
}

func TestGenerateSlots_DayOff(t *testing.T) {
	date, _ := ParseDate("2026-03-02")
	slots := GenerateSlots(model.DaySchedule{}, date, DefaultStep, nil)
	if slots == nil || len(slots) != 0 {
		t.Fatalf("expected empty non-nil slots, got %v", slots)
	}
}

func TestGenerateSlots_Restartable(t *testing.T) {
	date, _ := ParseDate("2026-03-02")
	hours := model.DaySchedule{Working: true, Start: "09:00", End: "12:00"}
	busy := []model.Booking{booking("b1", "2026-03-02", "09:30", "10:15", model.StatusPending)}

	first := GenerateSlots(hours, date, DefaultStep, busy)
	second := GenerateSlots(hours, date, DefaultStep, busy)
	if len(first) != len(second) {
		t.Fatal("repeated calls differ in length")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("slot %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestFitsSchedule(t *testing.T) {
	date, _ := ParseDate("2026-03-02")
	hours := model.DaySchedule{
		Working: true, Start: "09:00", End: "17:00",
		Breaks: []model.Break{{Start: "12:00", End: "13:00"}},
	}
	cases := []struct {
		start string
		mins  int
		want  bool
	}{
		{"09:00", 60, true},
		{"16:00", 60, true},
		{"16:30", 60, false},
		{"08:30", 60, false},
		{"11:30", 60, false},
		{"13:00", 30, true},
	}
	for _, tc := range cases {
		iv, err := NewInterval(date, tc.start, tc.mins)
		if err != nil {
			t.Fatal(err)
		}
		if got := FitsSchedule(hours, iv); got != tc.want {
			t.Fatalf("%s+%d: FitsSchedule = %v, want %v", tc.start, tc.mins, got, tc.want)
		}
	}
	if FitsSchedule(model.DaySchedule{}, mustInterval(t, "2026-03-02", "10:00", 30)) {
		t.Fatal("non-working day should not fit")
	}
}
