package orchestrator

import (
	"testing"
	"time"
)

func TestScheduleNext(t *testing.T) {
	rome := time.FixedZone("CEST", 2*3600)
	s := Schedule{Hour: 2, Minute: 0, Loc: rome}

	cases := []struct {
		now  time.Time
		want time.Time
	}{
		{time.Date(2026, 6, 1, 1, 0, 0, 0, rome), time.Date(2026, 6, 1, 2, 0, 0, 0, rome)},
		{time.Date(2026, 6, 1, 2, 0, 0, 0, rome), time.Date(2026, 6, 2, 2, 0, 0, 0, rome)},
		{time.Date(2026, 6, 1, 23, 30, 0, 0, rome), time.Date(2026, 6, 2, 2, 0, 0, 0, rome)},
		// 23:30 UTC on May 31 is already 01:30 on June 1 in the schedule zone
		{time.Date(2026, 5, 31, 23, 30, 0, 0, time.UTC), time.Date(2026, 6, 1, 2, 0, 0, 0, rome)},
		{time.Date(2026, 12, 31, 3, 0, 0, 0, rome), time.Date(2027, 1, 1, 2, 0, 0, 0, rome)},
	}
	for _, tc := range cases {
		if got := s.Next(tc.now); !got.Equal(tc.want) {
			t.Fatalf("Next(%v) = %v, want %v", tc.now, got, tc.want)
		}
	}
}

func TestParseSchedule(t *testing.T) {
	s, err := ParseSchedule("02:30", "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.Hour != 2 || s.Minute != 30 || s.Loc != time.UTC {
		t.Fatalf("unexpected schedule %+v", s)
	}
	if _, err := ParseSchedule("25:00", ""); err == nil {
		t.Fatalf("expected error for invalid time")
	}
	if _, err := ParseSchedule("02:00", "Not/AZone"); err == nil {
		t.Fatalf("expected error for unknown zone")
	}
}
