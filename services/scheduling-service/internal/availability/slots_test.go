package availability

import (
	"slices"
	"testing"
	"time"

	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/model"
)

func lt(s string) model.LocalTime {
	v, err := model.ParseLocalTime(s)
	if err != nil {
		panic(err)
	}
	return v
}

func date(s string) model.Date {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("timezone %s unavailable: %v", name, err)
	}
	return loc
}

func render(slots []Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Start.String()+"-"+s.End.String())
	}
	return out
}

func TestGenerateSlots_MorningTiles(t *testing.T) {
	got := slices.Collect(GenerateSlots(date("2025-03-10"), lt("09:00"), lt("12:00"), 30, time.UTC))
	want := []string{"09:00-09:30", "09:30-10:00", "10:00-10:30", "10:30-11:00", "11:00-11:30", "11:30-12:00"}
	if !slices.Equal(render(got), want) {
		t.Fatalf("got %v, want %v", render(got), want)
	}
}

func TestGenerateSlots_DropsTrailingPartialTile(t *testing.T) {
	got := slices.Collect(GenerateSlots(date("2025-03-10"), lt("09:00"), lt("10:50"), 45, time.UTC))
	want := []string{"09:00-09:45", "09:45-10:30"}
	if !slices.Equal(render(got), want) {
		t.Fatalf("got %v, want %v", render(got), want)
	}
	for _, s := range got {
		if s.End > lt("10:50") {
			t.Fatalf("slot %v ends after the rule", s)
		}
	}
}

func TestGenerateSlots_EmptyCases(t *testing.T) {
	d := date("2025-03-10")
	cases := []struct {
		name       string
		start, end model.LocalTime
		duration   int
	}{
		{"zero duration", lt("09:00"), lt("10:00"), 0},
		{"negative duration", lt("09:00"), lt("10:00"), -15},
		{"duration longer than rule", lt("09:00"), lt("09:20"), 30},
		{"inverted rule", lt("10:00"), lt("09:00"), 15},
	}
	for _, tc := range cases {
		if n := len(slices.Collect(GenerateSlots(d, tc.start, tc.end, tc.duration, time.UTC))); n != 0 {
			t.Fatalf("%s: expected no slots, got %d", tc.name, n)
		}
	}
}

func TestGenerateSlots_OversizedDuration(t *testing.T) {
	d := date("2025-03-10")
	for _, minutes := range []int{model.MaxDurationMinutes + 1, 2_000_000_000} {
		n := 0
		for range GenerateSlots(d, lt("09:00"), lt("12:00"), minutes, time.UTC) {
			if n++; n > 1 {
				break
			}
		}
		if n != 0 {
			t.Fatalf("duration %d: expected no slots, got at least %d", minutes, n)
		}
	}
	if _, ok := MeetingEnd(d, lt("09:00"), 2_000_000_000, time.UTC); ok {
		t.Fatalf("oversized duration must be rejected")
	}
}

func TestGenerateSlots_StaysInsideRule(t *testing.T) {
	berlin := mustLoc(t, "Europe/Berlin")
	windows := []struct{ start, end string }{
		{"00:00", "23:59"},
		{"09:00", "12:00"},
		{"09:00", "10:50"},
		{"13:15", "13:40"},
		{"22:00", "23:30"},
	}
	for _, loc := range []*time.Location{time.UTC, berlin} {
		for _, w := range windows {
			start, end := lt(w.start), lt(w.end)
			for minutes := model.MinDurationMinutes; minutes <= model.MaxDurationMinutes; minutes++ {
				limit := int(end-start)/minutes + 1
				n := 0
				for s := range GenerateSlots(date("2025-03-10"), start, end, minutes, loc) {
					if n++; n > limit {
						t.Fatalf("%s-%s/%d in %s: more than %d slots", w.start, w.end, minutes, loc, limit)
					}
					if s.Start < start || s.End > end || s.End <= s.Start {
						t.Fatalf("%s-%s/%d in %s: slot %v outside the rule", w.start, w.end, minutes, loc, s)
					}
				}
			}
		}
	}
}

func TestGenerateSlots_Restartable(t *testing.T) {
	seq := GenerateSlots(date("2025-03-10"), lt("09:00"), lt("10:00"), 15, time.UTC)
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	if len(first) != 4 || !slices.Equal(first, second) {
		t.Fatalf("expected identical passes, got %v and %v", first, second)
	}

	// Early break must not disturb later passes.
	for range seq {
		break
	}
	if n := len(slices.Collect(seq)); n != 4 {
		t.Fatalf("expected 4 slots after early break, got %d", n)
	}
}

func TestGenerateSlots_SpringForward(t *testing.T) {
	ny := mustLoc(t, "America/New_York")
	// 02:00 does not exist on 2025-03-09; tiles advance by absolute hours.
	got := slices.Collect(GenerateSlots(date("2025-03-09"), lt("01:00"), lt("04:00"), 60, ny))
	want := []string{"01:00-03:00", "03:00-04:00"}
	if !slices.Equal(render(got), want) {
		t.Fatalf("got %v, want %v", render(got), want)
	}
}

func TestGenerateSlots_FallBack(t *testing.T) {
	ny := mustLoc(t, "America/New_York")
	// 01:00-02:00 repeats on 2025-11-02; the tile whose labels run backwards is skipped.
	got := slices.Collect(GenerateSlots(date("2025-11-02"), lt("00:00"), lt("04:00"), 60, ny))
	want := []string{"00:00-01:00", "01:00-02:00", "02:00-03:00", "03:00-04:00"}
	if !slices.Equal(render(got), want) {
		t.Fatalf("got %v, want %v", render(got), want)
	}
}

func TestOverlaps(t *testing.T) {
	if Overlaps(lt("09:00"), lt("10:00"), lt("10:00"), lt("11:00")) {
		t.Fatalf("touching intervals must not overlap")
	}
	if !Overlaps(lt("09:00"), lt("10:00"), lt("09:30"), lt("09:45")) {
		t.Fatalf("contained interval must overlap")
	}

	points := []model.LocalTime{lt("09:00"), lt("09:30"), lt("10:00"), lt("10:30"), lt("11:00")}
	for _, a1 := range points {
		for _, a2 := range points {
			for _, b1 := range points {
				for _, b2 := range points {
					if a1 >= a2 || b1 >= b2 {
						continue
					}
					if Overlaps(a1, a2, b1, b2) != Overlaps(b1, b2, a1, a2) {
						t.Fatalf("asymmetric result for [%v,%v) and [%v,%v)", a1, a2, b1, b2)
					}
				}
			}
		}
	}
}

func TestIsPastDate(t *testing.T) {
	now := time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC)
	la := mustLoc(t, "America/Los_Angeles")

	if !IsPastDate(date("2025-03-09"), now, time.UTC) {
		t.Fatalf("yesterday in UTC should be past")
	}
	if IsPastDate(date("2025-03-09"), now, la) {
		t.Fatalf("2025-03-09 is still today in Los Angeles")
	}
	if IsPastDate(date("2025-03-10"), now, time.UTC) {
		t.Fatalf("today is not past")
	}
}

func TestMeetingEnd(t *testing.T) {
	d := date("2025-03-10")
	if end, ok := MeetingEnd(d, lt("09:00"), 30, time.UTC); !ok || end != lt("09:30") {
		t.Fatalf("unexpected end %v %v", end, ok)
	}
	if _, ok := MeetingEnd(d, lt("23:30"), 60, time.UTC); ok {
		t.Fatalf("meeting crossing midnight must be rejected")
	}
	if _, ok := MeetingEnd(d, lt("09:00"), 0, time.UTC); ok {
		t.Fatalf("zero duration must be rejected")
	}
}
