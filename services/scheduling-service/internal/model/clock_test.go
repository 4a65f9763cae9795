package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseLocalTime(t *testing.T) {
	cases := []struct {
		in   string
		want LocalTime
		ok   bool
	}{
		{"09:00", 540, true},
		{"23:59", 1439, true},
		{"00:00", 0, true},
		{"10:30:00", 630, true},
		{"24:00", 0, false},
		{"9:00", 0, false},
		{"09:60", 0, false},
		{"nine", 0, false},
		{"+9:00", 0, false},
		{"-0:30", 0, false},
		{"09:+5", 0, false},
		{"09:00:zz", 0, false},
		{"09:00:60", 0, false},
		{"09:00:5", 0, false},
		{"０9:00", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseLocalTime(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q: got %v err %v", tc.in, got, err)
		}
		if !tc.ok && !errors.Is(err, ErrValidation) {
			t.Fatalf("%q: expected validation error, got %v", tc.in, err)
		}
	}
	if LocalTime(545).String() != "09:05" {
		t.Fatalf("unexpected render %q", LocalTime(545).String())
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-10")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Weekday() != time.Monday || d.String() != "2025-03-10" {
		t.Fatalf("unexpected date %v (%v)", d, d.Weekday())
	}
	for _, bad := range []string{"2025-02-30", "03/10/2025", "2025-3-10", ""} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrValidation) {
			t.Fatalf("%q: expected validation error, got %v", bad, err)
		}
	}
}

func TestDateBefore(t *testing.T) {
	a := Date{2025, time.March, 9}
	b := Date{2025, time.March, 10}
	if !a.Before(b) || b.Before(a) || a.Before(a) {
		t.Fatalf("unexpected ordering")
	}
	if !(Date{2024, time.December, 31}).Before(a) {
		t.Fatalf("year should dominate")
	}
}

func TestTextMarshalling(t *testing.T) {
	var payload struct {
		Date  Date      `json:"date"`
		Start LocalTime `json:"start"`
	}
	if err := json.Unmarshal([]byte(`{"date":"2025-03-10","start":"14:30"}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.Start != 870 || payload.Date != (Date{2025, time.March, 10}) {
		t.Fatalf("unexpected payload %+v", payload)
	}
	out, _ := json.Marshal(payload)
	if string(out) != `{"date":"2025-03-10","start":"14:30"}` {
		t.Fatalf("unexpected json %s", out)
	}
}

func TestLoadTimezone(t *testing.T) {
	if _, err := LoadTimezone(""); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty timezone must be rejected")
	}
	if _, err := LoadTimezone("Mars/Olympus"); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown timezone must be rejected")
	}
	if _, err := LoadTimezone("America/New_York"); err != nil {
		t.Fatalf("load: %v", err)
	}
}
