package labels

import (
	"errors"
	"testing"
	"time"

	"multicam-logger/pkg/ov"
)

func TestStoreAppendList(t *testing.T) {
	s := NewStore(t.TempDir())
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local)

	_, err := s.Append(ov.Label{PID: "p01", Gesture: "wave", GestureIndex: 1, Timestamp: "2024-05-01 10:00:02.500000"}, now)
	checkErr(t, err)
	_, err = s.Append(ov.Label{PID: "p01", Gesture: "point", GestureIndex: 0}, now)
	checkErr(t, err)

	entries, err := s.List("p01")
	checkErr(t, err)
	if len(entries) != 2 {
		t.Fatalf("%d entries", len(entries))
	}
	if entries[0].Gesture != "point" || !entries[0].Timestamp.Equal(now) {
		t.Fatalf("entries not sorted by time: %+v", entries)
	}
	if entries[1].Timestamp.Sub(now) != 2500*time.Millisecond {
		t.Fatalf("timestamp %s", entries[1].Timestamp)
	}

	empty, err := s.List("p02")
	checkErr(t, err)
	if len(empty) != 0 {
		t.Fatal("unknown participant must have no labels")
	}
}

func TestStoreRejects(t *testing.T) {
	s := NewStore(t.TempDir())
	if _, err := s.Append(ov.Label{PID: "../p", Gesture: "wave"}, time.Now()); err == nil {
		t.Error("expected error for participant with separator")
	}
	_, err := s.Append(ov.Label{PID: "p01", Gesture: "wave", Timestamp: "yesterday"}, time.Now())
	if !errors.Is(err, ErrBadTimestamp) {
		t.Errorf("expected bad timestamp, got %v", err)
	}
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("2024-05-01T08:00:00Z")
	checkErr(t, err)
	if !ts.Equal(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("parsed %s", ts)
	}
}

func checkErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
