package recorder

import (
	"context"
	"encoding/csv"
	"os"
	"testing"
	"time"

	"multicam-logger/pkg/camera"
	"multicam-logger/pkg/storage"
	"multicam-logger/pkg/storage/consts"
)

func checkErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func newStore(t *testing.T) *storage.Storage {
	t.Helper()
	s, err := storage.New(t.TempDir(), "p01")
	checkErr(t, err)
	return s
}

func newDevice(t *testing.T, store *storage.Storage, s camera.Settings, maxFailures int) *Device {
	t.Helper()
	if s.FPS == 0 {
		s.FPS = 200
	}
	src, err := camera.Open(s)
	checkErr(t, err)
	return NewDevice(src, store, DeviceOptions{Quality: 80, WriterSleep: 5 * time.Millisecond, MaxFailures: maxFailures})
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readLog(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	checkErr(t, err)
	defer f.Close()
	r := csv.NewReader(f)
	r.Comma = consts.CSVDelimiter
	rows, err := r.ReadAll()
	checkErr(t, err)
	return rows
}

func shutdown(t *testing.T, s *Session) Report {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	report, err := s.Shutdown(ctx)
	checkErr(t, err)
	return report
}
