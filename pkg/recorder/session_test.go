package recorder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"multicam-logger/pkg/camera"
)

func TestSessionFourDevices(t *testing.T) {
	store := newStore(t)
	s := NewSession(SessionOptions{ReadyPollInterval: 5 * time.Millisecond, ShutdownPollInterval: 5 * time.Millisecond})
	for i := 0; i < 3; i++ {
		checkErr(t, s.Register(newDevice(t, store, camera.Settings{
			Name: fmt.Sprintf("webcam_%d", i), Kind: camera.KindSimWebcam, WarmupFrames: i * 3,
		}, 3)))
	}
	checkErr(t, s.Register(newDevice(t, store, camera.Settings{Name: "kinect", Kind: camera.KindSimDepth, BodyEvery: 3}, 0)))

	checkErr(t, s.Start(context.Background()))
	for _, d := range s.Devices() {
		if !d.Ready() {
			t.Fatalf("%s released before ready", d.Key())
		}
	}
	waitFor(t, 3*time.Second, func() bool {
		for _, d := range s.Devices() {
			if d.Frames() < 10 {
				return false
			}
		}
		return true
	})
	report := shutdown(t, s)

	if len(report.Devices) != 4 {
		t.Fatalf("%d device reports", len(report.Devices))
	}
	for _, d := range s.Devices() {
		if images, logs := d.BufferLens(); images != 0 || logs != 0 || !d.Drained() {
			t.Fatalf("%s not drained", d.Key())
		}
		rows := readLog(t, store.LogPath(d.Key()))
		if len(rows)-1 != d.Frames() {
			t.Fatalf("%s: %d rows for %d frames", d.Key(), len(rows)-1, d.Frames())
		}
		n := len(d.src.Channels())
		for _, row := range rows[1:] {
			if row[0] == "" {
				t.Fatalf("%s: empty timestamp", d.Key())
			}
			for c := 1 + n; c < 1+2*n; c++ {
				if _, err := os.Stat(row[c]); err != nil {
					t.Fatalf("%s: %v", d.Key(), err)
				}
			}
		}
	}
	for _, r := range report.Devices {
		if r.PermittedAt.IsZero() || r.FirstSampleAt.IsZero() || r.Rate.Frames != r.Frames {
			t.Fatalf("%s: incomplete report %+v", r.Key, r)
		}
	}
}

func TestSessionDeviceFailureDoesNotAbort(t *testing.T) {
	store := newStore(t)
	s := NewSession(SessionOptions{ReadyPollInterval: 5 * time.Millisecond, ShutdownPollInterval: 5 * time.Millisecond})
	bad := newDevice(t, store, camera.Settings{Name: "bad", Kind: camera.KindSimWebcam, FailFrom: 2}, 3)
	good := newDevice(t, store, camera.Settings{Name: "good", Kind: camera.KindSimWebcam}, 3)
	checkErr(t, s.Register(bad))
	checkErr(t, s.Register(good))
	checkErr(t, s.Start(context.Background()))

	waitFor(t, 2*time.Second, bad.Stopped)
	n := good.Frames()
	waitFor(t, 2*time.Second, func() bool { return good.Frames() > n+5 })
	if good.Stopped() {
		t.Fatal("healthy device stopped with the failing one")
	}
	shutdown(t, s)
	if bad.Frames() != 2 {
		t.Fatalf("bad device frames %d, want 2", bad.Frames())
	}
}

func TestSessionSetupTimeout(t *testing.T) {
	s := NewSession(SessionOptions{
		ReadyPollInterval:    5 * time.Millisecond,
		ReadyTimeout:         100 * time.Millisecond,
		ShutdownPollInterval: 5 * time.Millisecond,
	})
	store := newStore(t)
	checkErr(t, s.Register(newDevice(t, store, camera.Settings{Name: "slow", Kind: camera.KindSimWebcam, WarmupFrames: 1 << 20}, 3)))
	checkErr(t, s.Register(newDevice(t, store, camera.Settings{Name: "fast", Kind: camera.KindSimWebcam}, 3)))

	err := s.Start(context.Background())
	if !errors.Is(err, ErrSetupTimeout) {
		t.Fatalf("expected setup timeout, got %v", err)
	}
	report := shutdown(t, s)
	for _, r := range report.Devices {
		if r.Frames != 0 {
			t.Fatalf("%s sampled %d frames without release", r.Key, r.Frames)
		}
	}
}

func TestSessionInterruptDuringSetup(t *testing.T) {
	s := NewSession(SessionOptions{ReadyPollInterval: 5 * time.Millisecond, ShutdownPollInterval: 5 * time.Millisecond})
	checkErr(t, s.Register(newDevice(t, newStore(t), camera.Settings{Name: "slow", Kind: camera.KindSimWebcam, WarmupFrames: 1 << 20}, 3)))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := s.Start(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected interrupted setup, got %v", err)
	}
	shutdown(t, s)
}

func TestSessionRegister(t *testing.T) {
	s := NewSession(SessionOptions{})
	store := newStore(t)
	checkErr(t, s.Register(newDevice(t, store, camera.Settings{Name: "cam", Kind: camera.KindSimWebcam}, 3)))
	err := s.Register(newDevice(t, store, camera.Settings{Name: "cam", Kind: camera.KindSimWebcam}, 3))
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
	shutdown(t, s)
}
