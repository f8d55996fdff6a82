package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLayout(t *testing.T) {
	s, err := New("dataset", "p01")
	checkErr(t, err)

	cases := []struct {
		got, want string
	}{
		{s.ImagePath("cam_0", "color", 7), filepath.Join("dataset", "images", "p01", "cam_0_color_frames", "cam_0_color_frame_7.jpg")},
		{s.LogPath("cam_0"), filepath.Join("dataset", "logs", "p01", "cam_0_log.csv")},
		{s.LabelPath(), filepath.Join("dataset", "labels", "auto_labels_p01.csv")},
		{s.ManifestPath("abc"), filepath.Join("dataset", "logs", "p01", "session_abc.json")},
		{LabeledPath(s.LogPath("cam_0")), filepath.Join("dataset", "logs", "p01", "cam_0_log_labeled.csv")},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("got %s, want %s", c.got, c.want)
		}
	}
}

func TestNewRejectsBadParticipant(t *testing.T) {
	if _, err := New("dataset", ""); err == nil {
		t.Error("expected error for empty participant")
	}
	for _, pid := range []string{"../x", `a\b`, ".."} {
		if _, err := New("dataset", pid); !errors.Is(err, ErrBadParticipant) {
			t.Errorf("%q: expected bad participant error, got %v", pid, err)
		}
	}
}

func TestManifestAndLogs(t *testing.T) {
	s, err := New(t.TempDir(), "p02")
	checkErr(t, err)
	checkErr(t, s.Init())

	type manifest struct {
		ID        string    `json:"id"`
		CreatedAt time.Time `json:"createdAt"`
	}
	in := manifest{ID: "123", CreatedAt: time.Now().UTC().Truncate(time.Second)}
	checkErr(t, s.DumpManifest(in.ID, in))

	var out manifest
	checkErr(t, s.LoadManifest(in.ID, &out))
	if out.ID != in.ID || !out.CreatedAt.Equal(in.CreatedAt) {
		t.Fatalf("got %+v, want %+v", out, in)
	}

	for _, name := range []string{"cam_0_log.csv", "cam_0_log_labeled.csv", "notes.txt"} {
		checkErr(t, os.WriteFile(filepath.Join(s.LogDir(), name), nil, 0660))
	}
	logs, err := s.ListDeviceLogs()
	checkErr(t, err)
	if len(logs) != 1 || filepath.Base(logs[0]) != "cam_0_log.csv" {
		t.Fatalf("unexpected logs %v", logs)
	}
}

func checkErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
