package labels

import (
	"encoding/csv"
	"os"
	"testing"
	"time"

	"multicam-logger/pkg/ov"
	"multicam-logger/pkg/storage"
	"multicam-logger/pkg/storage/consts"
	"multicam-logger/pkg/storage/util"
)

func TestGestureAt(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local)
	entries := []ov.LabelEntry{
		{Timestamp: base, Gesture: "wave"},
		{Timestamp: base.Add(time.Second), Gesture: "point"},
	}
	cases := []struct {
		at   time.Time
		want string
	}{
		{base.Add(-time.Millisecond), NoGesture},
		{base, "wave"},
		{base.Add(500 * time.Millisecond), "wave"},
		{base.Add(time.Second), "point"},
		{base.Add(time.Hour), "point"},
	}
	for _, c := range cases {
		if got := GestureAt(entries, c.at); got != c.want {
			t.Errorf("at %s: got %s, want %s", c.at, got, c.want)
		}
	}
	if GestureAt(nil, base) != NoGesture {
		t.Error("no labels must give none")
	}
}

func TestMergeParticipant(t *testing.T) {
	base := t.TempDir()
	stg, err := storage.New(base, "p01")
	checkErr(t, err)
	checkErr(t, util.MkdirAll(stg.LogDir()))

	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local)
	log := "timestamp;cam_color_success;cam_color_paths\n" +
		t0.Format(consts.TimestampLayout) + ";true;a.jpg\n" +
		t0.Add(2*time.Second).Format(consts.TimestampLayout) + ";true;b.jpg\n"
	checkErr(t, os.WriteFile(stg.LogPath("cam"), []byte(log), 0600))

	store := NewStore(base)
	_, err = store.Append(ov.Label{PID: "p01", Gesture: "wave", Timestamp: t0.Add(time.Second).Format(consts.TimestampLayout)}, time.Now())
	checkErr(t, err)

	out, err := MergeParticipant(stg)
	checkErr(t, err)
	if len(out) != 1 || out[0] != storage.LabeledPath(stg.LogPath("cam")) {
		t.Fatalf("written %v", out)
	}

	f, err := os.Open(out[0])
	checkErr(t, err)
	defer f.Close()
	r := csv.NewReader(f)
	r.Comma = consts.CSVDelimiter
	rows, err := r.ReadAll()
	checkErr(t, err)
	if rows[0][3] != GestureColumn || rows[1][3] != NoGesture || rows[2][3] != "wave" {
		t.Fatalf("rows %v", rows)
	}

	// labeled logs are not merged again
	out, err = MergeParticipant(stg)
	checkErr(t, err)
	if len(out) != 1 {
		t.Fatalf("second merge wrote %v", out)
	}
}
