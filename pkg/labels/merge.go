package labels

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"time"

	"multicam-logger/pkg/ov"
	"multicam-logger/pkg/storage"
	"multicam-logger/pkg/storage/consts"
)

const (
	GestureColumn = "gesture"
	NoGesture     = "none"
)

// MergeParticipant labels every device log of the participant and returns
// the files written.
func MergeParticipant(stg *storage.Storage) ([]string, error) {
	entries, err := Load(stg.LabelPath())
	if err != nil {
		return nil, err
	}
	logs, err := stg.ListDeviceLogs()
	if err != nil {
		return nil, err
	}

	var res []string
	for _, p := range logs {
		out, err := MergeLog(p, entries)
		if err != nil {
			return res, err
		}
		logger.Infof("labeled log written: %s", out)
		res = append(res, out)
	}

	return res, nil
}

// MergeLog writes a copy of the device log with a gesture column holding
// the most recent label at or before each frame, or "none" before the
// first label. entries must be sorted by time.
func MergeLog(logPath string, entries []ov.LabelEntry) (string, error) {
	rows, err := readCSV(logPath)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("%s: empty log", logPath)
	}

	out := storage.LabeledPath(logPath)
	f, err := os.OpenFile(out, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, consts.DefaultFilePerm)
	if err != nil {
		return "", err
	}
	defer f.Close()
	buf := bufio.NewWriter(f)
	w := csv.NewWriter(buf)
	w.Comma = consts.CSVDelimiter

	if err = w.Write(append(rows[0], GestureColumn)); err != nil {
		return "", err
	}
	for i, row := range rows[1:] {
		ts, err := time.ParseInLocation(consts.TimestampLayout, row[0], time.Local)
		if err != nil {
			return "", fmt.Errorf("%s row %d: %w", logPath, i+1, err)
		}
		if err = w.Write(append(row, GestureAt(entries, ts))); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err = w.Error(); err != nil {
		return "", err
	}
	if err = buf.Flush(); err != nil {
		return "", err
	}

	return out, nil
}

// GestureAt returns the gesture of the last entry not after ts.
func GestureAt(entries []ov.LabelEntry, ts time.Time) string {
	i := sort.Search(len(entries), func(i int) bool {
		return entries[i].Timestamp.After(ts)
	})
	if i == 0 {
		return NoGesture
	}
	return entries[i-1].Gesture
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(bufio.NewReader(f))
	r.Comma = consts.CSVDelimiter
	r.FieldsPerRecord = -1

	return r.ReadAll()
}
