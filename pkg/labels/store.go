// Package labels records gesture labels from the experiment UI and merges
// them into device logs.
package labels

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"multicam-logger/pkg/ov"
	"multicam-logger/pkg/storage"
	"multicam-logger/pkg/storage/consts"
	"multicam-logger/pkg/storage/util"
	"multicam-logger/pkg/utils"
)

var logger *zap.SugaredLogger

func init() {
	logger = utils.GetLogger().Named("labels")
}

var header = []string{"timestamp", "gesture", "gesture_index", "participant_id"}

var ErrBadTimestamp = errors.New("timestamp must be RFC 3339 or " + consts.TimestampLayout)

// Store appends labels to one CSV file per participant.
type Store struct {
	baseDir string
	lock    sync.Mutex
}

func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) BaseDir() string {
	return s.baseDir
}

// ParseTimestamp accepts RFC 3339 or the log layout in local time.
func ParseTimestamp(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t.Local(), nil
	}
	if t, err := time.ParseInLocation(consts.TimestampLayout, v, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, v)
}

func (s *Store) Append(l ov.Label, now time.Time) (ov.LabelEntry, error) {
	// participant ids end up in file names
	stg, err := storage.New(s.baseDir, l.PID)
	if err != nil {
		return ov.LabelEntry{}, err
	}
	ts := now
	if l.Timestamp != "" {
		if ts, err = ParseTimestamp(l.Timestamp); err != nil {
			return ov.LabelEntry{}, err
		}
	}
	entry := ov.LabelEntry{Timestamp: ts, Gesture: l.Gesture, GestureIndex: l.GestureIndex, PID: l.PID}

	s.lock.Lock()
	defer s.lock.Unlock()
	if err = util.MkdirAll(storage.LabelDir(s.baseDir)); err != nil {
		return ov.LabelEntry{}, err
	}
	path := stg.LabelPath()
	writeHeader := !util.Exists(path)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, consts.DefaultFilePerm)
	if err != nil {
		return ov.LabelEntry{}, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = consts.CSVDelimiter
	if writeHeader {
		_ = w.Write(header)
	}
	_ = w.Write([]string{
		entry.Timestamp.Format(consts.TimestampLayout),
		entry.Gesture,
		strconv.Itoa(entry.GestureIndex),
		entry.PID,
	})
	w.Flush()
	if err = w.Error(); err != nil {
		return ov.LabelEntry{}, err
	}
	logger.Infof("label %s#%d for %s at %s", entry.Gesture, entry.GestureIndex, entry.PID,
		entry.Timestamp.Format(consts.TimestampLayout))

	return entry, nil
}

// List returns the labels of pid ordered by time. A participant without
// labels has none.
func (s *Store) List(pid string) ([]ov.LabelEntry, error) {
	if _, err := storage.New(s.baseDir, pid); err != nil {
		return nil, err
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	entries, err := Load(storage.LabelPath(s.baseDir, pid))
	if errors.Is(err, os.ErrNotExist) {
		return []ov.LabelEntry{}, nil
	}
	return entries, err
}

// Load reads a label file and sorts it by time.
func Load(path string) ([]ov.LabelEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.Comma = consts.CSVDelimiter
	r.FieldsPerRecord = len(header)

	var entries []ov.LabelEntry
	for line := 1; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if line == 1 && record[0] == header[0] {
			continue
		}
		ts, err := ParseTimestamp(record[0])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		idx, err := strconv.Atoi(record[2])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: gesture index: %w", path, line, err)
		}
		entries = append(entries, ov.LabelEntry{Timestamp: ts, Gesture: record[1], GestureIndex: idx, PID: record[3]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})

	return entries, nil
}
