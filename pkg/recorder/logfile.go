package recorder

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"multicam-logger/pkg/storage/consts"
)

// logFile is an append-only CSV device log. The header is written once,
// when the file is created; reopening an existing log continues it.
// Each row reaches the file in a single write, so a failed row never
// blocks the ones after it.
type logFile struct {
	f    io.WriteCloser
	buf  bytes.Buffer
	rows int
}

func openLogFile(path string, header []string) (*logFile, error) {
	if err := trimTornRow(path); err != nil {
		return nil, err
	}
	rows, err := countRows(path)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, consts.DefaultFilePerm)
	if err != nil {
		return nil, err
	}
	l := &logFile{f: f, rows: rows}

	if rows < 0 {
		// the header row brings rows from -1 to 0
		if err = l.writeRow(header); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	return l, nil
}

// trimTornRow cuts an existing log back to its last complete line, dropping
// a row left half written by an interrupted run.
func trimTornRow(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, consts.DefaultFilePerm)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size == 0 {
		return nil
	}

	last := make([]byte, 1)
	if _, err = f.ReadAt(last, size-1); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if last[0] == '\n' {
		return nil
	}

	chunk := make([]byte, 4096)
	end := size
	for end > 0 {
		start := max(end-int64(len(chunk)), 0)
		n, err := f.ReadAt(chunk[:end-start], start)
		if err != nil && err != io.EOF {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if i := bytes.LastIndexByte(chunk[:n], '\n'); i >= 0 {
			end = start + int64(i) + 1
			break
		}
		end = start
	}

	logger.Warnf("%s ends with a partial row, dropping %d bytes", path, size-end)
	return f.Truncate(end)
}

// countRows returns the number of data rows in an existing log, or -1 when
// the file does not exist or is empty.
func countRows(path string) (int, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return -1, nil
	}
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.Comma = consts.CSVDelimiter
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	n := 0
	for {
		_, err = r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", path, err)
		}
		n++
	}
	if n == 0 {
		return -1, nil
	}

	return n - 1, nil
}

func (l *logFile) writeRow(row []string) error {
	l.buf.Reset()
	w := csv.NewWriter(&l.buf)
	w.Comma = consts.CSVDelimiter
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	if _, err := l.f.Write(l.buf.Bytes()); err != nil {
		return err
	}
	l.rows++
	return nil
}

func (l *logFile) Close() error {
	return l.f.Close()
}
