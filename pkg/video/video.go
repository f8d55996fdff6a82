// Package video assembles stored JPEG frames into MJPEG AVI files.
package video

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"image/jpeg"
	"os"
	"strings"

	"github.com/icza/mjpeg"
	"go.uber.org/zap"

	"multicam-logger/pkg/storage/consts"
	"multicam-logger/pkg/utils"
)

var logger *zap.SugaredLogger

func init() {
	logger = utils.GetLogger().Named("video")
}

var ErrNoFrames = errors.New("no frames to export")

type Builder struct {
	width  int
	height int
	fps    int

	cnt int
	aw  mjpeg.AviWriter
}

func NewBuilder(path string, width, height, fps int) (*Builder, error) {
	aw, err := mjpeg.New(path, int32(width), int32(height), int32(fps))
	if err != nil {
		return nil, err
	}

	return &Builder{
		width:  width,
		height: height,
		fps:    fps,
		aw:     aw,
	}, nil
}

// Add appends one JPEG frame. Frames of another size are rejected since an
// AVI stream has a single frame size.
func (b *Builder) Add(frame []byte) error {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(frame))
	if err != nil {
		return fmt.Errorf("not a jpeg frame: %w", err)
	}
	if cfg.Width != b.width || cfg.Height != b.height {
		return fmt.Errorf("frame is %dx%d, video is %dx%d", cfg.Width, cfg.Height, b.width, b.height)
	}
	if err = b.aw.AddFrame(frame); err != nil {
		return err
	}
	b.cnt++

	return nil
}

func (b *Builder) Close() error {
	return b.aw.Close()
}

func (b *Builder) GetCnt() int {
	return b.cnt
}

// Export writes the frames of one channel, in log order, to an AVI at out.
// Rows whose channel failed or whose image is unreadable are skipped.
func Export(logPath, channel, out string, fps int) (int, error) {
	f, err := os.Open(logPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	r := csv.NewReader(bufio.NewReader(f))
	r.Comma = consts.CSVDelimiter
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", logPath, err)
	}
	if len(rows) < 2 {
		return 0, ErrNoFrames
	}

	col := -1
	for i, name := range rows[0] {
		if strings.HasSuffix(name, "_"+channel+"_paths") {
			col = i
			break
		}
	}
	if col < 0 {
		return 0, fmt.Errorf("%s has no %s channel", logPath, channel)
	}

	var b *Builder
	for _, row := range rows[1:] {
		if col >= len(row) || row[col] == "" {
			continue
		}
		frame, err := os.ReadFile(row[col])
		if err != nil {
			logger.Warnf("skip frame: %v", err)
			continue
		}
		if b == nil {
			cfg, err := jpeg.DecodeConfig(bytes.NewReader(frame))
			if err != nil {
				logger.Warnf("skip %s: %v", row[col], err)
				continue
			}
			if b, err = NewBuilder(out, cfg.Width, cfg.Height, fps); err != nil {
				return 0, err
			}
		}
		if err = b.Add(frame); err != nil {
			logger.Warnf("skip %s: %v", row[col], err)
		}
	}
	if b == nil {
		return 0, ErrNoFrames
	}
	if err = b.Close(); err != nil {
		return b.GetCnt(), err
	}
	logger.Infof("exported %d frames to %s", b.GetCnt(), out)

	return b.GetCnt(), nil
}
