// Package recorder runs synchronized capture sessions: one controller per
// device feeding buffered writers, coordinated by a Session.
package recorder

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"multicam-logger/pkg/camera"
	"multicam-logger/pkg/skeleton"
	"multicam-logger/pkg/storage/consts"
	"multicam-logger/pkg/utils"
)

var logger *zap.SugaredLogger

func init() {
	logger = utils.GetLogger().Named("recorder")
}

var (
	ErrAlreadyStarted = errors.New("already started")
	ErrStopped        = errors.New("already stopped")
	ErrSetupTimeout   = errors.New("devices did not become ready in time")
	ErrDuplicateKey   = errors.New("device key already registered")
)

// ImageSample is one channel image waiting to be written to Path.
type ImageSample struct {
	Path  string
	Frame *camera.Frame
}

// LogSample is one row of a device log.
type LogSample []string

// logHeader names the columns of a device log: the timestamp, one success
// flag per channel, one image path per channel and, for body-tracking
// devices, one column per joint.
func logHeader(key string, channels []camera.Channel, withSkeleton bool) []string {
	header := make([]string, 0, 1+2*len(channels)+skeleton.NumJoints)
	header = append(header, "timestamp")
	for _, ch := range channels {
		header = append(header, fmt.Sprintf("%s_%s_success", key, ch))
	}
	for _, ch := range channels {
		header = append(header, fmt.Sprintf("%s_%s_paths", key, ch))
	}
	if withSkeleton {
		header = append(header, skeleton.Header()...)
	}
	return header
}

// buildSamples turns a bundle into its log row and the image samples of
// every channel that was captured. Paths in the row are exactly the paths
// of the returned images; failed channels get an empty path.
func buildSamples(paths func(ch camera.Channel) string, channels []camera.Channel,
	withSkeleton bool, b *camera.Bundle) (LogSample, []ImageSample) {
	row := make(LogSample, 0, 1+2*len(channels)+skeleton.NumJoints)
	row = append(row, b.Timestamp.Format(consts.TimestampLayout))

	images := make([]ImageSample, 0, len(channels))
	chPaths := make([]string, len(channels))
	for i, ch := range channels {
		ok := b.OK(ch)
		row = append(row, strconv.FormatBool(ok))
		if ok {
			chPaths[i] = paths(ch)
			images = append(images, ImageSample{Path: chPaths[i], Frame: b.Frames[ch]})
		}
	}
	row = append(row, chPaths...)
	if withSkeleton {
		row = append(row, skeleton.Columns(b.Skeleton)...)
	}

	return row, images
}

func writeImage(s ImageSample, quality int) error {
	data, err := encodeFrame(s.Frame, quality)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.Path, err)
	}
	if err = os.WriteFile(s.Path, data, consts.DefaultFilePerm); err != nil {
		return fmt.Errorf("write %s: %w", s.Path, err)
	}
	return nil
}
