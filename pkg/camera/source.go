// Package camera presents every capture device behind one Source interface.
package camera

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"multicam-logger/pkg/skeleton"
	"multicam-logger/pkg/utils"
)

var logger *zap.SugaredLogger

func init() {
	logger = utils.GetLogger().Named("camera")
}

var (
	// ErrDeviceClosed means the device is gone; its controller must stop.
	ErrDeviceClosed = errors.New("device closed")
	// ErrReadFailed is a transient read failure; the cycle is skipped.
	ErrReadFailed = errors.New("frame could not be read")
	ErrNotOpened  = errors.New("device not opened")
)

type Channel string

const (
	Color    Channel = "color"
	Depth    Channel = "depth"
	Infrared Channel = "ir"
)

type Format int

const (
	// FormatJPEG frames are already compressed by the device and written as is.
	FormatJPEG Format = iota
	FormatRGB24
	// FormatGray16 is little-endian 16 bit, used by depth and infrared.
	FormatGray16
)

func (f Format) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatRGB24:
		return "rgb24"
	case FormatGray16:
		return "gray16"
	}
	return "unknown"
}

type Frame struct {
	OK     bool
	Format Format
	Width  int
	Height int
	Data   []byte
}

// Bundle is the output of one capture attempt.
type Bundle struct {
	Timestamp time.Time
	Frames    map[Channel]*Frame
	// Skeleton is nil when no body is in view.
	Skeleton *skeleton.Record
}

func NewBundle(ts time.Time) *Bundle {
	return &Bundle{Timestamp: ts, Frames: make(map[Channel]*Frame, 3)}
}

func (b *Bundle) OK(ch Channel) bool {
	if b == nil {
		return false
	}
	f, ok := b.Frames[ch]
	return ok && f != nil && f.OK
}

// AllOK reports whether every channel in chs was captured.
func (b *Bundle) AllOK(chs []Channel) bool {
	for _, ch := range chs {
		if !b.OK(ch) {
			return false
		}
	}
	return len(chs) > 0
}

func (b *Bundle) AnyOK(chs []Channel) bool {
	for _, ch := range chs {
		if b.OK(ch) {
			return true
		}
	}
	return false
}

// Source is one physical (or simulated) capture device. Probe and Sample
// must be called from a single goroutine; devices are not reentrant.
type Source interface {
	Name() string
	Channels() []Channel
	HasSkeleton() bool
	Open(ctx context.Context) error
	// Probe reads one frame that is not going to be stored.
	Probe(ctx context.Context) (*Bundle, error)
	// Sample reads the frame that will be stored as frameID, including the
	// skeleton for body-tracking devices.
	Sample(ctx context.Context, frameID int) (*Bundle, error)
	Close() error
}
