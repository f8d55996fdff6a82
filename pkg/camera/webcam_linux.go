//go:build linux

package camera

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vladimirvivien/go4vl/device"
	"github.com/vladimirvivien/go4vl/v4l2"
)

const (
	DefaultWebcamQuality = 90

	// ctrlCompressionQuality is the V4L2 JPEG compression quality control.
	ctrlCompressionQuality v4l2.CtrlID = 10291459

	readTimeout = 2 * time.Second
	openRetries = 5
)

// Webcam is a V4L2 device streaming MJPEG. Frames come out of the driver
// already compressed and are written as is.
type Webcam struct {
	settings Settings

	lock   sync.Mutex
	cancel context.CancelFunc
	camera *device.Device
	frames <-chan []byte
}

func NewWebcam(s Settings) (Source, error) {
	if s.Path == "" {
		return nil, fmt.Errorf("webcam %s: device path can not be empty", s.Name)
	}
	if s.Quality <= 0 {
		s.Quality = DefaultWebcamQuality
	}
	return &Webcam{settings: s}, nil
}

func (c *Webcam) Name() string {
	return c.settings.Name
}

func (c *Webcam) Channels() []Channel {
	return []Channel{Color}
}

func (c *Webcam) HasSkeleton() bool {
	return false
}

func (c *Webcam) open() error {
	options := []device.Option{
		device.WithBufferSize(1),
		device.WithPixFormat(v4l2.PixFormat{
			PixelFormat: v4l2.PixelFmtMJPEG,
			Width:       uint32(c.settings.Width),
			Height:      uint32(c.settings.Height),
			Field:       v4l2.FieldNone,
		}),
	}
	if c.settings.FPS > 0 {
		options = append(options, device.WithFPS(uint32(c.settings.FPS)))
	}
	camera, err := device.Open(c.settings.Path, options...)
	if err != nil {
		return err
	}
	c.camera = camera

	return nil
}

// Open retries while the driver reports the device busy, which happens when
// another process released it a moment ago.
func (c *Webcam) Open(ctx context.Context) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.camera != nil {
		return nil
	}
	logger.Infof("%s: open %s in %d*%d", c.settings.Name, c.settings.Path, c.settings.Width, c.settings.Height)

	var err error
	for i := 0; i < openRetries; i++ {
		if err = c.open(); err == nil || !isBusyErr(err) {
			break
		}
		logger.Warnf("%s: device busy, will retry %d/%d: %v", c.settings.Name, i+1, openRetries, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(150 * time.Millisecond):
		}
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", c.settings.Path, err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	if err = c.camera.Start(streamCtx); err != nil {
		cancel()
		_ = c.camera.Close()
		c.camera = nil
		return fmt.Errorf("start %s: %w", c.settings.Path, err)
	}
	c.cancel = cancel
	c.frames = c.camera.GetOutput()

	if err = c.camera.SetControlValue(ctrlCompressionQuality, v4l2.CtrlValue(c.settings.Quality)); err != nil {
		logger.Warnf("%s: set compression quality to %d, err: %s", c.settings.Name, c.settings.Quality, err)
	}

	return nil
}

func (c *Webcam) read(ctx context.Context) (*Bundle, error) {
	c.lock.Lock()
	frames := c.frames
	c.lock.Unlock()
	if frames == nil {
		return nil, ErrNotOpened
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(readTimeout):
		return nil, ErrReadFailed
	case frame, ok := <-frames:
		if !ok {
			return nil, ErrDeviceClosed
		}
		b := NewBundle(time.Now())
		if len(frame) == 0 {
			b.Frames[Color] = &Frame{}
			return b, nil
		}
		b.Frames[Color] = &Frame{
			OK:     true,
			Format: FormatJPEG,
			Width:  c.settings.Width,
			Height: c.settings.Height,
			// the driver reuses its buffers
			Data: append([]byte(nil), frame...),
		}
		return b, nil
	}
}

func (c *Webcam) Probe(ctx context.Context) (*Bundle, error) {
	return c.read(ctx)
}

func (c *Webcam) Sample(ctx context.Context, _ int) (*Bundle, error) {
	return c.read(ctx)
}

func (c *Webcam) Close() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.cancel != nil {
		// let the stream goroutine see ctx.Done and stop before Close
		c.cancel()
		time.Sleep(100 * time.Millisecond)
		c.cancel = nil
	}
	c.frames = nil
	if c.camera != nil {
		err := c.camera.Close()
		c.camera = nil
		return err
	}
	return nil
}

func isBusyErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "busy") || strings.Contains(s, "ebusy")
}

type DeviceInfo struct {
	Path      string
	Driver    string
	Card      string
	BusInfo   string
	MaxWidth  int
	MaxHeight int
}

// ListDevices enumerates the V4L2 capture devices under /dev.
func ListDevices() ([]DeviceInfo, error) {
	paths, err := filepath.Glob("/dev/video*")
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var res []DeviceInfo
	for _, p := range paths {
		camera, err := device.Open(p)
		if err != nil {
			logger.Warnf("skip %s: %v", p, err)
			continue
		}
		capability := camera.Capability()
		info := DeviceInfo{
			Path:    p,
			Driver:  capability.Driver,
			Card:    capability.Card,
			BusInfo: capability.BusInfo,
		}
		if sizes, err := v4l2.GetAllFormatFrameSizes(camera.Fd()); err == nil {
			for _, size := range sizes {
				if size.PixelFormat == v4l2.PixelFmtMJPEG || size.PixelFormat == v4l2.PixelFmtJPEG {
					info.MaxWidth = int(size.Size.MaxWidth)
					info.MaxHeight = int(size.Size.MaxHeight)
					break
				}
			}
		}
		_ = camera.Close()
		res = append(res, info)
	}

	return res, nil
}
