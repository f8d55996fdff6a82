package camera

import (
	"context"
	"encoding/binary"
	"math"
	"sync"
	"time"

	"multicam-logger/pkg/skeleton"
)

const (
	DefaultFPS       = 30
	DefaultSimWidth  = 64
	DefaultSimHeight = 48

	simMaxDepth = 4000
)

// sim paces reads at the configured frame rate the way a driver blocks
// until the next frame is exposed.
type sim struct {
	settings Settings
	channels []Channel

	lock   sync.Mutex
	ticker *time.Ticker
	probes int
}

func newSim(s Settings, channels []Channel) *sim {
	if s.Width <= 0 {
		s.Width = DefaultSimWidth
	}
	if s.Height <= 0 {
		s.Height = DefaultSimHeight
	}
	if s.FPS <= 0 {
		s.FPS = DefaultFPS
	}
	return &sim{settings: s, channels: channels}
}

func (s *sim) Name() string {
	return s.settings.Name
}

func (s *sim) Channels() []Channel {
	return s.channels
}

func (s *sim) Open(_ context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.ticker == nil {
		s.ticker = time.NewTicker(s.settings.interval())
	}
	logger.Infof("%s: simulated %dx%d@%d opened", s.settings.Name, s.settings.Width, s.settings.Height, s.settings.FPS)

	return nil
}

func (s *sim) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	return nil
}

func (s *sim) wait(ctx context.Context) error {
	s.lock.Lock()
	t := s.ticker
	s.lock.Unlock()
	if t == nil {
		return ErrNotOpened
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// warming reports whether the device is still in its simulated start-up,
// during which frames come back unsuccessful.
func (s *sim) warming() bool {
	s.probes++
	return s.probes <= s.settings.WarmupFrames
}

func (s *sim) failing(frameID int) bool {
	return s.settings.FailFrom > 0 && frameID >= s.settings.FailFrom
}

func (s *sim) rgbFrame(seed int) *Frame {
	w, h := s.settings.Width, s.settings.Height
	data := make([]byte, w*h*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 3
			data[i] = byte(x + seed)
			data[i+1] = byte(y + seed)
			data[i+2] = byte(seed)
		}
	}
	return &Frame{OK: true, Format: FormatRGB24, Width: w, Height: h, Data: data}
}

func (s *sim) gray16Frame(seed int) *Frame {
	w, h := s.settings.Width, s.settings.Height
	data := make([]byte, w*h*2)
	for i := 0; i < w*h; i++ {
		binary.LittleEndian.PutUint16(data[i*2:], uint16((i*7+seed)%simMaxDepth))
	}
	return &Frame{OK: true, Format: FormatGray16, Width: w, Height: h, Data: data}
}

// SimWebcam is a synthetic single-channel webcam.
type SimWebcam struct {
	*sim
}

func NewSimWebcam(s Settings) *SimWebcam {
	return &SimWebcam{sim: newSim(s, []Channel{Color})}
}

func (c *SimWebcam) HasSkeleton() bool {
	return false
}

func (c *SimWebcam) Probe(ctx context.Context) (*Bundle, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	b := NewBundle(time.Now())
	if c.warming() {
		b.Frames[Color] = &Frame{}
		return b, nil
	}
	b.Frames[Color] = c.rgbFrame(c.probes)

	return b, nil
}

func (c *SimWebcam) Sample(ctx context.Context, frameID int) (*Bundle, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	if c.failing(frameID) {
		return nil, ErrReadFailed
	}
	b := NewBundle(time.Now())
	b.Frames[Color] = c.rgbFrame(frameID)

	return b, nil
}

// SimDepth is a synthetic depth and body-tracking sensor with color, depth
// and infrared channels. A body is in view on every BodyEvery-th frame;
// BodyEvery <= 0 never reports one.
type SimDepth struct {
	*sim
}

func NewSimDepth(s Settings) *SimDepth {
	return &SimDepth{sim: newSim(s, []Channel{Color, Depth, Infrared})}
}

func (d *SimDepth) HasSkeleton() bool {
	return true
}

func (d *SimDepth) capture(seed int) *Bundle {
	b := NewBundle(time.Now())
	b.Frames[Color] = d.rgbFrame(seed)
	b.Frames[Depth] = d.gray16Frame(seed)
	b.Frames[Infrared] = d.gray16Frame(seed * 3)

	return b
}

func (d *SimDepth) Probe(ctx context.Context) (*Bundle, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	if d.warming() {
		b := NewBundle(time.Now())
		b.Frames[Color] = d.rgbFrame(0)
		b.Frames[Depth] = &Frame{}
		b.Frames[Infrared] = &Frame{}
		return b, nil
	}

	return d.capture(d.probes), nil
}

func (d *SimDepth) Sample(ctx context.Context, frameID int) (*Bundle, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	if d.failing(frameID) {
		return nil, ErrReadFailed
	}
	b := d.capture(frameID)
	if every := d.settings.BodyEvery; every > 0 && frameID%every == 0 {
		b.Skeleton = simSkeleton(frameID)
	}

	return b, nil
}

func simSkeleton(frameID int) *skeleton.Record {
	r := &skeleton.Record{}
	sway := 50 * math.Sin(float64(frameID)/10)
	for i := range r.Joints {
		r.Joints[i] = skeleton.Joint{
			X:          float64(i*20) + sway,
			Y:          float64(-i * 15),
			Z:          1500 + float64(i),
			Confidence: skeleton.Confidence(1 + i%3),
		}
	}
	return r
}
