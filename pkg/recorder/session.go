package recorder

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	DefaultReadyPollInterval    = 100 * time.Millisecond
	DefaultShutdownPollInterval = 100 * time.Millisecond
)

type SessionOptions struct {
	ReadyPollInterval time.Duration
	// ReadyTimeout bounds the wait for readiness; 0 waits until every device
	// is ready or ctx is cancelled.
	ReadyTimeout         time.Duration
	ShutdownPollInterval time.Duration
}

// Session brings every registered device to readiness, releases them
// together and drains them on shutdown. It only observes device flags and
// buffer sizes; devices handle their own failures.
type Session struct {
	opts SessionOptions

	lock    sync.Mutex
	devices map[string]*Device
	order   []string

	started atomic.Bool
	stopped atomic.Bool

	startedAt  time.Time
	releasedAt time.Time
}

func NewSession(opts SessionOptions) *Session {
	if opts.ReadyPollInterval <= 0 {
		opts.ReadyPollInterval = DefaultReadyPollInterval
	}
	if opts.ShutdownPollInterval <= 0 {
		opts.ShutdownPollInterval = DefaultShutdownPollInterval
	}
	return &Session{opts: opts, devices: make(map[string]*Device)}
}

func (s *Session) Register(d *Device) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.started.Load() {
		return ErrAlreadyStarted
	}
	if _, ok := s.devices[d.Key()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, d.Key())
	}
	s.devices[d.Key()] = d
	s.order = append(s.order, d.Key())

	return nil
}

// Devices returns the registered devices in registration order.
func (s *Session) Devices() []*Device {
	s.lock.Lock()
	defer s.lock.Unlock()
	res := make([]*Device, 0, len(s.order))
	for _, k := range s.order {
		res = append(res, s.devices[k])
	}
	return res
}

// Start starts every device, waits until all of them are ready and then
// grants sampling permission to all of them. A device that fails to start
// is logged and left stopped; since it never becomes ready the wait ends
// only on ReadyTimeout or ctx. The caller must Shutdown in every case.
func (s *Session) Start(ctx context.Context) error {
	if s.started.Swap(true) {
		return ErrAlreadyStarted
	}
	s.lock.Lock()
	s.startedAt = time.Now()
	s.lock.Unlock()

	devices := s.Devices()
	for _, d := range devices {
		if err := d.Start(ctx); err != nil {
			logger.Errorf("device %s: %v", d.Key(), err)
		}
	}

	logger.Infof("waiting for %d devices to become ready", len(devices))
	if err := s.awaitReady(ctx, devices); err != nil {
		return err
	}

	for _, d := range devices {
		d.SetPermission(true)
	}
	s.lock.Lock()
	s.releasedAt = time.Now()
	s.lock.Unlock()
	logger.Infof("all devices ready, recording")

	return nil
}

func (s *Session) awaitReady(ctx context.Context, devices []*Device) error {
	var deadline <-chan time.Time
	if s.opts.ReadyTimeout > 0 {
		timer := time.NewTimer(s.opts.ReadyTimeout)
		defer timer.Stop()
		deadline = timer.C
	}
	ticker := time.NewTicker(s.opts.ReadyPollInterval)
	defer ticker.Stop()

	for {
		waiting := unready(devices)
		if len(waiting) == 0 {
			return nil
		}
		if s.stopped.Load() {
			return ErrStopped
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("%w: %s", ErrSetupTimeout, strings.Join(waiting, ", "))
		case <-ticker.C:
		}
	}
}

func unready(devices []*Device) []string {
	var res []string
	for _, d := range devices {
		if !d.Ready() {
			res = append(res, d.Key())
		}
	}
	return res
}

type Report struct {
	StartedAt  time.Time `json:"started_at"`
	ReleasedAt time.Time `json:"released_at"`
	StoppedAt  time.Time `json:"stopped_at"`
	// PermissionSkew is the spread of the instants the devices were released.
	PermissionSkew time.Duration `json:"permission_skew"`
	// ReleaseSkew is the spread of the first sample of every device.
	ReleaseSkew time.Duration  `json:"release_skew"`
	Devices     []DeviceReport `json:"devices"`
}

// Shutdown stops every device and waits until all queued samples are
// written. If ctx ends first the report is returned with ctx's error.
func (s *Session) Shutdown(ctx context.Context) (Report, error) {
	s.stopped.Store(true)
	devices := s.Devices()
	for _, d := range devices {
		d.Stop()
	}

	ticker := time.NewTicker(s.opts.ShutdownPollInterval)
	defer ticker.Stop()
	var err error
wait:
	for !drained(devices) {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break wait
		case <-ticker.C:
		}
	}

	report := s.Report()
	report.StoppedAt = time.Now()
	for _, r := range report.Devices {
		logger.Infof("%s: %d frames, mean %s, stddev %s, %.2f fps, %d images written, %d failed",
			r.Key, r.Frames, r.Rate.Mean, r.Rate.StdDev, r.Rate.FPS, r.ImagesWritten, r.ImagesFailed)
	}
	logger.Infof("release skew %s", report.ReleaseSkew)

	return report, err
}

func drained(devices []*Device) bool {
	for _, d := range devices {
		images, logs := d.BufferLens()
		if images > 0 || logs > 0 || !d.Drained() {
			return false
		}
	}
	return true
}

func (s *Session) Stopped() bool {
	return s.stopped.Load()
}

func (s *Session) Report() Report {
	s.lock.Lock()
	r := Report{StartedAt: s.startedAt, ReleasedAt: s.releasedAt}
	s.lock.Unlock()
	var permitted, first []time.Time
	for _, d := range s.Devices() {
		dr := d.Report()
		r.Devices = append(r.Devices, dr)
		if !dr.PermittedAt.IsZero() {
			permitted = append(permitted, dr.PermittedAt)
		}
		if !dr.FirstSampleAt.IsZero() {
			first = append(first, dr.FirstSampleAt)
		}
	}
	r.PermissionSkew = spread(permitted)
	r.ReleaseSkew = spread(first)

	return r
}

func spread(ts []time.Time) time.Duration {
	if len(ts) < 2 {
		return 0
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i].Before(ts[j]) })
	return ts[len(ts)-1].Sub(ts[0])
}
