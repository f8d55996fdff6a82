package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"multicam-logger/pkg/buffer"
	"multicam-logger/pkg/camera"
	"multicam-logger/pkg/storage"
	"multicam-logger/pkg/storage/util"
)

// Controller lifecycle states.
const (
	StateIdle     = "idle"
	StateProbing  = "probing"
	StateArmed    = "armed"
	StateSampling = "sampling"
	StateStopping = "stopping"
	StateDrained  = "drained"
)

const (
	eventStart   = "start"
	eventArm     = "arm"
	eventRelease = "release"
	eventStop    = "stop"
	eventDrain   = "drain"
)

type DeviceOptions struct {
	// Quality is the JPEG quality used for frames that are not compressed
	// by the device.
	Quality     int
	WriterSleep time.Duration
	// MaxFailures consecutive failed samples stop the device; <= 0 never does.
	MaxFailures int
}

// Device drives one Source: a capture goroutine producing samples into two
// queues and one writer per queue.
type Device struct {
	key   string
	src   camera.Source
	store *storage.Storage
	opts  DeviceOptions
	log   *zap.SugaredLogger

	images      *buffer.Queue[ImageSample]
	logs        *buffer.Queue[LogSample]
	imageWriter *writer[ImageSample]
	logWriter   *writer[LogSample]
	logFile     *logFile

	machine *fsm.FSM

	lifeMu  sync.Mutex
	started bool

	ready      atomic.Bool
	permission atomic.Bool
	stopped    atomic.Bool
	drained    atomic.Bool

	captureDone  chan struct{}
	writersStart sync.Once

	mu            sync.Mutex
	timings       []Timing
	frames        int
	failures      int
	permittedAt   time.Time
	firstSampleAt time.Time
}

func NewDevice(src camera.Source, store *storage.Storage, opts DeviceOptions) *Device {
	d := &Device{
		key:         src.Name(),
		src:         src,
		store:       store,
		opts:        opts,
		log:         logger.With("device", src.Name()),
		images:      buffer.New[ImageSample](),
		logs:        buffer.New[LogSample](),
		captureDone: make(chan struct{}),
	}
	d.imageWriter = newWriter(d.key+" image", d.images, opts.WriterSleep, d.writeImage, d.log)
	d.logWriter = newWriter(d.key+" log", d.logs, opts.WriterSleep, d.writeLog, d.log)
	d.machine = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventStart, Src: []string{StateIdle}, Dst: StateProbing},
			{Name: eventArm, Src: []string{StateProbing}, Dst: StateArmed},
			{Name: eventRelease, Src: []string{StateArmed}, Dst: StateSampling},
			{Name: eventStop, Src: []string{StateIdle, StateProbing, StateArmed, StateSampling}, Dst: StateStopping},
			{Name: eventDrain, Src: []string{StateStopping}, Dst: StateDrained},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				d.log.Debugf("%s -> %s", e.Src, e.Dst)
			},
		},
	)

	return d
}

func (d *Device) fire(event string) {
	if err := d.machine.Event(context.Background(), event); err != nil {
		d.log.Debugf("event %s ignored in state %s: %v", event, d.machine.Current(), err)
	}
}

func (d *Device) Key() string {
	return d.key
}

// Start prepares the output directories and the log file, opens the device
// and launches the capture loop. On error the device is left stopped.
func (d *Device) Start(ctx context.Context) error {
	d.lifeMu.Lock()
	if d.started {
		d.lifeMu.Unlock()
		return ErrAlreadyStarted
	}
	if d.stopped.Load() {
		d.lifeMu.Unlock()
		return ErrStopped
	}
	d.started = true
	d.lifeMu.Unlock()

	if err := d.prepare(ctx); err != nil {
		d.abort()
		return fmt.Errorf("start %s: %w", d.key, err)
	}
	d.fire(eventStart)
	d.log.Infof("started, frames continue from %d", d.logFile.rows)

	go d.capture(ctx, d.logFile.rows)

	return nil
}

func (d *Device) prepare(ctx context.Context) error {
	dirs := []string{d.store.LogDir()}
	for _, ch := range d.src.Channels() {
		dirs = append(dirs, d.store.ImageDir(d.key, string(ch)))
	}
	if err := util.MkdirAll(dirs...); err != nil {
		return err
	}

	header := logHeader(d.key, d.src.Channels(), d.src.HasSkeleton())
	l, err := openLogFile(d.store.LogPath(d.key), header)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	d.logFile = l

	return d.src.Open(ctx)
}

// abort finishes a device whose capture loop never ran.
func (d *Device) abort() {
	d.Stop()
	if err := d.src.Close(); err != nil {
		d.log.Warnf("close source: %v", err)
	}
	close(d.captureDone)
	d.startWriters()
}

// capture is the only caller of the source. It probes until every channel
// delivers, keeps probing while armed, and samples once released.
func (d *Device) capture(ctx context.Context, frameID int) {
	defer d.startWriters()
	defer close(d.captureDone)
	defer func() {
		if err := d.src.Close(); err != nil {
			d.log.Warnf("close source: %v", err)
		}
	}()

	channels := d.src.Channels()
	failures := 0
	for !d.stopped.Load() {
		if ctx.Err() != nil {
			d.log.Infof("capture interrupted: %v", ctx.Err())
			d.Stop()
			return
		}

		if !d.ready.Load() || !d.permission.Load() {
			b, err := d.src.Probe(ctx)
			if err != nil {
				if isFatal(err) {
					d.log.Errorf("probe failed, stopping: %v", err)
					d.Stop()
					return
				}
				continue
			}
			if !d.ready.Load() && b.AllOK(channels) {
				d.fire(eventArm)
				d.ready.Store(true)
				d.log.Infof("ready")
			}
			continue
		}

		start := time.Now()
		b, err := d.src.Sample(ctx, frameID)
		if err == nil && !b.AnyOK(channels) {
			err = camera.ErrReadFailed
		}
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			if isFatal(err) {
				d.log.Errorf("frame %d could not be read, stopping: %v", frameID, err)
				d.Stop()
				return
			}
			failures++
			d.countFailure()
			if d.opts.MaxFailures > 0 && failures >= d.opts.MaxFailures {
				d.log.Errorf("frame %d could not be read %d times in a row, stopping: %v", frameID, failures, err)
				d.Stop()
				return
			}
			d.log.Warnf("frame %d could not be read: %v", frameID, err)
			continue
		}
		failures = 0

		row, images := buildSamples(func(ch camera.Channel) string {
			return d.store.ImagePath(d.key, string(ch), frameID)
		}, channels, d.src.HasSkeleton(), b)
		d.logs.Push(row)
		for _, s := range images {
			d.images.Push(s)
		}
		d.record(start)
		frameID++
	}
}

func isFatal(err error) bool {
	return errors.Is(err, camera.ErrDeviceClosed) || errors.Is(err, camera.ErrNotOpened)
}

func (d *Device) record(start time.Time) {
	now := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.frames == 0 {
		d.firstSampleAt = start
	}
	d.frames++
	d.timings = append(d.timings, Timing{At: now, Duration: now.Sub(start)})
}

func (d *Device) countFailure() {
	d.mu.Lock()
	d.failures++
	d.mu.Unlock()
}

// startWriters runs both writers until the capture loop has exited and the
// queues are empty, then closes the log file and marks the device drained.
func (d *Device) startWriters() {
	d.writersStart.Do(func() {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			d.imageWriter.run(d.captureDone)
		}()
		go func() {
			defer wg.Done()
			d.logWriter.run(d.captureDone)
			if d.logFile != nil {
				if err := d.logFile.Close(); err != nil {
					d.log.Warnf("close log: %v", err)
				}
			}
		}()
		go func() {
			wg.Wait()
			d.markDrained()
		}()
	})
}

func (d *Device) markDrained() {
	if d.drained.Swap(true) {
		return
	}
	d.fire(eventDrain)
	d.log.Infof("drained")
}

func (d *Device) writeImage(s ImageSample) error {
	return writeImage(s, d.opts.Quality)
}

func (d *Device) writeLog(row LogSample) error {
	if d.logFile == nil {
		return fmt.Errorf("log file not open")
	}
	return d.logFile.writeRow(row)
}

// Ready reports whether every channel has delivered at least once.
func (d *Device) Ready() bool {
	return d.ready.Load()
}

// SetPermission releases (true) or holds (false) sampling. Writers start
// with the first release.
func (d *Device) SetPermission(permitted bool) {
	if !permitted {
		d.permission.Store(false)
		return
	}
	if d.permission.Swap(true) {
		return
	}
	d.mu.Lock()
	d.permittedAt = time.Now()
	d.mu.Unlock()
	d.fire(eventRelease)
	d.startWriters()
}

// Stop ends capture. Samples already queued are still written.
// The stop event fires before the capture loop can observe the flag.
func (d *Device) Stop() {
	d.lifeMu.Lock()
	first := !d.stopped.Load()
	if first {
		d.fire(eventStop)
		d.stopped.Store(true)
	}
	started := d.started
	d.lifeMu.Unlock()

	if first {
		d.log.Infof("stopping")
	}
	if !started {
		d.markDrained()
	}
}

func (d *Device) Stopped() bool {
	return d.stopped.Load()
}

// Drained reports whether both writers have finished and the log is closed.
func (d *Device) Drained() bool {
	return d.drained.Load()
}

// BufferLens returns the number of queued image and log samples.
func (d *Device) BufferLens() (images, logs int) {
	return d.images.Len(), d.logs.Len()
}

func (d *Device) HighWater() (images, logs int) {
	return d.images.HighWater(), d.logs.HighWater()
}

func (d *Device) State() string {
	return d.machine.Current()
}

func (d *Device) Frames() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frames
}

func (d *Device) Timings() []Timing {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Timing(nil), d.timings...)
}

func (d *Device) PermittedAt() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.permittedAt
}

func (d *Device) FirstSampleAt() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.firstSampleAt
}

type DeviceReport struct {
	Key           string    `json:"key"`
	State         string    `json:"state"`
	Frames        int       `json:"frames"`
	ReadFailures  int       `json:"read_failures"`
	ImagesWritten int64     `json:"images_written"`
	ImagesFailed  int64     `json:"images_failed"`
	RowsWritten   int64     `json:"rows_written"`
	RowsFailed    int64     `json:"rows_failed"`
	ImageHigh     int       `json:"image_high_water"`
	LogHigh       int       `json:"log_high_water"`
	PermittedAt   time.Time `json:"permitted_at"`
	FirstSampleAt time.Time `json:"first_sample_at"`
	Rate          RateStats `json:"rate"`
}

func (d *Device) Report() DeviceReport {
	imageHigh, logHigh := d.HighWater()
	d.mu.Lock()
	r := DeviceReport{
		Key:           d.key,
		Frames:        d.frames,
		ReadFailures:  d.failures,
		PermittedAt:   d.permittedAt,
		FirstSampleAt: d.firstSampleAt,
		Rate:          ComputeRateStats(d.timings),
	}
	d.mu.Unlock()

	r.State = d.State()
	r.ImagesWritten = d.imageWriter.written.Load()
	r.ImagesFailed = d.imageWriter.failed.Load()
	r.RowsWritten = d.logWriter.written.Load()
	r.RowsFailed = d.logWriter.failed.Load()
	r.ImageHigh = imageHigh
	r.LogHigh = logHigh

	return r
}
