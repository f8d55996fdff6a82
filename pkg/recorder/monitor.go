package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"multicam-logger/pkg/utils/ps"
)

const (
	DefaultMonitorInterval = 5 * time.Second
	DefaultHighWaterMark   = 300
)

// Monitor periodically logs queue lengths, process memory and free disk
// space. Queues longer than the high-water mark mean the writers are not
// keeping up with capture.
type Monitor struct {
	session  *Session
	dataDir  string
	interval time.Duration
	mark     int
}

func NewMonitor(s *Session, dataDir string, interval time.Duration, highWaterMark int) *Monitor {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	if highWaterMark <= 0 {
		highWaterMark = DefaultHighWaterMark
	}
	return &Monitor{session: s, dataDir: dataDir, interval: interval, mark: highWaterMark}
}

func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check()
		}
	}
}

// Check logs one health report and returns the overload warnings.
func (m *Monitor) Check() []string {
	var warnings []string
	for _, d := range m.session.Devices() {
		images, logs := d.BufferLens()
		if images > m.mark || logs > m.mark {
			w := fmt.Sprintf("%s: writers falling behind, %d images and %d rows queued", d.Key(), images, logs)
			warnings = append(warnings, w)
			logger.Warn(w)
			continue
		}
		logger.Debugf("%s: %s, %d frames, %d images and %d rows queued", d.Key(), d.State(), d.Frames(), images, logs)
	}

	if rss, err := ps.ProcessRSS(); err == nil {
		logger.Infof("memory rss %s", humanize.Bytes(rss))
	} else {
		logger.Warnf("get process memory err: %v", err)
	}
	if usage, err := ps.DiskUsage(m.dataDir); err == nil {
		logger.Infof("disk %s free of %s (%.1f%% used)",
			humanize.Bytes(usage.Free), humanize.Bytes(usage.Total), usage.UsedPercent)
	} else {
		logger.Warnf("get disk usage of %s err: %v", m.dataDir, err)
	}

	return warnings
}
