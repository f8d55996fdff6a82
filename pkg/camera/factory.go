package camera

import (
	"fmt"
	"time"
)

const (
	KindWebcam    = "webcam"
	KindSimWebcam = "sim-webcam"
	KindSimDepth  = "sim-depth"
)

// Kinds lists the device kinds Open understands.
var Kinds = []string{KindWebcam, KindSimWebcam, KindSimDepth}

type Settings struct {
	Name   string
	Kind   string
	Path   string
	Width  int
	Height int
	FPS    int
	// Quality is applied to devices that compress frames themselves.
	Quality int

	// Simulation only.
	FailFrom     int
	WarmupFrames int
	BodyEvery    int
}

func (s Settings) interval() time.Duration {
	if s.FPS <= 0 {
		return time.Second / DefaultFPS
	}
	return time.Second / time.Duration(s.FPS)
}

// Open builds the Source for s without touching the device; the controller
// opens it when it starts.
func Open(s Settings) (Source, error) {
	if s.Name == "" {
		return nil, fmt.Errorf("device name can not be empty")
	}
	switch s.Kind {
	case KindWebcam:
		return NewWebcam(s)
	case KindSimWebcam:
		return NewSimWebcam(s), nil
	case KindSimDepth:
		return NewSimDepth(s), nil
	}

	return nil, fmt.Errorf("device %s: unknown kind %q", s.Name, s.Kind)
}
