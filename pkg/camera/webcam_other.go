//go:build !linux

package camera

import (
	"errors"
	"fmt"
)

var errUnsupported = errors.New("webcams require V4L2 and are only supported on linux")

type DeviceInfo struct {
	Path      string
	Driver    string
	Card      string
	BusInfo   string
	MaxWidth  int
	MaxHeight int
}

func NewWebcam(s Settings) (Source, error) {
	return nil, fmt.Errorf("webcam %s: %w", s.Name, errUnsupported)
}

func ListDevices() ([]DeviceInfo, error) {
	return nil, errUnsupported
}
