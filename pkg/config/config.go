// Package config loads recording settings from YAML or TOML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"multicam-logger/pkg/camera"
	"multicam-logger/pkg/recorder"
)

const (
	DefaultBaseDir     = "./dataset"
	DefaultParticipant = "p00"
	DefaultLogLevel    = "info"

	// DefaultWebcamMaxFailures stops a webcam after this many failed reads
	// in a row. Depth sensors retry forever by default.
	DefaultWebcamMaxFailures = 3
	DefaultDepthMaxFailures  = 0

	envPrefix = "MULTICAM_"
)

var (
	ErrNoDevices       = errors.New("no devices configured")
	ErrUnsupportedFile = errors.New("unsupported config file type, use .yaml, .yml or .toml")
)

// Duration reads Go duration strings such as "10ms" from config files.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Device struct {
	Name   string `yaml:"name" toml:"name" json:"name"`
	Kind   string `yaml:"kind" toml:"kind" json:"kind"`
	Path   string `yaml:"path,omitempty" toml:"path" json:"path,omitempty"`
	Width  int    `yaml:"width,omitempty" toml:"width" json:"width,omitempty"`
	Height int    `yaml:"height,omitempty" toml:"height" json:"height,omitempty"`
	FPS    int    `yaml:"fps,omitempty" toml:"fps" json:"fps,omitempty"`
	// MaxConsecutiveFailures <= 0 retries forever; unset uses the kind's default.
	MaxConsecutiveFailures *int `yaml:"max_consecutive_failures,omitempty" toml:"max_consecutive_failures" json:"max_consecutive_failures,omitempty"`

	// Simulated devices only.
	FailFrom      int  `yaml:"fail_from,omitempty" toml:"fail_from" json:"fail_from,omitempty"`
	WarmupFrames  int  `yaml:"warmup_frames,omitempty" toml:"warmup_frames" json:"warmup_frames,omitempty"`
	SkeletonEvery *int `yaml:"skeleton_every,omitempty" toml:"skeleton_every" json:"skeleton_every,omitempty"`
}

func (d Device) MaxFailures() int {
	if d.MaxConsecutiveFailures != nil {
		return *d.MaxConsecutiveFailures
	}
	if d.Kind == camera.KindSimDepth {
		return DefaultDepthMaxFailures
	}
	return DefaultWebcamMaxFailures
}

// Settings converts d to the camera settings used to open it.
func (d Device) Settings(quality int) camera.Settings {
	body := 1
	if d.SkeletonEvery != nil {
		body = *d.SkeletonEvery
	}
	return camera.Settings{
		Name:         d.Name,
		Kind:         d.Kind,
		Path:         d.Path,
		Width:        d.Width,
		Height:       d.Height,
		FPS:          d.FPS,
		Quality:      quality,
		FailFrom:     d.FailFrom,
		WarmupFrames: d.WarmupFrames,
		BodyEvery:    body,
	}
}

type Config struct {
	Participant string `yaml:"participant" toml:"participant" json:"participant"`
	BaseDir     string `yaml:"base_dir" toml:"base_dir" json:"base_dir"`
	// Quality is the JPEG quality of stored images.
	Quality              int      `yaml:"quality" toml:"quality" json:"quality"`
	WriterSleepTime      Duration `yaml:"writer_sleep_time" toml:"writer_sleep_time" json:"writer_sleep_time"`
	ReadyPollInterval    Duration `yaml:"ready_poll_interval" toml:"ready_poll_interval" json:"ready_poll_interval"`
	ReadyTimeout         Duration `yaml:"ready_timeout" toml:"ready_timeout" json:"ready_timeout"`
	ShutdownPollInterval Duration `yaml:"shutdown_poll_interval" toml:"shutdown_poll_interval" json:"shutdown_poll_interval"`
	MonitorInterval      Duration `yaml:"monitor_interval" toml:"monitor_interval" json:"monitor_interval"`
	HighWaterMark        int      `yaml:"high_water_mark" toml:"high_water_mark" json:"high_water_mark"`
	NTPServer            string   `yaml:"ntp_server" toml:"ntp_server" json:"ntp_server,omitempty"`
	LogLevel             string   `yaml:"log_level" toml:"log_level" json:"log_level"`
	Devices              []Device `yaml:"devices" toml:"devices" json:"devices"`
}

func Default() *Config {
	return &Config{
		Participant:          DefaultParticipant,
		BaseDir:              DefaultBaseDir,
		Quality:              recorder.DefaultQuality,
		WriterSleepTime:      Duration(recorder.DefaultWriterSleep),
		ReadyPollInterval:    Duration(recorder.DefaultReadyPollInterval),
		ShutdownPollInterval: Duration(recorder.DefaultShutdownPollInterval),
		MonitorInterval:      Duration(recorder.DefaultMonitorInterval),
		HighWaterMark:        recorder.DefaultHighWaterMark,
		LogLevel:             DefaultLogLevel,
	}
}

// SimulatedDevices is the rig used by simulated sessions: three webcams
// and one depth sensor.
func SimulatedDevices() []Device {
	return []Device{
		{Name: "webcam_0", Kind: camera.KindSimWebcam, FPS: camera.DefaultFPS, WarmupFrames: 3},
		{Name: "webcam_1", Kind: camera.KindSimWebcam, FPS: camera.DefaultFPS, WarmupFrames: 5},
		{Name: "webcam_2", Kind: camera.KindSimWebcam, FPS: camera.DefaultFPS, WarmupFrames: 8},
		{Name: "azure_kinect", Kind: camera.KindSimDepth, FPS: camera.DefaultFPS, WarmupFrames: 15},
	}
}

// Load reads path over the defaults and applies MULTICAM_* environment
// overrides. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)

	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return yaml.Unmarshal(data, cfg)
	case ".toml":
		_, err := toml.DecodeFile(path, cfg)
		return err
	}
	return ErrUnsupportedFile
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(envPrefix + "PARTICIPANT"); v != "" {
		cfg.Participant = v
	}
	if v := os.Getenv(envPrefix + "BASE_DIR"); v != "" {
		cfg.BaseDir = v
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(envPrefix + "NTP_SERVER"); v != "" {
		cfg.NTPServer = v
	}
}

func (c *Config) Validate() error {
	if c.Participant == "" {
		return errors.New("participant can not be empty")
	}
	if c.BaseDir == "" {
		return errors.New("base_dir can not be empty")
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("quality %d out of range 1-100", c.Quality)
	}
	if c.WriterSleepTime <= 0 || c.ReadyPollInterval <= 0 || c.ShutdownPollInterval <= 0 {
		return errors.New("writer_sleep_time, ready_poll_interval and shutdown_poll_interval must be positive")
	}
	if c.ReadyTimeout < 0 {
		return errors.New("ready_timeout can not be negative")
	}
	if len(c.Devices) == 0 {
		return ErrNoDevices
	}

	seen := make(map[string]bool, len(c.Devices))
	for i, d := range c.Devices {
		if d.Name == "" {
			return fmt.Errorf("device %d: name can not be empty", i)
		}
		if strings.ContainsAny(d.Name, `/\`) {
			return fmt.Errorf("device %s: name must not contain path separators", d.Name)
		}
		if seen[d.Name] {
			return fmt.Errorf("device %s: duplicate name", d.Name)
		}
		seen[d.Name] = true
		if !validKind(d.Kind) {
			return fmt.Errorf("device %s: unknown kind %q", d.Name, d.Kind)
		}
		if d.Kind == camera.KindWebcam && d.Path == "" {
			return fmt.Errorf("device %s: webcam needs a path", d.Name)
		}
		if d.Width < 0 || d.Height < 0 || d.FPS < 0 {
			return fmt.Errorf("device %s: width, height and fps can not be negative", d.Name)
		}
	}

	return nil
}

func validKind(kind string) bool {
	for _, k := range camera.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (c *Config) DeviceOptions(d Device) recorder.DeviceOptions {
	return recorder.DeviceOptions{
		Quality:     c.Quality,
		WriterSleep: c.WriterSleepTime.Std(),
		MaxFailures: d.MaxFailures(),
	}
}

func (c *Config) SessionOptions() recorder.SessionOptions {
	return recorder.SessionOptions{
		ReadyPollInterval:    c.ReadyPollInterval.Std(),
		ReadyTimeout:         c.ReadyTimeout.Std(),
		ShutdownPollInterval: c.ShutdownPollInterval.Std(),
	}
}
