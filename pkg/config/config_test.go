package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"multicam-logger/pkg/camera"
)

const yamlConfig = `
participant: p07
base_dir: /data/rec
quality: 75
writer_sleep_time: 20ms
ready_timeout: 30s
devices:
  - name: webcam_0
    kind: webcam
    path: /dev/video0
    width: 1280
    height: 720
    fps: 30
  - name: kinect
    kind: sim-depth
    skeleton_every: 2
`

const tomlConfig = `
participant = "p08"
writer_sleep_time = "5ms"

[[devices]]
name = "webcam_0"
kind = "sim-webcam"
max_consecutive_failures = 0
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeFile(t, "rig.yaml", yamlConfig))
	if err != nil {
		t.Fatal(err)
	}
	if err = cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Participant != "p07" || cfg.Quality != 75 || cfg.WriterSleepTime.Std() != 20*time.Millisecond {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.ReadyPollInterval.Std() <= 0 {
		t.Fatal("defaults must survive partial files")
	}
	if cfg.SessionOptions().ReadyTimeout != 30*time.Second {
		t.Fatalf("ready timeout %s", cfg.SessionOptions().ReadyTimeout)
	}
	webcam, kinect := cfg.Devices[0], cfg.Devices[1]
	if webcam.MaxFailures() != DefaultWebcamMaxFailures || kinect.MaxFailures() != DefaultDepthMaxFailures {
		t.Fatalf("max failures %d %d", webcam.MaxFailures(), kinect.MaxFailures())
	}
	if s := kinect.Settings(cfg.Quality); s.BodyEvery != 2 || s.Kind != camera.KindSimDepth {
		t.Fatalf("settings %+v", s)
	}
	if s := webcam.Settings(cfg.Quality); s.Path != "/dev/video0" || s.Quality != 75 || s.BodyEvery != 1 {
		t.Fatalf("settings %+v", s)
	}
}

func TestLoadTOML(t *testing.T) {
	cfg, err := Load(writeFile(t, "rig.toml", tomlConfig))
	if err != nil {
		t.Fatal(err)
	}
	if err = cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Participant != "p08" || cfg.WriterSleepTime.Std() != 5*time.Millisecond {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Devices[0].MaxFailures() != 0 {
		t.Fatal("explicit zero must disable the failure limit")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MULTICAM_PARTICIPANT", "p99")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Participant != "p99" {
		t.Fatalf("participant %s", cfg.Participant)
	}
}

func TestLoadUnsupported(t *testing.T) {
	if _, err := Load(writeFile(t, "rig.ini", "x=1")); !errors.Is(err, ErrUnsupportedFile) {
		t.Fatalf("expected unsupported file error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"no devices", func(c *Config) { c.Devices = nil }},
		{"duplicate", func(c *Config) { c.Devices = append(c.Devices, c.Devices[0]) }},
		{"unknown kind", func(c *Config) { c.Devices[0].Kind = "thermal" }},
		{"webcam without path", func(c *Config) { c.Devices[0] = Device{Name: "w", Kind: camera.KindWebcam} }},
		{"bad quality", func(c *Config) { c.Quality = 0 }},
		{"separator in name", func(c *Config) { c.Devices[0].Name = "a/b" }},
	}
	for _, tc := range cases {
		cfg := Default()
		cfg.Devices = SimulatedDevices()
		if err := cfg.Validate(); err != nil {
			t.Fatalf("simulated rig invalid: %v", err)
		}
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}
