package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"multicam-logger/pkg/storage/consts"
	"multicam-logger/pkg/storage/util"
)

// Storage resolves every path of one participant's dataset. All recorder
// output (frames, device logs, manifests) and the label files live below
// baseDir:
//
//	<base>/images/<pid>/<device>_<channel>_frames/<device>_<channel>_frame_<n>.jpg
//	<base>/logs/<pid>/<device>_log.csv
//	<base>/logs/<pid>/session_<id>.json
//	<base>/labels/auto_labels_<pid>.csv
var ErrBadParticipant = errors.New("invalid participant")

type Storage struct {
	baseDir     string
	participant string
}

func New(baseDir, participant string) (*Storage, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("base dir can not be empty")
	}
	if participant == "" {
		return nil, fmt.Errorf("%w: participant can not be empty", ErrBadParticipant)
	}
	if participant == "." || participant == ".." || strings.ContainsAny(participant, `/\`) {
		return nil, fmt.Errorf("%w: %q must not contain path separators", ErrBadParticipant, participant)
	}

	return &Storage{baseDir: baseDir, participant: participant}, nil
}

// Init creates the participant's log directory and the shared label directory.
// Image directories are created per device when a controller starts.
func (s *Storage) Init() error {
	return util.MkdirAll(s.LogDir(), s.imageRoot(), LabelDir(s.baseDir))
}

func (s *Storage) BaseDir() string {
	return s.baseDir
}

func (s *Storage) Participant() string {
	return s.participant
}

func (s *Storage) imageRoot() string {
	return filepath.Join(s.baseDir, consts.DefaultImagesDir, s.participant)
}

func (s *Storage) ImageDir(device, channel string) string {
	return filepath.Join(s.imageRoot(), fmt.Sprintf("%s_%s_frames", device, channel))
}

func (s *Storage) ImagePath(device, channel string, frame int) string {
	return filepath.Join(s.ImageDir(device, channel), fmt.Sprintf("%s_%s_frame_%d%s", device, channel, frame, consts.DefaultImageExt))
}

func (s *Storage) LogDir() string {
	return filepath.Join(s.baseDir, consts.DefaultLogsDir, s.participant)
}

func (s *Storage) LogPath(device string) string {
	return filepath.Join(s.LogDir(), device+consts.DefaultLogSuffix)
}

func (s *Storage) LabelPath() string {
	return LabelPath(s.baseDir, s.participant)
}

func (s *Storage) ManifestPath(sessionID string) string {
	return filepath.Join(s.LogDir(), consts.ManifestPrefix+sessionID+consts.ManifestExt)
}

// ListDeviceLogs returns the device log files of the participant, skipping
// files produced by label merging.
func (s *Storage) ListDeviceLogs() ([]string, error) {
	entries, err := os.ReadDir(s.LogDir())
	if err != nil {
		return nil, err
	}
	var res []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, consts.DefaultLogSuffix) || strings.HasSuffix(name, consts.LabeledLogSuffix) {
			continue
		}
		res = append(res, filepath.Join(s.LogDir(), name))
	}

	return res, nil
}

func (s *Storage) DumpManifest(sessionID string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest err: %w", err)
	}

	return os.WriteFile(s.ManifestPath(sessionID), data, consts.DefaultFilePerm)
}

func (s *Storage) LoadManifest(sessionID string, v any) error {
	data, err := os.ReadFile(s.ManifestPath(sessionID))
	if err != nil {
		return fmt.Errorf("read manifest err: %w", err)
	}
	if err = json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal manifest err: %w", err)
	}

	return nil
}

func LabelDir(baseDir string) string {
	return filepath.Join(baseDir, consts.DefaultLabelsDir)
}

func LabelPath(baseDir, participant string) string {
	return filepath.Join(LabelDir(baseDir), consts.DefaultLabelPrefix+participant+".csv")
}

// LabeledPath maps a device log path to the path of its label-merged copy.
func LabeledPath(logPath string) string {
	return strings.TrimSuffix(logPath, consts.DefaultLogSuffix) + consts.LabeledLogSuffix
}
