package headless

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/valerio/go-jeebie-color/jeebie/backend"
	"github.com/valerio/go-jeebie-color/jeebie/input/action"
	"github.com/valerio/go-jeebie-color/jeebie/video"
)

// ErrHashMismatch is returned when the last frame does not hash to the
// expected value.
var ErrHashMismatch = errors.New("headless: frame hash mismatch")

// Config controls a headless run.
type Config struct {
	Frames int
	// SnapshotInterval saves a PNG every N frames. Zero disables snapshots.
	SnapshotInterval int
	Directory        string
	ROMName          string
	Scale            int
	// ExpectHash, when non-zero, is checked against the last frame's hash.
	ExpectHash uint64
}

// Backend runs a fixed number of frames without presenting them, for tests
// and batch runs.
type Backend struct {
	config     Config
	frameCount int
	lastHash   uint64
}

func New(config Config) *Backend {
	if config.Scale <= 0 {
		config.Scale = 1
	}
	return &Backend{config: config}
}

func (h *Backend) Init(config backend.Config) error {
	if config.Scale > 0 {
		h.config.Scale = config.Scale
	}
	slog.Info("Running headless mode",
		"frames", h.config.Frames,
		"snapshot_interval", h.config.SnapshotInterval,
		"snapshot_dir", h.config.Directory)
	return nil
}

// Update counts the frame, saves snapshots when due and quits once the
// configured number of frames has run.
func (h *Backend) Update(frame *video.FrameBuffer) ([]backend.InputEvent, error) {
	h.frameCount++

	snapshots := h.config.SnapshotInterval > 0
	saved := false
	if snapshots && h.frameCount%h.config.SnapshotInterval == 0 {
		h.saveSnapshot(frame)
		saved = true
	}

	if h.frameCount%60 == 0 {
		slog.Debug("Frame progress", "completed", h.frameCount, "total", h.config.Frames)
	}

	if h.frameCount < h.config.Frames {
		return nil, nil
	}

	if snapshots && !saved {
		h.saveSnapshot(frame)
	}

	h.lastHash = frame.Hash()
	slog.Info("Headless execution completed", "frames", h.frameCount, "hash", fmt.Sprintf("%016x", h.lastHash))

	if h.config.ExpectHash != 0 && h.lastHash != h.config.ExpectHash {
		return nil, fmt.Errorf("%w: got %016x, want %016x", ErrHashMismatch, h.lastHash, h.config.ExpectHash)
	}
	return []backend.InputEvent{{Action: action.EmulatorQuit, Pressed: true}}, nil
}

func (h *Backend) Cleanup() error {
	return nil
}

// LastHash is the hash of the final frame, once the run has completed.
func (h *Backend) LastHash() uint64 { return h.lastHash }

// SnapshotDirectory resolves where snapshots go, creating the directory. An
// empty dir gets a fresh temporary directory.
func SnapshotDirectory(dir string) (string, error) {
	if dir == "" {
		tmp, err := os.MkdirTemp("", "jeebie-snapshots-*")
		if err != nil {
			return "", fmt.Errorf("failed to create snapshot directory: %w", err)
		}
		return tmp, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return dir, nil
}

// ROMName strips the directory and extension from a ROM path, for use in
// snapshot file names.
func ROMName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func (h *Backend) saveSnapshot(frame *video.FrameBuffer) {
	name := fmt.Sprintf("%s_frame_%d", h.config.ROMName, h.frameCount)
	path, err := backend.SavePNG(frame, h.config.Directory, name, h.config.Scale)
	if err != nil {
		slog.Error("Failed to save PNG snapshot", "frame", h.frameCount, "error", err)
		return
	}
	slog.Debug("Saved snapshot", "path", path)
}
