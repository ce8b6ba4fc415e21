package backend

import (
	"github.com/valerio/go-jeebie-color/jeebie/input"
	"github.com/valerio/go-jeebie-color/jeebie/input/action"
	"github.com/valerio/go-jeebie-color/jeebie/video"
)

// Backend presents frames and collects input for one platform.
type Backend interface {
	// Init prepares the backend. It must be called before Update.
	Init(config Config) error

	// Update presents frame and returns the input events seen since the
	// previous call.
	Update(frame *video.FrameBuffer) ([]InputEvent, error)

	// Cleanup releases the backend's resources.
	Cleanup() error
}

// Config holds configuration shared by all backends. Backends may ignore
// fields they have no use for.
type Config struct {
	Title string
	Scale int
}

// InputEvent is a single press or release of an action.
type InputEvent struct {
	Action  action.Action
	Pressed bool
}

// Emulator is what the run loop drives.
type Emulator interface {
	RunUntilFrame() error
	Frame() *video.FrameBuffer
	Press(key input.Key)
	Release(key input.Key)
}
