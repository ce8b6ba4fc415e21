package action

import "github.com/valerio/go-jeebie-color/jeebie/input"

// Action represents input actions that can be performed in the emulator
type Action int

const (
	// Game Boy hardware controls
	GBButtonA Action = iota
	GBButtonB
	GBButtonStart
	GBButtonSelect
	GBDPadUp
	GBDPadDown
	GBDPadLeft
	GBDPadRight

	// Emulator features
	EmulatorSnapshot
	EmulatorPauseToggle
	EmulatorSaveState
	EmulatorLoadState
	EmulatorQuit
)

var names = map[Action]string{
	GBButtonA:           "A",
	GBButtonB:           "B",
	GBButtonStart:       "Start",
	GBButtonSelect:      "Select",
	GBDPadUp:            "Up",
	GBDPadDown:          "Down",
	GBDPadLeft:          "Left",
	GBDPadRight:         "Right",
	EmulatorSnapshot:    "Snapshot",
	EmulatorPauseToggle: "Pause",
	EmulatorSaveState:   "Save state",
	EmulatorLoadState:   "Load state",
	EmulatorQuit:        "Quit",
}

func (a Action) String() string {
	if name, ok := names[a]; ok {
		return name
	}
	return "Unknown"
}

var keys = map[Action]input.Key{
	GBButtonA:      input.KeyA,
	GBButtonB:      input.KeyB,
	GBButtonStart:  input.KeyStart,
	GBButtonSelect: input.KeySelect,
	GBDPadUp:       input.KeyUp,
	GBDPadDown:     input.KeyDown,
	GBDPadLeft:     input.KeyLeft,
	GBDPadRight:    input.KeyRight,
}

// Key returns the joypad key an action drives. The second value is false
// for emulator actions.
func Key(a Action) (input.Key, bool) {
	k, ok := keys[a]
	return k, ok
}

// IsDPad reports whether the action is one of the four directions.
func IsDPad(a Action) bool {
	return a >= GBDPadUp && a <= GBDPadRight
}
