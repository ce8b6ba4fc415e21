// Package input models the joypad matrix read through P1.
package input

import (
	"github.com/valerio/go-jeebie-color/jeebie/bit"
)

// Key represents a key on the Gameboy joypad
type Key uint8

const (
	KeyRight Key = iota
	KeyLeft
	KeyUp
	KeyDown
	KeyA
	KeyB
	KeySelect
	KeyStart
)

// Joypad keeps the two 4 bit key lines, a cleared bit is a pressed key.
type Joypad struct {
	dpad    uint8
	buttons uint8
}

// NewJoypad creates a new Joypad instance with every key released.
func NewJoypad() *Joypad {
	return &Joypad{
		dpad:    0xFF,
		buttons: 0xFF,
	}
}

// Pull returns the P1 value for the lines selected in p1. Bit 4 low selects
// the direction keys, bit 5 low selects the buttons.
func (j *Joypad) Pull(p1 uint8) uint8 {
	value := p1 | 0xCF
	if !bit.IsSet(4, p1) {
		value &= j.dpad
	}
	if !bit.IsSet(5, p1) {
		value &= j.buttons
	}
	return value
}

func (j *Joypad) line(key Key) (*uint8, uint8) {
	if key >= KeyA {
		return &j.buttons, uint8(key - KeyA)
	}
	return &j.dpad, uint8(key)
}

// KeyEvent updates a key. Returns true when a released key becomes pressed,
// which requests the joypad interrupt.
func (j *Joypad) KeyEvent(key Key, pressed bool) bool {
	line, index := j.line(key)
	wasPressed := !bit.IsSet(index, *line)
	*line = bit.SetTo(index, *line, !pressed)
	return pressed && !wasPressed
}

// Pressed reports whether key is currently held.
func (j *Joypad) Pressed(key Key) bool {
	line, index := j.line(key)
	return !bit.IsSet(index, *line)
}
