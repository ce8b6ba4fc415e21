// Package timer implements the DIV/TIMA/TMA/TAC timer block.
package timer

import (
	"github.com/valerio/go-jeebie-color/jeebie/addr"
	"github.com/valerio/go-jeebie-color/jeebie/bit"
	"github.com/valerio/go-jeebie-color/jeebie/savestate"
)

// periods maps TAC input clock select (bits 1-0) to the number of cycles
// between TIMA increments.
//
//	00 -> 1024 (4096 Hz)
//	01 -> 16   (262144 Hz)
//	10 -> 64   (65536 Hz)
//	11 -> 256  (16384 Hz)
var periods = [4]uint32{1024, 16, 64, 256}

// Disabled is returned by CyclesToInterrupt while TAC bit 2 is clear.
const Disabled = 1 << 16

// Timer holds the timer registers. TIMA increments every time Counter
// crosses a multiple of the selected period, so the phase of TIMA follows
// the divider like on hardware.
type Timer struct {
	// Counter is the internal 16 bit divider; DIV is its upper byte.
	Counter uint16

	TIMA byte
	TMA  byte
	TAC  byte
}

// New returns a stopped timer.
func New() *Timer {
	return &Timer{}
}

// DIV returns the divider register.
func (t *Timer) DIV() byte {
	return byte(t.Counter >> 8)
}

// Reset clears the divider, as a write to DIV does.
func (t *Timer) Reset() {
	t.Counter = 0
}

func (t *Timer) enabled() bool {
	return bit.IsSet(2, t.TAC)
}

// Tick advances the timer. Returns true if TIMA overflowed at least once.
func (t *Timer) Tick(cycles int) bool {
	before := uint32(t.Counter)
	t.Counter += uint16(cycles)

	if !t.enabled() {
		return false
	}

	period := periods[t.TAC&0x03]
	increments := (before%period + uint32(cycles)) / period

	overflowed := false
	for ; increments > 0; increments-- {
		t.TIMA++
		if t.TIMA == 0 {
			t.TIMA = t.TMA
			overflowed = true
		}
	}
	return overflowed
}

// CyclesToInterrupt returns how many cycles Tick must advance before TIMA
// overflows, or Disabled when the timer is stopped.
func (t *Timer) CyclesToInterrupt() int {
	if !t.enabled() {
		return Disabled
	}

	period := periods[t.TAC&0x03]
	untilNext := period - uint32(t.Counter)%period
	return int(untilNext + uint32(0xFF-t.TIMA)*period)
}

func (t *Timer) Read(address uint16) byte {
	switch address {
	case addr.DIV:
		return t.DIV()
	case addr.TIMA:
		return t.TIMA
	case addr.TMA:
		return t.TMA
	case addr.TAC:
		return t.TAC | 0xF8
	default:
		return 0xFF
	}
}

func (t *Timer) Write(address uint16, value byte) {
	switch address {
	case addr.DIV:
		t.Reset()
	case addr.TIMA:
		t.TIMA = value
	case addr.TMA:
		t.TMA = value
	case addr.TAC:
		t.TAC = value & 0x07
	}
}

func (t *Timer) SaveState(w *savestate.Writer) {
	w.Uint16(t.Counter)
	w.Byte(t.TIMA)
	w.Byte(t.TMA)
	w.Byte(t.TAC)
}

func (t *Timer) LoadState(r *savestate.Reader) {
	t.Counter = r.Uint16()
	t.TIMA = r.Byte()
	t.TMA = r.Byte()
	t.TAC = r.Byte() & 0x07
}
