// Package audio holds the sound register file. Sample synthesis is not
// emulated: registers read back what was written, masked the way the
// hardware masks them, and the clock only tracks elapsed cycles.
package audio

import (
	"github.com/valerio/go-jeebie-color/jeebie/addr"
	"github.com/valerio/go-jeebie-color/jeebie/bit"
	"github.com/valerio/go-jeebie-color/jeebie/savestate"
)

const registerCount = int(addr.AudioEnd-addr.AudioStart) + 1

// readMasks are ORed into register reads, write-only bits read as 1.
var readMasks = [registerCount]byte{
	0x80, 0x3F, 0x00, 0xFF, 0xBF, // NR10-NR14
	0xFF, 0x3F, 0x00, 0xFF, 0xBF, // unused, NR21-NR24
	0x7F, 0xFF, 0x9F, 0xFF, 0xBF, // NR30-NR34
	0xFF, 0xFF, 0x00, 0x00, 0xBF, // unused, NR41-NR44
	0x00, 0x00, 0x70, // NR50-NR52
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, // unused
}

// post boot register values
var bootValues = map[uint16]byte{
	addr.NR10: 0x80, addr.NR11: 0xBF, addr.NR12: 0xF3, addr.NR14: 0xBF,
	addr.NR21: 0x3F, addr.NR22: 0x00, addr.NR24: 0xBF,
	addr.NR30: 0x7F, addr.NR31: 0xFF, addr.NR32: 0x9F, addr.NR34: 0xBF,
	addr.NR41: 0xFF, addr.NR42: 0x00, addr.NR43: 0x00, addr.NR44: 0xBF,
	addr.NR50: 0x77, addr.NR51: 0xF3, addr.NR52: 0xF1,
}

// Sound is the register file behind 0xFF10-0xFF3F.
type Sound struct {
	enabled bool
	regs    [registerCount]byte

	// Clock counts the cycles the machine has run.
	Clock uint64
}

// New returns a sound block. A disabled block reads 0 and drops writes.
func New(enabled bool) *Sound {
	return &Sound{enabled: enabled}
}

func (s *Sound) Enabled() bool { return s.enabled }

// SkipBoot loads the register values left by the boot ROM.
func (s *Sound) SkipBoot() {
	for address, value := range bootValues {
		s.regs[address-addr.AudioStart] = value
	}
}

func (s *Sound) powered() bool {
	return bit.IsSet(7, s.regs[addr.NR52-addr.AudioStart])
}

// Get reads the register at offset from 0xFF10.
func (s *Sound) Get(offset uint16) byte {
	if !s.enabled {
		return 0
	}
	if addr.AudioStart+offset >= addr.WaveRAMStart {
		return s.regs[offset]
	}
	return s.regs[offset] | readMasks[offset]
}

// Set writes the register at offset from 0xFF10.
func (s *Sound) Set(offset uint16, value byte) {
	if !s.enabled {
		return
	}

	address := addr.AudioStart + offset
	switch {
	case address >= addr.WaveRAMStart:
		s.regs[offset] = value
	case address == addr.NR52:
		// only the power bit is writable, channel status is read-only
		s.regs[offset] = value & 0x80
		if !s.powered() {
			clear(s.regs[:addr.NR52-addr.AudioStart])
		}
	case s.powered():
		s.regs[offset] = value
	}
}

// Advance moves the sound clock forward.
func (s *Sound) Advance(cycles int) {
	s.Clock += uint64(cycles)
}

func (s *Sound) SaveState(w *savestate.Writer) {
	w.Bytes(s.regs[:])
	w.Uint64(s.Clock)
}

func (s *Sound) LoadState(r *savestate.Reader) {
	r.Bytes(s.regs[:])
	s.Clock = r.Uint64()
}
