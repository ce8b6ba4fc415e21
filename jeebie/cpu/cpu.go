package cpu

import (
	"log/slog"

	"github.com/valerio/go-jeebie-color/jeebie/addr"
	"github.com/valerio/go-jeebie-color/jeebie/bit"
	"github.com/valerio/go-jeebie-color/jeebie/savestate"
)

// Bus is the view of the machine an instruction can touch.
type Bus interface {
	Read(address uint16) byte
	Write(address uint16, value byte)
	// SwitchSpeed is invoked by STOP.
	SwitchSpeed()
}

// Flag is one of the 4 possible flags used in the flag register (high part of AF)
type Flag uint8

const (
	zeroFlag      Flag = 0x80
	subFlag       Flag = 0x40
	halfCarryFlag Flag = 0x20
	carryFlag     Flag = 0x10
)

const (
	baseInterruptAddress uint16 = 0x40
	interruptCycles             = 20
)

// CPU is the main struct holding SM83 state
type CPU struct {
	// registers
	a  uint8
	f  uint8
	b  uint8
	c  uint8
	d  uint8
	e  uint8
	h  uint8
	l  uint8
	sp uint16
	pc uint16

	// metadata
	interruptsEnabled bool
	halted            bool
	cycles            uint64

	illegalSeen [256]bool

	bus Bus
}

// New returns a CPU with every register cleared, the state expected when a
// boot ROM is mapped at address zero.
func New(bus Bus) *CPU {
	return &CPU{bus: bus}
}

// SkipBoot seeds the registers with the values left behind by the boot ROM.
func (c *CPU) SkipBoot(color bool) {
	c.setAF(0x01B0)
	if color {
		c.a = 0x11
	}
	c.setBC(0x0013)
	c.setDE(0x00D8)
	c.setHL(0x014D)
	c.sp = 0xFFFE
	c.pc = 0x0100
}

// Tick services a pending interrupt or executes a single instruction.
// Returns the cycles consumed, or halted=true when the CPU is waiting for an
// interrupt and nothing was executed.
func (c *CPU) Tick() (cycles int, halted bool) {
	if c.handleInterrupts() {
		c.cycles += interruptCycles
		return interruptCycles, false
	}

	if c.halted {
		if c.pendingInterrupts() == 0 {
			return 0, true
		}
		c.halted = false
		c.pc++
	}

	cycles = c.Exec()
	return cycles, false
}

// Exec decodes and runs the instruction at PC.
func (c *CPU) Exec() int {
	opcode := c.bus.Read(c.pc)

	var operand uint16
	switch opcodeLengths[opcode] {
	case 2:
		operand = uint16(c.bus.Read(c.pc + 1))
	case 3:
		operand = bit.Combine(c.bus.Read(c.pc+2), c.bus.Read(c.pc+1))
	}

	cycles := opcodes[opcode](c, operand)
	c.cycles += uint64(cycles)
	return cycles
}

func (c *CPU) pendingInterrupts() uint8 {
	return c.bus.Read(addr.IE) & c.bus.Read(addr.IF) & 0x1F
}

// handleInterrupts services the highest priority pending interrupt if the
// master enable is set. Returns true if one was serviced.
func (c *CPU) handleInterrupts() bool {
	if !c.interruptsEnabled {
		return false
	}

	fired := c.bus.Read(addr.IF)
	pending := c.bus.Read(addr.IE) & fired & 0x1F
	if pending == 0 {
		return false
	}

	// service interrupts in priority order (bit 0 = highest)
	for i := uint8(0); i < 5; i++ {
		if !bit.IsSet(i, pending) {
			continue
		}

		// a halted CPU resumes after the HALT instruction
		if c.halted {
			c.halted = false
			c.pc++
		}

		c.bus.Write(addr.IF, bit.Clear(i, fired))
		c.interruptsEnabled = false
		c.pushStack(c.pc)

		// interrupt handlers are offset by 8
		// 0x40 - 0x48 - 0x50 - 0x58 - 0x60
		c.pc = uint16(i)*8 + baseInterruptAddress
		return true
	}

	return false
}

func (c *CPU) illegal(opcode uint8) {
	if c.illegalSeen[opcode] {
		return
	}
	c.illegalSeen[opcode] = true
	slog.Debug("illegal opcode executed", "opcode", opcode, "pc", c.pc)
}

func (c *CPU) setFlag(flag Flag) {
	c.f |= uint8(flag)
}

func (c *CPU) resetFlag(flag Flag) {
	c.f &^= uint8(flag)
}

func (c CPU) isSetFlag(flag Flag) bool {
	return c.f&uint8(flag) != 0
}

// flagToBit will return 1 if the passed flag is set, 0 otherwise
func (c CPU) flagToBit(flag Flag) uint8 {
	return bit.FromBool(c.isSetFlag(flag))
}

func (c *CPU) setFlagToCondition(flag Flag, condition bool) {
	if !condition {
		c.resetFlag(flag)
		return
	}

	c.setFlag(flag)
}

// predicates used by conditional jumps, calls and returns
func (c CPU) fZ() bool  { return c.isSetFlag(zeroFlag) }
func (c CPU) fNZ() bool { return !c.isSetFlag(zeroFlag) }
func (c CPU) fC() bool  { return c.isSetFlag(carryFlag) }
func (c CPU) fNC() bool { return !c.isSetFlag(carryFlag) }

func (c *CPU) setBC(value uint16) {
	c.b = bit.High(value)
	c.c = bit.Low(value)
}

func (c CPU) getBC() uint16 {
	return bit.Combine(c.b, c.c)
}

func (c *CPU) setDE(value uint16) {
	c.d = bit.High(value)
	c.e = bit.Low(value)
}

func (c CPU) getDE() uint16 {
	return bit.Combine(c.d, c.e)
}

func (c *CPU) setHL(value uint16) {
	c.h = bit.High(value)
	c.l = bit.Low(value)
}

func (c CPU) getHL() uint16 {
	return bit.Combine(c.h, c.l)
}

func (c *CPU) setAF(value uint16) {
	c.a = bit.High(value)
	// F register lower 4 bits must be 0
	c.f = bit.Low(value) & 0xF0
}

func (c CPU) getAF() uint16 {
	return bit.Combine(c.a, c.f)
}

// Debug getter methods for register display
func (c *CPU) GetA() uint8       { return c.a }
func (c *CPU) GetF() uint8       { return c.f }
func (c *CPU) GetB() uint8       { return c.b }
func (c *CPU) GetC() uint8       { return c.c }
func (c *CPU) GetD() uint8       { return c.d }
func (c *CPU) GetE() uint8       { return c.e }
func (c *CPU) GetH() uint8       { return c.h }
func (c *CPU) GetL() uint8       { return c.l }
func (c *CPU) GetBC() uint16     { return c.getBC() }
func (c *CPU) GetDE() uint16     { return c.getDE() }
func (c *CPU) GetHL() uint16     { return c.getHL() }
func (c *CPU) GetSP() uint16     { return c.sp }
func (c *CPU) GetPC() uint16     { return c.pc }
func (c *CPU) GetCycles() uint64 { return c.cycles }

// Interrupt state getters
func (c *CPU) GetIME() bool   { return c.interruptsEnabled }
func (c *CPU) IsHalted() bool { return c.halted }

// GetFlagString returns a human-readable representation of the flag register
func (c *CPU) GetFlagString() string {
	flags := []byte("----")
	for i, f := range []Flag{zeroFlag, subFlag, halfCarryFlag, carryFlag} {
		if c.isSetFlag(f) {
			flags[i] = "ZNHC"[i]
		}
	}
	return string(flags)
}

// SaveState writes the register block.
func (c *CPU) SaveState(w *savestate.Writer) {
	for _, r := range []uint8{c.a, c.f, c.b, c.c, c.d, c.e, c.h, c.l} {
		w.Byte(r)
	}
	w.Uint16(c.sp)
	w.Uint16(c.pc)
	w.Bool(c.interruptsEnabled)
	w.Bool(c.halted)
	w.Uint64(c.cycles)
}

// LoadState restores the register block written by SaveState.
func (c *CPU) LoadState(r *savestate.Reader) {
	for _, reg := range []*uint8{&c.a, &c.f, &c.b, &c.c, &c.d, &c.e, &c.h, &c.l} {
		*reg = r.Byte()
	}
	c.f &= 0xF0
	c.sp = r.Uint16()
	c.pc = r.Uint16()
	c.interruptsEnabled = r.Bool()
	c.halted = r.Bool()
	c.cycles = r.Uint64()
}
