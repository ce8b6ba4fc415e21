package cpu

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/go-jeebie-color/jeebie/addr"
	"github.com/valerio/go-jeebie-color/jeebie/savestate"
)

// testBus is a flat 64KB address space.
type testBus struct {
	mem           [0x10000]byte
	speedSwitches int
}

func (b *testBus) Read(address uint16) byte         { return b.mem[address] }
func (b *testBus) Write(address uint16, value byte) { b.mem[address] = value }
func (b *testBus) SwitchSpeed()                      { b.speedSwitches++ }

func (b *testBus) load(address uint16, program ...byte) {
	copy(b.mem[address:], program)
}

func newTestCPU() (*CPU, *testBus) {
	bus := &testBus{}
	c := New(bus)
	c.pc = 0xC100
	c.sp = 0xDFF0
	return c, bus
}

func TestRegisterPairs(t *testing.T) {
	c, _ := newTestCPU()

	c.setBC(0x1234)
	c.setDE(0x5678)
	c.setHL(0x9ABC)
	c.setAF(0xDEFF)

	assert.Equal(t, uint8(0x12), c.b)
	assert.Equal(t, uint8(0x34), c.c)
	assert.Equal(t, uint8(0x56), c.d)
	assert.Equal(t, uint8(0x78), c.e)
	assert.Equal(t, uint8(0x9A), c.h)
	assert.Equal(t, uint8(0xBC), c.l)
	assert.Equal(t, uint8(0xDE), c.a)
	assert.Equal(t, uint8(0xF0), c.f, "low nibble of F is always zero")

	c.l = 0xFF
	assert.Equal(t, uint16(0x9AFF), c.getHL())
	assert.Equal(t, "ZNHC", c.GetFlagString())
}

func TestSkipBoot(t *testing.T) {
	c, _ := newTestCPU()
	c.SkipBoot(false)
	assert.Equal(t, uint16(0x01B0), c.getAF())
	assert.Equal(t, uint16(0x0013), c.getBC())
	assert.Equal(t, uint16(0x00D8), c.getDE())
	assert.Equal(t, uint16(0x014D), c.getHL())
	assert.Equal(t, uint16(0xFFFE), c.sp)
	assert.Equal(t, uint16(0x0100), c.pc)

	c.SkipBoot(true)
	assert.Equal(t, uint8(0x11), c.a)
}

// reference timings in machine cycles, conditional branches not taken,
// from the instr_timing test ROM tables.
var referenceMCycles = [256]int{
	1, 3, 2, 2, 1, 1, 2, 1, 5, 2, 2, 2, 1, 1, 2, 1,
	1, 3, 2, 2, 1, 1, 2, 1, 3, 2, 2, 2, 1, 1, 2, 1,
	2, 3, 2, 2, 1, 1, 2, 1, 2, 2, 2, 2, 1, 1, 2, 1,
	2, 3, 2, 2, 3, 3, 3, 1, 2, 2, 2, 2, 1, 1, 2, 1,
	1, 1, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 2, 1,
	1, 1, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 2, 1,
	1, 1, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 2, 1,
	2, 2, 2, 2, 2, 2, 1, 2, 1, 1, 1, 1, 1, 1, 2, 1,
	1, 1, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 2, 1,
	1, 1, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 2, 1,
	1, 1, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 2, 1,
	1, 1, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 2, 1,
	2, 3, 3, 4, 3, 4, 2, 4, 2, 4, 3, 2, 3, 6, 2, 4,
	2, 3, 3, 1, 3, 4, 2, 4, 2, 4, 3, 1, 3, 1, 2, 4,
	3, 3, 2, 1, 1, 4, 2, 4, 4, 1, 4, 1, 1, 1, 2, 4,
	3, 3, 2, 1, 1, 4, 2, 4, 3, 2, 4, 1, 1, 1, 2, 4,
}

// with F cleared the NZ and NC branches are taken
var takenMCycles = map[uint8]int{
	0x20: 3, 0x30: 3,
	0xC0: 5, 0xD0: 5,
	0xC2: 4, 0xD2: 4,
	0xC4: 6, 0xD4: 6,
}

// opcodes that set PC themselves on the path exercised below
var jumpsWithClearFlags = map[uint8]bool{
	0x18: true, 0x20: true, 0x30: true,
	0xC0: true, 0xC2: true, 0xC3: true, 0xC4: true, 0xC7: true, 0xC9: true, 0xCD: true, 0xCF: true,
	0xD0: true, 0xD2: true, 0xD4: true, 0xD7: true, 0xD9: true, 0xDF: true,
	0xE7: true, 0xE9: true, 0xEF: true, 0xF7: true, 0xFF: true,
}

func fixedState() (*CPU, *testBus) {
	c, bus := newTestCPU()
	c.a, c.f = 0x12, 0x00
	c.setBC(0xC900)
	c.setDE(0xCA00)
	c.setHL(0xC800)
	return c, bus
}

func TestOpcodeCycles(t *testing.T) {
	for op := 0; op < 512; op++ {
		c, _ := fixedState()
		startPC := c.pc

		cycles := opcodes[op](c, 0)

		if op >= 0x100 {
			cb := op & 0xFF
			expected := 8
			if cb&7 == 6 {
				expected = 16
				if cb >= 0x40 && cb < 0x80 {
					expected = 12
				}
			}
			assert.Equal(t, expected, cycles, "cycles for CB %02X", cb)
			assert.Equal(t, startPC+2, c.pc, "pc for CB %02X", cb)
			continue
		}

		expected := referenceMCycles[op] * 4
		if taken, ok := takenMCycles[uint8(op)]; ok {
			expected = taken * 4
		}
		assert.Equal(t, expected, cycles, "cycles for %02X (%s)", op, Name(uint16(op)))

		if !jumpsWithClearFlags[uint8(op)] {
			assert.Equal(t, startPC+uint16(opcodeLengths[op]), c.pc, "pc for %02X (%s)", op, Name(uint16(op)))
		}
	}
}

func TestOpcodeLengths(t *testing.T) {
	assert.Equal(t, 1, Length(0x00))
	assert.Equal(t, 3, Length(0x01))
	assert.Equal(t, 2, Length(0x06))
	assert.Equal(t, 2, Length(0x10))
	assert.Equal(t, 2, Length(0xCB))
	assert.Equal(t, 2, Length(0x17C))
	assert.Equal(t, "BIT 7, H", Name(0x17C))
	assert.Equal(t, "LD A, (nn)", Name(0xFA))

	for op := 0; op < 256; op++ {
		assert.Contains(t, []uint8{1, 2, 3}, opcodeLengths[op])
	}
}

type regs struct {
	a, f, b, c, d, e, h, l uint8
	sp                     uint16
}

func (c *CPU) regs() regs {
	return regs{c.a, c.f, c.b, c.c, c.d, c.e, c.h, c.l, c.sp}
}

func TestOpcodePostState(t *testing.T) {
	testCases := []struct {
		desc     string
		opcode   uint16
		operand  uint16
		setup    func(c *CPU, bus *testBus)
		expected func(r *regs)
		cycles   int
		pcDelta  uint16
		check    func(t *testing.T, c *CPU, bus *testBus)
	}{
		{
			desc: "DEC B from 1 sets Z and N, keeps C", opcode: 0x05,
			setup:    func(c *CPU, _ *testBus) { c.b = 0x01; c.f = 0x10 },
			expected: func(r *regs) { r.b = 0x00; r.f = 0xD0 },
			cycles:   4, pcDelta: 1,
		},
		{
			desc: "DEC B from 0 borrows from bit 4", opcode: 0x05,
			setup:    func(c *CPU, _ *testBus) { c.b = 0x00 },
			expected: func(r *regs) { r.b = 0xFF; r.f = 0x60 },
			cycles:   4, pcDelta: 1,
		},
		{
			desc: "INC A half carry, carry untouched", opcode: 0x3C,
			setup:    func(c *CPU, _ *testBus) { c.a = 0x0F; c.f = 0x10 },
			expected: func(r *regs) { r.a = 0x10; r.f = 0x30 },
			cycles:   4, pcDelta: 1,
		},
		{
			desc: "INC A wraps to zero", opcode: 0x3C,
			setup:    func(c *CPU, _ *testBus) { c.a = 0xFF },
			expected: func(r *regs) { r.a = 0x00; r.f = 0xA0 },
			cycles:   4, pcDelta: 1,
		},
		{
			desc: "ADD A,B carry and half carry", opcode: 0x80,
			setup:    func(c *CPU, _ *testBus) { c.a = 0x3A; c.b = 0xC6 },
			expected: func(r *regs) { r.a = 0x00; r.f = 0xB0 },
			cycles:   4, pcDelta: 1,
		},
		{
			desc: "ADC A,n with carry in", opcode: 0xCE, operand: 0x0F,
			setup:    func(c *CPU, _ *testBus) { c.a = 0xE1; c.f = 0x10 },
			expected: func(r *regs) { r.a = 0xF1; r.f = 0x20 },
			cycles:   8, pcDelta: 2,
		},
		{
			desc: "SUB E equal operands", opcode: 0x93,
			setup:    func(c *CPU, _ *testBus) { c.a = 0x3E; c.e = 0x3E },
			expected: func(r *regs) { r.a = 0x00; r.f = 0xC0 },
			cycles:   4, pcDelta: 1,
		},
		{
			desc: "SBC A,H with borrow", opcode: 0x9C,
			setup:    func(c *CPU, _ *testBus) { c.a = 0x3B; c.h = 0x2A; c.f = 0x10 },
			expected: func(r *regs) { r.a = 0x10; r.f = 0x40 },
			cycles:   4, pcDelta: 1,
		},
		{
			desc: "SBC A,n borrow across both boundaries", opcode: 0xDE, operand: 0x4F,
			setup:    func(c *CPU, _ *testBus) { c.a = 0x3B; c.f = 0x10 },
			expected: func(r *regs) { r.a = 0xEB; r.f = 0x70 },
			cycles:   8, pcDelta: 2,
		},
		{
			desc: "CP n sets carry when A is smaller", opcode: 0xFE, operand: 0x40,
			setup:    func(c *CPU, _ *testBus) { c.a = 0x3C },
			expected: func(r *regs) { r.f = 0x50 },
			cycles:   8, pcDelta: 2,
		},
		{
			desc: "AND n always sets H", opcode: 0xE6, operand: 0x38,
			setup:    func(c *CPU, _ *testBus) { c.a = 0x5A; c.f = 0x50 },
			expected: func(r *regs) { r.a = 0x18; r.f = 0x20 },
			cycles:   8, pcDelta: 2,
		},
		{
			desc: "XOR A clears A", opcode: 0xAF,
			setup:    func(c *CPU, _ *testBus) { c.a = 0xFF; c.f = 0x70 },
			expected: func(r *regs) { r.a = 0x00; r.f = 0x80 },
			cycles:   4, pcDelta: 1,
		},
		{
			desc: "DAA after addition", opcode: 0x27,
			setup:    func(c *CPU, _ *testBus) { c.a = 0x7D },
			expected: func(r *regs) { r.a = 0x83; r.f = 0x00 },
			cycles:   4, pcDelta: 1,
		},
		{
			desc: "DAA after addition with overflow", opcode: 0x27,
			setup:    func(c *CPU, _ *testBus) { c.a = 0x9A },
			expected: func(r *regs) { r.a = 0x00; r.f = 0x90 },
			cycles:   4, pcDelta: 1,
		},
		{
			desc: "DAA after subtraction keeps N", opcode: 0x27,
			setup:    func(c *CPU, _ *testBus) { c.a = 0x0F; c.f = 0x60 },
			expected: func(r *regs) { r.a = 0x09; r.f = 0x40 },
			cycles:   4, pcDelta: 1,
		},
		{
			desc: "CPL", opcode: 0x2F,
			setup:    func(c *CPU, _ *testBus) { c.a = 0x35; c.f = 0x90 },
			expected: func(r *regs) { r.a = 0xCA; r.f = 0xF0 },
			cycles:   4, pcDelta: 1,
		},
		{
			desc: "SCF keeps Z", opcode: 0x37,
			setup:    func(c *CPU, _ *testBus) { c.f = 0xE0 },
			expected: func(r *regs) { r.f = 0x90 },
			cycles:   4, pcDelta: 1,
		},
		{
			desc: "CCF flips carry", opcode: 0x3F,
			setup:    func(c *CPU, _ *testBus) { c.f = 0xF0 },
			expected: func(r *regs) { r.f = 0x80 },
			cycles:   4, pcDelta: 1,
		},
		{
			desc: "RLCA clears Z", opcode: 0x07,
			setup:    func(c *CPU, _ *testBus) { c.a = 0x85; c.f = 0x80 },
			expected: func(r *regs) { r.a = 0x0B; r.f = 0x10 },
			cycles:   4, pcDelta: 1,
		},
		{
			desc: "RRA shifts carry in", opcode: 0x1F,
			setup:    func(c *CPU, _ *testBus) { c.a = 0x01; c.f = 0x00 },
			expected: func(r *regs) { r.a = 0x00; r.f = 0x10 },
			cycles:   4, pcDelta: 1,
		},
		{
			desc: "ADD HL,BC keeps Z", opcode: 0x09,
			setup:    func(c *CPU, _ *testBus) { c.setHL(0x8A23); c.setBC(0x0605); c.f = 0x80 },
			expected: func(r *regs) { r.h = 0x90; r.l = 0x28; r.f = 0xA0 },
			cycles:   8, pcDelta: 1,
		},
		{
			desc: "ADD HL,HL carry out", opcode: 0x29,
			setup:    func(c *CPU, _ *testBus) { c.setHL(0x8A23) },
			expected: func(r *regs) { r.h = 0x14; r.l = 0x46; r.f = 0x30 },
			cycles:   8, pcDelta: 1,
		},
		{
			desc: "ADD SP,-1 uses unsigned low byte carry", opcode: 0xE8, operand: 0xFF,
			setup:    func(c *CPU, _ *testBus) { c.sp = 0x000F; c.f = 0xC0 },
			expected: func(r *regs) { r.sp = 0x000E; r.f = 0x30 },
			cycles:   16, pcDelta: 2,
		},
		{
			desc: "LD HL,SP+2", opcode: 0xF8, operand: 0x02,
			setup:    func(c *CPU, _ *testBus) { c.sp = 0xFFF8 },
			expected: func(r *regs) { r.h = 0xFF; r.l = 0xFA; r.f = 0x00 },
			cycles:   12, pcDelta: 2,
		},
		{
			desc: "INC BC wraps to zero", opcode: 0x03,
			setup:    func(c *CPU, _ *testBus) { c.setBC(0xFFFF); c.f = 0x50 },
			expected: func(r *regs) { r.b = 0; r.c = 0 },
			cycles:   8, pcDelta: 1,
		},
		{
			desc: "DEC SP wraps", opcode: 0x3B,
			setup:    func(c *CPU, _ *testBus) { c.sp = 0x0000 },
			expected: func(r *regs) { r.sp = 0xFFFF },
			cycles:   8, pcDelta: 1,
		},
		{
			desc: "LD (HL+),A", opcode: 0x22,
			setup:    func(c *CPU, _ *testBus) { c.a = 0x42; c.setHL(0xC0FF) },
			expected: func(r *regs) { r.a = 0x42; r.h = 0xC1; r.l = 0x00 },
			cycles:   8, pcDelta: 1,
			check: func(t *testing.T, _ *CPU, bus *testBus) {
				assert.Equal(t, uint8(0x42), bus.mem[0xC0FF])
			},
		},
		{
			desc: "LD (nn),SP stores little endian", opcode: 0x08, operand: 0xC050,
			setup:    func(c *CPU, _ *testBus) { c.sp = 0xBEEF },
			expected: func(r *regs) { r.sp = 0xBEEF },
			cycles:   20, pcDelta: 3,
			check: func(t *testing.T, _ *CPU, bus *testBus) {
				assert.Equal(t, uint8(0xEF), bus.mem[0xC050])
				assert.Equal(t, uint8(0xBE), bus.mem[0xC051])
			},
		},
		{
			desc: "LDH A,(n) reads the I/O page", opcode: 0xF0, operand: 0x44,
			setup:    func(c *CPU, bus *testBus) { bus.mem[0xFF44] = 0x90 },
			expected: func(r *regs) { r.a = 0x90 },
			cycles:   12, pcDelta: 2,
		},
		{
			desc: "INC (HL)", opcode: 0x34,
			setup:    func(c *CPU, bus *testBus) { c.setHL(0xC200); bus.mem[0xC200] = 0x0F },
			expected: func(r *regs) { r.h = 0xC2; r.l = 0x00; r.f = 0x20 },
			cycles:   12, pcDelta: 1,
			check: func(t *testing.T, _ *CPU, bus *testBus) {
				assert.Equal(t, uint8(0x10), bus.mem[0xC200])
			},
		},
		{
			desc: "POP AF masks the low nibble", opcode: 0xF1,
			setup:    func(c *CPU, bus *testBus) { bus.mem[0xDFF0] = 0xFF; bus.mem[0xDFF1] = 0x12 },
			expected: func(r *regs) { r.a = 0x12; r.f = 0xF0; r.sp = 0xDFF2 },
			cycles:   12, pcDelta: 1,
		},
		{
			desc: "CB RLC B rotates into carry", opcode: 0x100,
			setup:    func(c *CPU, _ *testBus) { c.b = 0x80 },
			expected: func(r *regs) { r.b = 0x01; r.f = 0x10 },
			cycles:   8, pcDelta: 2,
		},
		{
			desc: "CB SWAP A of zero sets Z", opcode: 0x137,
			setup:    func(c *CPU, _ *testBus) { c.a = 0x00; c.f = 0x70 },
			expected: func(r *regs) { r.a = 0x00; r.f = 0x80 },
			cycles:   8, pcDelta: 2,
		},
		{
			desc: "CB SRA keeps bit 7", opcode: 0x12F,
			setup:    func(c *CPU, _ *testBus) { c.a = 0x8A },
			expected: func(r *regs) { r.a = 0xC5; r.f = 0x00 },
			cycles:   8, pcDelta: 2,
		},
		{
			desc: "CB BIT 7,H on a clear bit", opcode: 0x17C,
			setup:    func(c *CPU, _ *testBus) { c.h = 0x7F; c.f = 0x10 },
			expected: func(r *regs) { r.h = 0x7F; r.f = 0xB0 },
			cycles:   8, pcDelta: 2,
		},
		{
			desc: "CB RES 0,(HL)", opcode: 0x186,
			setup:    func(c *CPU, bus *testBus) { c.setHL(0xC300); bus.mem[0xC300] = 0xFF },
			expected: func(r *regs) { r.h = 0xC3; r.l = 0x00 },
			cycles:   16, pcDelta: 2,
			check: func(t *testing.T, _ *CPU, bus *testBus) {
				assert.Equal(t, uint8(0xFE), bus.mem[0xC300])
			},
		},
		{
			desc: "CB SET 3,C", opcode: 0x1D9,
			setup:    func(c *CPU, _ *testBus) { c.c = 0x00 },
			expected: func(r *regs) { r.c = 0x08 },
			cycles:   8, pcDelta: 2,
		},
		{
			desc: "illegal opcode is a one byte no-op", opcode: 0xDD,
			setup:    func(c *CPU, _ *testBus) {},
			expected: func(r *regs) {},
			cycles:   4, pcDelta: 1,
		},
	}

	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c, bus := fixedState()
			tC.setup(c, bus)
			want := c.regs()
			tC.expected(&want)
			startPC := c.pc

			cycles := opcodes[tC.opcode](c, tC.operand)

			assert.Equal(t, tC.cycles, cycles)
			assert.Equal(t, startPC+tC.pcDelta, c.pc)
			assert.Equal(t, want, c.regs())
			if tC.check != nil {
				tC.check(t, c, bus)
			}
		})
	}
}

func TestJumpRelative(t *testing.T) {
	testCases := []struct {
		desc    string
		flags   uint8
		offset  uint16
		cycles  int
		pcDelta uint16
	}{
		{"JR NZ not taken when Z is set", 0x80, 0xFE, 8, 2},
		{"JR NZ taken backwards by two", 0x00, 0xFE, 12, 0},
		{"JR NZ taken forwards", 0x00, 0x05, 12, 7},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c, _ := newTestCPU()
			c.f = tC.flags
			startPC := c.pc
			cycles := opcode0x20(c, tC.offset)
			assert.Equal(t, tC.cycles, cycles)
			assert.Equal(t, startPC+tC.pcDelta, c.pc)
		})
	}
}

func TestCallAndReturn(t *testing.T) {
	c, bus := newTestCPU()
	bus.load(0xC100, 0xCD, 0x00, 0xC2) // CALL 0xC200
	bus.load(0xC200, 0xC9)             // RET

	assert.Equal(t, 24, c.Exec())
	assert.Equal(t, uint16(0xC200), c.pc)
	assert.Equal(t, uint16(0xDFEE), c.sp)
	assert.Equal(t, uint8(0x03), bus.mem[0xDFEE])
	assert.Equal(t, uint8(0xC1), bus.mem[0xDFEF])

	assert.Equal(t, 16, c.Exec())
	assert.Equal(t, uint16(0xC103), c.pc)
	assert.Equal(t, uint16(0xDFF0), c.sp)
}

func TestExecFetchesImmediates(t *testing.T) {
	c, bus := newTestCPU()
	bus.load(0xC100,
		0x21, 0x34, 0x12, // LD HL, 0x1234
		0x3E, 0x99, // LD A, 0x99
		0xCB, 0x37, // SWAP A
	)

	assert.Equal(t, 12, c.Exec())
	assert.Equal(t, uint16(0x1234), c.getHL())
	assert.Equal(t, 8, c.Exec())
	assert.Equal(t, uint8(0x99), c.a)
	assert.Equal(t, 8, c.Exec())
	assert.Equal(t, uint8(0x99), c.a)
	assert.Equal(t, uint16(0xC107), c.pc)
	assert.Equal(t, uint64(28), c.GetCycles())
	assert.Equal(t, "0xC107: NOP", c.Disassemble())
}

func TestStopSwitchesSpeed(t *testing.T) {
	c, bus := newTestCPU()
	bus.load(0xC100, 0x10, 0x00)
	assert.Equal(t, 4, c.Exec())
	assert.Equal(t, uint16(0xC102), c.pc)
	assert.Equal(t, 1, bus.speedSwitches)
}

func TestHalt(t *testing.T) {
	t.Run("with interrupts disabled HALT is skipped", func(t *testing.T) {
		c, bus := newTestCPU()
		bus.load(0xC100, 0x76)
		cycles, halted := c.Tick()
		assert.Equal(t, 4, cycles)
		assert.False(t, halted)
		assert.False(t, c.IsHalted())
		assert.Equal(t, uint16(0xC101), c.pc)
	})

	t.Run("with interrupts enabled HALT waits for an interrupt", func(t *testing.T) {
		c, bus := newTestCPU()
		bus.load(0xC100, 0xFB, 0x76, 0x00) // EI; HALT; NOP
		bus.mem[addr.IE] = uint8(addr.TimerInterrupt)

		c.Tick()
		c.Tick()
		require.True(t, c.IsHalted())

		cycles, halted := c.Tick()
		assert.Equal(t, 0, cycles)
		assert.True(t, halted)

		bus.mem[addr.IF] = uint8(addr.TimerInterrupt)
		cycles, halted = c.Tick()
		assert.Equal(t, 20, cycles)
		assert.False(t, halted)
		assert.False(t, c.IsHalted())
		assert.Equal(t, uint16(0x0050), c.pc)
		assert.Equal(t, uint8(0x00), bus.mem[addr.IF])

		// the return address is the instruction after HALT
		assert.Equal(t, uint8(0x02), bus.mem[c.sp])
		assert.Equal(t, uint8(0xC1), bus.mem[c.sp+1])
	})
}

func TestInterruptPriority(t *testing.T) {
	c, bus := newTestCPU()
	c.interruptsEnabled = true
	bus.mem[addr.IE] = 0x1F
	bus.mem[addr.IF] = uint8(addr.SerialInterrupt | addr.LCDSTATInterrupt)

	cycles, _ := c.Tick()
	assert.Equal(t, 20, cycles)
	assert.Equal(t, uint16(0x0048), c.pc)
	assert.Equal(t, uint8(addr.SerialInterrupt), bus.mem[addr.IF])
	assert.False(t, c.GetIME())

	// RETI re-enables and the next one is serviced
	bus.load(0x0048, 0xD9)
	c.Tick()
	assert.True(t, c.GetIME())
	assert.Equal(t, uint16(0xC100), c.pc)
	c.Tick()
	assert.Equal(t, uint16(0x0058), c.pc)
	assert.Equal(t, uint8(0), bus.mem[addr.IF])
}

func TestInterruptMasked(t *testing.T) {
	c, bus := newTestCPU()
	c.interruptsEnabled = true
	bus.mem[addr.IE] = uint8(addr.VBlankInterrupt)
	bus.mem[addr.IF] = uint8(addr.TimerInterrupt)

	cycles, _ := c.Tick()
	assert.Equal(t, 4, cycles, "NOP executes, timer is not enabled")
	assert.Equal(t, uint16(0xC101), c.pc)
}

func TestStateRoundTrip(t *testing.T) {
	c, _ := fixedState()
	c.interruptsEnabled = true
	c.halted = true
	c.sp = 0xABCD
	c.f = 0xB0

	var buf bytes.Buffer
	w := savestate.NewWriter(&buf)
	c.SaveState(w)
	require.NoError(t, w.Err())

	restored, _ := newTestCPU()
	r := savestate.NewReader(&buf)
	restored.LoadState(r)
	require.NoError(t, r.Err())

	assert.Equal(t, c.regs(), restored.regs())
	assert.Equal(t, c.pc, restored.pc)
	assert.True(t, restored.interruptsEnabled)
	assert.True(t, restored.halted)
}
