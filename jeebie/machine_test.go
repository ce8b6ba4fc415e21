package jeebie

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-jeebie-color/jeebie/input"
	"github.com/valerio/go-jeebie-color/jeebie/savestate"
	"github.com/valerio/go-jeebie-color/jeebie/video"
)

// testROM assembles a 32KB ROM-only cartridge with code placed at the given
// addresses. Execution starts at 0x0100 when the boot ROM is skipped.
func testROM(color bool, code map[uint16][]byte) []byte {
	rom := make([]byte, 0x8000)
	copy(rom[0x134:], "JEEBIETEST")
	if color {
		rom[0x143] = 0x80
	}
	for address, program := range code {
		copy(rom[address:], program)
	}
	return rom
}

func newTestMachine(t *testing.T, code map[uint16][]byte, opts ...Option) *Machine {
	t.Helper()
	m, err := New(testROM(false, code), opts...)
	require.NoError(t, err)
	return m
}

// counterISR increments (HL) and returns, installed at an interrupt vector.
var counterISR = []byte{
	0x34, // INC (HL)
	0xD9, // RETI
}

func lycProgram(stat byte) []byte {
	return []byte{
		0x21, 0x00, 0xC0, // LD HL,C000
		0x3E, 0x02, // LD A,02
		0xE0, 0xFF, // LDH (IE),A
		0x3E, stat, // LD A,stat
		0xE0, 0x41, // LDH (STAT),A
		0x3E, 40, // LD A,40
		0xE0, 0x45, // LDH (LYC),A
		0xAF,       // XOR A
		0xE0, 0x0F, // LDH (IF),A
		0xFB,       // EI
		0x18, 0xFE, // JR -2
	}
}

func TestLYCInterrupt(t *testing.T) {
	testCases := []struct {
		desc  string
		stat  byte
		count byte
	}{
		{desc: "enabled fires once per frame", stat: 0x40, count: 3},
		{desc: "disabled never fires", stat: 0x00, count: 0},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			m := newTestMachine(t, map[uint16][]byte{
				0x0048: counterISR,
				0x0100: lycProgram(tC.stat),
			})
			for range 3 {
				m.TickFrame()
			}
			assert.Equal(t, tC.count, m.Read(0xC000))
		})
	}
}

func TestSTATModeInterrupt(t *testing.T) {
	// H-blank source: one interrupt per visible line
	m := newTestMachine(t, map[uint16][]byte{
		0x0048: counterISR,
		0x0100: lycProgram(0x08),
	})
	m.TickFrame()
	m.mem.Write(0xC000, 0)
	m.TickFrame()
	assert.Equal(t, byte(144), m.Read(0xC000))
}

var haltProgram = map[uint16][]byte{
	0x0050: counterISR,
	0x0100: {
		0x21, 0x00, 0xC0, // LD HL,C000
		0x3E, 0x04, // LD A,04
		0xE0, 0xFF, // LDH (IE),A
		0x3E, 0x05, // LD A,05
		0xE0, 0x07, // LDH (TAC),A
		0xAF,       // XOR A
		0xE0, 0x0F, // LDH (IF),A
		0xFB,       // EI
		0x76,       // HALT
		0x18, 0xFD, // JR -3
	},
}

func TestHaltFastForwardMatchesStepping(t *testing.T) {
	fast := newTestMachine(t, haltProgram)
	slow := newTestMachine(t, haltProgram, WithHaltStepping())

	for range 5 {
		fast.TickFrame()
		slow.TickFrame()
	}

	assert.NotZero(t, fast.Read(0xC000))
	assert.Equal(t, slow.Read(0xC000), fast.Read(0xC000))
	assert.Equal(t, *slow.timer, *fast.timer)
	assert.Equal(t, slow.cpu.GetPC(), fast.cpu.GetPC())
	assert.Equal(t, slow.cyclesRemaining, fast.cyclesRemaining)
}

// tileSetup fills tile 1 with colour 3 and puts it in the top left map entry.
var tileSetup = []byte{
	0x21, 0x10, 0x80, // LD HL,8010
	0x3E, 0xFF, // LD A,FF
	0x06, 0x10, // LD B,16
	0x22,       // LD (HL+),A
	0x05,       // DEC B
	0x20, 0xFC, // JR NZ,-4
	0x21, 0x00, 0x98, // LD HL,9800
	0x3E, 0x01, // LD A,01
	0x77, // LD (HL),A
}

func program(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

var tileProgram = map[uint16][]byte{
	0x0100: program(tileSetup, []byte{0x18, 0xFE}), // JR -2
}

// patternProgram loads BGP=E4, gives tile 1 rows of low plane 0x0F and high
// plane 0x33, and fills the whole background map with tile 1.
var patternProgram = map[uint16][]byte{
	0x0100: {
		0x3E, 0xE4, // LD A,E4
		0xE0, 0x47, // LDH (BGP),A
		0x21, 0x10, 0x80, // LD HL,8010
		0x06, 0x08, // LD B,8
		0x3E, 0x0F, // LD A,0F
		0x22,       // LD (HL+),A
		0x3E, 0x33, // LD A,33
		0x22,       // LD (HL+),A
		0x05,       // DEC B
		0x20, 0xF7, // JR NZ,-9
		0x21, 0x00, 0x98, // LD HL,9800
		0x3E, 0x01, // LD A,01
		0x16, 0x04, // LD D,4
		0x06, 0x00, // LD B,0
		0x22,       // LD (HL+),A
		0x05,       // DEC B
		0x20, 0xFC, // JR NZ,-4
		0x15,       // DEC D
		0x20, 0xF7, // JR NZ,-9
		0x18, 0xFE, // JR -2
	},
}

func TestTileROMFrame(t *testing.T) {
	m := newTestMachine(t, patternProgram)
	m.TickFrame()
	m.TickFrame()

	// colour indices 0,0,2,2,1,1,3,3 through BGP E4
	row := [8]uint32{
		video.WhiteColor, video.WhiteColor,
		video.DarkGreyColor, video.DarkGreyColor,
		video.LightGreyColor, video.LightGreyColor,
		video.BlackColor, video.BlackColor,
	}
	want := make([]uint32, video.FramebufferSize)
	for i := range want {
		want[i] = row[(i%video.FramebufferWidth)%8]
	}
	assert.Equal(t, want, m.Frame().Pixels())
	assert.Equal(t, uint64(2), m.FrameCount())
}

func TestTileSetupFrame(t *testing.T) {
	m := newTestMachine(t, tileProgram)
	m.TickFrame()

	fb := m.Frame()
	assert.Equal(t, video.BlackColor, fb.Pixel(0, 0))
	assert.Equal(t, video.BlackColor, fb.Pixel(7, 7))
	assert.Equal(t, video.WhiteColor, fb.Pixel(8, 0))
	assert.Equal(t, video.WhiteColor, fb.Pixel(0, 8))
}

func TestRendererDisabled(t *testing.T) {
	m := newTestMachine(t, tileProgram, WithRendererDisabled())
	m.TickFrame()
	assert.NotEqual(t, video.BlackColor, m.Frame().Pixel(0, 0))
}

func TestGreenPalette(t *testing.T) {
	m := newTestMachine(t, tileProgram, WithDMGPalette(video.GreenScheme))
	m.TickFrame()
	assert.Equal(t, video.GreenScheme[3], m.Frame().Pixel(0, 0))
	assert.Equal(t, video.GreenScheme[0], m.Frame().Pixel(8, 0))
}

func TestColorFrame(t *testing.T) {
	rom := testROM(true, map[uint16][]byte{
		0x0100: {
			0x3E, 0x80, // LD A,80
			0xE0, 0x68, // LDH (BCPS),A
			0x3E, 0x1F, // LD A,1F
			0xE0, 0x69, // LDH (BCPD),A
			0xAF,       // XOR A
			0xE0, 0x69, // LDH (BCPD),A
			0x18, 0xFE, // JR -2
		},
	})

	m, err := New(rom)
	require.NoError(t, err)
	require.True(t, m.IsColor())
	m.TickFrame()
	assert.Equal(t, uint32(0xF80000FF), m.Frame().Pixel(0, 0))

	dmg, err := New(rom, WithForceDMG())
	require.NoError(t, err)
	assert.False(t, dmg.IsColor())
	dmg.TickFrame()
	assert.Equal(t, video.WhiteColor, dmg.Frame().Pixel(0, 0))
}

func TestLCDOff(t *testing.T) {
	m := newTestMachine(t, map[uint16][]byte{
		0x0100: {
			0xAF,       // XOR A
			0xE0, 0x40, // LDH (LCDC),A
			0x18, 0xFE, // JR -2
		},
	})
	m.TickFrame()
	m.TickFrame()

	assert.Equal(t, byte(0), m.lcd.LY)
	assert.Equal(t, video.HBlankMode, m.lcd.STAT.Mode())
	assert.Equal(t, video.WhiteColor, m.Frame().Pixel(80, 72))
}

func TestSerialOutput(t *testing.T) {
	m := newTestMachine(t, map[uint16][]byte{
		0x0100: {
			0x3E, 'H', // LD A,'H'
			0xE0, 0x01, // LDH (SB),A
			0x3E, 'i', // LD A,'i'
			0xE0, 0x01, // LDH (SB),A
			0x18, 0xFE, // JR -2
		},
	})
	m.TickFrame()
	assert.Equal(t, "Hi", m.SerialOutput())
	assert.Equal(t, "", m.SerialOutput(), "output is drained")
}

func TestJoypadInterrupt(t *testing.T) {
	m := newTestMachine(t, map[uint16][]byte{
		0x0060: counterISR,
		0x0100: {
			0x21, 0x00, 0xC0, // LD HL,C000
			0x3E, 0x10, // LD A,10
			0xE0, 0xFF, // LDH (IE),A
			0xAF,       // XOR A
			0xE0, 0x0F, // LDH (IF),A
			0xFB,       // EI
			0x18, 0xFE, // JR -2
		},
	})
	m.TickFrame()

	m.Press(input.KeyA)
	m.TickFrame()
	assert.Equal(t, byte(1), m.Read(0xC000))

	m.Press(input.KeyA)
	m.TickFrame()
	assert.Equal(t, byte(1), m.Read(0xC000), "held key")

	m.Release(input.KeyA)
	m.Press(input.KeyA)
	m.TickFrame()
	assert.Equal(t, byte(2), m.Read(0xC000))
}

func TestBootROM(t *testing.T) {
	boot := make([]byte, 256)
	copy(boot, []byte{
		0x3E, 0x01, // LD A,01
		0xE0, 0x50, // LDH (BOOT),A
	})
	rom := testROM(false, map[uint16][]byte{
		0x0100: {
			0x3E, 'B', // LD A,'B'
			0xE0, 0x01, // LDH (SB),A
			0x18, 0xFE, // JR -2
		},
	})

	m, err := New(rom, WithBootROM(boot))
	require.NoError(t, err)
	assert.True(t, m.mem.BootROMEnabled())
	assert.Equal(t, byte(0x3E), m.Read(0x0000))

	m.TickFrame()
	assert.False(t, m.mem.BootROMEnabled())
	assert.Equal(t, "B", m.SerialOutput(), "falls through into the cartridge")

	_, err = New(rom, WithBootROM(make([]byte, 2304)))
	assert.ErrorIs(t, err, ErrBootROMMismatch)
}

func TestSaveStateRoundTrip(t *testing.T) {
	testCases := []struct {
		desc  string
		color bool
	}{
		{desc: "dmg"},
		{desc: "cgb", color: true},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			rom := testROM(tC.color, map[uint16][]byte{
				0x0050: counterISR,
				0x0100: program(tileSetup, haltProgram[0x0100]),
			})

			m, err := New(rom)
			require.NoError(t, err)
			for range 3 {
				m.TickFrame()
			}

			var buf bytes.Buffer
			require.NoError(t, m.SaveState(&buf))
			assert.Equal(t, savestate.Version, buf.Bytes()[0])

			restored, err := New(rom)
			require.NoError(t, err)
			require.NoError(t, restored.LoadState(bytes.NewReader(buf.Bytes())))
			assert.Equal(t, m.Frame().Hash(), restored.Frame().Hash())

			for range 2 {
				m.TickFrame()
				restored.TickFrame()
			}
			assert.Equal(t, m.Frame().Hash(), restored.Frame().Hash())
			assert.Equal(t, m.cpu.GetPC(), restored.cpu.GetPC())
			assert.Equal(t, m.Read(0xC000), restored.Read(0xC000))
			assert.Equal(t, *m.timer, *restored.timer)
		})
	}
}

func TestLoadOlderState(t *testing.T) {
	m := newTestMachine(t, haltProgram)
	m.TickFrame()

	// version 5 predates the sound, cgb and scanline-select sections
	var buf bytes.Buffer
	w := savestate.NewWriter(&buf)
	w.Byte(5)
	w.Bool(false)
	m.cpu.SaveState(w)
	m.lcd.SaveState(w)
	m.renderer.SaveState(w)
	m.mem.SaveState(w)
	m.timer.SaveState(w)
	m.cart.SaveState(w)
	require.NoError(t, w.Err())

	restored := newTestMachine(t, haltProgram)
	require.NoError(t, restored.LoadState(&buf))
	assert.Equal(t, m.cpu.GetPC(), restored.cpu.GetPC())
	assert.Equal(t, *m.timer, *restored.timer)
	assert.Equal(t, m.Read(0xC000), restored.Read(0xC000))
	assert.Equal(t, m.renderer.Lines()[10].SCX, restored.renderer.Lines()[10].SCX)
}

func TestLoadStateErrors(t *testing.T) {
	m := newTestMachine(t, haltProgram)

	err := m.LoadState(bytes.NewReader([]byte{savestate.Version + 1}))
	assert.ErrorIs(t, err, savestate.ErrUnsupportedVersion)

	var buf bytes.Buffer
	require.NoError(t, m.SaveState(&buf))
	err = m.LoadState(bytes.NewReader(buf.Bytes()[:100]))
	assert.ErrorIs(t, err, savestate.ErrTruncated)
}

func TestFailedLoadKeepsState(t *testing.T) {
	m := newTestMachine(t, tileProgram)
	twin := newTestMachine(t, tileProgram)
	m.TickFrame()
	twin.TickFrame()

	other := newTestMachine(t, haltProgram)
	other.TickFrame()
	var buf bytes.Buffer
	require.NoError(t, other.SaveState(&buf))

	testCases := []struct {
		desc string
		blob []byte
		err  error
	}{
		{desc: "truncated", blob: buf.Bytes()[:100], err: savestate.ErrTruncated},
		{desc: "cut inside the last section", blob: buf.Bytes()[:buf.Len()-1], err: savestate.ErrTruncated},
		{desc: "newer version", blob: []byte{savestate.Version + 1, 0, 0}, err: savestate.ErrUnsupportedVersion},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			err := m.LoadState(bytes.NewReader(tC.blob))
			require.ErrorIs(t, err, tC.err)

			assert.Equal(t, byte(0x91), m.Read(0xFF40))
			assert.Equal(t, byte(0xFF), m.Read(0x8010))
			assert.Equal(t, byte(0x01), m.Read(0x9800))
			assert.Equal(t, twin.cpu.GetPC(), m.cpu.GetPC())
			assert.Equal(t, *twin.timer, *m.timer)
			assert.Equal(t, twin.cyclesRemaining, m.cyclesRemaining)
			assert.Equal(t, twin.Frame().Hash(), m.Frame().Hash())
		})
	}

	m.TickFrame()
	twin.TickFrame()
	assert.Equal(t, twin.Frame().Hash(), m.Frame().Hash())
	assert.Equal(t, twin.cpu.GetPC(), m.cpu.GetPC())
}
