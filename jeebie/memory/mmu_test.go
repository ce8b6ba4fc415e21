package memory

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-jeebie-color/jeebie/addr"
	"github.com/valerio/go-jeebie-color/jeebie/input"
	"github.com/valerio/go-jeebie-color/jeebie/savestate"
	"github.com/valerio/go-jeebie-color/jeebie/video"
)

type flatCart struct {
	rom [0x8000]byte
	ram [0x2000]byte
}

func (c *flatCart) Read(address uint16) uint8 {
	if address < 0x8000 {
		return c.rom[address]
	}
	return c.ram[address-addr.CartRAMStart]
}

func (c *flatCart) Write(address uint16, value uint8) {
	if address >= addr.CartRAMStart {
		c.ram[address-addr.CartRAMStart] = value
	}
}

type spyRenderer struct {
	cleared int
	marked  []uint16
	banks   []int
}

func (s *spyRenderer) MarkTileChanged(bank int, address uint16) {
	s.banks = append(s.banks, bank)
	s.marked = append(s.marked, address)
}

func (s *spyRenderer) ClearCache() { s.cleared++ }

type fakeBoot struct{}

func (fakeBoot) Read(address uint16) byte     { return 0xB0 }
func (fakeBoot) Covers(address uint16) bool { return address < 0x100 }

func newTestMMU(color bool) (*MMU, *flatCart, *spyRenderer) {
	cart := &flatCart{}
	r := &spyRenderer{}
	m := New(cart, nil, Devices{LCD: video.NewLCD(color), Renderer: r})
	return m, cart, r
}

func TestWRAMReadWrite(t *testing.T) {
	for _, color := range []bool{false, true} {
		m, _, _ := newTestMMU(color)
		for address := 0xC000; address < 0xE000; address++ {
			for v := range 0x100 {
				m.Write(uint16(address), byte(v))
				if got := m.Read(uint16(address)); got != byte(v) {
					t.Fatalf("color=%v: wrote 0x%02X to 0x%04X, read 0x%02X", color, v, address, got)
				}
			}
		}
	}
}

func TestEchoMirror(t *testing.T) {
	m, _, _ := newTestMMU(false)
	for address := 0xE000; address < 0xFE00; address++ {
		echo, wram := uint16(address), uint16(address-0x2000)
		v := byte(address) ^ byte(address>>8)

		m.Write(wram, v)
		if got := m.Read(echo); got != v {
			t.Fatalf("write 0x%04X, read echo 0x%04X: got 0x%02X, want 0x%02X", wram, echo, got, v)
		}

		m.Write(echo, ^v)
		if got := m.Read(wram); got != ^v {
			t.Fatalf("write echo 0x%04X, read 0x%04X: got 0x%02X, want 0x%02X", echo, wram, got, ^v)
		}
	}
}

func TestEveryAddressIsMapped(t *testing.T) {
	for _, color := range []bool{false, true} {
		m, _, _ := newTestMMU(color)
		for address := range 0x10000 {
			assert.NotPanics(t, func() {
				m.Read(uint16(address))
				m.Write(uint16(address), 0x00)
			}, "address 0x%04X", address)
		}
	}
}

func TestCartridgeRouting(t *testing.T) {
	m, cart, _ := newTestMMU(false)
	cart.rom[0x0150] = 0x3C
	assert.Equal(t, byte(0x3C), m.Read(0x0150))

	m.Write(0xA000, 0x99)
	assert.Equal(t, byte(0x99), cart.ram[0])
	assert.Equal(t, byte(0x99), m.Read(0xA000))
}

func TestBootROMOverlay(t *testing.T) {
	cart := &flatCart{}
	cart.rom[0x0000] = 0xC3
	cart.rom[0x0100] = 0x00
	m := New(cart, fakeBoot{}, Devices{LCD: video.NewLCD(false)})

	assert.True(t, m.BootROMEnabled())
	assert.Equal(t, byte(0xB0), m.Read(0x0000))
	assert.Equal(t, byte(0x00), m.Read(0x0100), "header is not overlaid")

	testCases := []struct {
		desc    string
		value   byte
		enabled bool
	}{
		{desc: "other values are ignored", value: 0x02, enabled: true},
		{desc: "0x01 disables", value: 0x01, enabled: false},
		{desc: "cannot be re-enabled", value: 0x00, enabled: false},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			m.Write(addr.BOOT, tC.value)
			assert.Equal(t, tC.enabled, m.BootROMEnabled())
		})
	}
	assert.Equal(t, byte(0xC3), m.Read(0x0000))
}

func TestInterruptFlags(t *testing.T) {
	m, _, _ := newTestMMU(false)
	assert.Equal(t, byte(0xE0), m.Read(addr.IF))

	m.RequestInterrupt(addr.TimerInterrupt)
	m.RequestInterrupt(addr.VBlankInterrupt)
	assert.Equal(t, byte(0xE5), m.Read(addr.IF))

	m.Write(addr.IF, 0xFF)
	assert.Equal(t, byte(0xFF), m.Read(addr.IF))

	m.Write(addr.IE, 0x1F)
	assert.Equal(t, byte(0x1F), m.Read(addr.IE))
}

func TestDMA(t *testing.T) {
	m, _, _ := newTestMMU(false)
	for i := range uint16(0xA0) {
		m.Write(0xC100+i, byte(i))
	}
	m.Write(addr.DMA, 0xC1)

	for i := range uint16(0xA0) {
		require.Equal(t, byte(i), m.Read(addr.OAMStart+i))
	}
	assert.Equal(t, byte(0xC1), m.Read(addr.DMA))
}

func TestTileWritesMarkRenderer(t *testing.T) {
	m, _, r := newTestMMU(true)
	m.Write(0x8010, 0xFF)
	m.Write(0x9800, 0x01)
	m.Write(addr.VBK, 1)
	m.Write(0x97F0, 0xFF)

	assert.Equal(t, []uint16{0x8010, 0x97F0}, r.marked)
	assert.Equal(t, []int{0, 1}, r.banks)
}

func TestPaletteWritesClearCache(t *testing.T) {
	m, _, r := newTestMMU(false)
	m.Write(addr.BGP, 0xFC)
	assert.Equal(t, 0, r.cleared, "same value is a no-op")

	m.Write(addr.BGP, 0xE4)
	m.Write(addr.OBP0, 0xE4)
	m.Write(addr.OBP1, 0xE4)
	assert.Equal(t, 3, r.cleared)
	assert.Equal(t, byte(0xE4), m.Read(addr.OBP1))
}

func TestVBK(t *testing.T) {
	m, _, r := newTestMMU(true)
	m.Write(0x8000, 0x11)
	m.Write(addr.VBK, 0x01)
	assert.Equal(t, byte(0xFF), m.Read(addr.VBK))
	assert.Equal(t, 1, r.cleared)

	m.Write(0x8000, 0x22)
	assert.Equal(t, byte(0x22), m.Read(0x8000))

	m.Write(addr.VBK, 0xFE)
	assert.Equal(t, byte(0xFE), m.Read(addr.VBK))
	assert.Equal(t, byte(0x11), m.Read(0x8000))

	dmg, _, _ := newTestMMU(false)
	dmg.Write(addr.VBK, 0x01)
	dmg.Write(0x8000, 0x33)
	assert.Equal(t, byte(0x33), dmg.lcd.VRAM[0][0], "no banking on DMG")
}

func TestSVBK(t *testing.T) {
	m, _, _ := newTestMMU(true)
	testCases := []struct {
		desc  string
		value byte
		bank  int
	}{
		{desc: "bank 0 maps to 1", value: 0, bank: 1},
		{desc: "bank 1", value: 1, bank: 1},
		{desc: "bank 7", value: 7, bank: 7},
		{desc: "upper bits ignored", value: 0xFB, bank: 3},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			m.Write(addr.SVBK, tC.value)
			m.Write(0xD000, byte(0x40+tC.bank))
			assert.Equal(t, byte(0x40+tC.bank), m.wram[tC.bank][0])
			assert.Equal(t, tC.value&0x07|0xF8, m.Read(addr.SVBK))
		})
	}
	m.Write(0xC000, 0x01)
	assert.Equal(t, byte(0x01), m.wram[0][0], "bank 0 is fixed")
}

func TestColorPalettesThroughBus(t *testing.T) {
	m, _, r := newTestMMU(true)
	m.Write(addr.BCPS, 0x80|0x3F)
	m.Write(addr.BCPD, 0x1F)
	m.Write(addr.BCPD, 0x00)

	assert.Equal(t, byte(0x1F), m.lcd.BGPalette.Byte(0x3F))
	assert.Equal(t, byte(0x00), m.lcd.BGPalette.Byte(0x00))
	assert.Equal(t, byte(0x81), m.Read(addr.BCPS))
	assert.Equal(t, 2, r.cleared)

	m.Write(addr.OCPS, 0x02)
	m.Write(addr.OCPD, 0x7C)
	m.Write(addr.OCPD, 0x03)
	assert.Equal(t, byte(0x02), m.Read(addr.OCPS), "no auto increment")
	assert.Equal(t, byte(0x03), m.lcd.OBPalette.Byte(2))
}

func TestHDMAGeneral(t *testing.T) {
	m, _, _ := newTestMMU(true)
	for i := range uint16(0x40) {
		m.Write(0xC000+i, byte(i+1))
	}
	m.Write(addr.HDMA1, 0xC0)
	m.Write(addr.HDMA2, 0x09) // low nibble ignored
	m.Write(addr.HDMA3, 0xE1) // upper bits ignored
	m.Write(addr.HDMA4, 0x00)
	m.Write(addr.HDMA5, 0x03)

	for i := range uint16(0x40) {
		require.Equal(t, byte(i+1), m.lcd.VRAM[0][0x0100+i])
	}
	assert.Equal(t, byte(0xFF), m.Read(addr.HDMA5))
	assert.False(t, m.HDMAActive())
	assert.Equal(t, byte(0xFF), m.Read(addr.HDMA1), "source registers are write only")
}

func TestHDMAHBlank(t *testing.T) {
	m, _, _ := newTestMMU(true)
	for i := range uint16(0x30) {
		m.Write(0xC000+i, 0xA0+byte(i))
	}
	m.Write(addr.HDMA1, 0xC0)
	m.Write(addr.HDMA2, 0x00)
	m.Write(addr.HDMA3, 0x00)
	m.Write(addr.HDMA4, 0x00)
	m.Write(addr.HDMA5, 0x82)

	assert.True(t, m.HDMAActive())
	assert.Equal(t, byte(0x02), m.Read(addr.HDMA5))
	assert.Equal(t, byte(0x00), m.lcd.VRAM[0][0], "nothing copied before H-blank")

	m.StepHDMA()
	assert.Equal(t, byte(0xA0), m.lcd.VRAM[0][0x00])
	assert.Equal(t, byte(0xAF), m.lcd.VRAM[0][0x0F])
	assert.Equal(t, byte(0x00), m.lcd.VRAM[0][0x10])
	assert.Equal(t, byte(0x01), m.Read(addr.HDMA5))

	m.StepHDMA()
	m.StepHDMA()
	assert.Equal(t, byte(0xCF), m.lcd.VRAM[0][0x2F])
	assert.False(t, m.HDMAActive())
	assert.Equal(t, byte(0xFF), m.Read(addr.HDMA5))

	m.StepHDMA()
	assert.Equal(t, byte(0x00), m.lcd.VRAM[0][0x30], "idle step is a no-op")
}

func TestHDMACancel(t *testing.T) {
	m, _, _ := newTestMMU(true)
	m.Write(addr.HDMA1, 0xC0)
	m.Write(addr.HDMA5, 0x83)
	m.StepHDMA()
	m.Write(addr.HDMA5, 0x00)

	assert.False(t, m.HDMAActive())
	assert.Equal(t, byte(0x82), m.Read(addr.HDMA5))
}

func TestKEY1(t *testing.T) {
	m, _, _ := newTestMMU(true)
	assert.Equal(t, byte(0x7E), m.Read(addr.KEY1))

	m.SwitchSpeed()
	assert.False(t, m.DoubleSpeed(), "not armed")

	m.Write(addr.KEY1, 0x01)
	assert.Equal(t, byte(0x7F), m.Read(addr.KEY1))
	m.SwitchSpeed()
	assert.True(t, m.DoubleSpeed())
	assert.Equal(t, byte(0xFE), m.Read(addr.KEY1))

	dmg, _, _ := newTestMMU(false)
	dmg.Write(addr.KEY1, 0x01)
	dmg.SwitchSpeed()
	assert.False(t, dmg.DoubleSpeed())
}

func TestJoypad(t *testing.T) {
	m, _, _ := newTestMMU(false)
	m.Write(addr.P1, 0x20) // select directions
	assert.Equal(t, byte(0xEF), m.Read(addr.P1))

	m.HandleKeyEvent(input.KeyDown, true)
	assert.Equal(t, byte(0xE7), m.Read(addr.P1))
	assert.Equal(t, byte(0xF0), m.Read(addr.IF))

	m.Write(addr.IF, 0)
	m.HandleKeyEvent(input.KeyDown, true)
	assert.Equal(t, byte(0xE0), m.Read(addr.IF), "held key does not fire again")

	m.Write(addr.P1, 0x10) // select buttons
	assert.Equal(t, byte(0xDF), m.Read(addr.P1))
}

func TestLYReadOnly(t *testing.T) {
	m, _, _ := newTestMMU(false)
	m.lcd.LY = 0x42
	m.Write(addr.LY, 0x00)
	assert.Equal(t, byte(0x42), m.Read(addr.LY))
}

func TestStateRoundTrip(t *testing.T) {
	m, _, _ := newTestMMU(true)
	m.Write(0xC010, 0x01)
	m.Write(addr.SVBK, 5)
	m.Write(0xD010, 0x05)
	m.Write(0xFF90, 0x90)
	m.Write(addr.IE, 0x0D)
	m.Write(addr.KEY1, 0x01)
	m.Write(addr.HDMA1, 0xC0)
	m.Write(addr.HDMA5, 0x85)

	var buf bytes.Buffer
	w := savestate.NewWriter(&buf)
	m.SaveState(w)
	m.SaveColorState(w)
	require.NoError(t, w.Err())

	restored, _, _ := newTestMMU(true)
	r := savestate.NewReader(&buf)
	restored.LoadState(r)
	restored.LoadColorState(r)
	require.NoError(t, r.Err())

	assert.Equal(t, byte(0x01), restored.Read(0xC010))
	assert.Equal(t, byte(0x05), restored.Read(0xD010))
	assert.Equal(t, byte(0x90), restored.Read(0xFF90))
	assert.Equal(t, byte(0x0D), restored.Read(addr.IE))
	assert.Equal(t, byte(0x7F), restored.Read(addr.KEY1))
	assert.True(t, restored.HDMAActive())
	assert.Equal(t, byte(0x05), restored.Read(addr.HDMA5))
}
