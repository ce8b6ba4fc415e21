package video

import (
	"github.com/valerio/go-jeebie-color/jeebie/bit"
	"github.com/valerio/go-jeebie-color/jeebie/savestate"
)

const (
	VRAMBankSize = 0x2000
	OAMSize      = 0xA0
)

// Mode is the 2-bit STAT mode field.
type Mode uint8

const (
	HBlankMode Mode = iota
	VBlankMode
	OAMScanMode
	TransferMode
)

// LCDCRegister holds the raw LCDC byte together with its decoded fields.
// Every write decodes all of them again.
//
// Bit 7 - LCD Display Enable (0=Off, 1=On)
// Bit 6 - Window Tile Map Display Select (0=9800-9BFF, 1=9C00-9FFF)
// Bit 5 - Window Display Enable (0=Off, 1=On)
// Bit 4 - BG & Window Tile Data Select (0=8800-97FF, 1=8000-8FFF)
// Bit 3 - BG Tile Map Display Select (0=9800-9BFF, 1=9C00-9FFF)
// Bit 2 - OBJ (Sprite) Size (0=8x8, 1=8x16)
// Bit 1 - OBJ (Sprite) Display Enable (0=Off, 1=On)
// Bit 0 - BG Display (0=Off, 1=On)
type LCDCRegister struct {
	Value uint8

	LCDEnable        bool
	WindowMapSelect  bool
	WindowEnable     bool
	TileDataSelect   bool
	BGMapSelect      bool
	TallSprites      bool
	SpriteEnable     bool
	BackgroundEnable bool
}

func (l *LCDCRegister) Set(value uint8) {
	l.Value = value
	l.LCDEnable = bit.IsSet(7, value)
	l.WindowMapSelect = bit.IsSet(6, value)
	l.WindowEnable = bit.IsSet(5, value)
	l.TileDataSelect = bit.IsSet(4, value)
	l.BGMapSelect = bit.IsSet(3, value)
	l.TallSprites = bit.IsSet(2, value)
	l.SpriteEnable = bit.IsSet(1, value)
	l.BackgroundEnable = bit.IsSet(0, value)
}

// SpriteHeight is 8 or 16 depending on the OBJ size bit.
func (l LCDCRegister) SpriteHeight() int {
	if l.TallSprites {
		return 16
	}
	return 8
}

// STATRegister keeps the mode and LYC flag owned by the frame loop apart
// from the interrupt enables owned by software.
type STATRegister struct {
	value uint8
}

// Read returns the register as seen by the CPU, bit 7 always reads 1.
func (s STATRegister) Read() uint8 {
	return s.value | 0x80
}

// Write only changes the interrupt enable bits 3-6.
func (s *STATRegister) Write(value uint8) {
	s.value = s.value&0x07 | value&0x78
}

func (s STATRegister) Mode() Mode {
	return Mode(s.value & 0x03)
}

func (s *STATRegister) SetMode(mode Mode) {
	s.value = s.value&^0x03 | uint8(mode)&0x03
}

func (s *STATRegister) SetLYCMatch(match bool) {
	s.value = bit.SetTo(2, s.value, match)
}

func (s STATRegister) LYCMatch() bool {
	return bit.IsSet(2, s.value)
}

// LYCInterruptEnabled reports bit 6.
func (s STATRegister) LYCInterruptEnabled() bool {
	return bit.IsSet(6, s.value)
}

// ModeInterruptEnabled reports whether entering mode raises LCD STAT.
// Transfer has no enable bit and never does.
func (s STATRegister) ModeInterruptEnabled(mode Mode) bool {
	if mode == TransferMode {
		return false
	}
	return bit.IsSet(uint8(mode)+3, s.value)
}

// PaletteRegister is one of BGP, OBP0 or OBP1 with its shade lookup.
type PaletteRegister struct {
	value  uint8
	lookup [4]uint8
}

func NewPaletteRegister(value uint8) PaletteRegister {
	p := PaletteRegister{}
	p.decode(value)
	return p
}

// Set stores value and returns true if it differs from the previous one.
// Writing the same value again is a no-op.
func (p *PaletteRegister) Set(value uint8) bool {
	if p.value == value {
		return false
	}
	p.decode(value)
	return true
}

func (p *PaletteRegister) decode(value uint8) {
	p.value = value
	for i := range p.lookup {
		p.lookup[i] = (value >> (i * 2)) & 0x03
	}
}

func (p PaletteRegister) Value() uint8 { return p.value }

// Shade maps a colour index 0-3 to a shade 0-3.
func (p PaletteRegister) Shade(colorIndex uint8) uint8 {
	return p.lookup[colorIndex&0x03]
}

// VBKRegister selects the VRAM bank seen by the CPU.
type VBKRegister struct {
	bank uint8
}

// Set returns true when the bank actually changed.
func (v *VBKRegister) Set(value uint8) bool {
	bank := value & 0x01
	if bank == v.bank {
		return false
	}
	v.bank = bank
	return true
}

func (v VBKRegister) Read() uint8 { return v.bank | 0xFE }

func (v VBKRegister) Bank() int { return int(v.bank) }

// LCD owns video memory and every video register.
type LCD struct {
	VRAM [2][VRAMBankSize]byte
	OAM  [OAMSize]byte

	LCDC LCDCRegister
	STAT STATRegister
	SCY  uint8
	SCX  uint8
	LY   uint8
	LYC  uint8
	WY   uint8
	WX   uint8

	BGP  PaletteRegister
	OBP0 PaletteRegister
	OBP1 PaletteRegister

	VBK       VBKRegister
	BGPalette *ColorPalette
	OBPalette *ColorPalette

	color bool
}

// NewLCD returns the video state at power on. color selects CGB behaviour
// for VRAM banking.
func NewLCD(color bool) *LCD {
	l := &LCD{
		BGP:       NewPaletteRegister(0xFC),
		OBP0:      NewPaletteRegister(0xFF),
		OBP1:      NewPaletteRegister(0xFF),
		BGPalette: NewColorPalette(0xFF),
		OBPalette: NewColorPalette(0x00),
		color:     color,
	}
	return l
}

func (l *LCD) IsColor() bool { return l.color }

// WindowPos returns WX-7 and WY.
func (l *LCD) WindowPos() (int, uint8) {
	return int(l.WX) - 7, l.WY
}

// ActiveBank is the VRAM bank mapped for the CPU, always 0 on DMG.
func (l *LCD) ActiveBank() int {
	if !l.color {
		return 0
	}
	return l.VBK.Bank()
}

// ReadVRAM reads an address in 0x8000-0x9FFF from the active bank.
func (l *LCD) ReadVRAM(address uint16) byte {
	return l.VRAM[l.ActiveBank()][address&0x1FFF]
}

// WriteVRAM writes an address in 0x8000-0x9FFF to the active bank.
func (l *LCD) WriteVRAM(address uint16, value byte) {
	l.VRAM[l.ActiveBank()][address&0x1FFF] = value
}

// SaveState writes VRAM bank 0, OAM and the DMG visible registers.
func (l *LCD) SaveState(w *savestate.Writer) {
	w.Bytes(l.VRAM[0][:])
	w.Bytes(l.OAM[:])
	w.Byte(l.LCDC.Value)
	w.Byte(l.BGP.Value())
	w.Byte(l.OBP0.Value())
	w.Byte(l.OBP1.Value())
	w.Byte(l.SCY)
	w.Byte(l.SCX)
	w.Byte(l.WY)
	w.Byte(l.WX)
	w.Byte(l.STAT.value)
	w.Byte(l.LY)
	w.Byte(l.LYC)
}

func (l *LCD) LoadState(r *savestate.Reader) {
	r.Bytes(l.VRAM[0][:])
	r.Bytes(l.OAM[:])
	l.LCDC.Set(r.Byte())
	l.BGP.decode(r.Byte())
	l.OBP0.decode(r.Byte())
	l.OBP1.decode(r.Byte())
	l.SCY = r.Byte()
	l.SCX = r.Byte()
	l.WY = r.Byte()
	l.WX = r.Byte()
	l.STAT.value = r.Byte() & 0x7F
	l.LY = r.Byte()
	l.LYC = r.Byte()
}

// SaveColorState writes VRAM bank 1, both palette memories and the CGB
// index and bank registers.
func (l *LCD) SaveColorState(w *savestate.Writer) {
	w.Bytes(l.VRAM[1][:])
	w.Bytes(l.BGPalette.memory[:])
	w.Bytes(l.OBPalette.memory[:])
	w.Byte(l.BGPalette.Index.Read())
	w.Byte(l.OBPalette.Index.Read())
	w.Byte(l.VBK.bank)
}

func (l *LCD) LoadColorState(r *savestate.Reader) {
	r.Bytes(l.VRAM[1][:])
	r.Bytes(l.BGPalette.memory[:])
	r.Bytes(l.OBPalette.memory[:])
	l.BGPalette.Index.Set(r.Byte())
	l.OBPalette.Index.Set(r.Byte())
	l.VBK.bank = r.Byte() & 0x01
}
