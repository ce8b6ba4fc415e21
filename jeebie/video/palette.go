package video

import "github.com/valerio/go-jeebie-color/jeebie/bit"

const (
	paletteMemorySize = 64
	colorPalettes     = 8
	colorsPerPalette  = 4
)

// PaletteIndexRegister is BCPS or OCPS: a 6-bit byte index into palette
// memory and an auto-increment bit.
type PaletteIndexRegister struct {
	index         uint8
	autoIncrement bool
}

func (p *PaletteIndexRegister) Set(value uint8) {
	p.index = value & 0x3F
	p.autoIncrement = bit.IsSet(7, value)
}

// Read returns autoIncrement<<7 | index.
func (p PaletteIndexRegister) Read() uint8 {
	return bit.FromBool(p.autoIncrement)<<7 | p.index
}

func (p PaletteIndexRegister) Index() uint8 { return p.index }

func (p *PaletteIndexRegister) advance() {
	if p.autoIncrement {
		p.index = (p.index + 1) % paletteMemorySize
	}
}

// ColorPalette is one CGB palette memory (8 palettes of 4 RGB555 colours,
// little endian) with its index register.
type ColorPalette struct {
	Index  PaletteIndexRegister
	memory [paletteMemorySize]byte
}

// NewColorPalette returns palette memory with every byte set to fill.
func NewColorPalette(fill byte) *ColorPalette {
	p := &ColorPalette{}
	for i := range p.memory {
		p.memory[i] = fill
	}
	return p
}

// ReadData returns the byte at the current index, then applies the
// auto-increment.
func (p *ColorPalette) ReadData() byte {
	v := p.memory[p.Index.index]
	p.Index.advance()
	return v
}

// WriteData stores value at the current index, then applies the
// auto-increment.
func (p *ColorPalette) WriteData(value byte) {
	p.memory[p.Index.index] = value
	p.Index.advance()
}

// Byte returns a palette memory byte without touching the index.
func (p *ColorPalette) Byte(index int) byte {
	return p.memory[index%paletteMemorySize]
}

// RGB555 returns the raw 15-bit colour of palette/colour index.
func (p *ColorPalette) RGB555(palette, colorIndex uint8) uint16 {
	i := (int(palette&0x07)*colorsPerPalette + int(colorIndex&0x03)) * 2
	return bit.Combine(p.memory[i+1], p.memory[i]) & 0x7FFF
}

// Color returns the RGBA colour of palette/colour index.
func (p *ColorPalette) Color(palette, colorIndex uint8) uint32 {
	return RGB555ToRGBA(p.RGB555(palette, colorIndex))
}

// RGB555ToRGB expands each 5-bit channel with a plain shift by 3, red in
// the low bits of the input.
func RGB555ToRGB(color uint16) uint32 {
	r := uint32(color&0x1F) << 3
	g := uint32((color>>5)&0x1F) << 3
	b := uint32((color>>10)&0x1F) << 3
	return r<<16 | g<<8 | b
}

// RGB555ToRGBA is RGB555ToRGB with an opaque alpha byte appended.
func RGB555ToRGBA(color uint16) uint32 {
	return RGB555ToRGB(color)<<8 | alphaMask
}

// ColorScheme maps the four DMG shades to RGBA colours.
type ColorScheme [4]uint32

const (
	WhiteColor     uint32 = 0xFFFFFFFF
	LightGreyColor uint32 = 0x989898FF
	DarkGreyColor  uint32 = 0x4C4C4CFF
	BlackColor     uint32 = 0x000000FF
)

var (
	GreyScheme  = ColorScheme{WhiteColor, LightGreyColor, DarkGreyColor, BlackColor}
	GreenScheme = ColorScheme{0x9BBC0FFF, 0x8BAC0FFF, 0x306230FF, 0x0F380FFF}
)

// ParseColorScheme resolves a scheme name, returning false if unknown.
func ParseColorScheme(name string) (ColorScheme, bool) {
	switch name {
	case "", "grey", "gray":
		return GreyScheme, true
	case "green":
		return GreenScheme, true
	}
	return ColorScheme{}, false
}
