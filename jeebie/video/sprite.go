package video

import "github.com/valerio/go-jeebie-color/jeebie/bit"

const spriteCount = 40

// Sprite represents a single sprite/object in OAM memory.
// The Game Boy has 40 sprites stored in OAM from 0xFE00-0xFE9F.
type Sprite struct {
	Y         int   // screen position, without the +16 offset
	X         int   // screen position, without the +8 offset
	TileIndex uint8 // bit 0 is ignored for 8x16 sprites
	Flags     uint8
	OAMIndex  int

	// parsed attribute flags
	PaletteOBP1  bool  // DMG only, false = OBP0
	Bank         int   // CGB only, VRAM bank of the tile data
	ColorPalette uint8 // CGB only, palette 0-7
	FlipX        bool
	FlipY        bool
	BehindBG     bool
}

func (s *Sprite) parseFlags() {
	s.ColorPalette = s.Flags & 0x07
	s.Bank = int(bit.GetBitValue(3, s.Flags))
	s.PaletteOBP1 = bit.IsSet(4, s.Flags)
	s.FlipX = bit.IsSet(5, s.Flags)
	s.FlipY = bit.IsSet(6, s.Flags)
	s.BehindBG = bit.IsSet(7, s.Flags)
}

// readSprite decodes OAM entry index.
func readSprite(oam *[OAMSize]byte, index int, height int) Sprite {
	base := index * 4
	s := Sprite{
		Y:         int(oam[base]) - 16,
		X:         int(oam[base+1]) - 8,
		TileIndex: oam[base+2],
		Flags:     oam[base+3],
		OAMIndex:  index,
	}
	if height == 16 {
		s.TileIndex &= 0xFE
	}
	s.parseFlags()
	return s
}
