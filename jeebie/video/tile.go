package video

import "github.com/valerio/go-jeebie-color/jeebie/bit"

const (
	tileBytes    = 16
	tilesPerBank = 384
	tileRows     = tilesPerBank * 8
	tileMap0     = 0x1800
	tileMap1     = 0x1C00
)

// TileRow represents one row of a tile pattern (8 pixels) in bit-plane
// format: Low provides bit 0 of each pixel's colour and High bit 1. Bit 7
// is the leftmost pixel.
//
//	Low  (0x3C): 0 0 1 1 1 1 0 0
//	High (0x7E): 0 1 1 1 1 1 1 0
//	            -----------------
//	Colors:      0 2 3 3 3 3 2 0
//
// Reference: https://gbdev.io/pandocs/Tile_Data.html
type TileRow struct {
	Low  byte
	High byte
}

// ColorIndex returns the colour index (0-3) of pixel x, 0 being leftmost.
func (t TileRow) ColorIndex(x int) uint8 {
	return bit.ColorCode(t.Low, t.High, uint8(x))
}

// fetchTileRow reads row of the tile at the bank-relative offset tileAddr.
func fetchTileRow(vram *[VRAMBankSize]byte, tileAddr uint16, row int) TileRow {
	a := int(tileAddr) + row*2
	return TileRow{Low: vram[a], High: vram[a+1]}
}

// tileNumber resolves a tile map entry to a cache tile number 0-383.
// With the signed addressing mode, 0-127 map to tiles 256-383.
func tileNumber(entry uint8, unsigned bool) int {
	if unsigned {
		return int(entry)
	}
	return int(entry^0x80) + 128
}
