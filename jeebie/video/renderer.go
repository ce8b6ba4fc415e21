package video

import (
	"github.com/valerio/go-jeebie-color/jeebie/bit"
	"github.com/valerio/go-jeebie-color/jeebie/savestate"
)

// ScanlineParams is the register snapshot taken for one visible line.
type ScanlineParams struct {
	SCX uint8
	SCY uint8
	// WX is the window column, already reduced by 7.
	WX int
	WY uint8

	TileDataSelect  bool
	BGMapSelect     bool
	WindowMapSelect bool
	WindowEnable    bool
	BGEnable        bool
}

// pixelCache is a colour-expanded copy of every tile in one bank, one
// row of 8 pixels per entry.
type pixelCache [tileRows][8]uint32

// Renderer composes frames out of the per-line register snapshots and
// lazily rebuilt tile caches.
//
// On DMG only bank 0 is used: tile cache palette 0 is BGP, sprite cache
// palettes 0 and 1 are OBP0 and OBP1.
type Renderer struct {
	lcd    *LCD
	color  bool
	scheme ColorScheme
	frame  *FrameBuffer

	lines [FramebufferHeight]ScanlineParams

	colorIndex [2][tileRows][8]uint8
	tiles      [2][colorPalettes]pixelCache
	sprites    [2][colorPalettes]pixelCache

	changed    [2][tilesPerBank]bool
	clearCache bool

	bgIndex    [FramebufferHeight][FramebufferWidth]uint8
	bgPriority [FramebufferHeight][FramebufferWidth]bool
}

// NewRenderer returns a renderer drawing lcd with the DMG colours of
// scheme. Caches are built on the first RenderScreen.
func NewRenderer(lcd *LCD, scheme ColorScheme) *Renderer {
	return &Renderer{
		lcd:        lcd,
		color:      lcd.IsColor(),
		scheme:     scheme,
		frame:      NewFrameBuffer(FramebufferWidth, FramebufferHeight),
		clearCache: true,
	}
}

func (r *Renderer) Frame() *FrameBuffer { return r.frame }

// Lines returns the captured per-line parameters.
func (r *Renderer) Lines() [FramebufferHeight]ScanlineParams { return r.lines }

// ClearCache forces every tile to be rebuilt before the next composition.
func (r *Renderer) ClearCache() { r.clearCache = true }

// CacheCleared reports whether a full rebuild is pending.
func (r *Renderer) CacheCleared() bool { return r.clearCache }

// MarkTileChanged schedules the 16-byte tile containing address for a
// rebuild. address is in 0x8000-0x97FF.
func (r *Renderer) MarkTileChanged(bank int, address uint16) {
	t := int(address&0x1FF0) / tileBytes
	if t < tilesPerBank {
		r.changed[bank&1][t] = true
	}
}

// TileChanged reports whether the tile containing address awaits a rebuild.
func (r *Renderer) TileChanged(bank int, address uint16) bool {
	t := int(address&0x1FF0) / tileBytes
	return t < tilesPerBank && r.changed[bank&1][t]
}

// Scanline captures the registers used for line y, 0-143.
func (r *Renderer) Scanline(y int) {
	if y < 0 || y >= FramebufferHeight {
		return
	}
	l := r.lcd
	wx, wy := l.WindowPos()
	r.lines[y] = ScanlineParams{
		SCX:             l.SCX,
		SCY:             l.SCY,
		WX:              wx,
		WY:              wy,
		TileDataSelect:  l.LCDC.TileDataSelect,
		BGMapSelect:     l.LCDC.BGMapSelect,
		WindowMapSelect: l.LCDC.WindowMapSelect,
		WindowEnable:    l.LCDC.WindowEnable,
		BGEnable:        l.LCDC.BackgroundEnable,
	}
}

// BlankScreen fills the frame with background colour 0.
func (r *Renderer) BlankScreen() {
	color := r.scheme[0]
	if r.color {
		color = WhiteColor
	}
	r.frame.fill(color)
}

// RenderScreen composes background, window and sprites for the whole frame.
func (r *Renderer) RenderScreen() {
	r.updateCache()

	for y := range FramebufferHeight {
		r.renderLine(y)
	}

	if r.lcd.LCDC.SpriteEnable {
		r.renderSprites()
	}
}

func (r *Renderer) renderLine(y int) {
	p := r.lines[y]
	vram := &r.lcd.VRAM

	bgMap, windowMap := tileMap0, tileMap0
	if p.BGMapSelect {
		bgMap = tileMap1
	}
	if p.WindowMapSelect {
		windowMap = tileMap1
	}

	for x := range FramebufferWidth {
		if !r.color && !p.BGEnable {
			r.frame.SetPixel(x, y, r.scheme[0])
			r.bgIndex[y][x] = 0
			r.bgPriority[y][x] = false
			continue
		}

		var mapX, mapY, base int
		if p.WindowEnable && int(p.WY) <= y && p.WX <= x {
			mapX, mapY, base = x-p.WX, y-int(p.WY), windowMap
		} else {
			mapX, mapY, base = x+int(p.SCX), y+int(p.SCY), bgMap
		}

		index := base + (mapY/8*32)%0x400 + (mapX/8)%32
		tile := tileNumber(vram[0][index], p.TileDataSelect)

		var palette uint8
		var bank int
		var flipX, flipY, priority bool
		if r.color {
			attr := vram[1][index]
			palette = attr & 0x07
			bank = int(bit.GetBitValue(3, attr))
			flipX = bit.IsSet(5, attr)
			flipY = bit.IsSet(6, attr)
			priority = bit.IsSet(7, attr)
		}

		xx, yy := mapX%8, mapY%8
		if flipX {
			xx = 7 - xx
		}
		if flipY {
			yy = 7 - yy
		}
		row := tile*8 + yy

		r.frame.SetPixel(x, y, r.tiles[bank][palette][row][xx])
		r.bgIndex[y][x] = r.colorIndex[bank][row][xx]
		r.bgPriority[y][x] = priority
	}
}

// renderSprites draws all 40 entries with no per-line limit. On DMG later
// entries overwrite earlier ones, on CGB lower indices win.
func (r *Renderer) renderSprites() {
	height := r.lcd.LCDC.SpriteHeight()

	for i := range spriteCount {
		n := i
		if r.color {
			n = spriteCount - 1 - i
		}
		r.renderSprite(readSprite(&r.lcd.OAM, n, height), height)
	}
}

func (r *Renderer) renderSprite(s Sprite, height int) {
	bank, palette := 0, uint8(0)
	if r.color {
		bank, palette = s.Bank, s.ColorPalette
	} else if s.PaletteOBP1 {
		palette = 1
	}
	cache := &r.sprites[bank][palette]

	for dy := range height {
		y := s.Y + dy
		if y < 0 || y >= FramebufferHeight {
			continue
		}
		yy := dy
		if s.FlipY {
			yy = height - 1 - dy
		}
		row := int(s.TileIndex)*8 + yy

		for dx := range 8 {
			x := s.X + dx
			if x < 0 || x >= FramebufferWidth {
				continue
			}
			xx := dx
			if s.FlipX {
				xx = 7 - dx
			}

			pixel := cache[row][xx]
			if pixel&alphaMask == 0 {
				continue
			}
			if r.hiddenByBackground(s, x, y) {
				continue
			}
			r.frame.SetPixel(x, y, pixel)
		}
	}
}

func (r *Renderer) hiddenByBackground(s Sprite, x, y int) bool {
	if r.bgIndex[y][x] == 0 {
		return false
	}
	if !r.color {
		return s.BehindBG
	}
	if !r.lines[y].BGEnable {
		return false
	}
	return r.bgPriority[y][x] || s.BehindBG
}

func (r *Renderer) updateCache() {
	if r.clearCache {
		for bank := range r.changed {
			for t := range r.changed[bank] {
				r.changed[bank][t] = true
			}
		}
		r.clearCache = false
	}

	for bank := range r.changed {
		for t, changed := range r.changed[bank] {
			if !changed {
				continue
			}
			r.changed[bank][t] = false
			if bank == 1 && !r.color {
				continue
			}
			r.updateTile(bank, t)
		}
	}
}

func (r *Renderer) updateTile(bank, tile int) {
	vram := &r.lcd.VRAM[bank]

	for row := range 8 {
		tr := fetchTileRow(vram, uint16(tile*tileBytes), row)
		y := tile*8 + row

		for x := range 8 {
			ci := tr.ColorIndex(x)
			r.colorIndex[bank][y][x] = ci

			if !r.color {
				r.tiles[0][0][y][x] = r.scheme[r.lcd.BGP.Shade(ci)]
				r.sprites[0][0][y][x] = r.spritePixel(r.scheme[r.lcd.OBP0.Shade(ci)], ci)
				r.sprites[0][1][y][x] = r.spritePixel(r.scheme[r.lcd.OBP1.Shade(ci)], ci)
				continue
			}

			for p := range uint8(colorPalettes) {
				r.tiles[bank][p][y][x] = r.lcd.BGPalette.Color(p, ci)
				r.sprites[bank][p][y][x] = r.spritePixel(r.lcd.OBPalette.Color(p, ci), ci)
			}
		}
	}
}

// spritePixel makes colour index 0 transparent.
func (r *Renderer) spritePixel(color uint32, colorIndex uint8) uint32 {
	if colorIndex == 0 {
		return color &^ alphaMask
	}
	return color
}

// SaveState writes SCX, SCY, WX+7, WY and the tile data select of every row.
func (r *Renderer) SaveState(w *savestate.Writer) {
	for _, p := range r.lines {
		w.Byte(p.SCX)
		w.Byte(p.SCY)
		w.Byte(uint8(p.WX + 7))
		w.Byte(p.WY)
		w.Bool(p.TileDataSelect)
	}
}

func (r *Renderer) LoadState(rd *savestate.Reader) {
	for y := range r.lines {
		r.loadScroll(rd, y)
		r.lines[y].TileDataSelect = rd.Bool()
	}
}

// LoadShortState reads the older layout without the tile data select.
func (r *Renderer) LoadShortState(rd *savestate.Reader) {
	for y := range r.lines {
		r.loadScroll(rd, y)
	}
}

func (r *Renderer) loadScroll(rd *savestate.Reader, y int) {
	p := &r.lines[y]
	p.SCX = rd.Byte()
	p.SCY = rd.Byte()
	p.WX = int(rd.Byte()) - 7
	p.WY = rd.Byte()
}

// SaveSelectState writes the map selects and enables of every row.
func (r *Renderer) SaveSelectState(w *savestate.Writer) {
	for _, p := range r.lines {
		w.Bool(p.BGMapSelect)
		w.Bool(p.WindowMapSelect)
		w.Bool(p.WindowEnable)
		w.Bool(p.BGEnable)
	}
}

func (r *Renderer) LoadSelectState(rd *savestate.Reader) {
	for y := range r.lines {
		p := &r.lines[y]
		p.BGMapSelect = rd.Bool()
		p.WindowMapSelect = rd.Bool()
		p.WindowEnable = rd.Bool()
		p.BGEnable = rd.Bool()
	}
}
