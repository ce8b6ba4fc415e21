package backend

import (
	"github.com/valerio/go-jeebie-color/jeebie/input"
	"github.com/valerio/go-jeebie-color/jeebie/video"
)

const (
	patternTileSize    = 8
	patternStripeWidth = 4
	patternCount       = 4
	patternFrames      = 60
)

// TestPattern is an Emulator that draws fixed patterns, for checking a
// backend without a ROM. Select cycles the pattern, and it also advances
// on its own every second.
type TestPattern struct {
	frame   *video.FrameBuffer
	pattern int
	frames  int
}

func NewTestPattern() *TestPattern {
	p := &TestPattern{frame: video.NewFrameBuffer(video.FramebufferWidth, video.FramebufferHeight)}
	p.draw()
	return p
}

func (p *TestPattern) RunUntilFrame() error {
	p.frames++
	if p.frames%patternFrames == 0 {
		p.next()
	}
	return nil
}

func (p *TestPattern) Frame() *video.FrameBuffer { return p.frame }

// Pattern is the index of the pattern on screen.
func (p *TestPattern) Pattern() int { return p.pattern }

func (p *TestPattern) Press(key input.Key) {
	if key == input.KeySelect {
		p.next()
	}
}

func (p *TestPattern) Release(input.Key) {}

func (p *TestPattern) next() {
	p.pattern = (p.pattern + 1) % patternCount
	p.draw()
}

func (p *TestPattern) draw() {
	shades := video.GreyScheme
	for y := range video.FramebufferHeight {
		for x := range video.FramebufferWidth {
			var c uint32
			switch p.pattern {
			case 0: // checkerboard
				c = shades[3*((x/patternTileSize+y/patternTileSize)%2)]
			case 1: // four bands, lightest on the left
				c = shades[x*4/video.FramebufferWidth]
			case 2: // stripes
				c = shades[2*((x/patternStripeWidth)%2)]
			default: // diagonals
				c = shades[1+((x+y)/patternTileSize)%2]
			}
			p.frame.SetPixel(x, y, c)
		}
	}
}
