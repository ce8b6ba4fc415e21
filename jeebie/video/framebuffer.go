package video

import (
	"encoding/binary"
	"image"

	"github.com/cespare/xxhash"
)

const (
	FramebufferWidth  = 160
	FramebufferHeight = 144
	FramebufferSize   = FramebufferWidth * FramebufferHeight

	alphaMask uint32 = 0xFF
)

// FrameBuffer holds RGBA pixels packed as 0xRRGGBBAA, row major.
type FrameBuffer struct {
	width  int
	height int
	buffer []uint32
}

// NewFrameBuffer creates a frame buffer with the specified size.
func NewFrameBuffer(width, height int) *FrameBuffer {
	return &FrameBuffer{
		width:  width,
		height: height,
		buffer: make([]uint32, width*height),
	}
}

func (fb *FrameBuffer) Width() int  { return fb.width }
func (fb *FrameBuffer) Height() int { return fb.height }

func (fb *FrameBuffer) Pixel(x, y int) uint32 {
	return fb.buffer[y*fb.width+x]
}

func (fb *FrameBuffer) SetPixel(x, y int, color uint32) {
	fb.buffer[y*fb.width+x] = color
}

func (fb *FrameBuffer) fill(color uint32) {
	for i := range fb.buffer {
		fb.buffer[i] = color
	}
}

// Pixels exposes the backing slice. Callers must not modify it.
func (fb *FrameBuffer) Pixels() []uint32 {
	return fb.buffer
}

// ToImage copies the frame into an *image.RGBA.
func (fb *FrameBuffer) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, fb.width, fb.height))
	for i, c := range fb.buffer {
		binary.BigEndian.PutUint32(img.Pix[i*4:], c)
	}
	return img
}

// Hash is the xxhash of the frame's bytes in RGBA order.
func (fb *FrameBuffer) Hash() uint64 {
	buf := make([]byte, len(fb.buffer)*4)
	for i, c := range fb.buffer {
		binary.BigEndian.PutUint32(buf[i*4:], c)
	}
	return xxhash.Sum64(buf)
}
