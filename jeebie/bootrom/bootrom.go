// Package bootrom holds the boot ROM mapped over the cartridge at power on.
package bootrom

import (
	"errors"
	"fmt"

	"github.com/cespare/xxhash"
)

const (
	DMGSize = 256
	CGBSize = 2304
)

var ErrInvalidSize = errors.New("bootrom: invalid boot ROM size")

// ROM is mapped at 0x0000-0x00FF, and for CGB images also 0x0200-0x08FF,
// until software writes the boot disable register.
type ROM struct {
	data     []byte
	checksum uint64
}

// New validates the image size: 256 bytes for DMG, 2304 for CGB.
func New(data []byte) (*ROM, error) {
	if len(data) != DMGSize && len(data) != CGBSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidSize, len(data))
	}
	return &ROM{
		data:     append([]byte(nil), data...),
		checksum: xxhash.Sum64(data),
	}, nil
}

// Read returns the byte at addr, 0xFF past the end of the image.
func (b *ROM) Read(addr uint16) byte {
	if int(addr) >= len(b.data) {
		return 0xFF
	}
	return b.data[addr]
}

// IsColor reports whether this is a CGB image.
func (b *ROM) IsColor() bool {
	return len(b.data) == CGBSize
}

// Covers reports whether addr is served by the boot ROM while mapped.
func (b *ROM) Covers(addr uint16) bool {
	if addr < 0x100 {
		return true
	}
	return b.IsColor() && addr >= 0x200 && addr < 0x900
}

// Checksum is the xxhash of the image, handy to tell dumps apart in logs.
func (b *ROM) Checksum() string {
	return fmt.Sprintf("%016x", b.checksum)
}
