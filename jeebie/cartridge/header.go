package cartridge

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	titleAddress          = 0x134
	titleLength           = 16
	cgbFlagAddress        = 0x143
	sgbFlagAddress        = 0x146
	cartridgeTypeAddress  = 0x147
	romSizeAddress        = 0x148
	ramSizeAddress        = 0x149
	versionNumberAddress  = 0x14C
	headerChecksumAddress = 0x14D
	globalChecksumAddress = 0x14E

	headerEnd = 0x150
)

// Type is the cartridge type byte at 0x147.
type Type uint8

const (
	TypeROM               Type = 0x00
	TypeMBC1              Type = 0x01
	TypeMBC1RAM           Type = 0x02
	TypeMBC1RAMBATT       Type = 0x03
	TypeROMRAM            Type = 0x08
	TypeROMRAMBATT        Type = 0x09
	TypeMBC3TIMERBATT     Type = 0x0F
	TypeMBC3TIMERRAMBATT  Type = 0x10
	TypeMBC3              Type = 0x11
	TypeMBC3RAM           Type = 0x12
	TypeMBC3RAMBATT       Type = 0x13
	TypeMBC5              Type = 0x19
	TypeMBC5RAM           Type = 0x1A
	TypeMBC5RAMBATT       Type = 0x1B
	TypeMBC5RUMBLE        Type = 0x1C
	TypeMBC5RUMBLERAM     Type = 0x1D
	TypeMBC5RUMBLERAMBATT Type = 0x1E
)

// ramBanks maps the RAM size byte at 0x149 to 8KB banks.
var ramBanks = map[uint8]int{
	0x00: 0,
	0x01: 1,
	0x02: 1,
	0x03: 4,
	0x04: 16,
	0x05: 8,
}

// Header is the cartridge metadata found at 0x0134-0x014F.
type Header struct {
	Title          string
	ColorFlag      uint8
	SGB            bool
	Type           Type
	ROMBanks       int
	RAMBanks       int
	Version        uint8
	HeaderChecksum uint8
	GlobalChecksum uint16
}

func parseHeader(data []byte) (Header, error) {
	if len(data) < headerEnd {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrInvalidROM, len(data))
	}

	h := Header{
		ColorFlag:      data[cgbFlagAddress],
		SGB:            data[sgbFlagAddress] == 0x03,
		Type:           Type(data[cartridgeTypeAddress]),
		ROMBanks:       2 << data[romSizeAddress],
		RAMBanks:       ramBanks[data[ramSizeAddress]],
		Version:        data[versionNumberAddress],
		HeaderChecksum: data[headerChecksumAddress],
		GlobalChecksum: uint16(data[globalChecksumAddress])<<8 | uint16(data[globalChecksumAddress+1]),
	}

	titleBytes := data[titleAddress : titleAddress+titleLength]
	if h.IsColor() {
		// the last title byte doubles as the colour flag
		titleBytes = titleBytes[:titleLength-1]
	}
	h.Title = cleanGameboyTitle(titleBytes)

	return h, nil
}

// IsColor reports whether the game supports or requires CGB hardware.
func (h Header) IsColor() bool {
	return h.ColorFlag&0x80 != 0
}

// ValidChecksum recomputes the header checksum over 0x134-0x14C.
func (h Header) ValidChecksum(data []byte) bool {
	var sum uint8
	for _, b := range data[titleAddress:headerChecksumAddress] {
		sum = sum - b - 1
	}
	return sum == h.HeaderChecksum
}

func (h Header) String() string {
	hw := "DMG"
	if h.IsColor() {
		hw = "CGB"
	}
	return fmt.Sprintf("%s mode: %s | type: 0x%02X | ROM banks: %d | RAM banks: %d", h.Title, hw, uint8(h.Type), h.ROMBanks, h.RAMBanks)
}

// cleanGameboyTitle turns NUL padding into spaces, masks non printable
// characters and trims the result.
func cleanGameboyTitle(titleBytes []byte) string {
	runes := make([]rune, 0, len(titleBytes))
	for _, b := range titleBytes {
		r := rune(b)
		if r == 0 {
			r = ' '
		} else if !unicode.IsPrint(r) {
			r = '?'
		}
		runes = append(runes, r)
	}

	title := strings.TrimSpace(string(runes))
	if title == "" {
		return "(Untitled)"
	}
	return title
}
