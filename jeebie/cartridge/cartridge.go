// Package cartridge implements the cartridge header and the memory bank
// controllers used by most games.
package cartridge

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/valerio/go-jeebie-color/jeebie/savestate"
)

var (
	ErrInvalidROM      = errors.New("cartridge: ROM too small to hold a header")
	ErrUnsupportedType = errors.New("cartridge: unsupported cartridge type")
)

// Cartridge is a loaded game: header plus the controller serving its ROM
// and external RAM.
type Cartridge struct {
	header  Header
	mbc     MBC
	battery bool
	ram     []uint8
}

// New parses the header of data and builds the matching controller.
// The ROM is copied and padded to a whole number of 16KB banks, minimum 2.
func New(data []byte) (*Cartridge, error) {
	h, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	size := max(len(data), 2*romBankSize)
	if rem := size % romBankSize; rem != 0 {
		size += romBankSize - rem
	}
	rom := make([]byte, size)
	for i := len(data); i < size; i++ {
		rom[i] = 0xFF
	}
	copy(rom, data)

	c := &Cartridge{header: h}
	switch h.Type {
	case TypeROM, TypeROMRAM, TypeROMRAMBATT:
		m := NewNoMBC(rom, h.RAMBanks)
		c.mbc, c.ram = m, m.ram
	case TypeMBC1, TypeMBC1RAM, TypeMBC1RAMBATT:
		m := NewMBC1(rom, h.RAMBanks)
		c.mbc, c.ram = m, m.ram
	case TypeMBC3, TypeMBC3RAM, TypeMBC3RAMBATT, TypeMBC3TIMERBATT, TypeMBC3TIMERRAMBATT:
		m := NewMBC3(rom, h.RAMBanks, h.Type == TypeMBC3TIMERBATT || h.Type == TypeMBC3TIMERRAMBATT)
		c.mbc, c.ram = m, m.ram
	case TypeMBC5, TypeMBC5RAM, TypeMBC5RAMBATT, TypeMBC5RUMBLE, TypeMBC5RUMBLERAM, TypeMBC5RUMBLERAMBATT:
		rumble := h.Type == TypeMBC5RUMBLE || h.Type == TypeMBC5RUMBLERAM || h.Type == TypeMBC5RUMBLERAMBATT
		m := NewMBC5(rom, h.RAMBanks, rumble)
		c.mbc, c.ram = m, m.ram
	default:
		return nil, fmt.Errorf("%w: 0x%02X", ErrUnsupportedType, uint8(h.Type))
	}

	switch h.Type {
	case TypeROMRAMBATT, TypeMBC1RAMBATT, TypeMBC3TIMERBATT, TypeMBC3TIMERRAMBATT, TypeMBC3RAMBATT, TypeMBC5RAMBATT, TypeMBC5RUMBLERAMBATT:
		c.battery = true
	}

	slog.Info("cartridge loaded", "title", h.Title, "type", fmt.Sprintf("0x%02X", uint8(h.Type)),
		"rom_banks", h.ROMBanks, "ram_banks", h.RAMBanks, "color", h.IsColor())
	if !h.ValidChecksum(data) {
		slog.Warn("cartridge header checksum mismatch", "title", h.Title)
	}

	return c, nil
}

func (c *Cartridge) Header() Header { return c.header }

func (c *Cartridge) Title() string { return c.header.Title }

// IsColor reports whether the game should run in CGB mode.
func (c *Cartridge) IsColor() bool { return c.header.IsColor() }

func (c *Cartridge) HasBattery() bool { return c.battery }

func (c *Cartridge) Read(addr uint16) uint8 {
	return c.mbc.Read(addr)
}

// Write only changes controller state or external RAM, never ROM content.
func (c *Cartridge) Write(addr uint16, value uint8) {
	c.mbc.Write(addr, value)
}

// RAM returns a copy of the external RAM, for battery saves.
func (c *Cartridge) RAM() []byte {
	return append([]byte(nil), c.ram...)
}

// LoadRAM restores external RAM from a battery save.
func (c *Cartridge) LoadRAM(data []byte) error {
	if len(data) != len(c.ram) {
		return fmt.Errorf("cartridge: battery save is %d bytes, want %d", len(data), len(c.ram))
	}
	copy(c.ram, data)
	return nil
}

func (c *Cartridge) SaveState(w *savestate.Writer) { c.mbc.SaveState(w) }
func (c *Cartridge) LoadState(r *savestate.Reader) { c.mbc.LoadState(r) }
