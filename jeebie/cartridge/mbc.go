package cartridge

import "github.com/valerio/go-jeebie-color/jeebie/savestate"

const (
	romBankSize = 0x4000
	ramBankSize = 0x2000
)

// MBC represents a Memory Bank Controller. Addresses are 0x0000-0x7FFF for
// ROM and bank registers and 0xA000-0xBFFF for external RAM.
type MBC interface {
	Read(addr uint16) uint8
	Write(addr uint16, value uint8)
	SaveState(w *savestate.Writer)
	LoadState(r *savestate.Reader)
}

// banked holds what every controller shares: ROM and RAM with their
// selected banks.
type banked struct {
	rom        []uint8
	ram        []uint8
	romBank    uint16
	ramBank    uint8
	ramEnabled bool
}

func newBanked(rom []uint8, ramBankCount int) banked {
	return banked{
		rom:     rom,
		ram:     make([]uint8, ramBankCount*ramBankSize),
		romBank: 1,
	}
}

func (b *banked) readROM(bank uint16, addr uint16) uint8 {
	offset := int(bank) * romBankSize % len(b.rom)
	return b.rom[offset+int(addr&0x3FFF)]
}

func (b *banked) readRAM(addr uint16) uint8 {
	if !b.ramEnabled || len(b.ram) == 0 {
		return 0xFF
	}
	offset := int(b.ramBank) * ramBankSize % len(b.ram)
	return b.ram[offset+int(addr-0xA000)]
}

func (b *banked) writeRAM(addr uint16, value uint8) {
	if !b.ramEnabled || len(b.ram) == 0 {
		return
	}
	offset := int(b.ramBank) * ramBankSize % len(b.ram)
	b.ram[offset+int(addr-0xA000)] = value
}

func (b *banked) saveState(w *savestate.Writer) {
	w.Uint16(b.romBank)
	w.Byte(b.ramBank)
	w.Bool(b.ramEnabled)
	w.Bytes(b.ram)
}

func (b *banked) loadState(r *savestate.Reader) {
	b.romBank = r.Uint16()
	b.ramBank = r.Byte()
	b.ramEnabled = r.Bool()
	r.Bytes(b.ram)
}

// NoMBC represents cartridges with no memory banking capabilities.
// The ROM is directly mapped to 0x0000-0x7FFF, an optional single RAM bank
// is always enabled.
type NoMBC struct {
	banked
}

func NewNoMBC(rom []uint8, ramBankCount int) *NoMBC {
	m := &NoMBC{banked: newBanked(rom, min(ramBankCount, 1))}
	m.ramEnabled = true
	return m
}

func (m *NoMBC) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x7FFF:
		if int(addr) >= len(m.rom) {
			return 0xFF
		}
		return m.rom[addr]
	case addr >= 0xA000 && addr <= 0xBFFF:
		return m.readRAM(addr)
	}
	return 0xFF
}

func (m *NoMBC) Write(addr uint16, value uint8) {
	if addr >= 0xA000 && addr <= 0xBFFF {
		m.writeRAM(addr, value)
	}
}

func (m *NoMBC) SaveState(w *savestate.Writer) { m.saveState(w) }
func (m *NoMBC) LoadState(r *savestate.Reader) { m.loadState(r) }

// MBC1 is the first and most common MBC chip. Features include:
// - Supports up to 2MB ROM (125 16KB banks)
// - Up to 32KB RAM (4 8KB banks)
// - Two banking modes:
//   - Mode 0 (ROM): the 2-bit register extends the ROM bank
//   - Mode 1 (RAM): the 2-bit register selects the RAM bank
type MBC1 struct {
	banked
	bankingMode uint8
}

func NewMBC1(rom []uint8, ramBankCount int) *MBC1 {
	return &MBC1{banked: newBanked(rom, ramBankCount)}
}

func (m *MBC1) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x3FFF:
		return m.rom[addr]
	case addr <= 0x7FFF:
		return m.readROM(m.romBank, addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		return m.readRAM(addr)
	}
	return 0xFF
}

func (m *MBC1) Write(addr uint16, value uint8) {
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr <= 0x3FFF:
		bank := uint16(value & 0x1F)
		if bank == 0 {
			bank = 1
		}
		m.romBank = (m.romBank & 0x60) | bank
	case addr <= 0x5FFF:
		if m.bankingMode == 0 {
			m.romBank = (m.romBank & 0x1F) | uint16(value&0x03)<<5
		} else {
			m.ramBank = value & 0x03
		}
	case addr <= 0x7FFF:
		m.bankingMode = value & 0x01
		if m.bankingMode == 1 {
			m.romBank &= 0x1F
		} else {
			m.ramBank = 0
		}
	case addr >= 0xA000 && addr <= 0xBFFF:
		m.writeRAM(addr, value)
	}
}

func (m *MBC1) SaveState(w *savestate.Writer) {
	m.saveState(w)
	w.Byte(m.bankingMode)
}

func (m *MBC1) LoadState(r *savestate.Reader) {
	m.loadState(r)
	m.bankingMode = r.Byte()
}

// MBC3 supports up to 2MB ROM, 32KB RAM and the real time clock registers.
// The clock does not advance: the registers hold whatever was written and
// are copied to the latched view on a 0 then 1 write to 0x6000-0x7FFF.
type MBC3 struct {
	banked
	hasRTC    bool
	rtc       [5]uint8
	latched   [5]uint8
	latchPrep bool
}

func NewMBC3(rom []uint8, ramBankCount int, hasRTC bool) *MBC3 {
	return &MBC3{banked: newBanked(rom, ramBankCount), hasRTC: hasRTC}
}

func (m *MBC3) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x3FFF:
		return m.rom[addr]
	case addr <= 0x7FFF:
		return m.readROM(m.romBank, addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		if m.ramBank <= 0x03 {
			return m.readRAM(addr)
		}
		if m.hasRTC && m.ramEnabled && m.ramBank >= 0x08 && m.ramBank <= 0x0C {
			return m.latched[m.ramBank-0x08]
		}
	}
	return 0xFF
}

func (m *MBC3) Write(addr uint16, value uint8) {
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr <= 0x3FFF:
		bank := uint16(value & 0x7F)
		if bank == 0 {
			bank = 1
		}
		m.romBank = bank
	case addr <= 0x5FFF:
		m.ramBank = value
	case addr <= 0x7FFF:
		if value == 0x01 && m.latchPrep {
			m.latched = m.rtc
		}
		m.latchPrep = value == 0x00
	case addr >= 0xA000 && addr <= 0xBFFF:
		if m.ramBank <= 0x03 {
			m.writeRAM(addr, value)
		} else if m.hasRTC && m.ramEnabled && m.ramBank >= 0x08 && m.ramBank <= 0x0C {
			m.rtc[m.ramBank-0x08] = value
			m.latched[m.ramBank-0x08] = value
		}
	}
}

func (m *MBC3) SaveState(w *savestate.Writer) {
	m.saveState(w)
	w.Bytes(m.rtc[:])
	w.Bytes(m.latched[:])
	w.Bool(m.latchPrep)
}

func (m *MBC3) LoadState(r *savestate.Reader) {
	m.loadState(r)
	r.Bytes(m.rtc[:])
	r.Bytes(m.latched[:])
	m.latchPrep = r.Bool()
}

// MBC5 has a 9-bit ROM bank number (up to 8MB) and up to 16 RAM banks.
// Unlike MBC1, bank 0 can be mapped at 0x4000.
type MBC5 struct {
	banked
	hasRumble bool
}

func NewMBC5(rom []uint8, ramBankCount int, hasRumble bool) *MBC5 {
	return &MBC5{banked: newBanked(rom, ramBankCount), hasRumble: hasRumble}
}

func (m *MBC5) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x3FFF:
		return m.rom[addr]
	case addr <= 0x7FFF:
		return m.readROM(m.romBank, addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		return m.readRAM(addr)
	}
	return 0xFF
}

func (m *MBC5) Write(addr uint16, value uint8) {
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr <= 0x2FFF:
		m.romBank = (m.romBank & 0x100) | uint16(value)
	case addr <= 0x3FFF:
		m.romBank = (m.romBank & 0xFF) | uint16(value&0x01)<<8
	case addr <= 0x5FFF:
		bank := value & 0x0F
		if m.hasRumble {
			// bit 3 drives the rumble motor
			bank &= 0x07
		}
		m.ramBank = bank
	case addr >= 0xA000 && addr <= 0xBFFF:
		m.writeRAM(addr, value)
	}
}

func (m *MBC5) SaveState(w *savestate.Writer) { m.saveState(w) }
func (m *MBC5) LoadState(r *savestate.Reader) { m.loadState(r) }
