package memory

import (
	"fmt"
	"log/slog"

	"github.com/valerio/go-jeebie-color/jeebie/addr"
	"github.com/valerio/go-jeebie-color/jeebie/audio"
	"github.com/valerio/go-jeebie-color/jeebie/input"
	"github.com/valerio/go-jeebie-color/jeebie/savestate"
	"github.com/valerio/go-jeebie-color/jeebie/serial"
	"github.com/valerio/go-jeebie-color/jeebie/timer"
	"github.com/valerio/go-jeebie-color/jeebie/video"
)

type memRegion uint8

const (
	regionROM memRegion = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionWRAMBank
	regionEcho
	regionOAM
	regionIO
)

const (
	wramBankSize = 0x1000
	wramBanks    = 8
	hramSize     = 0x7F
	ioSize       = 0x80
	unusableSize = 0x60
	dmaLength    = 0xA0
)

// Cartridge is the ROM and external RAM mapped at 0x0000-0x7FFF and
// 0xA000-0xBFFF.
type Cartridge interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// BootROM is overlaid on the cartridge until 0xFF50 is written.
type BootROM interface {
	Read(address uint16) byte
	Covers(address uint16) bool
}

// Renderer is told about VRAM and palette changes so it can refresh its
// tile caches before the next scanline.
type Renderer interface {
	MarkTileChanged(bank int, address uint16)
	ClearCache()
}

// SerialPort is the device connected to SB/SC.
// Implementations MUST only accept reads/writes to addr.SB and addr.SC.
type SerialPort interface {
	Write(address uint16, value byte)
	Read(address uint16) byte
	SaveState(w *savestate.Writer)
	LoadState(r *savestate.Reader)
}

// Devices are the components the bus routes register accesses to. Nil
// optional fields get a default instance.
type Devices struct {
	LCD      *video.LCD
	Renderer Renderer
	Timer    *timer.Timer
	Sound    *audio.Sound
	Joypad   *input.Joypad
	Serial   SerialPort
}

type ioPort struct {
	read  func() byte
	write func(value byte)
}

// MMU allows access to all memory mapped I/O and data/registers
type MMU struct {
	cart        Cartridge
	boot        BootROM
	bootEnabled bool
	color       bool

	lcd      *video.LCD
	renderer Renderer
	timer    *timer.Timer
	sound    *audio.Sound
	joypad   *input.Joypad
	serial   SerialPort

	wram     [wramBanks][wramBankSize]byte
	svbk     uint8
	hram     [hramSize]byte
	unusable [unusableSize]byte
	io       [ioSize]byte
	ie       byte

	doubleSpeed  bool
	prepareSpeed bool
	hdma         hdma

	regionMap [256]memRegion
	ports     [ioSize]ioPort
}

// New creates a bus over cart. boot may be nil, in which case the machine
// starts straight into the cartridge. Color mode follows the LCD.
func New(cart Cartridge, boot BootROM, d Devices) *MMU {
	if d.LCD == nil {
		panic("memory: an LCD is required")
	}
	m := &MMU{
		cart:     cart,
		boot:     boot,
		color:    d.LCD.IsColor(),
		lcd:      d.LCD,
		renderer: d.Renderer,
		timer:    d.Timer,
		sound:    d.Sound,
		joypad:   d.Joypad,
		serial:   d.Serial,
	}
	m.bootEnabled = boot != nil
	if m.timer == nil {
		m.timer = timer.New()
	}
	if m.sound == nil {
		m.sound = audio.New(false)
	}
	if m.joypad == nil {
		m.joypad = input.NewJoypad()
	}
	if m.serial == nil {
		m.serial = serial.NewLogSink(func() { m.RequestInterrupt(addr.SerialInterrupt) })
	}
	if m.renderer == nil {
		m.renderer = nopRenderer{}
	}
	m.io[addr.P1-addr.IOStart] = 0x30
	initRegionMap(m)
	initPorts(m)
	return m
}

type nopRenderer struct{}

func (nopRenderer) MarkTileChanged(int, uint16) {}
func (nopRenderer) ClearCache()                 {}

func initRegionMap(m *MMU) {
	for i := 0x00; i <= 0x7F; i++ {
		m.regionMap[i] = regionROM
	}
	for i := 0x80; i <= 0x9F; i++ {
		m.regionMap[i] = regionVRAM
	}
	for i := 0xA0; i <= 0xBF; i++ {
		m.regionMap[i] = regionExtRAM
	}
	for i := 0xC0; i <= 0xCF; i++ {
		m.regionMap[i] = regionWRAM
	}
	for i := 0xD0; i <= 0xDF; i++ {
		m.regionMap[i] = regionWRAMBank
	}
	for i := 0xE0; i <= 0xFD; i++ {
		m.regionMap[i] = regionEcho
	}
	// OAM: 0xFE00-0xFE9F, Unused: 0xFEA0-0xFEFF
	m.regionMap[0xFE] = regionOAM
	// IO + HRAM + IE: 0xFF00-0xFFFF
	m.regionMap[0xFF] = regionIO
}

// IsColor reports whether the CGB registers are live.
func (m *MMU) IsColor() bool { return m.color }

// BootROMEnabled reports whether the boot ROM is still mapped.
func (m *MMU) BootROMEnabled() bool { return m.bootEnabled }

// SetBootROMEnabled maps or unmaps the boot ROM. It can only be mapped if
// one was provided.
func (m *MMU) SetBootROMEnabled(enabled bool) {
	m.bootEnabled = enabled && m.boot != nil
	if !m.bootEnabled {
		m.io[addr.BOOT-addr.IOStart] = 0x01
	}
}

// DoubleSpeed reports whether the CPU runs in CGB double speed mode.
func (m *MMU) DoubleSpeed() bool { return m.doubleSpeed }

// SwitchSpeed is invoked by STOP. It toggles the CPU speed only if KEY1 was
// armed first.
func (m *MMU) SwitchSpeed() {
	if !m.color || !m.prepareSpeed {
		return
	}
	m.doubleSpeed = !m.doubleSpeed
	m.prepareSpeed = false
	m.timer.Reset()
	slog.Debug("CPU speed switched", "double", m.doubleSpeed)
}

// Timer returns the timer the bus routes DIV/TIMA/TMA/TAC to.
func (m *MMU) Timer() *timer.Timer { return m.timer }

// Sound returns the sound registers.
func (m *MMU) Sound() *audio.Sound { return m.sound }

// HandleKeyEvent updates the joypad and requests the joypad interrupt on a
// fresh press.
func (m *MMU) HandleKeyEvent(key input.Key, pressed bool) {
	if m.joypad.KeyEvent(key, pressed) {
		m.RequestInterrupt(addr.JoypadInterrupt)
	}
}

// RequestInterrupt sets the interrupt flag (IF register) of the chosen interrupt to 1.
func (m *MMU) RequestInterrupt(interrupt addr.Interrupt) {
	m.io[addr.IF-addr.IOStart] |= uint8(interrupt) & 0x1F
}

func (m *MMU) Read(address uint16) byte {
	switch m.regionMap[address>>8] {
	case regionROM:
		if m.bootEnabled && m.boot.Covers(address) {
			return m.boot.Read(address)
		}
		return m.readCart(address)
	case regionExtRAM:
		return m.readCart(address)
	case regionVRAM:
		return m.lcd.ReadVRAM(address)
	case regionWRAM:
		return m.wram[0][address-addr.WRAMStart]
	case regionWRAMBank:
		return m.wram[m.wramBank()][address-addr.WRAMBankStart]
	case regionEcho:
		return m.Read(address - 0x2000)
	case regionOAM:
		if address <= addr.OAMEnd {
			return m.lcd.OAM[address-addr.OAMStart]
		}
		return m.unusable[address-addr.UnusableStart]
	case regionIO:
		switch {
		case address == addr.IE:
			return m.ie
		case address >= addr.HRAMStart:
			return m.hram[address-addr.HRAMStart]
		}
		return m.readIO(address)
	}
	panic(&ViolationError{Op: "read", Address: address})
}

func (m *MMU) Write(address uint16, value byte) {
	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		if m.cart == nil {
			slog.Warn("Writing to cartridge space with no cartridge", "addr", fmt.Sprintf("0x%04X", address), "value", fmt.Sprintf("0x%02X", value))
			return
		}
		m.cart.Write(address, value)
	case regionVRAM:
		m.lcd.WriteVRAM(address, value)
		if address < addr.TileMap0 {
			m.renderer.MarkTileChanged(m.lcd.ActiveBank(), address)
		}
	case regionWRAM:
		m.wram[0][address-addr.WRAMStart] = value
	case regionWRAMBank:
		m.wram[m.wramBank()][address-addr.WRAMBankStart] = value
	case regionEcho:
		m.Write(address-0x2000, value)
	case regionOAM:
		if address <= addr.OAMEnd {
			m.lcd.OAM[address-addr.OAMStart] = value
			return
		}
		m.unusable[address-addr.UnusableStart] = value
	case regionIO:
		switch {
		case address == addr.IE:
			m.ie = value
		case address >= addr.HRAMStart:
			m.hram[address-addr.HRAMStart] = value
		default:
			m.writeIO(address, value)
		}
	default:
		panic(&ViolationError{Op: "write", Address: address})
	}
}

func (m *MMU) readCart(address uint16) byte {
	if m.cart == nil {
		slog.Warn("Reading from cartridge space with no cartridge", "addr", fmt.Sprintf("0x%04X", address))
		return 0xFF
	}
	return m.cart.Read(address)
}

func (m *MMU) wramBank() int {
	if m.svbk == 0 {
		return 1
	}
	return int(m.svbk)
}

func (m *MMU) readIO(address uint16) byte {
	offset := address - addr.IOStart
	if p := m.ports[offset]; p.read != nil {
		return p.read()
	}
	return m.io[offset]
}

func (m *MMU) writeIO(address uint16, value byte) {
	offset := address - addr.IOStart
	if p := m.ports[offset]; p.write != nil {
		p.write(value)
		return
	}
	m.io[offset] = value
}

// dma copies 0xA0 bytes from value*0x100 into OAM.
func (m *MMU) dma(value byte) {
	m.io[addr.DMA-addr.IOStart] = value
	source := uint16(value) << 8
	for i := range uint16(dmaLength) {
		m.lcd.OAM[i] = m.Read(source + i)
	}
}

// SaveState writes work RAM banks 0 and 1, the raw I/O area, HRAM, IE and the
// serial registers.
func (m *MMU) SaveState(w *savestate.Writer) {
	w.Bytes(m.wram[0][:])
	w.Bytes(m.wram[1][:])
	w.Bytes(m.unusable[:])
	w.Bytes(m.io[:])
	w.Bytes(m.hram[:])
	w.Byte(m.ie)
	m.serial.SaveState(w)
}

func (m *MMU) LoadState(r *savestate.Reader) {
	r.Bytes(m.wram[0][:])
	r.Bytes(m.wram[1][:])
	r.Bytes(m.unusable[:])
	r.Bytes(m.io[:])
	r.Bytes(m.hram[:])
	m.ie = r.Byte()
	m.serial.LoadState(r)
}

// SaveColorState writes the CGB only state: work RAM banks 2-7, SVBK, KEY1
// and the VRAM DMA progress.
func (m *MMU) SaveColorState(w *savestate.Writer) {
	for bank := 2; bank < wramBanks; bank++ {
		w.Bytes(m.wram[bank][:])
	}
	w.Byte(m.svbk)
	w.Bool(m.doubleSpeed)
	w.Bool(m.prepareSpeed)
	m.hdma.saveState(w)
}

func (m *MMU) LoadColorState(r *savestate.Reader) {
	for bank := 2; bank < wramBanks; bank++ {
		r.Bytes(m.wram[bank][:])
	}
	m.svbk = r.Byte() & 0x07
	m.doubleSpeed = r.Bool()
	m.prepareSpeed = r.Bool()
	m.hdma.loadState(r)
}
