package jeebie

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/valerio/go-jeebie-color/jeebie/addr"
	"github.com/valerio/go-jeebie-color/jeebie/audio"
	"github.com/valerio/go-jeebie-color/jeebie/bootrom"
	"github.com/valerio/go-jeebie-color/jeebie/cartridge"
	"github.com/valerio/go-jeebie-color/jeebie/cpu"
	"github.com/valerio/go-jeebie-color/jeebie/input"
	"github.com/valerio/go-jeebie-color/jeebie/memory"
	"github.com/valerio/go-jeebie-color/jeebie/romfile"
	"github.com/valerio/go-jeebie-color/jeebie/serial"
	"github.com/valerio/go-jeebie-color/jeebie/timer"
	"github.com/valerio/go-jeebie-color/jeebie/video"
)

// ErrBootROMMismatch is returned when a DMG boot ROM is paired with a CGB
// machine or the other way around.
var ErrBootROMMismatch = errors.New("jeebie: boot ROM does not match the hardware model")

// Config holds the machine options.
type Config struct {
	BootROM          []byte
	Sound            bool
	RendererDisabled bool
	Scheme           video.ColorScheme
	ForceDMG         bool
	StepHalt         bool
	Logger           *slog.Logger
}

type Option func(*Config)

// WithBootROM maps the given image at power on instead of skipping the boot
// sequence.
func WithBootROM(data []byte) Option {
	return func(c *Config) { c.BootROM = data }
}

// WithSound enables the sound register file.
func WithSound() Option {
	return func(c *Config) { c.Sound = true }
}

// WithRendererDisabled skips composing frames. Scanline capture still runs.
func WithRendererDisabled() Option {
	return func(c *Config) { c.RendererDisabled = true }
}

// WithDMGPalette sets the four shades used in DMG mode.
func WithDMGPalette(scheme video.ColorScheme) Option {
	return func(c *Config) { c.Scheme = scheme }
}

// WithForceDMG runs CGB cartridges as if on a DMG.
func WithForceDMG() Option {
	return func(c *Config) { c.ForceDMG = true }
}

// WithHaltStepping advances halted time one cycle at a time instead of
// jumping to the next timer interrupt.
func WithHaltStepping() Option {
	return func(c *Config) { c.StepHalt = true }
}

// WithLogger sets the logger serial output is reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// Machine wires the CPU, bus and video together and runs whole frames.
type Machine struct {
	cpu      *cpu.CPU
	mem      *memory.MMU
	cart     *cartridge.Cartridge
	lcd      *video.LCD
	renderer *video.Renderer
	timer    *timer.Timer
	sound    *audio.Sound
	serial   *serial.LogSink

	color            bool
	rendererDisabled bool
	stepHalt         bool

	cyclesRemaining int
	frames          uint64
}

// New builds a machine around the ROM image data.
func New(data []byte, opts ...Option) (*Machine, error) {
	cfg := Config{Scheme: video.GreyScheme}
	for _, opt := range opts {
		opt(&cfg)
	}

	cart, err := cartridge.New(data)
	if err != nil {
		return nil, err
	}

	color := cart.IsColor() && !cfg.ForceDMG

	var boot *bootrom.ROM
	if cfg.BootROM != nil {
		boot, err = bootrom.New(cfg.BootROM)
		if err != nil {
			return nil, err
		}
		if boot.IsColor() != color {
			return nil, ErrBootROMMismatch
		}
		slog.Info("Boot ROM provided", "checksum", boot.Checksum())
	}

	m := &Machine{
		cart:             cart,
		lcd:              video.NewLCD(color),
		timer:            timer.New(),
		sound:            audio.New(cfg.Sound),
		color:            color,
		rendererDisabled: cfg.RendererDisabled,
		stepHalt:         cfg.StepHalt,
	}
	m.renderer = video.NewRenderer(m.lcd, cfg.Scheme)
	irq := func() { m.mem.RequestInterrupt(addr.SerialInterrupt) }
	if cfg.Logger != nil {
		m.serial = serial.NewLogSink(irq, serial.WithLogger(cfg.Logger))
	} else {
		m.serial = serial.NewLogSink(irq)
	}

	devices := memory.Devices{
		LCD:      m.lcd,
		Renderer: m.renderer,
		Timer:    m.timer,
		Sound:    m.sound,
		Joypad:   input.NewJoypad(),
		Serial:   m.serial,
	}
	if boot != nil {
		m.mem = memory.New(cart, boot, devices)
	} else {
		m.mem = memory.New(cart, nil, devices)
	}
	m.cpu = cpu.New(m.mem)

	if boot == nil {
		m.skipBoot()
	}

	if color {
		slog.Info("Started as Game Boy Color", "title", cart.Title())
	} else {
		slog.Info("Started as Game Boy", "title", cart.Title())
	}
	return m, nil
}

// NewWithFile loads the ROM at path, unpacking archives, and builds a machine.
func NewWithFile(path string, opts ...Option) (*Machine, error) {
	data, err := romfile.Load(path)
	if err != nil {
		return nil, err
	}
	slog.Info("Loaded ROM data", "path", path, "bytes", len(data))

	m, err := New(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return m, nil
}

// skipBoot leaves the machine in the state the boot ROM hands over in.
func (m *Machine) skipBoot() {
	m.cpu.SkipBoot(m.color)
	m.sound.SkipBoot()
	m.mem.SetBootROMEnabled(false)
	m.timer.Counter = 0xABCC
	m.mem.Write(addr.LCDC, 0x91)
	m.mem.Write(addr.BGP, 0xFC)
}

// IsColor reports whether the machine runs in CGB mode.
func (m *Machine) IsColor() bool { return m.color }

// Frame returns the last composed frame.
func (m *Machine) Frame() *video.FrameBuffer { return m.renderer.Frame() }

// FrameCount is the number of frames run so far.
func (m *Machine) FrameCount() uint64 { return m.frames }

// Cartridge exposes the inserted cartridge, for battery saves.
func (m *Machine) Cartridge() *cartridge.Cartridge { return m.cart }

// CPU exposes the processor for inspection.
func (m *Machine) CPU() *cpu.CPU { return m.cpu }

// Read reads the bus without side effects beyond those of a CPU read.
func (m *Machine) Read(address uint16) byte { return m.mem.Read(address) }

// SerialOutput returns the bytes written over serial since the last call.
func (m *Machine) SerialOutput() string {
	return string(m.serial.Drain())
}

// Press and Release forward joypad events.
func (m *Machine) Press(key input.Key)   { m.mem.HandleKeyEvent(key, true) }
func (m *Machine) Release(key input.Key) { m.mem.HandleKeyEvent(key, false) }
