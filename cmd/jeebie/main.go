package main

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urfave/cli"

	"github.com/valerio/go-jeebie-color/jeebie"
	"github.com/valerio/go-jeebie-color/jeebie/backend"
	"github.com/valerio/go-jeebie-color/jeebie/backend/headless"
	"github.com/valerio/go-jeebie-color/jeebie/backend/terminal"
	"github.com/valerio/go-jeebie-color/jeebie/timing"
	"github.com/valerio/go-jeebie-color/jeebie/video"
)

func main() {
	app := cli.NewApp()
	app.Name = "Jeebie"
	app.Description = "A Game Boy and Game Boy Color emulator"
	app.Usage = "jeebie [options] <ROM file>"
	app.Version = "2.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file (.gb, .gbc, or a .zip/.gz/.7z/.xz holding one)",
		},
		cli.StringFlag{
			Name:  "boot-rom",
			Usage: "Boot ROM image to run at power on. Without one the boot sequence is skipped",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run the emulator without a user interface",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode (required for headless)",
		},
		cli.IntFlag{
			Name:  "snapshot-interval",
			Usage: "Save PNG snapshots every N frames in headless mode (0 = disabled)",
		},
		cli.StringFlag{
			Name:  "snapshot-dir",
			Usage: "Directory to save snapshots (default: temp directory)",
		},
		cli.IntFlag{
			Name:  "snapshot-scale",
			Usage: "Integer scale factor for PNG snapshots",
			Value: 1,
		},
		cli.StringFlag{
			Name:  "expect-hash",
			Usage: "Hex xxhash the last headless frame must match",
		},
		cli.BoolFlag{
			Name:  "sound",
			Usage: "Enable the sound registers",
		},
		cli.BoolFlag{
			Name:  "dmg",
			Usage: "Run Game Boy Color cartridges in Game Boy mode",
		},
		cli.StringFlag{
			Name:  "palette",
			Usage: "Shades used in Game Boy mode: grey or green",
			Value: "grey",
		},
		cli.StringFlag{
			Name:  "state",
			Usage: "State file used by the save and load state keys (default: next to the ROM)",
		},
		cli.StringFlag{
			Name:  "load-state",
			Usage: "Restore this state file before running",
		},
		cli.StringFlag{
			Name:  "save-state",
			Usage: "Write the state to this file when the run ends",
		},
		cli.BoolFlag{
			Name:  "no-render",
			Usage: "Skip composing frames, for benchmarking the core",
		},
		cli.BoolFlag{
			Name:  "halt-step",
			Usage: "Advance a halted CPU one cycle at a time",
		},
		cli.BoolFlag{
			Name:  "test-pattern",
			Usage: "Display a test pattern instead of emulation (for debugging display)",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug logging",
		},
	}
	app.Action = runEmulator

	if err := app.Run(os.Args); err != nil {
		slog.Error("Error running emulator", "error", err)
		os.Exit(1)
	}
}

func runEmulator(c *cli.Context) error {
	level := slog.LevelInfo
	if c.Bool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if c.Bool("test-pattern") {
		slog.Info("Running in test pattern mode")
		b, limiter, err := newBackend(c, "test-pattern")
		if err != nil {
			return err
		}
		loop := &backend.Loop{Emulator: backend.NewTestPattern(), Backend: b, Limiter: limiter}
		return loop.Run(backend.Config{Title: "Jeebie test pattern", Scale: c.Int("snapshot-scale")})
	}

	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() == 0 {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
		romPath = c.Args().Get(0)
	}

	opts, err := machineOptions(c)
	if err != nil {
		return err
	}
	m, err := jeebie.NewWithFile(romPath, opts...)
	if err != nil {
		return err
	}

	savePath := stripExt(romPath) + ".sav"
	if err := loadBattery(m, savePath); err != nil {
		return err
	}

	if path := c.String("load-state"); path != "" {
		if err := loadState(m, path); err != nil {
			return err
		}
	}

	statePath := c.String("state")
	if statePath == "" {
		statePath = stripExt(romPath) + ".state"
	}

	b, limiter, err := newBackend(c, romPath)
	if err != nil {
		return err
	}
	loop := &backend.Loop{
		Emulator: m,
		Backend:  b,
		Limiter:  limiter,
		Hooks: backend.Hooks{
			Snapshot: func(frame *video.FrameBuffer) error {
				name := fmt.Sprintf("%s_frame_%d", headless.ROMName(romPath), m.FrameCount())
				path, err := backend.SavePNG(frame, ".", name, c.Int("snapshot-scale"))
				if err == nil {
					slog.Info("Saved snapshot", "path", path)
				}
				return err
			},
			SaveState: func() error { return saveState(m, statePath) },
			LoadState: func() error { return loadState(m, statePath) },
		},
	}

	runErr := loop.Run(backend.Config{Title: m.Cartridge().Title(), Scale: c.Int("snapshot-scale")})
	slog.Debug("Stopped", "frames", m.FrameCount(), "at", m.CPU().Disassemble())

	var errs []error
	errs = append(errs, runErr)
	if path := c.String("save-state"); path != "" {
		errs = append(errs, saveState(m, path))
	}
	errs = append(errs, saveBattery(m, savePath))
	return errors.Join(errs...)
}

func machineOptions(c *cli.Context) ([]jeebie.Option, error) {
	var opts []jeebie.Option

	if path := c.String("boot-rom"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading boot ROM: %w", err)
		}
		opts = append(opts, jeebie.WithBootROM(data))
	}

	scheme, ok := video.ParseColorScheme(c.String("palette"))
	if !ok {
		return nil, fmt.Errorf("unknown palette %q", c.String("palette"))
	}
	opts = append(opts, jeebie.WithDMGPalette(scheme))

	if c.Bool("sound") {
		opts = append(opts, jeebie.WithSound())
	}
	if c.Bool("dmg") {
		opts = append(opts, jeebie.WithForceDMG())
	}
	if c.Bool("no-render") {
		opts = append(opts, jeebie.WithRendererDisabled())
	}
	if c.Bool("halt-step") {
		opts = append(opts, jeebie.WithHaltStepping())
	}
	return opts, nil
}

func newBackend(c *cli.Context, romPath string) (backend.Backend, timing.Limiter, error) {
	if !c.Bool("headless") {
		return terminal.New(), timing.NewTickerLimiter(0), nil
	}

	frames := c.Int("frames")
	if frames <= 0 {
		return nil, nil, errors.New("headless mode requires --frames option with a positive value")
	}

	cfg := headless.Config{
		Frames:           frames,
		SnapshotInterval: c.Int("snapshot-interval"),
		ROMName:          headless.ROMName(romPath),
		Scale:            c.Int("snapshot-scale"),
	}
	if cfg.SnapshotInterval > 0 {
		dir, err := headless.SnapshotDirectory(c.String("snapshot-dir"))
		if err != nil {
			return nil, nil, err
		}
		cfg.Directory = dir
	}
	if s := c.String("expect-hash"); s != "" {
		hash, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid --expect-hash: %w", err)
		}
		cfg.ExpectHash = hash
	}
	return headless.New(cfg), timing.NewNoOpLimiter(), nil
}

func stripExt(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

func loadBattery(m *jeebie.Machine, path string) error {
	cart := m.Cartridge()
	if !cart.HasBattery() {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := cart.LoadRAM(data); err != nil {
		return err
	}
	slog.Info("Loaded battery save", "path", path)
	return nil
}

func saveBattery(m *jeebie.Machine, path string) error {
	cart := m.Cartridge()
	if !cart.HasBattery() {
		return nil
	}
	if err := os.WriteFile(path, cart.RAM(), 0o644); err != nil {
		return fmt.Errorf("writing battery save: %w", err)
	}
	slog.Info("Wrote battery save", "path", path)
	return nil
}

func saveState(m *jeebie.Machine, path string) error {
	var buf bytes.Buffer
	if err := m.SaveState(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	slog.Info("Saved state", "path", path)
	return nil
}

func loadState(m *jeebie.Machine, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening state: %w", err)
	}
	defer f.Close()

	if err := m.LoadState(f); err != nil {
		return fmt.Errorf("loading state %s: %w", path, err)
	}
	slog.Info("Loaded state", "path", path)
	return nil
}
