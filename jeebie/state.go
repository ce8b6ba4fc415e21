package jeebie

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/valerio/go-jeebie-color/jeebie/savestate"
)

// sections lists the state blocks in file order. Sections that a version
// predates are skipped on load.
func (m *Machine) sections() []savestate.Section {
	return []savestate.Section{
		{
			Name:       "bootrom",
			MinVersion: 2,
			Save:       func(w *savestate.Writer) { w.Bool(m.mem.BootROMEnabled()) },
			Load:       func(r *savestate.Reader, _ uint8) { m.mem.SetBootROMEnabled(r.Bool()) },
		},
		{
			Name: "cpu",
			Save: m.cpu.SaveState,
			Load: func(r *savestate.Reader, _ uint8) { m.cpu.LoadState(r) },
		},
		{
			Name: "lcd",
			Save: m.lcd.SaveState,
			Load: func(r *savestate.Reader, _ uint8) { m.lcd.LoadState(r) },
		},
		{
			Name:       "sound",
			MinVersion: 6,
			Save:       m.sound.SaveState,
			Load:       func(r *savestate.Reader, _ uint8) { m.sound.LoadState(r) },
		},
		{
			Name:       "renderer-short",
			MinVersion: 2,
			MaxVersion: 3,
			Load:       func(r *savestate.Reader, _ uint8) { m.renderer.LoadShortState(r) },
		},
		{
			Name:       "renderer",
			MinVersion: 4,
			Save:       m.renderer.SaveState,
			Load:       func(r *savestate.Reader, _ uint8) { m.renderer.LoadState(r) },
		},
		{
			Name: "ram",
			Save: m.mem.SaveState,
			Load: func(r *savestate.Reader, _ uint8) { m.mem.LoadState(r) },
		},
		{
			Name:       "timer",
			MinVersion: 5,
			Save:       m.timer.SaveState,
			Load:       func(r *savestate.Reader, _ uint8) { m.timer.LoadState(r) },
		},
		{
			Name: "cartridge",
			Save: m.cart.SaveState,
			Load: func(r *savestate.Reader, _ uint8) { m.cart.LoadState(r) },
		},
		{
			Name:       "cgb",
			MinVersion: 9,
			Save: func(w *savestate.Writer) {
				w.Bool(m.color)
				if m.color {
					m.lcd.SaveColorState(w)
					m.mem.SaveColorState(w)
				}
			},
			Load: func(r *savestate.Reader, _ uint8) {
				if !r.Bool() {
					return
				}
				m.lcd.LoadColorState(r)
				m.mem.LoadColorState(r)
			},
		},
		{
			Name:       "scanline-select",
			MinVersion: 9,
			Save:       m.renderer.SaveSelectState,
			Load:       func(r *savestate.Reader, _ uint8) { m.renderer.LoadSelectState(r) },
		},
		{
			// overshoot carried into the next mode period
			Name:       "coordinator",
			MinVersion: 9,
			Save:       func(w *savestate.Writer) { w.Uint32(uint32(int32(m.cyclesRemaining))) },
			Load:       func(r *savestate.Reader, _ uint8) { m.cyclesRemaining = int(int32(r.Uint32())) },
		},
	}
}

// SaveState writes the full machine state to w.
func (m *Machine) SaveState(w io.Writer) error {
	slog.Debug("Saving state...")
	if err := savestate.Encode(w, m.sections()); err != nil {
		return err
	}
	slog.Debug("State saved.")
	return nil
}

// LoadState restores a state written by SaveState or an older build, then
// redraws the screen from the restored video memory. If the blob is
// truncated or unsupported the machine is put back as it was before the call.
func (m *Machine) LoadState(r io.Reader) error {
	slog.Debug("Loading state...")

	var backup bytes.Buffer
	if err := savestate.Encode(&backup, m.sections()); err != nil {
		return fmt.Errorf("saving current state: %w", err)
	}

	m.cyclesRemaining = 0
	version, err := savestate.Decode(r, m.sections())
	if err != nil {
		if _, restoreErr := savestate.Decode(&backup, m.sections()); restoreErr != nil {
			return errors.Join(err, fmt.Errorf("restoring previous state: %w", restoreErr))
		}
		m.renderer.ClearCache()
		slog.Debug("State load failed, previous state restored.", "error", err)
		return err
	}
	if version < 2 {
		// before versioning the first byte was the boot ROM flag
		m.mem.SetBootROMEnabled(version != 0)
	}

	m.renderer.ClearCache()
	m.renderer.RenderScreen()
	slog.Debug("State loaded.", "version", version)
	return nil
}
