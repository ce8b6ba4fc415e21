package jeebie

import (
	"github.com/valerio/go-jeebie-color/jeebie/addr"
	"github.com/valerio/go-jeebie-color/jeebie/video"
)

// dots per mode on a visible line, and per line otherwise
const (
	oamScanCycles  = 80
	transferCycles = 170
	hblankCycles   = 206
	lineCycles     = oamScanCycles + transferCycles + hblankCycles

	visibleLines = video.FramebufferHeight
	totalLines   = 154
)

// TickFrame runs the machine for one frame: 144 visible lines followed by
// 10 lines of V-blank.
func (m *Machine) TickFrame() {
	if !m.lcd.LCDC.LCDEnable {
		m.renderer.BlankScreen()
		m.lcd.STAT.SetMode(video.HBlankMode)
		m.lcd.LY = 0
		for range totalLines {
			m.calculateCycles(lineCycles)
		}
		m.frames++
		return
	}

	for y := range visibleLines {
		m.checkLYC(y)

		m.setMode(video.OAMScanMode)
		m.calculateCycles(oamScanCycles)

		m.setMode(video.TransferMode)
		if m.mem.DoubleSpeed() {
			m.calculateCycles(transferCycles * 2)
		} else {
			m.calculateCycles(transferCycles)
		}
		m.renderer.Scanline(y)

		m.setMode(video.HBlankMode)
		m.mem.StepHDMA()
		m.calculateCycles(hblankCycles)
	}

	m.mem.RequestInterrupt(addr.VBlankInterrupt)
	if !m.rendererDisabled {
		m.renderer.RenderScreen()
	}

	for y := visibleLines; y < totalLines; y++ {
		m.checkLYC(y)
		m.setMode(video.VBlankMode)
		m.calculateCycles(lineCycles)
	}
	m.frames++
}

// RunUntilFrame runs one frame.
func (m *Machine) RunUntilFrame() error {
	m.TickFrame()
	return nil
}

// setMode updates the STAT mode bits and raises the STAT interrupt if the
// new mode's source is enabled.
func (m *Machine) setMode(mode video.Mode) {
	m.lcd.STAT.SetMode(mode)
	if m.lcd.STAT.ModeInterruptEnabled(mode) {
		m.mem.RequestInterrupt(addr.LCDSTATInterrupt)
	}
}

// checkLYC sets LY and the coincidence flag, raising the STAT interrupt on
// a match when enabled.
func (m *Machine) checkLYC(y int) {
	m.lcd.LY = uint8(y)
	match := m.lcd.LYC == m.lcd.LY
	m.lcd.STAT.SetLYCMatch(match)
	if match && m.lcd.STAT.LYCInterruptEnabled() {
		m.mem.RequestInterrupt(addr.LCDSTATInterrupt)
	}
}

// calculateCycles runs the CPU for period cycles. Overshoot carries over to
// the next call. A halted CPU skips ahead to the next timer interrupt or the
// end of the period, whichever comes first; nothing else can wake it in the
// meantime.
func (m *Machine) calculateCycles(period int) {
	m.cyclesRemaining += period
	for m.cyclesRemaining > 0 {
		cycles, halted := m.cpu.Tick()
		if halted {
			if m.stepHalt {
				cycles = 1
			} else {
				cycles = min(m.timer.CyclesToInterrupt(), m.cyclesRemaining)
			}
		}

		m.sound.Advance(cycles)
		m.cyclesRemaining -= cycles

		if m.timer.Tick(cycles) {
			m.mem.RequestInterrupt(addr.TimerInterrupt)
		}
	}
}
