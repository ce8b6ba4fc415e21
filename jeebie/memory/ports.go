package memory

import (
	"log/slog"

	"github.com/valerio/go-jeebie-color/jeebie/addr"
	"github.com/valerio/go-jeebie-color/jeebie/bit"
	"github.com/valerio/go-jeebie-color/jeebie/video"
)

// initPorts wires the I/O registers that are not plain storage. Anything left
// unset reads back the last value written.
func initPorts(m *MMU) {
	set := func(address uint16, read func() byte, write func(byte)) {
		m.ports[address-addr.IOStart] = ioPort{read: read, write: write}
	}

	set(addr.P1,
		func() byte { return m.joypad.Pull(m.io[addr.P1-addr.IOStart]) },
		func(v byte) { m.io[addr.P1-addr.IOStart] = v & 0x30 })

	for _, a := range []uint16{addr.SB, addr.SC} {
		set(a,
			func() byte { return m.serial.Read(a) },
			func(v byte) { m.serial.Write(a, v) })
	}

	for _, a := range []uint16{addr.DIV, addr.TIMA, addr.TMA, addr.TAC} {
		set(a,
			func() byte { return m.timer.Read(a) },
			func(v byte) { m.timer.Write(a, v) })
	}

	set(addr.IF,
		func() byte { return m.io[addr.IF-addr.IOStart] | 0xE0 },
		func(v byte) { m.io[addr.IF-addr.IOStart] = v & 0x1F })

	for a := addr.AudioStart; a <= addr.AudioEnd; a++ {
		offset := a - addr.AudioStart
		set(a,
			func() byte { return m.sound.Get(offset) },
			func(v byte) { m.sound.Set(offset, v) })
	}

	lcd := m.lcd
	set(addr.LCDC,
		func() byte { return lcd.LCDC.Value },
		func(v byte) { lcd.LCDC.Set(v) })
	set(addr.STAT,
		func() byte { return lcd.STAT.Read() },
		lcd.STAT.Write)
	register(m, addr.SCY, &lcd.SCY)
	register(m, addr.SCX, &lcd.SCX)
	set(addr.LY,
		func() byte { return lcd.LY },
		func(byte) {})
	register(m, addr.LYC, &lcd.LYC)
	register(m, addr.WY, &lcd.WY)
	register(m, addr.WX, &lcd.WX)
	set(addr.DMA, nil, m.dma)
	palette(m, addr.BGP, &lcd.BGP)
	palette(m, addr.OBP0, &lcd.OBP0)
	palette(m, addr.OBP1, &lcd.OBP1)

	set(addr.BOOT, nil, func(v byte) {
		m.io[addr.BOOT-addr.IOStart] = v
		if m.bootEnabled && (v == 0x01 || v == 0x11) {
			m.bootEnabled = false
			slog.Debug("boot ROM disabled")
		}
	})

	if !m.color {
		return
	}

	set(addr.KEY1,
		func() byte {
			return bit.FromBool(m.doubleSpeed)<<7 | bit.FromBool(m.prepareSpeed) | 0x7E
		},
		func(v byte) { m.prepareSpeed = bit.IsSet(0, v) })

	set(addr.VBK, func() byte { return lcd.VBK.Read() }, func(v byte) {
		if lcd.VBK.Set(v) {
			m.renderer.ClearCache()
		}
	})

	for i, a := range []uint16{addr.HDMA1, addr.HDMA2, addr.HDMA3, addr.HDMA4} {
		set(a,
			func() byte { return 0xFF },
			func(v byte) { m.hdma.regs[i] = v })
	}
	set(addr.HDMA5, m.hdma.status, m.startHDMA)

	colorPalette(m, addr.BCPS, addr.BCPD, lcd.BGPalette)
	colorPalette(m, addr.OCPS, addr.OCPD, lcd.OBPalette)

	set(addr.SVBK,
		func() byte { return m.svbk | 0xF8 },
		func(v byte) { m.svbk = v & 0x07 })
}

func register(m *MMU, address uint16, reg *uint8) {
	m.ports[address-addr.IOStart] = ioPort{
		read:  func() byte { return *reg },
		write: func(v byte) { *reg = v },
	}
}

// palette wires a DMG palette register. A changed mapping invalidates the
// renderer's colour caches.
func palette(m *MMU, address uint16, reg *video.PaletteRegister) {
	m.ports[address-addr.IOStart] = ioPort{
		read: func() byte { return reg.Value() },
		write: func(v byte) {
			if reg.Set(v) {
				m.renderer.ClearCache()
			}
		},
	}
}

func colorPalette(m *MMU, index, data uint16, p *video.ColorPalette) {
	m.ports[index-addr.IOStart] = ioPort{
		read:  func() byte { return p.Index.Read() },
		write: p.Index.Set,
	}
	m.ports[data-addr.IOStart] = ioPort{
		read: p.ReadData,
		write: func(v byte) {
			p.WriteData(v)
			m.renderer.ClearCache()
		},
	}
}
