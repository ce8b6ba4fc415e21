package memory

import (
	"log/slog"

	"github.com/valerio/go-jeebie-color/jeebie/addr"
	"github.com/valerio/go-jeebie-color/jeebie/bit"
	"github.com/valerio/go-jeebie-color/jeebie/savestate"
)

const hdmaBlock = 0x10

// hdma is the CGB VRAM DMA. A general transfer copies everything at once, an
// H-blank transfer copies one 16 byte block per H-blank.
type hdma struct {
	regs      [4]byte
	source    uint16
	dest      uint16
	remaining uint8 // blocks left
	active    bool
	stopped   bool
}

// status is the HDMA5 read value: blocks left minus one while active, with
// bit 7 set once a transfer was cancelled, 0xFF when done.
func (h *hdma) status() byte {
	switch {
	case h.active:
		return h.remaining - 1
	case h.stopped:
		return 0x80 | (h.remaining-1)&0x7F
	}
	return 0xFF
}

func (h *hdma) saveState(w *savestate.Writer) {
	w.Bytes(h.regs[:])
	w.Uint16(h.source)
	w.Uint16(h.dest)
	w.Byte(h.remaining)
	w.Bool(h.active)
	w.Bool(h.stopped)
}

func (h *hdma) loadState(r *savestate.Reader) {
	r.Bytes(h.regs[:])
	h.source = r.Uint16()
	h.dest = r.Uint16()
	h.remaining = r.Byte()
	h.active = r.Bool()
	h.stopped = r.Bool()
}

// startHDMA handles a write to HDMA5.
func (m *MMU) startHDMA(value byte) {
	h := &m.hdma
	hblank := bit.IsSet(7, value)

	if h.active && !hblank {
		h.active = false
		h.stopped = true
		slog.Debug("hdma cancelled", "remaining", h.remaining)
		return
	}

	h.source = (uint16(h.regs[0])<<8 | uint16(h.regs[1])) & 0xFFF0
	h.dest = (uint16(h.regs[2])<<8|uint16(h.regs[3]))&0x1FF0 | addr.VRAMStart
	h.remaining = value&0x7F + 1
	h.stopped = false

	if hblank {
		h.active = true
		return
	}
	for h.remaining > 0 {
		m.copyBlock()
	}
}

// StepHDMA copies one block of a pending H-blank transfer. Called on every
// H-blank entry.
func (m *MMU) StepHDMA() {
	if !m.hdma.active {
		return
	}
	m.copyBlock()
	if m.hdma.remaining == 0 {
		m.hdma.active = false
	}
}

// HDMAActive reports whether an H-blank transfer is pending.
func (m *MMU) HDMAActive() bool { return m.hdma.active }

func (m *MMU) copyBlock() {
	h := &m.hdma
	for i := range uint16(hdmaBlock) {
		dest := (h.dest+i)&0x1FFF | addr.VRAMStart
		m.Write(dest, m.Read(h.source+i))
	}
	h.source += hdmaBlock
	h.dest += hdmaBlock
	h.remaining--
}
