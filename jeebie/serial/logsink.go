package serial

import (
	"log/slog"

	"github.com/valerio/go-jeebie-color/jeebie/addr"
	"github.com/valerio/go-jeebie-color/jeebie/bit"
	"github.com/valerio/go-jeebie-color/jeebie/savestate"
)

// LogSink is a serial port with nothing plugged in. Every byte written to SB
// is kept in an output buffer for the host to drain, and outgoing transfers
// are logged as text lines. Handy for test roms that report over serial.
type LogSink struct {
	irqHandler func()
	sb, sc     byte
	logger     *slog.Logger

	output []byte
	line   []byte
}

type LogSinkOption func(*LogSink)

// WithLogger sets the logger used for completed lines. Without one, lines
// go to whatever slog.Default is at the time.
func WithLogger(logger *slog.Logger) LogSinkOption {
	return func(s *LogSink) { s.logger = logger }
}

// NewLogSink creates a new logging serial device.
// The passed function is called when a transfer is completed, should be wired
// to request the Serial interrupt.
func NewLogSink(irq func(), opts ...LogSinkOption) *LogSink {
	s := &LogSink{
		irqHandler: irq,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LogSink) Write(address uint16, value byte) {
	switch address {
	case addr.SB:
		s.sb = value
		s.output = append(s.output, value)
	case addr.SC:
		s.sc = value
		s.maybeStartTransfer()
	default:
		panic("serial.LogSink: invalid write address")
	}
}

func (s *LogSink) Read(address uint16) byte {
	switch address {
	case addr.SB:
		return s.sb
	case addr.SC:
		return s.sc | 0x7E
	default:
		panic("serial.LogSink: invalid read address")
	}
}

// Drain returns the bytes written to SB since the last call.
func (s *LogSink) Drain() []byte {
	out := s.output
	s.output = nil
	return out
}

func (s *LogSink) maybeStartTransfer() {
	// a transfer should start when bit 7 (start) and bit 0 (clock source) of SC are set.
	if !bit.IsSet(7, s.sc) || !bit.IsSet(0, s.sc) {
		return
	}

	// buffer until newline for readability
	b := s.sb
	if b == 0 || b == '\n' || b == '\r' {
		s.flushLine()
	} else {
		s.line = append(s.line, b)
	}

	s.completeTransfer()
}

func (s *LogSink) flushLine() {
	if len(s.line) == 0 {
		return
	}
	logger := s.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("serial", "line", string(s.line))
	s.line = s.line[:0]
}

func (s *LogSink) completeTransfer() {
	// no peer: the received byte is all ones
	s.sb = 0xFF
	s.sc = bit.Clear(7, s.sc)
	if s.irqHandler != nil {
		s.irqHandler()
	}
}

func (s *LogSink) SaveState(w *savestate.Writer) {
	w.Byte(s.sb)
	w.Byte(s.sc)
}

func (s *LogSink) LoadState(r *savestate.Reader) {
	s.sb = r.Byte()
	s.sc = r.Byte()
}
