package serial

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/valerio/go-jeebie-color/jeebie/addr"
)

func TestTransferCompletesImmediately(t *testing.T) {
	irqs := 0
	var logs bytes.Buffer
	s := NewLogSink(func() { irqs++ }, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	for _, b := range []byte("ok\n") {
		s.Write(addr.SB, b)
		s.Write(addr.SC, 0x81)
		assert.Equal(t, byte(0xFF), s.Read(addr.SB))
		assert.False(t, s.Read(addr.SC)&0x80 != 0, "start bit cleared")
	}

	assert.Equal(t, 3, irqs)
	assert.Contains(t, logs.String(), "line=ok")
}

func TestExternalClockDoesNotTransfer(t *testing.T) {
	irqs := 0
	s := NewLogSink(func() { irqs++ })
	s.Write(addr.SB, 'x')
	s.Write(addr.SC, 0x80)
	assert.Equal(t, 0, irqs)
	assert.Equal(t, byte('x'), s.Read(addr.SB))
}

func TestDrain(t *testing.T) {
	s := NewLogSink(nil)
	s.Write(addr.SB, 'h')
	s.Write(addr.SB, 'i')
	assert.Equal(t, []byte("hi"), s.Drain())
	assert.Empty(t, s.Drain())
}
