package timer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/valerio/go-jeebie-color/jeebie/addr"
)

func TestDivider(t *testing.T) {
	tm := New()
	tm.Tick(255)
	assert.Equal(t, byte(0), tm.DIV())
	tm.Tick(1)
	assert.Equal(t, byte(1), tm.DIV())
	tm.Tick(256 * 10)
	assert.Equal(t, byte(11), tm.Read(addr.DIV))

	tm.Write(addr.DIV, 0x55)
	assert.Equal(t, byte(0), tm.DIV())
	assert.Equal(t, uint16(0), tm.Counter)
}

func TestTIMAIncrements(t *testing.T) {
	testCases := []struct {
		desc     string
		tac      byte
		cycles   int
		expected byte
	}{
		{"stopped timer does not count", 0x01, 1000, 0},
		{"1024 cycle period", 0x04, 2048, 2},
		{"16 cycle period", 0x05, 160, 10},
		{"64 cycle period", 0x06, 63, 0},
		{"256 cycle period", 0x07, 1024, 4},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			tm := New()
			tm.Write(addr.TAC, tC.tac)
			tm.Tick(tC.cycles)
			assert.Equal(t, tC.expected, tm.TIMA)
		})
	}
}

func TestOverflowReloadsTMA(t *testing.T) {
	tm := New()
	tm.TAC = 0x05
	tm.TMA = 0xF0
	tm.TIMA = 0xFE

	assert.False(t, tm.Tick(16))
	assert.Equal(t, byte(0xFF), tm.TIMA)
	assert.True(t, tm.Tick(16))
	assert.Equal(t, byte(0xF0), tm.TIMA)
}

func TestLargeTickCountsEveryPeriod(t *testing.T) {
	tm := New()
	tm.TAC = 0x05
	tm.TIMA = 0x00

	// 300 increments in one call, overflow included
	assert.True(t, tm.Tick(16*300))
	assert.Equal(t, byte(300-256), tm.TIMA)
}

func TestCyclesToInterrupt(t *testing.T) {
	tm := New()
	assert.Equal(t, Disabled, tm.CyclesToInterrupt())

	tm.TAC = 0x05
	tm.TIMA = 0xF0
	tm.Counter = 4

	n := tm.CyclesToInterrupt()
	assert.Equal(t, 12+15*16, n)

	assert.False(t, tm.Tick(n-1))
	assert.True(t, tm.Tick(1))
}

func TestCyclesToInterruptMatchesStepping(t *testing.T) {
	for _, tac := range []byte{0x04, 0x05, 0x06, 0x07} {
		tm := New()
		tm.TAC = tac
		tm.TIMA = 0xFD
		tm.Counter = 0x1234
		n := tm.CyclesToInterrupt()

		steps := 0
		for !tm.Tick(1) {
			steps++
		}
		assert.Equal(t, n, steps+1, "TAC %02X", tac)
	}
}

func TestTACReadsUpperBitsSet(t *testing.T) {
	tm := New()
	tm.Write(addr.TAC, 0xFD)
	assert.Equal(t, byte(0x05), tm.TAC)
	assert.Equal(t, byte(0xFD), tm.Read(addr.TAC))
}
