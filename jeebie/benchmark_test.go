package jeebie

import (
	"testing"

	"github.com/valerio/go-jeebie-color/jeebie/backend"
	"github.com/valerio/go-jeebie-color/jeebie/backend/headless"
)

var _ backend.Emulator = (*Machine)(nil)

func BenchmarkTickFrame(b *testing.B) {
	benchmarks := []struct {
		name string
		opts []Option
	}{
		{name: "render", opts: nil},
		{name: "no_render", opts: []Option{WithRendererDisabled()}},
		{name: "halt_stepping", opts: []Option{WithHaltStepping()}},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			m, err := New(testROM(false, tileProgram), bm.opts...)
			if err != nil {
				b.Fatalf("Failed to create machine: %v", err)
			}

			b.ResetTimer()
			b.ReportAllocs()
			for range b.N {
				m.TickFrame()
			}
		})
	}
}

func BenchmarkHeadlessLoop(b *testing.B) {
	m, err := New(testROM(false, haltProgram))
	if err != nil {
		b.Fatalf("Failed to create machine: %v", err)
	}
	loop := &backend.Loop{
		Emulator: m,
		Backend:  headless.New(headless.Config{Frames: b.N}),
	}

	b.ResetTimer()
	if err := loop.Run(backend.Config{Title: "Benchmark"}); err != nil {
		b.Fatalf("Loop failed: %v", err)
	}
}
