package backend

import (
	"bytes"
	"errors"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/go-jeebie-color/jeebie/input"
	"github.com/valerio/go-jeebie-color/jeebie/input/action"
	"github.com/valerio/go-jeebie-color/jeebie/video"
)

type fakeEmulator struct {
	frames   int
	pressed  []input.Key
	released []input.Key
	frame    *video.FrameBuffer
}

func (e *fakeEmulator) RunUntilFrame() error      { e.frames++; return nil }
func (e *fakeEmulator) Frame() *video.FrameBuffer { return e.frame }
func (e *fakeEmulator) Press(k input.Key)         { e.pressed = append(e.pressed, k) }
func (e *fakeEmulator) Release(k input.Key)       { e.released = append(e.released, k) }

// scriptBackend returns one batch of events per Update, then quits.
type scriptBackend struct {
	script  [][]InputEvent
	updates int
	inited  bool
	cleaned bool
	err     error
}

func (b *scriptBackend) Init(Config) error { b.inited = true; return nil }

func (b *scriptBackend) Update(*video.FrameBuffer) ([]InputEvent, error) {
	defer func() { b.updates++ }()
	if b.err != nil {
		return nil, b.err
	}
	if b.updates < len(b.script) {
		return b.script[b.updates], nil
	}
	return []InputEvent{{Action: action.EmulatorQuit, Pressed: true}}, nil
}

func (b *scriptBackend) Cleanup() error { b.cleaned = true; return nil }

func press(a action.Action) InputEvent   { return InputEvent{Action: a, Pressed: true} }
func release(a action.Action) InputEvent { return InputEvent{Action: a} }

func TestLoop(t *testing.T) {
	t.Run("forwards joypad events", func(t *testing.T) {
		emu := &fakeEmulator{}
		b := &scriptBackend{script: [][]InputEvent{
			{press(action.GBButtonA), press(action.GBDPadUp)},
			{release(action.GBButtonA)},
		}}
		l := &Loop{Emulator: emu, Backend: b}

		require.NoError(t, l.Run(Config{}))
		assert.Equal(t, []input.Key{input.KeyA, input.KeyUp}, emu.pressed)
		assert.Equal(t, []input.Key{input.KeyA}, emu.released)
		assert.Equal(t, 3, emu.frames)
		assert.True(t, b.inited)
		assert.True(t, b.cleaned)
	})

	t.Run("pause stops frames", func(t *testing.T) {
		emu := &fakeEmulator{}
		b := &scriptBackend{script: [][]InputEvent{
			{press(action.EmulatorPauseToggle)},
			nil,
			nil,
			{press(action.EmulatorPauseToggle)},
		}}
		l := &Loop{Emulator: emu, Backend: b}

		require.NoError(t, l.Run(Config{}))
		// one frame before the pause and one after it
		assert.Equal(t, 2, emu.frames)
	})

	t.Run("hooks", func(t *testing.T) {
		var snaps, saves, loads int
		emu := &fakeEmulator{frame: video.NewFrameBuffer(2, 2)}
		b := &scriptBackend{script: [][]InputEvent{
			{press(action.EmulatorSnapshot), release(action.EmulatorSnapshot)},
			{press(action.EmulatorSaveState), press(action.EmulatorLoadState)},
		}}
		l := &Loop{Emulator: emu, Backend: b, Hooks: Hooks{
			Snapshot: func(fb *video.FrameBuffer) error {
				assert.Same(t, emu.frame, fb)
				snaps++
				return nil
			},
			SaveState: func() error { saves++; return errors.New("disk full") },
			LoadState: func() error { loads++; return nil },
		}}

		require.NoError(t, l.Run(Config{}))
		assert.Equal(t, 1, snaps)
		assert.Equal(t, 1, saves)
		assert.Equal(t, 1, loads)
	})

	t.Run("missing hooks are skipped", func(t *testing.T) {
		b := &scriptBackend{script: [][]InputEvent{{press(action.EmulatorSaveState)}}}
		l := &Loop{Emulator: &fakeEmulator{}, Backend: b}
		assert.NoError(t, l.Run(Config{}))
	})

	t.Run("backend error stops the loop", func(t *testing.T) {
		boom := errors.New("boom")
		b := &scriptBackend{err: boom}
		l := &Loop{Emulator: &fakeEmulator{}, Backend: b}

		assert.ErrorIs(t, l.Run(Config{}), boom)
		assert.True(t, b.cleaned)
	})
}

func TestTestPattern(t *testing.T) {
	p := NewTestPattern()
	assert.Equal(t, video.WhiteColor, p.Frame().Pixel(0, 0))
	assert.Equal(t, video.BlackColor, p.Frame().Pixel(8, 0))

	p.Press(input.KeyA)
	assert.Equal(t, 0, p.Pattern())
	p.Press(input.KeySelect)
	assert.Equal(t, 1, p.Pattern())
	assert.Equal(t, video.BlackColor, p.Frame().Pixel(video.FramebufferWidth-1, 0))

	for range patternFrames {
		require.NoError(t, p.RunUntilFrame())
	}
	assert.Equal(t, 2, p.Pattern())
}

func TestEncodePNG(t *testing.T) {
	testCases := []struct {
		desc  string
		scale int
		size  int
	}{
		{desc: "unscaled", scale: 1, size: 4},
		{desc: "zero means unscaled", scale: 0, size: 4},
		{desc: "scaled", scale: 3, size: 12},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			fb := video.NewFrameBuffer(4, 4)
			fb.SetPixel(0, 0, 0xFF0000FF)

			var buf bytes.Buffer
			require.NoError(t, EncodePNG(&buf, fb, tC.scale))

			img, err := png.Decode(&buf)
			require.NoError(t, err)
			assert.Equal(t, tC.size, img.Bounds().Dx())
			assert.Equal(t, tC.size, img.Bounds().Dy())

			r, g, _, _ := img.At(tC.size/4-1, 0).RGBA()
			assert.Equal(t, uint32(0xFFFF), r)
			assert.Equal(t, uint32(0), g)
		})
	}
}

func TestSavePNG(t *testing.T) {
	dir := t.TempDir()
	path, err := SavePNG(video.NewFrameBuffer(4, 4), dir, "shot", 2)
	require.NoError(t, err)
	assert.FileExists(t, path)
}
