package backend

import (
	"errors"
	"log/slog"

	"github.com/valerio/go-jeebie-color/jeebie/input/action"
	"github.com/valerio/go-jeebie-color/jeebie/timing"
	"github.com/valerio/go-jeebie-color/jeebie/video"
)

// Hooks handle the emulator actions the loop cannot perform itself. Nil
// hooks are skipped.
type Hooks struct {
	Snapshot  func(frame *video.FrameBuffer) error
	SaveState func() error
	LoadState func() error
}

// Loop runs an emulator against a backend until the backend asks to quit.
type Loop struct {
	Emulator Emulator
	Backend  Backend
	Limiter  timing.Limiter
	Hooks    Hooks

	paused bool
}

// Run initialises the backend, then alternates between running a frame and
// presenting it. Errors from hooks are logged and do not stop the loop.
func (l *Loop) Run(config Config) (err error) {
	if l.Limiter == nil {
		l.Limiter = timing.NewNoOpLimiter()
	}
	defer l.Limiter.Stop()

	if err := l.Backend.Init(config); err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, l.Backend.Cleanup())
	}()

	for {
		if !l.paused {
			if err := l.Emulator.RunUntilFrame(); err != nil {
				return err
			}
		}

		events, err := l.Backend.Update(l.Emulator.Frame())
		if err != nil {
			return err
		}
		for _, ev := range events {
			if l.handle(ev) {
				return nil
			}
		}

		l.Limiter.WaitForNextFrame()
	}
}

// handle applies one event, returning true on quit.
func (l *Loop) handle(ev InputEvent) bool {
	if key, ok := action.Key(ev.Action); ok {
		if ev.Pressed {
			l.Emulator.Press(key)
		} else {
			l.Emulator.Release(key)
		}
		return false
	}
	if !ev.Pressed {
		return false
	}

	switch ev.Action {
	case action.EmulatorQuit:
		return true
	case action.EmulatorPauseToggle:
		l.paused = !l.paused
		if !l.paused {
			l.Limiter.Reset()
		}
		slog.Info("Pause toggled", "paused", l.paused)
	case action.EmulatorSnapshot:
		run("snapshot", l.Hooks.Snapshot != nil, func() error { return l.Hooks.Snapshot(l.Emulator.Frame()) })
	case action.EmulatorSaveState:
		run("save state", l.Hooks.SaveState != nil, l.Hooks.SaveState)
	case action.EmulatorLoadState:
		run("load state", l.Hooks.LoadState != nil, l.Hooks.LoadState)
	}
	return false
}

func run(name string, set bool, hook func() error) {
	if !set {
		slog.Debug("No handler for action", "action", name)
		return
	}
	if err := hook(); err != nil {
		slog.Error("Action failed", "action", name, "error", err)
	}
}
