package terminal

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/valerio/go-jeebie-color/jeebie/backend"
	"github.com/valerio/go-jeebie-color/jeebie/backend/terminal/logbuffer"
	"github.com/valerio/go-jeebie-color/jeebie/input/action"
	"github.com/valerio/go-jeebie-color/jeebie/video"
)

const (
	gameWidth  = video.FramebufferWidth
	gameHeight = video.FramebufferHeight / 2 // two pixels per cell

	logCapacity = 200

	// Terminals only report key presses, repeated while held. A key counts
	// as released once no repeat has arrived for this long.
	keyTimeout = 100 * time.Millisecond
)

// Backend draws frames into a terminal with tcell, using the upper half
// block so each cell shows two vertically stacked pixels.
type Backend struct {
	screen   tcell.Screen
	now      func() time.Time
	logs     *logbuffer.Buffer
	logLevel slog.Level
	prevLog  *slog.Logger
	signals  chan os.Signal
	title    string

	queue     []backend.InputEvent
	keyStates map[action.Action]time.Time
	active    map[action.Action]bool
}

type Option func(*Backend)

// WithScreen draws to s instead of the process terminal.
func WithScreen(s tcell.Screen) Option {
	return func(t *Backend) { t.screen = s }
}

// WithClock replaces the clock used to expire held keys.
func WithClock(now func() time.Time) Option {
	return func(t *Backend) { t.now = now }
}

func New(opts ...Option) *Backend {
	t := &Backend{
		now:      time.Now,
		logLevel: slog.LevelInfo,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Init takes over the terminal and routes the default logger into the log
// pane until Cleanup.
func (t *Backend) Init(config backend.Config) error {
	t.title = config.Title
	t.keyStates = make(map[action.Action]time.Time)
	t.active = make(map[action.Action]bool)

	if t.screen == nil {
		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("failed to initialize terminal: %w", err)
		}
		t.screen = screen
	}
	if err := t.screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}
	t.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	t.screen.Clear()

	t.logs = logbuffer.New(logCapacity)
	t.prevLog = slog.Default()
	slog.SetDefault(slog.New(logbuffer.NewHandler(t.logs, slog.LevelDebug)))

	t.signals = make(chan os.Signal, 1)
	signal.Notify(t.signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	slog.Info("Terminal backend initialized")
	return nil
}

// Update polls the terminal, then draws frame.
func (t *Backend) Update(frame *video.FrameBuffer) ([]backend.InputEvent, error) {
	now := t.now()

	select {
	case sig := <-t.signals:
		slog.Info("Received signal", "signal", sig)
		t.queue = append(t.queue, backend.InputEvent{Action: action.EmulatorQuit, Pressed: true})
	default:
	}

	for t.screen.HasPendingEvent() {
		switch ev := t.screen.PollEvent().(type) {
		case *tcell.EventKey:
			t.processKeyEvent(ev, now)
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}

	events := t.joypadEvents(now)
	events = append(events, t.queue...)
	t.queue = nil

	t.render(frame)
	t.screen.Show()
	return events, nil
}

func (t *Backend) Cleanup() error {
	if t.signals != nil {
		signal.Stop(t.signals)
	}
	if t.prevLog != nil {
		slog.SetDefault(t.prevLog)
	}
	if t.screen != nil {
		t.screen.Fini()
	}
	return nil
}

// joypadEvents turns key timestamps into press and release edges.
func (t *Backend) joypadEvents(now time.Time) []backend.InputEvent {
	var events []backend.InputEvent
	held := make(map[action.Action]bool)

	for act, last := range t.keyStates {
		if now.Sub(last) >= keyTimeout {
			delete(t.keyStates, act)
			continue
		}
		held[act] = true
		if !t.active[act] {
			events = append(events, backend.InputEvent{Action: act, Pressed: true})
		}
	}
	for act := range t.active {
		if !held[act] {
			events = append(events, backend.InputEvent{Action: act})
		}
	}
	t.active = held
	return events
}

var keyMapping = map[tcell.Key]action.Action{
	tcell.KeyUp:         action.GBDPadUp,
	tcell.KeyDown:       action.GBDPadDown,
	tcell.KeyLeft:       action.GBDPadLeft,
	tcell.KeyRight:      action.GBDPadRight,
	tcell.KeyEnter:      action.GBButtonStart,
	tcell.KeyBackspace:  action.GBButtonSelect,
	tcell.KeyBackspace2: action.GBButtonSelect,
	tcell.KeyTab:        action.GBButtonSelect,
	tcell.KeyF5:         action.EmulatorSaveState,
	tcell.KeyF8:         action.EmulatorLoadState,
	tcell.KeyF9:         action.EmulatorSnapshot,
	tcell.KeyEscape:     action.EmulatorQuit,
	tcell.KeyCtrlC:      action.EmulatorQuit,
}

var runeMapping = map[rune]action.Action{
	'z': action.GBButtonA,
	'x': action.GBButtonB,
	'w': action.GBDPadUp,
	's': action.GBDPadDown,
	'a': action.GBDPadLeft,
	'd': action.GBDPadRight,
	' ': action.EmulatorPauseToggle,
	'p': action.EmulatorPauseToggle,
	'q': action.EmulatorQuit,
}

func (t *Backend) processKeyEvent(ev *tcell.EventKey, now time.Time) {
	if ev.Key() == tcell.KeyRune {
		switch ev.Rune() {
		case '+', '=':
			t.changeLogLevel(-4)
			return
		case '-', '_':
			t.changeLogLevel(4)
			return
		}
		if act, ok := runeMapping[ev.Rune()]; ok {
			t.trigger(act, now)
		}
		return
	}
	if act, ok := keyMapping[ev.Key()]; ok {
		t.trigger(act, now)
	}
}

func (t *Backend) trigger(act action.Action, now time.Time) {
	if _, ok := action.Key(act); !ok {
		t.queue = append(t.queue, backend.InputEvent{Action: act, Pressed: true})
		return
	}
	// directions are exclusive, the latest one wins
	if action.IsDPad(act) {
		for _, d := range []action.Action{action.GBDPadUp, action.GBDPadDown, action.GBDPadLeft, action.GBDPadRight} {
			delete(t.keyStates, d)
		}
	}
	t.keyStates[act] = now
}

// changeLogLevel moves the log pane filter by delta, clamped to the
// debug..error range.
func (t *Backend) changeLogLevel(delta slog.Level) {
	level := min(max(t.logLevel+delta, slog.LevelDebug), slog.LevelError)
	if level != t.logLevel {
		slog.Info("Log filter changed", "from", t.logLevel, "to", level)
		t.logLevel = level
	}
}

func (t *Backend) render(frame *video.FrameBuffer) {
	t.screen.Clear()

	termWidth, termHeight := t.screen.Size()
	if termWidth < gameWidth || termHeight < gameHeight {
		msg := fmt.Sprintf("Terminal too small! Need at least %dx%d", gameWidth, gameHeight)
		t.drawText(0, termHeight/2, termWidth, msg, tcell.StyleDefault.Foreground(tcell.ColorRed))
		return
	}

	t.drawGameBoy(frame)

	paneX := gameWidth + 1
	if paneX >= termWidth {
		return
	}
	border := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	for y := range termHeight {
		t.screen.SetContent(gameWidth, y, '│', nil, border)
	}
	t.drawText(paneX, 0, termWidth-paneX, t.title, tcell.StyleDefault.Foreground(tcell.ColorYellow))
	t.drawLogs(paneX, 1, termWidth-paneX, termHeight-1)
}

func (t *Backend) drawGameBoy(frame *video.FrameBuffer) {
	for row := range gameHeight {
		for x := range gameWidth {
			top := frame.Pixel(x, row*2)
			bottom := frame.Pixel(x, row*2+1)
			style := tcell.StyleDefault.Foreground(rgb(top)).Background(rgb(bottom))
			t.screen.SetContent(x, row, '▀', nil, style)
		}
	}
}

func rgb(c uint32) tcell.Color {
	return tcell.NewRGBColor(int32(c>>24), int32(c>>16&0xFF), int32(c>>8&0xFF))
}

func (t *Backend) drawLogs(x, y, width, height int) {
	styles := map[slog.Level]tcell.Style{
		slog.LevelDebug: tcell.StyleDefault.Foreground(tcell.ColorGray),
		slog.LevelInfo:  tcell.StyleDefault.Foreground(tcell.ColorBlue),
		slog.LevelWarn:  tcell.StyleDefault.Foreground(tcell.ColorYellow),
		slog.LevelError: tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true),
	}
	for i, e := range t.logs.Recent(height, t.logLevel) {
		style, ok := styles[e.Level]
		if !ok {
			style = styles[slog.LevelInfo]
		}
		t.drawText(x, y+i, width, logbuffer.Format(e), style)
	}
}

// drawText writes s at (x, y), truncating with an ellipsis past width.
func (t *Backend) drawText(x, y, width int, s string, style tcell.Style) {
	runes := []rune(s)
	if len(runes) > width {
		if width > 3 {
			runes = append(runes[:width-3], []rune("...")...)
		} else {
			runes = runes[:max(width, 0)]
		}
	}
	for i, r := range runes {
		t.screen.SetContent(x+i, y, r, nil, style)
	}
}
