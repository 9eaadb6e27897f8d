package cmd

import (
	"context"
	"os"
	"runtime"
	"strconv"
	"time"

	tea "charm.land/bubbletea/v2"
	"golang.org/x/term"
)

const (
	defaultSnapshotWidth  = 100
	defaultSnapshotHeight = 0
)

var (
	stdinIsPiped     = func() bool { stat, _ := os.Stdin.Stat(); return (stat.Mode() & os.ModeCharDevice) == 0 }
	openTerminalIOFn = openTerminalIO
	termGetSize      = term.GetSize
	newResizeTicker  = func(d time.Duration) resizeTicker { return realResizeTicker{Ticker: time.NewTicker(d)} }
	sendWindowSize   = func(p *tea.Program, msg tea.WindowSizeMsg) { p.Send(msg) }
)

type resizeTicker interface {
	C() <-chan time.Time
	Stop()
}

type realResizeTicker struct {
	*time.Ticker
}

func (t realResizeTicker) C() <-chan time.Time { return t.Ticker.C }

type snapshotSize struct {
	Width  int
	Height int
}

// resolveSnapshotSize prefers explicit flags, then the detected terminal.
// A zero height renders every row of the page.
func resolveSnapshotSize(flagWidth, flagHeight, detectedWidth int) snapshotSize {
	width, height := flagWidth, flagHeight
	if width <= 0 {
		width = detectedWidth
	}
	if width <= 0 {
		width = defaultSnapshotWidth
	}
	if height < 0 {
		height = defaultSnapshotHeight
	}
	return snapshotSize{Width: width, Height: height}
}

// detectTerminalSize returns the best-effort terminal width/height by probing
// stdout, stderr, and stdin, then falling back to $COLUMNS.
func detectTerminalSize() (int, int) {
	fds := []uintptr{os.Stdout.Fd(), os.Stderr.Fd(), os.Stdin.Fd()}
	for _, fd := range fds {
		if w, h, err := termGetSize(int(fd)); err == nil && (w > 0 || h > 0) {
			return w, h
		}
	}
	if col := os.Getenv("COLUMNS"); col != "" {
		if w, err := strconv.Atoi(col); err == nil && w > 0 {
			return w, 0
		}
	}
	return 0, 0
}

// getProgramOptions reopens the terminal when the rows arrived on stdin so
// the TUI still receives keys and resize events.
func getProgramOptions() ([]tea.ProgramOption, func()) {
	cleanup := func() {}
	if !stdinIsPiped() {
		return nil, cleanup
	}

	ttyIn, ttyOut, err := openTerminalIOFn()
	if err != nil {
		// No controlling terminal (CI); keys will not reach the TUI.
		return nil, cleanup
	}
	cleanup = func() {
		_ = ttyIn.Close()
		if ttyOut != nil && ttyOut != ttyIn {
			_ = ttyOut.Close()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithInput(ttyIn)}
	if ttyOut != nil {
		opts = append(opts, tea.WithOutput(ttyOut), withTTYResizeWatcher(ctx, ttyOut))
	}

	return opts, func() {
		cancel()
		cleanup()
	}
}

func openTerminalIO() (*os.File, *os.File, error) {
	in, out := terminalDeviceNames(runtime.GOOS)

	input, err := os.OpenFile(in, os.O_RDWR, 0)
	if err != nil {
		return nil, nil, err
	}
	if out == "" || out == in {
		return input, input, nil
	}

	output, err := os.OpenFile(out, os.O_RDWR, 0)
	if err != nil {
		return input, nil, err
	}
	return input, output, nil
}

func terminalDeviceNames(goos string) (input string, output string) {
	if goos == "windows" {
		return "CONIN$", "CONOUT$"
	}
	return "/dev/tty", "/dev/tty"
}

// withTTYResizeWatcher polls the terminal size and sends resize messages,
// since SIGWINCH does not reach a program whose stdin is a pipe. It stops
// when ctx is cancelled.
func withTTYResizeWatcher(ctx context.Context, out *os.File) tea.ProgramOption {
	return func(p *tea.Program) {
		if ctx == nil || out == nil {
			return
		}

		go func() {
			t := newResizeTicker(250 * time.Millisecond)
			defer t.Stop()

			lastW, lastH := 0, 0
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C():
					w, h, err := termGetSize(int(out.Fd()))
					if err != nil {
						continue
					}
					if w == lastW && h == lastH {
						continue
					}
					lastW, lastH = w, h
					sendWindowSize(p, tea.WindowSizeMsg{Width: w, Height: h})
				}
			}
		}()
	}
}
