package terminal

import (
	"errors"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nolp/pkg/history"
	"nolp/pkg/serial"
	"nolp/pkg/ui"
)

func params(mode serial.Mode) serial.PortParameters {
	return serial.PortParameters{
		Name:     serial.Ptr("COM4"),
		BaudRate: serial.Ptr(uint32(9600)),
		DataBits: serial.Ptr(uint8(8)),
		StopBits: serial.Ptr(uint8(1)),
		Parity:   serial.Ptr(serial.ParityEven),
		Mode:     serial.Ptr(mode),
	}
}

func newTerminal(mode serial.Mode, cfg Config) (*Terminal, *serial.Link) {
	link := serial.NewLink()
	return New(params(mode), link, cfg), link
}

func typeText(t *Terminal, text string) {
	for _, r := range text {
		t.Update(ui.Input{Char: r})
	}
}

func screenText(s tcell.Screen) string {
	w, h := s.Size()
	var b strings.Builder
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, _, _, _ := s.GetContent(x, y)
			b.WriteRune(r)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func newScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, s.Init())
	s.SetSize(w, h)
	t.Cleanup(s.Fini)
	return s
}

func TestTerminal_ScenarioRxAscii(t *testing.T) {
	term, _ := newTerminal(serial.ModeAscii, Config{})

	term.Update(ui.Rx{Data: []byte{0x41, 0x42}})

	want := []history.DataByte{
		{Value: 0x41, Direction: history.DirectionOutput},
		{Value: 0x42, Direction: history.DirectionOutput},
	}
	assert.Equal(t, want, term.Log().Entries())
	assert.Equal(t, "A B ", history.EncodeAll(term.Log().Entries(), serial.ModeAscii))
}

func TestTerminal_ScenarioPausedInputBlocked(t *testing.T) {
	term, _ := newTerminal(serial.ModeAscii, Config{})
	typeText(term, "ab")

	require.True(t, term.Update(ui.Pause{}).Is(ui.StatePausing))
	term.Update(ui.Input{Char: 'x'})
	term.Update(ui.Backspace{})

	assert.Equal(t, "ab", term.Input())
}

func TestTerminal_PauseClearsAndDropsBytes(t *testing.T) {
	term, link := newTerminal(serial.ModeHex, Config{})
	term.Update(ui.Rx{Data: []byte("abc")})

	term.Update(ui.Pause{})
	assert.Equal(t, 0, term.Log().Len())

	link.Rx.TryAppend([]byte("lost"))
	term.Tick()
	assert.Equal(t, 0, term.Log().Len(), "bytes received while paused are dropped")
	assert.Equal(t, 4, term.Stats().Received)
	assert.Equal(t, 1, term.Stats().Clears)

	require.True(t, term.Update(ui.Resume{}).Is(ui.StateRunning))
	link.Rx.TryAppend([]byte("ok"))
	term.Tick()
	assert.Equal(t, 2, term.Log().Len())
}

func TestTerminal_InputLimit(t *testing.T) {
	term, _ := newTerminal(serial.ModeAscii, Config{InputLimit: 3})
	typeText(term, "abcdef")
	assert.Equal(t, "abc", term.Input())

	term.Update(ui.Backspace{})
	assert.Equal(t, "ab", term.Input())
}

func TestTerminal_EnterQueuesBytes(t *testing.T) {
	term, link := newTerminal(serial.ModeAscii, Config{LineEnding: []byte("\r\n")})
	typeText(term, "AT")

	term.Update(ui.Enter{})

	assert.Empty(t, term.Input())
	assert.Equal(t, 4, link.Tx.Len())
	assert.Equal(t, 0, term.Stats().Sent, "queued bytes are not sent until the device takes them")

	var written []byte
	_, err := link.Tx.TryFlush(func(p []byte) (int, error) {
		written = append(written, p...)
		return len(p), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("AT\r\n"), written)
	assert.Equal(t, 4, term.Stats().Sent)

	entries := term.Log().Entries()
	require.Len(t, entries, 4)
	for _, e := range entries {
		assert.Equal(t, history.DirectionInput, e.Direction)
	}
}

func TestTerminal_EmptyEnter(t *testing.T) {
	term, link := newTerminal(serial.ModeAscii, Config{})
	term.Update(ui.Enter{})
	assert.Equal(t, 0, link.Tx.Len())

	term, link = newTerminal(serial.ModeAscii, Config{LineEnding: []byte("\r")})
	term.Update(ui.Enter{})
	assert.Equal(t, 1, link.Tx.Len(), "an empty line still sends the line ending")
}

func TestTerminal_TxContentionKeepsBytes(t *testing.T) {
	term, link := newTerminal(serial.ModeAscii, Config{})

	// The bridge holds the tx lock while the user presses Enter
	link.Tx.TryAppend([]byte(">"))
	link.Tx.TryFlush(func(p []byte) (int, error) {
		typeText(term, "yo")
		term.Update(ui.Enter{})
		return len(p), nil
	})
	assert.Equal(t, 0, link.Tx.Len())
	assert.Equal(t, 1, term.Stats().Sent)

	term.Tick()
	assert.Equal(t, 2, link.Tx.Len())

	// the device takes one byte per write
	short := func(p []byte) (int, error) { return 1, errors.New("timeout") }
	link.Tx.TryFlush(short)
	assert.Equal(t, 2, term.Stats().Sent)
	link.Tx.TryFlush(short)
	assert.Equal(t, 3, term.Stats().Sent)
	assert.Equal(t, 0, link.Tx.Len())
}

func TestTerminal_OpenErrorBecomesErrorState(t *testing.T) {
	term, link := newTerminal(serial.ModeAscii, Config{})
	link.Err.TrySet(serial.NewSerialError(serial.OpOpen, "COM4", errors.New("no such device")))

	got := term.Tick()
	require.True(t, got.Is(ui.StateError))
	assert.Contains(t, got.Message(), "COM4")

	typeText(term, "x")
	assert.Empty(t, term.Input())

	screen := newScreen(t, 100, 30)
	term.View(ui.NewSurface(screen))
	assert.Contains(t, screenText(screen), "There was an error connecting to COM4")
}

func TestTerminal_OpenErrorWithoutName(t *testing.T) {
	link := serial.NewLink()
	term := New(serial.PortParameters{BaudRate: serial.Ptr(uint32(9600))}, link, Config{})
	link.Err.TrySet(serial.NewSerialError(serial.OpOpen, "", errors.New("no port given")))

	var got ui.State
	require.NotPanics(t, func() { got = term.Tick() })
	assert.Equal(t, "Failed to open port ?", got.Message())

	screen := newScreen(t, 100, 30)
	require.NotPanics(t, func() { term.View(ui.NewSurface(screen)) })
	assert.Contains(t, screenText(screen), "There was an error connecting to ?")
}

func TestTerminal_OpenErrorWrapsInNarrowView(t *testing.T) {
	term, link := newTerminal(serial.ModeAscii, Config{})
	link.Err.TrySet(serial.NewSerialError(serial.OpOpen, "COM4", errors.New("no such device")))
	term.Tick()

	screen := newScreen(t, 40, 20)
	term.View(ui.NewSurface(screen))
	text := screenText(screen)
	assert.Contains(t, text, "There was")
	assert.Contains(t, text, "COM4")
}

func TestTerminal_IOErrorIsStatusOnly(t *testing.T) {
	term, link := newTerminal(serial.ModeAscii, Config{})
	link.Err.TrySet(serial.NewSerialError(serial.OpRead, "COM4", errors.New("input/output error")))

	got := term.Tick()
	assert.True(t, got.Is(ui.StateRunning))
	assert.Contains(t, term.Status(), "input/output error")

	typeText(term, "x")
	assert.Equal(t, "x", term.Input())
}

func TestTerminal_OverflowClears(t *testing.T) {
	term, _ := newTerminal(serial.ModeHex, Config{})
	screen := newScreen(t, 14, 7)
	term.View(ui.NewSurface(screen))

	// 12 columns of log area hold four hex bytes per row, two rows in all
	term.Update(ui.Rx{Data: []byte{1, 2, 3, 4, 5, 6, 7, 8}})
	assert.Equal(t, 8, term.Log().Len())

	term.Update(ui.Rx{Data: []byte{9}})
	assert.Equal(t, 1, term.Log().Len())
	assert.Equal(t, byte(9), term.Log().Entries()[0].Value)
}

func TestTerminal_View(t *testing.T) {
	term, _ := newTerminal(serial.ModeAscii, Config{})
	screen := newScreen(t, 40, 12)

	term.Update(ui.Rx{Data: []byte("OK")})
	term.View(ui.NewSurface(screen))
	text := screenText(screen)
	assert.Contains(t, text, "O K ")

	typeText(term, "go")
	term.Update(ui.Enter{})
	term.Update(ui.Rx{Data: []byte("!")})
	term.View(ui.NewSurface(screen))
	text = screenText(screen)
	assert.Contains(t, text, "O K g o ! ", "input and output runs share one row")
	assert.Contains(t, text, " Input ")
	assert.Contains(t, text, "...")

	typeText(term, "ping")
	term.Update(ui.Pause{})
	term.View(ui.NewSurface(screen))
	text = screenText(screen)
	assert.Contains(t, text, "PAUSED")
	assert.Contains(t, text, "ping")
}

func TestTerminal_Parameters(t *testing.T) {
	term, link := newTerminal(serial.ModeOctal, Config{})
	p := term.Parameters()
	*p.Name = "changed"
	assert.Equal(t, "COM4", *term.Parameters().Name)
	assert.Same(t, link, term.Link())
}
