// Package terminal implements the screen that exchanges bytes with an open
// device and shows them as an encoded log.
package terminal

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog/log"

	"nolp/pkg/history"
	"nolp/pkg/serial"
	"nolp/pkg/ui"
)

// DefaultInputLimit caps the outgoing line buffer
const DefaultInputLimit = 64

const (
	inputHeight = 3
	padding     = 1
)

// Config tunes a Terminal
type Config struct {
	InputLimit int
	LineEnding []byte
}

// Stats counts the bytes that crossed the link. Sent only includes bytes the
// device accepted; Clears is how often the log was wiped.
type Stats struct {
	Sent     int
	Received int
	Clears   int
}

// Terminal is the Terminal screen model. It is driven from the UI goroutine;
// the only state shared with the bridge lives in the Link.
type Terminal struct {
	params serial.PortParameters
	mode   serial.Mode
	link   *serial.Link
	cfg    Config

	input     []rune
	log       *history.Log
	pendingTx []byte
	status    string
	openError bool
	state     ui.State
	received  int

	width, height int
}

// New creates a Terminal for complete params talking through link
func New(params serial.PortParameters, link *serial.Link, cfg Config) *Terminal {
	if cfg.InputLimit <= 0 {
		cfg.InputLimit = DefaultInputLimit
	}

	mode := serial.ModeAscii
	if params.Mode != nil {
		mode = *params.Mode
	}

	return &Terminal{
		params: params.Clone(),
		mode:   mode,
		link:   link,
		cfg:    cfg,
		log:    history.NewLog(),
		width:  80,
		height: 20,
	}
}

// State returns the current state
func (t *Terminal) State() ui.State {
	return t.state
}

// Parameters returns the connection parameters
func (t *Terminal) Parameters() *serial.PortParameters {
	p := t.params.Clone()
	return &p
}

// Link returns the cells shared with the bridge
func (t *Terminal) Link() *serial.Link {
	return t.link
}

// Input returns the line being typed
func (t *Terminal) Input() string {
	return string(t.input)
}

// Log returns the display buffer
func (t *Terminal) Log() *history.Log {
	return t.log
}

// Status returns the latest I/O error message
func (t *Terminal) Status() string {
	return t.status
}

// Stats returns the byte counters
func (t *Terminal) Stats() Stats {
	return Stats{
		Sent:     int(t.link.Tx.Flushed()),
		Received: t.received,
		Clears:   t.log.Stats().Clears,
	}
}

// Update implements ui.Model
func (t *Terminal) Update(msg ui.Message) ui.State {
	switch msg := msg.(type) {
	case ui.Rx:
		t.receive(msg.Data)
	case ui.Input:
		if t.editable() && len(t.input) < t.cfg.InputLimit {
			t.input = append(t.input, msg.Char)
		}
	case ui.Backspace:
		if t.editable() && len(t.input) > 0 {
			t.input = t.input[:len(t.input)-1]
		}
	case ui.Enter:
		if t.editable() {
			t.submit()
		}
	case ui.Pause:
		if t.state.Is(ui.StateRunning) {
			t.log.Clear()
			t.state = ui.Pausing()
		}
	case ui.Resume:
		if t.state.Is(ui.StatePausing) {
			t.state = ui.Running()
		}
	}
	return t.state
}

// Tick picks up bridge errors, drains received bytes and hands queued
// bytes to the bridge. Lock contention leaves the work for the next tick.
func (t *Terminal) Tick() ui.State {
	if err, ok := t.link.Err.TryTake(); ok && err != nil {
		t.fail(err)
	}

	if data, ok := t.link.Rx.TryDrain(); ok && len(data) > 0 {
		t.received += len(data)
		t.Update(ui.Rx{Data: data})
	}

	t.flush()
	return t.state
}

// name returns the device name, or "?" when the parameters lack one
func (t *Terminal) name() string {
	if t.params.Name == nil {
		return "?"
	}
	return *t.params.Name
}

func (t *Terminal) fail(err error) {
	name := t.name()
	if serial.IsOpenError(err) {
		log.Error().Err(err).Str("port", name).Msg("connection failed")
		t.openError = true
		t.input = nil
		t.pendingTx = nil
		t.state = ui.Failed(fmt.Sprintf("Failed to open port %s", name))
		return
	}

	log.Debug().Err(err).Str("port", name).Msg("serial I/O error")
	t.status = err.Error()
}

func (t *Terminal) editable() bool {
	return t.state.Is(ui.StateRunning)
}

func (t *Terminal) receive(data []byte) {
	if len(data) == 0 || !t.state.Is(ui.StateRunning) {
		return
	}
	t.record(data, history.DirectionOutput)
}

func (t *Terminal) submit() {
	if len(t.input) == 0 && len(t.cfg.LineEnding) == 0 {
		return
	}

	data := append([]byte(string(t.input)), t.cfg.LineEnding...)
	t.input = nil
	t.record(data, history.DirectionInput)
	t.pendingTx = append(t.pendingTx, data...)
	t.flush()
}

// record appends data to the log, clearing it first when the new bytes
// would not fit in the visible area.
func (t *Terminal) record(data []byte, direction history.Direction) {
	if t.log.WouldOverflow(len(data), t.mode, t.width, t.height) {
		t.log.Clear()
	}
	t.log.Append(data, direction)
}

func (t *Terminal) flush() {
	if len(t.pendingTx) == 0 {
		return
	}
	if t.link.Tx.TryAppend(t.pendingTx) {
		t.pendingTx = nil
	}
}

// View implements ui.Model
func (t *Terminal) View(s *ui.Surface) {
	logArea := s.Sub(ui.Rect{W: s.Width(), H: s.Height() - inputHeight})
	inner := logArea.Sub(logArea.Local().Inset(padding))
	t.width, t.height = inner.Width(), inner.Height()

	switch {
	case t.openError:
		area := logArea.Sub(ui.CenterRect(logArea.Local(), 50, 50))
		lines := ui.Wrap(fmt.Sprintf("There was an error connecting to %s", t.name()), area.Width())
		top := (area.Height() - len(lines)) / 2
		for i, line := range lines {
			area.Centered(top+i, line, ui.StyleInvalid.Bold(true))
		}
	case t.state.Is(ui.StatePausing):
		area := logArea.Sub(ui.CenterRect(logArea.Local(), 50, 50))
		area.Centered(area.Height()/2, "PAUSED", ui.StylePlaceholder.Bold(true))
	default:
		t.drawLog(inner)
	}

	box := s.Box(ui.Rect{Y: s.Height() - inputHeight, W: s.Width(), H: inputHeight}, " Input ", ui.AlignLeft, ui.StyleDefault)
	if len(t.input) == 0 {
		box.Text(0, 0, "...", ui.StylePlaceholder)
		return
	}
	text := t.input
	if over := len(text) - box.Width(); over > 0 {
		text = text[over:]
	}
	box.Text(0, 0, string(text), ui.StyleSelected)
}

func (t *Terminal) drawLog(s *ui.Surface) {
	cell := history.CellWidth(t.mode)
	for y, row := range t.log.Rows(t.mode, s.Width()) {
		if y >= s.Height() {
			return
		}
		// consecutive bytes of one direction share a style and are drawn as one run
		for start := 0; start < len(row); {
			end := start + 1
			for end < len(row) && row[end].Direction == row[start].Direction {
				end++
			}
			s.Text(start*cell, y, history.EncodeAll(row[start:end], t.mode), styleFor(row[start].Direction))
			start = end
		}
	}
}

func styleFor(d history.Direction) tcell.Style {
	if d == history.DirectionInput {
		return ui.StylePlaceholder
	}
	return ui.StyleDefault
}
