// Package help implements the screen describing the keymap and the values
// the Menu expects.
package help

import (
	"nolp/pkg/ui"
)

const marginTop = 2

// Line is one row of help content. Section headers have no Text.
type Line struct {
	Key  string
	Text string
}

// Content is the help text, top to bottom
var Content = []Line{
	{Key: "Keymap (Views)"},
	{},
	{"ctrl+n", "Displays menu"},
	{"ctrl+l", "Displays device list"},
	{"ctrl+h", "Displays this help"},
	{"f1", "Displays this help"},
	{"ctrl+q", "Quits application"},
	{},
	{Key: "Keymap (Movement)"},
	{},
	{"ctrl+b", "Previous/scroll up"},
	{"backtab/up", "Previous/scroll up"},
	{"ctrl+f", "Next/scroll down"},
	{"tab/down", "Next/scroll down"},
	{"enter", "Selects element"},
	{"backspace/del", "Deletes last character"},
	{},
	{Key: "Keymap (Terminal)"},
	{},
	{"ctrl+p", "Pauses the log"},
	{"ctrl+r", "Resumes the log"},
	{},
	{Key: "Menu Input - Expected Value"},
	{},
	{"Port", "Port name/path"},
	{"Baudrate", "Serialport baudrate"},
	{"Data bits", "5 - 8"},
	{"Stop bits", "1|2"},
	{"Parity", "None|Even|Odd"},
	{"Mode", "Ascii|Decimal|Hex|Octal"},
}

// Help is the Help screen model. Enter returns to the screen it was opened
// from.
type Help struct {
	back   ui.State
	offset int
	state  ui.State
}

// New creates a help screen that switches to back on Enter
func New(back ui.State) *Help {
	return &Help{back: back}
}

// Back returns the state produced on Enter
func (h *Help) Back() ui.State {
	return h.back
}

// Offset returns the first visible content line
func (h *Help) Offset() int {
	return h.offset
}

// State returns the current state
func (h *Help) State() ui.State {
	return h.state
}

// Update implements ui.Model
func (h *Help) Update(msg ui.Message) ui.State {
	switch msg.(type) {
	case ui.NextElement:
		h.offset = ui.Cycle(h.offset, 1, len(Content))
	case ui.PreviousElement:
		h.offset = ui.Cycle(h.offset, -1, len(Content))
	case ui.Enter:
		h.state = h.back
	}
	return h.state
}

// View implements ui.Model
func (h *Help) View(s *ui.Surface) {
	area := s.Sub(ui.CenterRect(s.Local(), 50, 50))
	area.Centered(0, "Help", ui.StyleDefault.Bold(true))
	body := area.Sub(ui.Rect{Y: 1 + marginTop, W: area.Width(), H: area.Height() - 1 - marginTop})

	for row, i := 0, h.offset; row < body.Height() && i < len(Content); row, i = row+1, i+1 {
		line := Content[i]
		if line.Text == "" {
			body.Centered(row, line.Key, ui.StyleDefault)
			continue
		}
		body.Text(0, row, line.Key, ui.StyleDefault)
		body.Right(row, line.Text, ui.StylePlaceholder)
	}
}
