// Package menu implements the connection form: six parameter fields followed
// by the Cancel and Start buttons.
package menu

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog/log"

	"nolp/pkg/serial"
	"nolp/pkg/ui"
)

// InvalidInputMessage is shown when Start is pressed with bad fields
const InvalidInputMessage = "Invalid input (ctrl+h) for help"

// Field indexes. The buttons follow the last field.
const (
	FieldPort = iota
	FieldBaudRate
	FieldDataBits
	FieldStopBits
	FieldParity
	FieldMode

	ButtonCancel
	ButtonStart

	elementCount
)

const (
	inputWidth = 18
	gapWidth   = 10
	marginTop  = 2
	fieldRows  = 3
)

// Field is one editable input
type Field struct {
	Title       string
	Placeholder string
	Value       string
	Limit       int
	Invalid     bool

	accept func(r rune) bool
}

func (f *Field) add(r rune) {
	if len([]rune(f.Value)) >= f.Limit {
		return
	}
	if f.accept != nil && !f.accept(r) {
		return
	}
	f.Value += string(r)
}

func (f *Field) pop() {
	runes := []rune(f.Value)
	if len(runes) > 0 {
		f.Value = string(runes[:len(runes)-1])
	}
}

func digitIn(lo, hi rune) func(rune) bool {
	return func(r rune) bool { return r >= lo && r <= hi }
}

func printable(r rune) bool {
	return unicode.IsPrint(r)
}

// Menu is the Menu screen model
type Menu struct {
	fields   [ButtonCancel]Field
	selected int
	state    ui.State

	split  bool
	offset int
	height int
}

// New creates an empty menu
func New() *Menu {
	return &Menu{
		fields: [ButtonCancel]Field{
			FieldPort:     {Title: "Port", Placeholder: "COM4", Limit: 64, accept: printable},
			FieldBaudRate: {Title: "Baudrate", Placeholder: "9600", Limit: 10, accept: digitIn('0', '9')},
			FieldDataBits: {Title: "Data bits", Placeholder: "8", Limit: 1, accept: digitIn('5', '8')},
			FieldStopBits: {Title: "Stop bits", Placeholder: "1", Limit: 1, accept: digitIn('1', '2')},
			FieldParity:   {Title: "Parity", Placeholder: "Even", Limit: 4, accept: unicode.IsLetter},
			FieldMode:     {Title: "Mode", Placeholder: "Ascii", Limit: 7, accept: unicode.IsLetter},
		},
		split: true,
	}
}

// NewWithParameters creates a menu pre-filled from params. Unset fields stay
// empty.
func NewWithParameters(params serial.PortParameters) *Menu {
	m := New()
	if params.Name != nil {
		m.fields[FieldPort].Value = *params.Name
	}
	if params.BaudRate != nil {
		m.fields[FieldBaudRate].Value = strconv.FormatUint(uint64(*params.BaudRate), 10)
	}
	if params.DataBits != nil {
		m.fields[FieldDataBits].Value = strconv.Itoa(int(*params.DataBits))
	}
	if params.StopBits != nil {
		m.fields[FieldStopBits].Value = strconv.Itoa(int(*params.StopBits))
	}
	if params.Parity != nil {
		m.fields[FieldParity].Value = params.Parity.String()
	}
	if params.Mode != nil {
		m.fields[FieldMode].Value = params.Mode.String()
	}
	return m
}

// State returns the current state
func (m *Menu) State() ui.State {
	return m.state
}

// Selected returns the index of the selected element
func (m *Menu) Selected() int {
	return m.selected
}

// Field returns a copy of field i
func (m *Menu) Field(i int) Field {
	return m.fields[i]
}

// Update implements ui.Model
func (m *Menu) Update(msg ui.Message) ui.State {
	switch msg := msg.(type) {
	case ui.NextElement:
		m.moveSelection(1)
	case ui.PreviousElement:
		m.moveSelection(-1)
	case ui.Input:
		if f := m.selectedField(); f != nil {
			f.add(msg.Char)
			m.recover()
		}
	case ui.Backspace:
		if f := m.selectedField(); f != nil {
			f.pop()
			m.recover()
		}
	case ui.Enter:
		m.activateSelected()
	case ui.Quit:
		m.state = ui.Stopping()
	}
	return m.state
}

// Parameters returns whatever the form currently holds. Fields that do not
// parse are left unset.
func (m *Menu) Parameters() *serial.PortParameters {
	p, _ := m.collect(false)
	return &p
}

func (m *Menu) selectedField() *Field {
	if m.selected < 0 || m.selected >= len(m.fields) {
		return nil
	}
	return &m.fields[m.selected]
}

// moveSelection moves the selection forward or backward, wrapping around
func (m *Menu) moveSelection(direction int) {
	m.selected = ui.Cycle(m.selected, direction, elementCount)
	m.recover()
	m.scrollToSelection()
}

// recover leaves the error state once the user touches the form again
func (m *Menu) recover() {
	if m.state.Is(ui.StateError) {
		m.state = ui.Running()
	}
}

// activateSelected handles Enter on the selected element
func (m *Menu) activateSelected() {
	switch m.selected {
	case ButtonCancel:
		m.state = ui.Stopping()
	case ButtonStart:
		params, ok := m.collect(true)
		if !ok {
			log.Debug().Str("params", params.String()).Msg("menu rejected parameters")
			m.state = ui.Failed(InvalidInputMessage)
			return
		}
		m.state = ui.ToTerminal(params)
	}
}

// collect parses every field. With mark set, fields that fail are flagged
// invalid and the others are cleared.
func (m *Menu) collect(mark bool) (serial.PortParameters, bool) {
	var p serial.PortParameters
	ok := true
	check := func(i int, valid bool) {
		if mark {
			m.fields[i].Invalid = !valid
		}
		ok = ok && valid
	}

	name := m.fields[FieldPort].Value
	if strings.TrimSpace(name) != "" {
		p.Name = serial.Ptr(name)
	}
	check(FieldPort, p.Name != nil)

	if v, err := strconv.ParseUint(m.fields[FieldBaudRate].Value, 10, 32); err == nil && v > 0 {
		p.BaudRate = serial.Ptr(uint32(v))
	}
	check(FieldBaudRate, p.BaudRate != nil)

	if v, err := strconv.ParseUint(m.fields[FieldDataBits].Value, 10, 8); err == nil && v >= 5 && v <= 8 {
		p.DataBits = serial.Ptr(uint8(v))
	}
	check(FieldDataBits, p.DataBits != nil)

	if v, err := strconv.ParseUint(m.fields[FieldStopBits].Value, 10, 8); err == nil && v >= 1 && v <= 2 {
		p.StopBits = serial.Ptr(uint8(v))
	}
	check(FieldStopBits, p.StopBits != nil)

	if v, err := serial.ParseParity(m.fields[FieldParity].Value); err == nil {
		p.Parity = serial.Ptr(v)
	}
	check(FieldParity, p.Parity != nil)

	if v, err := serial.ParseMode(m.fields[FieldMode].Value); err == nil {
		p.Mode = serial.Ptr(v)
	}
	check(FieldMode, p.Mode != nil)

	return p, ok
}

// rows returns the number of text rows the form needs in the current layout
func (m *Menu) rows() int {
	if m.split {
		return len(m.fields)/2*fieldRows + 1
	}
	return len(m.fields)*fieldRows + 2
}

// rowOf returns the first row of element i
func (m *Menu) rowOf(i int) int {
	if i >= len(m.fields) {
		if m.split {
			return len(m.fields) / 2 * fieldRows
		}
		return len(m.fields)*fieldRows + (i - len(m.fields))
	}
	if m.split {
		return i / 2 * fieldRows
	}
	return i * fieldRows
}

// scrollToSelection keeps the selected element inside the visible rows
func (m *Menu) scrollToSelection() {
	if m.height <= 0 || m.rows() <= m.height {
		m.offset = 0
		return
	}

	top := m.rowOf(m.selected)
	bottom := top + fieldRows
	if m.selected >= len(m.fields) {
		bottom = top + 1
	}

	if top < m.offset {
		m.offset = top
	} else if bottom > m.offset+m.height {
		m.offset = bottom - m.height
	}
}

// View implements ui.Model
func (m *Menu) View(s *ui.Surface) {
	bounds := ui.CenterRect(s.Local(), 50, 50)
	area := s.Sub(bounds)
	area.Centered(0, "Menu", ui.StyleDefault.Bold(true))

	body := area.Sub(ui.Rect{Y: 1 + marginTop, W: area.Width(), H: area.Height() - 1 - marginTop})
	m.split = body.Width() >= inputWidth*2+gapWidth
	m.height = body.Height()
	m.scrollToSelection()

	colWidth := inputWidth
	if m.split {
		colWidth = inputWidth*2 + gapWidth
	}
	left := (body.Width() - colWidth) / 2
	if left < 0 {
		left = 0
	}

	for i := range m.fields {
		x := left
		if m.split && i%2 == 1 {
			x += inputWidth + gapWidth
		}
		m.drawField(body, i, x, m.rowOf(i)-m.offset)
	}

	cancelRow := m.rowOf(ButtonCancel) - m.offset
	startRow := m.rowOf(ButtonStart) - m.offset
	startX := left
	if m.split {
		startX = left + len("Cancel") + gapWidth
	}
	body.Text(left, cancelRow, "Cancel", m.styleFor(ButtonCancel, ui.StyleDefault))
	body.Text(startX, startRow, "Start", m.styleFor(ButtonStart, ui.StyleDefault))
}

func (m *Menu) drawField(s *ui.Surface, i, x, y int) {
	f := &m.fields[i]

	labelStyle := ui.StyleDefault
	if f.Invalid {
		labelStyle = ui.StyleInvalid
	}
	labelStyle = m.styleFor(i, labelStyle)

	text, textStyle := f.Value, ui.StyleDefault
	if text == "" {
		text, textStyle = f.Placeholder, ui.StylePlaceholder
	} else if runes := []rune(text); len(runes) > inputWidth {
		text = string(runes[len(runes)-inputWidth:])
	}

	s.Text(x, y, f.Title, labelStyle)
	s.Text(x, y+1, text, textStyle)
	s.Text(x, y+2, strings.Repeat("▔", inputWidth), labelStyle)
}

func (m *Menu) styleFor(i int, base tcell.Style) tcell.Style {
	if i == m.selected {
		return ui.StyleSelected
	}
	return base
}
