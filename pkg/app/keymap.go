package app

import (
	"github.com/gdamore/tcell/v2"

	"nolp/pkg/ui"
)

// Binding maps one key to a message
type Binding struct {
	Name    string
	Key     tcell.Key
	Char    rune
	Message ui.Message
}

// Matches checks if the given key event matches this binding
func (b Binding) Matches(key tcell.Key, char rune) bool {
	if b.Key != tcell.KeyRune {
		return b.Key == key
	}
	return key == tcell.KeyRune && b.Char == char
}

// Keymap is the ordered list of bindings. Control keys are listed by their
// tcell key; KeyCtrlH shares its code with KeyBackspace, so the erase key is
// bound through KeyBackspace2 (DEL) only.
var Keymap = []Binding{
	{Name: "quit", Key: tcell.KeyCtrlQ, Message: ui.Quit{}},
	{Name: "menu", Key: tcell.KeyCtrlN, Message: ui.Switching{To: ui.ToMenu(nil)}},
	{Name: "device_list", Key: tcell.KeyCtrlL, Message: ui.Switching{To: ui.ToDeviceList()}},
	{Name: "help", Key: tcell.KeyCtrlH, Message: ui.Switching{To: ui.ToHelp(nil)}},
	{Name: "help", Key: tcell.KeyF1, Message: ui.Switching{To: ui.ToHelp(nil)}},
	{Name: "pause", Key: tcell.KeyCtrlP, Message: ui.Pause{}},
	{Name: "resume", Key: tcell.KeyCtrlR, Message: ui.Resume{}},
	{Name: "next", Key: tcell.KeyCtrlF, Message: ui.NextElement{}},
	{Name: "next", Key: tcell.KeyTab, Message: ui.NextElement{}},
	{Name: "next", Key: tcell.KeyDown, Message: ui.NextElement{}},
	{Name: "previous", Key: tcell.KeyCtrlB, Message: ui.PreviousElement{}},
	{Name: "previous", Key: tcell.KeyBacktab, Message: ui.PreviousElement{}},
	{Name: "previous", Key: tcell.KeyUp, Message: ui.PreviousElement{}},
	{Name: "enter", Key: tcell.KeyEnter, Message: ui.Enter{}},
	{Name: "backspace", Key: tcell.KeyBackspace2, Message: ui.Backspace{}},
}

// Translate turns a key press into a message. Keys without a binding other
// than printable runes are dropped.
func Translate(ev *tcell.EventKey) (ui.Message, bool) {
	if ev == nil {
		return nil, false
	}

	key, char := ev.Key(), ev.Rune()
	for _, b := range Keymap {
		if b.Matches(key, char) {
			return b.Message, true
		}
	}

	if key == tcell.KeyRune && ev.Modifiers()&(tcell.ModCtrl|tcell.ModAlt) == 0 {
		return ui.Input{Char: char}, true
	}
	return nil, false
}
