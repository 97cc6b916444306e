// Package ui defines the contract shared by every screen: the screen
// identities, the update result State, the Message intents and the render
// Surface.
package ui

import (
	"nolp/pkg/serial"
)

// Screen identifies one of the top-level UI modes
type Screen int

const (
	ScreenMenu Screen = iota
	ScreenHelp
	ScreenDeviceList
	ScreenTerminal
)

// String returns the string representation of Screen
func (s Screen) String() string {
	switch s {
	case ScreenMenu:
		return "menu"
	case ScreenHelp:
		return "help"
	case ScreenDeviceList:
		return "device_list"
	case ScreenTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// StateKind tags a State
type StateKind int

const (
	StateRunning StateKind = iota
	StatePausing
	StateStopping
	StateError
	StateSwitching
)

// String returns the string representation of StateKind
func (k StateKind) String() string {
	switch k {
	case StateRunning:
		return "running"
	case StatePausing:
		return "pausing"
	case StateStopping:
		return "stopping"
	case StateError:
		return "error"
	case StateSwitching:
		return "switching"
	default:
		return "unknown"
	}
}

// State is the result of every update step. The zero value is Running.
//
// A switching state can only be built through the To* constructors, so a
// switch to the Terminal screen always carries complete parameters.
type State struct {
	kind    StateKind
	message string
	target  Screen
	params  *serial.PortParameters
}

// Running is the resting state of a healthy screen
func Running() State { return State{kind: StateRunning} }

// Pausing marks a Terminal that stopped logging
func Pausing() State { return State{kind: StatePausing} }

// Stopping asks the application to exit
func Stopping() State { return State{kind: StateStopping} }

// Failed carries a human readable error message
func Failed(message string) State { return State{kind: StateError, message: message} }

// ToMenu switches to the Menu, pre-filled from params when given
func ToMenu(params *serial.PortParameters) State {
	return State{kind: StateSwitching, target: ScreenMenu, params: cloneParams(params)}
}

// ToDeviceList switches to the DeviceList
func ToDeviceList() State {
	return State{kind: StateSwitching, target: ScreenDeviceList}
}

// ToHelp switches to Help. params are handed back to the calling screen.
func ToHelp(params *serial.PortParameters) State {
	return State{kind: StateSwitching, target: ScreenHelp, params: cloneParams(params)}
}

// ToTerminal switches to the Terminal and opens a connection with params
func ToTerminal(params serial.PortParameters) State {
	p := params.Clone()
	return State{kind: StateSwitching, target: ScreenTerminal, params: &p}
}

func cloneParams(p *serial.PortParameters) *serial.PortParameters {
	if p == nil {
		return nil
	}
	c := p.Clone()
	return &c
}

// Kind returns the tag of the state
func (s State) Kind() StateKind { return s.kind }

// Message returns the error message of an Error state
func (s State) Message() string { return s.message }

// Target returns the screen a Switching state points at
func (s State) Target() Screen { return s.target }

// Params returns a copy of the parameters carried by a Switching state
func (s State) Params() *serial.PortParameters { return cloneParams(s.params) }

// Is reports whether the state has the given kind
func (s State) Is(kind StateKind) bool { return s.kind == kind }

// Equal compares two states, including the carried parameters by value
func (s State) Equal(o State) bool {
	if s.kind != o.kind || s.message != o.message || s.target != o.target {
		return false
	}
	if (s.params == nil) != (o.params == nil) {
		return false
	}
	if s.params == nil {
		return true
	}
	return s.params.String() == o.params.String()
}

// String returns a short description of the state for logs
func (s State) String() string {
	switch s.kind {
	case StateError:
		return "error(" + s.message + ")"
	case StateSwitching:
		if s.params != nil {
			return "switching(" + s.target.String() + ", " + s.params.String() + ")"
		}
		return "switching(" + s.target.String() + ")"
	default:
		return s.kind.String()
	}
}

// Message is an intent produced from user input or from the bridge
type Message interface {
	isMessage()
}

type (
	// Quit ends the application
	Quit struct{}
	// Enter activates the selected element
	Enter struct{}
	// Pause suspends the Terminal log
	Pause struct{}
	// Resume restarts the Terminal log
	Resume struct{}
	// Rx carries bytes received from the device
	Rx struct{ Data []byte }
	// Backspace deletes the last input character
	Backspace struct{}
	// Input carries one typed character
	Input struct{ Char rune }
	// NextElement moves the selection forward
	NextElement struct{}
	// PreviousElement moves the selection backward
	PreviousElement struct{}
	// Switching requests a screen change
	Switching struct{ To State }
)

func (Quit) isMessage()            {}
func (Enter) isMessage()           {}
func (Pause) isMessage()           {}
func (Resume) isMessage()          {}
func (Rx) isMessage()              {}
func (Backspace) isMessage()       {}
func (Input) isMessage()           {}
func (NextElement) isMessage()     {}
func (PreviousElement) isMessage() {}
func (Switching) isMessage()       {}

// Model is implemented by every screen. Update never blocks; messages a
// screen does not care about leave its state unchanged.
type Model interface {
	Update(msg Message) State
	View(s *Surface)
	State() State
}

// Ticker is implemented by screens with periodic work
type Ticker interface {
	Tick() State
}

// Parameterized is implemented by screens that hold connection parameters
type Parameterized interface {
	Parameters() *serial.PortParameters
}

// Cycle moves index by delta over n elements, wrapping at both ends
func Cycle(index, delta, n int) int {
	if n <= 0 {
		return 0
	}
	return ((index+delta)%n + n) % n
}

// StatusReporter is implemented by screens with a status line message
type StatusReporter interface {
	Status() string
}
