// Package serial provides serial port parameters, device access and the
// background bridge that shuttles bytes between a device and the UI.
package serial

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// ErrIncompleteParameters is returned when a connection is requested with
// parameters that are not fully specified.
var ErrIncompleteParameters = errors.New("port parameters are incomplete")

// Parity represents the parity setting of a connection
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

// String returns the display name of the parity
func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "None"
	case ParityOdd:
		return "Odd"
	case ParityEven:
		return "Even"
	default:
		return "unknown"
	}
}

// ParseParity parses a parity name, ignoring case
func ParseParity(s string) (Parity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return ParityNone, nil
	case "odd":
		return ParityOdd, nil
	case "even":
		return ParityEven, nil
	}
	return ParityNone, fmt.Errorf("invalid parity: %q", s)
}

// Mode selects how logged bytes are rendered
type Mode int

const (
	ModeAscii Mode = iota
	ModeHex
	ModeOctal
	ModeDecimal
)

// String returns the display name of the mode
func (m Mode) String() string {
	switch m {
	case ModeAscii:
		return "Ascii"
	case ModeHex:
		return "Hex"
	case ModeOctal:
		return "Octal"
	case ModeDecimal:
		return "Decimal"
	default:
		return "unknown"
	}
}

// ParseMode parses a display mode name, ignoring case
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ascii":
		return ModeAscii, nil
	case "hex":
		return ModeHex, nil
	case "octal":
		return ModeOctal, nil
	case "decimal":
		return ModeDecimal, nil
	}
	return ModeAscii, fmt.Errorf("invalid mode: %q", s)
}

// PortParameters describes a connection. Fields are nil while a configuration
// form is still being filled in.
type PortParameters struct {
	Name     *string `json:"name,omitempty"`
	BaudRate *uint32 `json:"baud_rate,omitempty"`
	DataBits *uint8  `json:"data_bits,omitempty"`
	StopBits *uint8  `json:"stop_bits,omitempty"`
	Parity   *Parity `json:"parity,omitempty"`
	Mode     *Mode   `json:"mode,omitempty"`
}

// Ptr returns a pointer to v. Handy for building PortParameters literals.
func Ptr[T any](v T) *T {
	return &v
}

// WithName returns a copy of p with the port name set
func (p PortParameters) WithName(name string) PortParameters {
	c := p.Clone()
	c.Name = Ptr(name)
	return c
}

// Clone returns a deep copy, so the bridge never shares pointers with a form
// that is still being edited.
func (p PortParameters) Clone() PortParameters {
	var c PortParameters
	if p.Name != nil {
		c.Name = Ptr(*p.Name)
	}
	if p.BaudRate != nil {
		c.BaudRate = Ptr(*p.BaudRate)
	}
	if p.DataBits != nil {
		c.DataBits = Ptr(*p.DataBits)
	}
	if p.StopBits != nil {
		c.StopBits = Ptr(*p.StopBits)
	}
	if p.Parity != nil {
		c.Parity = Ptr(*p.Parity)
	}
	if p.Mode != nil {
		c.Mode = Ptr(*p.Mode)
	}
	return c
}

// Complete reports whether every field is set
func (p PortParameters) Complete() bool {
	return p.Name != nil && p.BaudRate != nil && p.DataBits != nil &&
		p.StopBits != nil && p.Parity != nil && p.Mode != nil
}

// Validate checks that the parameters are complete and in range
func (p PortParameters) Validate() error {
	if !p.Complete() {
		return ErrIncompleteParameters
	}

	if strings.TrimSpace(*p.Name) == "" {
		return fmt.Errorf("port cannot be empty")
	}

	if *p.BaudRate == 0 {
		return fmt.Errorf("baud rate must be positive")
	}

	if *p.DataBits < 5 || *p.DataBits > 8 {
		return fmt.Errorf("data bits must be between 5 and 8, got: %d", *p.DataBits)
	}

	if *p.StopBits < 1 || *p.StopBits > 2 {
		return fmt.Errorf("stop bits must be 1 or 2, got: %d", *p.StopBits)
	}

	if *p.Parity < ParityNone || *p.Parity > ParityEven {
		return fmt.Errorf("invalid parity: %d", *p.Parity)
	}

	if *p.Mode < ModeAscii || *p.Mode > ModeDecimal {
		return fmt.Errorf("invalid mode: %d", *p.Mode)
	}

	return nil
}

// String renders the parameters in the usual "9600 8-N-1" shorthand
func (p PortParameters) String() string {
	name := "?"
	if p.Name != nil {
		name = *p.Name
	}
	baud := "?"
	if p.BaudRate != nil {
		baud = strconv.FormatUint(uint64(*p.BaudRate), 10)
	}
	data := "?"
	if p.DataBits != nil {
		data = strconv.Itoa(int(*p.DataBits))
	}
	stop := "?"
	if p.StopBits != nil {
		stop = strconv.Itoa(int(*p.StopBits))
	}
	parity := "?"
	if p.Parity != nil {
		parity = p.Parity.String()[:1]
	}
	mode := "?"
	if p.Mode != nil {
		mode = p.Mode.String()
	}

	return fmt.Sprintf("%s %s %s-%s-%s %s", name, baud, data, parity, stop, mode)
}

// Port is the part of an open device the bridge relies on
type Port interface {
	Read(buffer []byte) (int, error)
	Write(data []byte) (int, error)
	Close() error
}

// OpenFunc opens the device described by a handle
type OpenFunc func(h *Handle) (Port, error)

// Handle is a configured connection that has not been opened yet
type Handle struct {
	params  PortParameters
	mode    *serial.Mode
	timeout time.Duration
	open    OpenFunc
}

// NewHandle builds a handle from fully specified parameters. timeout bounds
// each blocking read on the open device.
func NewHandle(params PortParameters, timeout time.Duration) (*Handle, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive")
	}

	params = params.Clone()
	return &Handle{
		params: params,
		mode: &serial.Mode{
			BaudRate: int(*params.BaudRate),
			DataBits: int(*params.DataBits),
			StopBits: convertStopBits(*params.StopBits),
			Parity:   convertParity(*params.Parity),
		},
		timeout: timeout,
		open:    openDevice,
	}, nil
}

// WithOpener replaces the function used to open the device
func (h *Handle) WithOpener(open OpenFunc) *Handle {
	h.open = open
	return h
}

// Name returns the device name
func (h *Handle) Name() string {
	return *h.params.Name
}

// Parameters returns a copy of the parameters the handle was built from
func (h *Handle) Parameters() PortParameters {
	return h.params.Clone()
}

// DriverMode returns the go.bug.st/serial mode derived from the parameters
func (h *Handle) DriverMode() serial.Mode {
	return *h.mode
}

// Timeout returns the read timeout applied after open
func (h *Handle) Timeout() time.Duration {
	return h.timeout
}

// Open opens the device
func (h *Handle) Open() (Port, error) {
	port, err := h.open(h)
	if err != nil {
		return nil, NewSerialError(OpOpen, h.Name(), err)
	}
	return port, nil
}

func openDevice(h *Handle) (Port, error) {
	mode := h.DriverMode()
	port, err := serial.Open(h.Name(), &mode)
	if err != nil {
		return nil, err
	}

	if err := port.SetReadTimeout(h.timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	return port, nil
}

// convertStopBits converts our stop bits format to go.bug.st/serial format
func convertStopBits(stopBits uint8) serial.StopBits {
	switch stopBits {
	case 2:
		return serial.TwoStopBits
	default:
		return serial.OneStopBit
	}
}

// convertParity converts our parity format to go.bug.st/serial format
func convertParity(parity Parity) serial.Parity {
	switch parity {
	case ParityOdd:
		return serial.OddParity
	case ParityEven:
		return serial.EvenParity
	default:
		return serial.NoParity
	}
}

// IsTimeout reports whether err only means the device had nothing to say
// before the I/O timeout expired.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// PortInfo contains information about a serial port
type PortInfo struct {
	Name         string `json:"name"`
	IsUSB        bool   `json:"is_usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	Product      string `json:"product,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
}

// ListPorts returns the names of the serial ports present on the system
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, NewSerialError(OpList, "", err)
	}
	return ports, nil
}

// GetDetailedPortsList returns the ports present on the system along with
// USB details where the platform exposes them.
func GetDetailedPortsList() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, NewSerialError(OpList, "", err)
	}

	infos := make([]PortInfo, 0, len(details))
	for _, d := range details {
		infos = append(infos, PortInfo{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			Product:      d.Product,
			SerialNumber: d.SerialNumber,
		})
	}

	return infos, nil
}

// Operations reported in SerialError
const (
	OpOpen  = "open"
	OpRead  = "read"
	OpWrite = "write"
	OpList  = "list"
)

// SerialError represents a serial port specific error
type SerialError struct {
	Operation string
	Port      string
	Cause     error
}

// Error implements the error interface
func (e *SerialError) Error() string {
	if e.Port == "" {
		return fmt.Sprintf("serial %s failed: %v", e.Operation, e.Cause)
	}
	if e.Cause != nil {
		return fmt.Sprintf("serial %s operation failed on port %s: %v", e.Operation, e.Port, e.Cause)
	}
	return fmt.Sprintf("serial %s operation failed on port %s", e.Operation, e.Port)
}

// Unwrap returns the underlying cause
func (e *SerialError) Unwrap() error {
	return e.Cause
}

// NewSerialError creates a new serial error
func NewSerialError(operation, port string, cause error) *SerialError {
	return &SerialError{
		Operation: operation,
		Port:      port,
		Cause:     cause,
	}
}

// IsOpenError reports whether err is a failure to open a device
func IsOpenError(err error) bool {
	var se *SerialError
	return errors.As(err, &se) && se.Operation == OpOpen
}
