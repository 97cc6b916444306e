// Package history keeps the bytes exchanged with a device and renders them
// in one of the display modes.
package history

import (
	"fmt"

	"nolp/pkg/serial"
)

// Direction represents the direction of data flow
type Direction int

const (
	// DirectionInput marks bytes typed by the user
	DirectionInput Direction = iota
	// DirectionOutput marks bytes produced by the device
	DirectionOutput
)

// String returns the string representation of Direction
func (d Direction) String() string {
	switch d {
	case DirectionInput:
		return "input"
	case DirectionOutput:
		return "output"
	default:
		return "unknown"
	}
}

// DataByte is one logged byte with its provenance
type DataByte struct {
	Value     byte
	Direction Direction
}

// Stats counts every byte ever appended, including bytes later cleared
type Stats struct {
	InputBytes  int `json:"input_bytes"`
	OutputBytes int `json:"output_bytes"`
	Clears      int `json:"clears"`
}

// Log is the ordered display buffer of the Terminal screen. It is owned by
// the UI goroutine and is not safe for concurrent use.
type Log struct {
	entries []DataByte
	stats   Stats
}

// NewLog creates an empty log
func NewLog() *Log {
	return &Log{}
}

// Append adds data tagged with direction
func (l *Log) Append(data []byte, direction Direction) {
	for _, b := range data {
		l.entries = append(l.entries, DataByte{Value: b, Direction: direction})
	}

	switch direction {
	case DirectionInput:
		l.stats.InputBytes += len(data)
	case DirectionOutput:
		l.stats.OutputBytes += len(data)
	}
}

// Clear drops every logged byte. Statistics are kept.
func (l *Log) Clear() {
	if len(l.entries) > 0 {
		l.stats.Clears++
	}
	l.entries = nil
}

// Len returns the number of logged bytes
func (l *Log) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the logged bytes
func (l *Log) Entries() []DataByte {
	out := make([]DataByte, len(l.entries))
	copy(out, l.entries)
	return out
}

// Stats returns the running byte counters
func (l *Log) Stats() Stats {
	return l.stats
}

// Rows splits the log into display rows of at most width cells
func (l *Log) Rows(mode serial.Mode, width int) [][]DataByte {
	perRow := BytesPerRow(mode, width)

	var rows [][]DataByte
	for start := 0; start < len(l.entries); start += perRow {
		end := start + perRow
		if end > len(l.entries) {
			end = len(l.entries)
		}
		rows = append(rows, l.entries[start:end])
	}
	return rows
}

// WouldOverflow reports whether appending extra bytes would need more than
// height rows of width cells.
func (l *Log) WouldOverflow(extra int, mode serial.Mode, width, height int) bool {
	if height <= 0 {
		return true
	}
	return RowCount(len(l.entries)+extra, mode, width) > height
}

// CellWidth returns the number of cells one encoded byte occupies
func CellWidth(mode serial.Mode) int {
	switch mode {
	case serial.ModeHex:
		return 3
	case serial.ModeDecimal, serial.ModeOctal:
		return 4
	default:
		return 2
	}
}

// BytesPerRow returns how many encoded bytes fit in width cells. At least
// one byte is placed on every row.
func BytesPerRow(mode serial.Mode, width int) int {
	n := width / CellWidth(mode)
	if n < 1 {
		return 1
	}
	return n
}

// RowCount returns the number of rows n bytes occupy
func RowCount(n int, mode serial.Mode, width int) int {
	perRow := BytesPerRow(mode, width)
	return (n + perRow - 1) / perRow
}

// Encode renders one byte in the given mode. The result is always
// CellWidth(mode) cells wide.
func Encode(b byte, mode serial.Mode) string {
	switch mode {
	case serial.ModeHex:
		return fmt.Sprintf("%02X ", b)
	case serial.ModeDecimal:
		return fmt.Sprintf("%3d ", b)
	case serial.ModeOctal:
		return fmt.Sprintf("%03o ", b)
	default:
		if b < 0x20 || b > 0x7e {
			return ". "
		}
		return string(rune(b)) + " "
	}
}

// EncodeAll renders a sequence of bytes in the given mode
func EncodeAll(data []DataByte, mode serial.Mode) string {
	buf := make([]byte, 0, len(data)*CellWidth(mode))
	for _, d := range data {
		buf = append(buf, Encode(d.Value, mode)...)
	}
	return string(buf)
}
