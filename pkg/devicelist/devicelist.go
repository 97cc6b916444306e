// Package devicelist implements the screen listing the serial ports present
// on the system.
package devicelist

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"nolp/pkg/serial"
	"nolp/pkg/ui"
)

// DefaultRefresh is how often the list is enumerated again while shown
const DefaultRefresh = time.Second

const (
	marginTop = 2
	noDevices = "No devices available"
)

// Lister enumerates the available ports
type Lister func() ([]serial.PortInfo, error)

// DeviceList is the DeviceList screen model
type DeviceList struct {
	list     Lister
	refresh  time.Duration
	now      func() time.Time
	devices  []serial.PortInfo
	loaded   time.Time
	selected int
	offset   int
	state    ui.State
}

// New creates an empty list. Devices are enumerated on the first view.
func New(list Lister, refresh time.Duration) *DeviceList {
	if refresh <= 0 {
		refresh = DefaultRefresh
	}
	return &DeviceList{
		list:    list,
		refresh: refresh,
		now:     time.Now,
	}
}

// State returns the current state
func (d *DeviceList) State() ui.State {
	return d.state
}

// Selected returns the index of the selected device
func (d *DeviceList) Selected() int {
	return d.selected
}

// Devices returns the last enumerated devices
func (d *DeviceList) Devices() []serial.PortInfo {
	return append([]serial.PortInfo(nil), d.devices...)
}

// Update implements ui.Model
func (d *DeviceList) Update(msg ui.Message) ui.State {
	switch msg.(type) {
	case ui.NextElement:
		d.moveSelection(1)
	case ui.PreviousElement:
		d.moveSelection(-1)
	case ui.Enter:
		d.choose()
	}
	return d.state
}

// Tick enumerates the devices again once the refresh period has passed
func (d *DeviceList) Tick() ui.State {
	if !d.loaded.IsZero() && d.now().Sub(d.loaded) >= d.refresh {
		d.load()
	}
	return d.state
}

// View implements ui.Model
func (d *DeviceList) View(s *ui.Surface) {
	if d.loaded.IsZero() {
		d.load()
	}

	area := s.Sub(ui.CenterRect(s.Local(), 50, 50))
	area.Centered(0, "Device List", ui.StyleDefault.Bold(true))
	body := area.Sub(ui.Rect{Y: 1 + marginTop, W: area.Width(), H: area.Height() - 1 - marginTop})

	if len(d.devices) == 0 {
		body.Centered(0, noDevices, ui.StyleInvalid)
		return
	}

	d.scrollToSelection(body.Height())
	for i := d.offset; i < len(d.devices) && i-d.offset < body.Height(); i++ {
		style := ui.StyleDefault
		if i == d.selected {
			style = ui.StyleSelected
		}
		body.Centered(i-d.offset, label(d.devices[i]), style)
	}
}

func label(p serial.PortInfo) string {
	if p.IsUSB && p.Product != "" {
		return fmt.Sprintf("%s (%s)", p.Name, p.Product)
	}
	return p.Name
}

func (d *DeviceList) load() {
	d.loaded = d.now()

	devices, err := d.list()
	if err != nil {
		log.Warn().Err(err).Msg("device enumeration failed")
		d.devices = nil
		d.selected = 0
		d.state = ui.Failed(fmt.Sprintf("Failed to list devices: %v", err))
		return
	}

	var current string
	if d.selected < len(d.devices) {
		current = d.devices[d.selected].Name
	}

	d.devices = devices
	d.selected = 0
	for i, p := range devices {
		if p.Name == current {
			d.selected = i
			break
		}
	}
	if d.state.Is(ui.StateError) {
		d.state = ui.Running()
	}
}

// moveSelection moves the selection forward or backward, wrapping around
func (d *DeviceList) moveSelection(direction int) {
	if len(d.devices) == 0 {
		return
	}
	d.selected = ui.Cycle(d.selected, direction, len(d.devices))
}

func (d *DeviceList) scrollToSelection(height int) {
	if height <= 0 {
		return
	}
	if d.selected < d.offset {
		d.offset = d.selected
	} else if d.selected >= d.offset+height {
		d.offset = d.selected - height + 1
	}
}

func (d *DeviceList) choose() {
	if len(d.devices) == 0 {
		d.state = ui.ToMenu(nil)
		return
	}

	params := serial.PortParameters{}.WithName(d.devices[d.selected].Name)
	d.state = ui.ToMenu(&params)
}
