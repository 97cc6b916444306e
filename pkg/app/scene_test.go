package app

import (
	"errors"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nolp/pkg/devicelist"
	"nolp/pkg/help"
	"nolp/pkg/menu"
	"nolp/pkg/serial"
	"nolp/pkg/terminal"
	"nolp/pkg/ui"
)

func simSurface(t *testing.T) *ui.Surface {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, s.Init())
	s.SetSize(80, 24)
	t.Cleanup(s.Fini)
	return ui.NewSurface(s)
}

func update(t *testing.T, s *Scene, msgs ...ui.Message) ui.State {
	t.Helper()
	var st ui.State
	for _, msg := range msgs {
		var err error
		st, err = s.Update(msg)
		require.NoError(t, err)
	}
	return st
}

func TestScene_SwitchRejectsNonSwitchingState(t *testing.T) {
	s := newTestScene(t, &fakePort{}, nil)
	assert.Error(t, s.Switch(ui.Running()))
	assert.Nil(t, s.Model())
}

func TestScene_MenuUsesPrefillWhenNoParams(t *testing.T) {
	settings := testSettings()
	settings.Prefill = serial.PortParameters{}.WithName("/dev/ttyUSB0")
	s := NewScene(settings, nil)

	require.NoError(t, s.Switch(ui.ToMenu(nil)))
	m, ok := s.Model().(*menu.Menu)
	require.True(t, ok)
	assert.Equal(t, "/dev/ttyUSB0", m.Field(menu.FieldPort).Value)

	params := serial.PortParameters{}.WithName("COM9")
	require.NoError(t, s.Switch(ui.ToMenu(&params)))
	m = s.Model().(*menu.Menu)
	assert.Equal(t, "COM9", m.Field(menu.FieldPort).Value)
}

func TestScene_MenuStartOpensTerminal(t *testing.T) {
	port := &fakePort{}
	s := newTestScene(t, port, nil)
	s.settings.Prefill = completeParams()
	require.NoError(t, s.Switch(ui.ToMenu(nil)))

	st := update(t, s, ui.PreviousElement{}, ui.Enter{})

	assert.Equal(t, ui.ScreenTerminal, s.Screen())
	assert.True(t, st.Is(ui.StateRunning))
	term, ok := s.Model().(*terminal.Terminal)
	require.True(t, ok)
	assert.Equal(t, completeParams().String(), term.Parameters().String())
	assert.Equal(t, 1, s.Session().Connections)
}

func TestScene_MenuCancelStops(t *testing.T) {
	s := newTestScene(t, &fakePort{}, nil)
	require.NoError(t, s.Switch(ui.ToMenu(nil)))

	st := update(t, s, ui.PreviousElement{}, ui.PreviousElement{}, ui.Enter{})
	assert.True(t, st.Is(ui.StateStopping))
	assert.Equal(t, ui.ScreenMenu, s.Screen())
}

func TestScene_DeviceListChoosesPort(t *testing.T) {
	s := newTestScene(t, &fakePort{}, nil)
	require.NoError(t, s.Switch(ui.ToDeviceList()))
	require.IsType(t, &devicelist.DeviceList{}, s.Model())

	s.View(simSurface(t))
	update(t, s, ui.NextElement{}, ui.Enter{})

	require.Equal(t, ui.ScreenMenu, s.Screen())
	assert.Equal(t, "COM4", s.Model().(*menu.Menu).Field(menu.FieldPort).Value)
}

func TestScene_HelpReturnsToCaller(t *testing.T) {
	tests := []struct {
		name  string
		start ui.State
		want  ui.Screen
	}{
		{"menu", ui.ToMenu(nil), ui.ScreenMenu},
		{"device list", ui.ToDeviceList(), ui.ScreenDeviceList},
		{"terminal", ui.ToTerminal(completeParams()), ui.ScreenTerminal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScene(t, &fakePort{}, nil)
			require.NoError(t, s.Switch(tt.start))

			update(t, s, ui.Switching{To: ui.ToHelp(nil)})
			require.Equal(t, ui.ScreenHelp, s.Screen())

			update(t, s, ui.Enter{})
			assert.Equal(t, tt.want, s.Screen())
		})
	}
}

func TestScene_HelpKeepsMenuParameters(t *testing.T) {
	s := newTestScene(t, &fakePort{}, nil)
	require.NoError(t, s.Switch(ui.ToMenu(nil)))
	update(t, s, ui.Input{Char: 'C'}, ui.Input{Char: 'O'}, ui.Input{Char: 'M'}, ui.Input{Char: '7'})

	update(t, s, ui.Switching{To: ui.ToHelp(nil)})
	h, ok := s.Model().(*help.Help)
	require.True(t, ok)
	assert.Equal(t, ui.ScreenMenu, h.Back().Target())

	update(t, s, ui.Enter{})
	assert.Equal(t, "COM7", s.Model().(*menu.Menu).Field(menu.FieldPort).Value)
}

func TestScene_HelpFromHelpKeepsOriginalCaller(t *testing.T) {
	s := newTestScene(t, &fakePort{}, nil)
	require.NoError(t, s.Switch(ui.ToDeviceList()))

	update(t, s, ui.Switching{To: ui.ToHelp(nil)}, ui.Switching{To: ui.ToHelp(nil)}, ui.Enter{})
	assert.Equal(t, ui.ScreenDeviceList, s.Screen())
}

func TestScene_LeavingTerminalReleasesDevice(t *testing.T) {
	port := &fakePort{}
	s := newTestScene(t, port, nil)
	require.NoError(t, s.Switch(ui.ToTerminal(completeParams())))
	link := s.Model().(*terminal.Terminal).Link()

	update(t, s, ui.Input{Char: 'h'}, ui.Input{Char: 'i'}, ui.Enter{})
	require.Eventually(t, func() bool { return port.sent() == "hi" }, waitFor, pollEvery)
	update(t, s, ui.Pause{})

	update(t, s, ui.Switching{To: ui.ToMenu(nil)})

	assert.False(t, link.Flag.Raised())
	assert.Equal(t, 1, port.closeCount())
	sent, _ := s.Session().GetStats()
	assert.Equal(t, int64(2), sent)
	assert.Equal(t, 1, s.Session().LogClears)
}

func TestScene_OpenFailureBecomesError(t *testing.T) {
	s := newTestScene(t, nil, errors.New("no such device"))
	require.NoError(t, s.Switch(ui.ToTerminal(completeParams())))

	var st ui.State
	require.Eventually(t, func() bool {
		var err error
		st, err = s.Tick()
		return err == nil && st.Is(ui.StateError)
	}, waitFor, pollEvery)

	assert.Equal(t, "Failed to open port COM4", st.Message())
	msg, failed := s.Status()
	assert.True(t, failed)
	assert.Equal(t, "Failed to open port COM4", msg)
}

func TestScene_IncompleteTerminalParametersFailLikeOpen(t *testing.T) {
	p := completeParams()
	p.DataBits = nil
	s := newTestScene(t, &fakePort{}, nil)

	require.NoError(t, s.Switch(ui.ToTerminal(p)))
	st, err := s.Tick()
	require.NoError(t, err)
	assert.True(t, st.Is(ui.StateError))
}

func TestScene_TerminalWithoutPortNameFails(t *testing.T) {
	s := newTestScene(t, &fakePort{}, nil)

	require.NoError(t, s.Switch(ui.ToTerminal(serial.PortParameters{BaudRate: serial.Ptr(uint32(9600))})))

	var (
		st  ui.State
		err error
	)
	require.NotPanics(t, func() { st, err = s.Tick() })
	require.NoError(t, err)
	assert.True(t, st.Is(ui.StateError))
	assert.Equal(t, "Failed to open port ?", st.Message())

	screen := newSimScreen(t)
	require.NotPanics(t, func() { s.View(ui.NewSurface(screen)) })
}

func TestScene_JoinTimeoutIsFatal(t *testing.T) {
	port := &fakePort{block: make(chan struct{})}
	opened := make(chan struct{})
	s := NewScene(testSettings(), nil).WithOpener(func(*serial.Handle) (serial.Port, error) {
		close(opened)
		return port, nil
	})
	s.settings.ShutdownTimeout = 20 * time.Millisecond
	defer close(port.block)

	require.NoError(t, s.Switch(ui.ToTerminal(completeParams())))
	<-opened
	time.Sleep(10 * time.Millisecond)

	_, err := s.Update(ui.Switching{To: ui.ToMenu(nil)})
	require.Error(t, err)
	assert.True(t, ui.IsFatal(err))
	assert.ErrorIs(t, err, serial.ErrJoinTimeout)
	assert.Equal(t, ui.ScreenTerminal, s.Screen())
}

func TestScene_TickWithoutTicker(t *testing.T) {
	s := newTestScene(t, &fakePort{}, nil)
	require.NoError(t, s.Switch(ui.ToMenu(nil)))

	st, err := s.Tick()
	require.NoError(t, err)
	assert.True(t, st.Is(ui.StateRunning))
	_, failed := s.Status()
	assert.False(t, failed)
}
