package app

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"nolp/pkg/config"
	"nolp/pkg/devicelist"
	"nolp/pkg/help"
	"nolp/pkg/menu"
	"nolp/pkg/serial"
	"nolp/pkg/terminal"
	"nolp/pkg/ui"
)

// Scene holds the active screen model and, while the Terminal is shown, the
// bridge serving it. Exactly one model is active once Switch has succeeded.
type Scene struct {
	settings config.Settings
	lister   devicelist.Lister
	opener   serial.OpenFunc
	session  *Session

	screen ui.Screen
	model  ui.Model
	bridge *serial.Bridge
	term   *terminal.Terminal
}

// NewScene creates an empty scene. Switch must be called before use.
func NewScene(settings config.Settings, session *Session) *Scene {
	if session == nil {
		session = NewSession()
	}
	return &Scene{
		settings: settings,
		lister:   serial.GetDetailedPortsList,
		session:  session,
	}
}

// WithLister replaces the device enumeration used by the DeviceList
func (s *Scene) WithLister(list devicelist.Lister) *Scene {
	s.lister = list
	return s
}

// WithOpener replaces the device driver used by the Terminal
func (s *Scene) WithOpener(open serial.OpenFunc) *Scene {
	s.opener = open
	return s
}

// Screen returns the active screen
func (s *Scene) Screen() ui.Screen {
	return s.screen
}

// Model returns the active model
func (s *Scene) Model() ui.Model {
	return s.model
}

// Session returns the statistics of the run
func (s *Scene) Session() *Session {
	return s.session
}

// State returns the state of the active model
func (s *Scene) State() ui.State {
	if s.model == nil {
		return ui.Running()
	}
	return s.model.State()
}

// Update hands msg to the active model and performs any switch it asks for.
// Quit is not handled here.
func (s *Scene) Update(msg ui.Message) (ui.State, error) {
	if sw, ok := msg.(ui.Switching); ok {
		return s.follow(s.resolve(sw.To))
	}
	return s.follow(s.model.Update(msg))
}

// Tick drives the periodic work of the active model
func (s *Scene) Tick() (ui.State, error) {
	t, ok := s.model.(ui.Ticker)
	if !ok {
		return s.model.State(), nil
	}
	return s.follow(t.Tick())
}

// View draws the active model
func (s *Scene) View(surface *ui.Surface) {
	if s.model != nil {
		s.model.View(surface)
	}
}

// Status returns the line shown under the active model, and whether it is an
// error.
func (s *Scene) Status() (string, bool) {
	if st := s.State(); st.Is(ui.StateError) {
		return st.Message(), true
	}
	if r, ok := s.model.(ui.StatusReporter); ok && r.Status() != "" {
		return r.Status(), true
	}
	return "", false
}

func (s *Scene) follow(st ui.State) (ui.State, error) {
	if !st.Is(ui.StateSwitching) {
		return st, nil
	}
	if err := s.Switch(st); err != nil {
		return ui.Running(), err
	}
	return s.model.State(), nil
}

// resolve fills in what a key binding cannot know: Help needs the caller's
// parameters so Enter can return to it.
func (s *Scene) resolve(to ui.State) ui.State {
	if to.Target() != ui.ScreenHelp || to.Params() != nil {
		return to
	}
	if p, ok := s.model.(ui.Parameterized); ok {
		return ui.ToHelp(p.Parameters())
	}
	return to
}

// backState is the switch that returns from Help to the current screen
func (s *Scene) backState(params *serial.PortParameters) ui.State {
	switch s.screen {
	case ui.ScreenDeviceList:
		return ui.ToDeviceList()
	case ui.ScreenHelp:
		if h, ok := s.model.(*help.Help); ok {
			return h.Back()
		}
	case ui.ScreenTerminal:
		if s.term != nil {
			return ui.ToTerminal(*s.term.Parameters())
		}
	}
	return ui.ToMenu(params)
}

// Switch tears down the active model and builds the one st points at.
// Failing to stop the bridge is fatal and leaves the scene unchanged.
func (s *Scene) Switch(st ui.State) error {
	if !st.Is(ui.StateSwitching) {
		return fmt.Errorf("cannot switch on state %s", st)
	}

	var back ui.State
	if st.Target() == ui.ScreenHelp {
		back = s.backState(st.Params())
	}

	if err := s.teardown(); err != nil {
		return err
	}

	from := s.screen
	switch st.Target() {
	case ui.ScreenMenu:
		params := s.settings.Prefill
		if p := st.Params(); p != nil {
			params = *p
		}
		s.model = menu.NewWithParameters(params)
	case ui.ScreenDeviceList:
		s.model = devicelist.New(s.lister, devicelist.DefaultRefresh)
	case ui.ScreenHelp:
		s.model = help.New(back)
	case ui.ScreenTerminal:
		s.model = s.connect(*st.Params())
	default:
		return fmt.Errorf("unknown screen %d", st.Target())
	}
	s.screen = st.Target()

	log.Info().Str("from", from.String()).Str("to", s.screen.String()).Msg("screen switched")
	return nil
}

// connect starts a bridge for params. A handle that cannot be built is
// reported through the link like a failed open.
func (s *Scene) connect(params serial.PortParameters) *terminal.Terminal {
	link := serial.NewLink()
	s.term = terminal.New(params, link, terminal.Config{
		InputLimit: s.settings.InputLimit,
		LineEnding: s.settings.LineEndingBytes(),
	})

	name := ""
	if params.Name != nil {
		name = *params.Name
	}
	s.session.Connected(name)

	h, err := serial.NewHandle(params, s.settings.IOTimeout)
	if err != nil {
		log.Error().Err(err).Str("port", name).Msg("invalid connection parameters")
		link.Err.TrySet(serial.NewSerialError(serial.OpOpen, name, err))
		link.Flag.Lower()
		return s.term
	}
	if s.opener != nil {
		h = h.WithOpener(s.opener)
	}

	s.bridge = serial.StartBridge(h, link, s.settings.BridgeInterval)
	log.Info().Str("port", name).Str("params", params.String()).Msg("connection started")
	return s.term
}

// teardown stops the bridge of a Terminal before it is dropped
func (s *Scene) teardown() error {
	if s.term == nil {
		return nil
	}

	if s.bridge != nil {
		name := s.bridge.Name()
		s.term.Link().Flag.Lower()
		if err := s.bridge.Join(s.settings.ShutdownTimeout); err != nil {
			log.Error().Err(err).Str("port", name).Dur("timeout", s.settings.ShutdownTimeout).Msg("bridge did not stop")
			return ui.NewAppError(ui.ErrorShutdown, "bridge_join", fmt.Sprintf("failed to release %s", name), err)
		}
	}

	stats := s.term.Stats()
	s.session.UpdateStats(int64(stats.Sent), int64(stats.Received))
	s.session.RecordClears(stats.Clears)

	s.bridge = nil
	s.term = nil
	return nil
}

// Close releases the device held by the active Terminal, if any
func (s *Scene) Close() error {
	return s.teardown()
}
