// Package app provides the main application controller
package app

import (
	"context"
	"errors"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog/log"

	"nolp/pkg/config"
	"nolp/pkg/event"
	"nolp/pkg/ui"
)

// Title is shown on the outer frame
const Title = " NOLP "

// HelpLine is the status line while nothing needs reporting
const HelpLine = " Help (ctrl+h) | Quit (ctrl+q) "

// Application runs the event loop over a Scene on a tcell screen. The
// screen is initialized and finalized by the caller.
type Application struct {
	screen   tcell.Screen
	scene    *Scene
	settings config.Settings
	frames   int
}

// NewApplication creates a new application instance
func NewApplication(screen tcell.Screen, scene *Scene, settings config.Settings) *Application {
	return &Application{
		screen:   screen,
		scene:    scene,
		settings: settings,
	}
}

// Scene returns the scene driven by the application
func (app *Application) Scene() *Scene {
	return app.scene
}

// Frames returns the number of frames drawn so far
func (app *Application) Frames() int {
	return app.frames
}

// Run switches to initial and processes events until Quit, a Stopping state,
// ctx cancellation or a fatal error. The device is always released before
// Run returns.
func (app *Application) Run(ctx context.Context, initial ui.State) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	source, err := event.NewSource(app.screen, app.settings.TickInterval, app.settings.RenderInterval)
	if err != nil {
		return ui.NewAppError(ui.ErrorConfig, "event_source", "invalid event cadence", err)
	}

	if err := app.scene.Switch(initial); err != nil {
		return err
	}
	defer func() {
		if cerr := app.scene.Close(); cerr != nil && err == nil {
			err = cerr
		}
		app.scene.Session().End()
	}()

	go source.Run(ctx)
	log.Info().Str("session", app.scene.Session().ID).Str("screen", app.scene.Screen().String()).Msg("application started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("application cancelled")
			return nil
		case ev, ok := <-source.Events():
			if !ok {
				return nil
			}
			stop, err := app.handle(ev)
			if err != nil {
				return err
			}
			if stop {
				log.Info().Msg("application stopping")
				return nil
			}
		}
	}
}

func (app *Application) handle(ev event.Event) (bool, error) {
	switch ev.Kind {
	case event.KindTick:
		st, err := app.scene.Tick()
		return st.Is(ui.StateStopping), err
	case event.KindRender:
		app.Draw()
	case event.KindResize:
		app.screen.Sync()
	case event.KindUser:
		msg, ok := Translate(ev.Key)
		if !ok {
			return false, nil
		}
		if _, quit := msg.(ui.Quit); quit {
			return true, nil
		}
		st, err := app.scene.Update(msg)
		return st.Is(ui.StateStopping), err
	case event.KindError:
		log.Error().Err(ev.Err).Msg("input failed")
		cause := ev.Err
		if cause == nil {
			cause = errors.New("unknown input failure")
		}
		return true, ui.NewAppError(ui.ErrorInput, "input", "terminal input failed", cause)
	}
	return false, nil
}

// Draw renders the frame, the active model and the status line
func (app *Application) Draw() {
	root := ui.NewSurface(app.screen)
	root.Fill(' ', ui.StyleDefault)

	inner := root.Box(root.Local(), Title, ui.AlignCenter, ui.StyleDefault)
	if body := inner.Sub(ui.Rect{W: inner.Width(), H: inner.Height() - 1}); !body.Area().Empty() {
		app.scene.View(body)
	}

	status, failed := app.scene.Status()
	style := ui.StylePlaceholder
	if failed {
		style = ui.StyleInvalid
	} else {
		status = HelpLine
	}
	inner.Centered(inner.Height()-1, status, style)

	app.screen.Show()
	app.frames++
}
