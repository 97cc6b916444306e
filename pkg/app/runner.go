package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog/log"

	"nolp/pkg/config"
	"nolp/pkg/logging"
	"nolp/pkg/ui"
)

// ScreenFactory creates an uninitialized screen
type ScreenFactory func() (tcell.Screen, error)

// Runner provides a high-level interface to run the terminal application
type Runner struct {
	settings  config.Settings
	newScreen ScreenFactory
	scene     *Scene
	out       io.Writer
}

// NewRunner creates a new application runner
func NewRunner(settings config.Settings) *Runner {
	return &Runner{
		settings:  settings,
		newScreen: tcell.NewScreen,
		scene:     NewScene(settings, NewSession()),
		out:       os.Stdout,
	}
}

// WithScreen replaces the screen factory
func (r *Runner) WithScreen(f ScreenFactory) *Runner {
	r.newScreen = f
	return r
}

// WithOutput replaces where the session summary is printed
func (r *Runner) WithOutput(w io.Writer) *Runner {
	r.out = w
	return r
}

// Scene returns the scene the runner drives
func (r *Runner) Scene() *Scene {
	return r.scene
}

// Run starts the application on initial and blocks until it stops. SIGINT
// and SIGTERM end it like Quit.
func (r *Runner) Run(ctx context.Context, initial ui.State) error {
	closer, err := logging.Configure(r.settings.LogFile, r.settings.LogLevel)
	if err != nil {
		return ui.NewAppError(ui.ErrorConfig, "logging", "failed to configure logging", err)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	screen, err := r.newScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize screen: %w", err)
	}

	screen.SetStyle(ui.StyleDefault)
	screen.HideCursor()
	screen.Clear()

	app := NewApplication(screen, r.scene, r.settings)
	runErr := app.Run(ctx, initial)
	screen.Fini()

	if runErr != nil {
		log.Error().Err(runErr).Bool("fatal", ui.IsFatal(runErr)).Msg("application failed")
	}
	session := r.scene.Session()
	log.Info().
		Str("session", session.ID).
		Dur("duration", session.Duration()).
		Int("connections", session.Connections).
		Msg("session ended")

	fmt.Fprint(r.out, "\n"+session.Summary())
	return runErr
}
