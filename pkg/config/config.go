// Package config provides the runtime settings of the application. Settings
// come from defaults, NOLP_* environment variables and command-line flags,
// in increasing order of precedence. Nothing is ever written back.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"nolp/pkg/serial"
)

// Settings contains every tunable of the application
type Settings struct {
	TickInterval    time.Duration `json:"tick_interval"`
	RenderInterval  time.Duration `json:"render_interval"`
	BridgeInterval  time.Duration `json:"bridge_interval"`
	IOTimeout       time.Duration `json:"io_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	InputLimit      int           `json:"input_limit"`
	LineEnding      string        `json:"line_ending"`
	LogFile         string        `json:"log_file,omitempty"`
	LogLevel        string        `json:"log_level"`
	Verbose         bool          `json:"verbose"`

	// Prefill seeds the first Menu
	Prefill serial.PortParameters `json:"prefill"`
}

// Line endings appended to submitted Terminal lines
var lineEndings = map[string]string{
	"none": "",
	"cr":   "\r",
	"lf":   "\n",
	"crlf": "\r\n",
}

var logLevels = []string{"trace", "debug", "info", "warn", "error", "disabled"}

// Default returns the default settings
func Default() Settings {
	return Settings{
		TickInterval:    200 * time.Millisecond,
		RenderInterval:  16 * time.Millisecond,
		BridgeInterval:  serial.DefaultBridgeInterval,
		IOTimeout:       100 * time.Millisecond,
		ShutdownTimeout: 2 * time.Second,
		InputLimit:      64,
		LineEnding:      "none",
		LogLevel:        "info",
	}
}

// Validate checks if the settings are usable
func (s Settings) Validate() error {
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"tick interval", s.TickInterval},
		{"render interval", s.RenderInterval},
		{"bridge interval", s.BridgeInterval},
		{"I/O timeout", s.IOTimeout},
		{"shutdown timeout", s.ShutdownTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got: %v", d.name, d.value)
		}
	}

	if s.TickInterval < 50*time.Millisecond || s.TickInterval > time.Second {
		return fmt.Errorf("tick interval must be between 50ms and 1s, got: %v", s.TickInterval)
	}

	if s.InputLimit <= 0 {
		return fmt.Errorf("input limit must be positive, got: %d", s.InputLimit)
	}

	if _, ok := lineEndings[strings.ToLower(s.LineEnding)]; !ok {
		return fmt.Errorf("invalid line ending: %s (must be none, cr, lf or crlf)", s.LineEnding)
	}

	validLogLevel := false
	for _, level := range logLevels {
		if strings.ToLower(s.LogLevel) == level {
			validLogLevel = true
			break
		}
	}
	if !validLogLevel {
		return fmt.Errorf("invalid log level: %s", s.LogLevel)
	}

	return nil
}

// LineEndingBytes returns the bytes appended to a submitted line
func (s Settings) LineEndingBytes() []byte {
	return []byte(lineEndings[strings.ToLower(s.LineEnding)])
}

// Environment variables
const (
	EnvTick            = "NOLP_TICK"
	EnvRender          = "NOLP_RENDER"
	EnvCycle           = "NOLP_CYCLE"
	EnvIOTimeout       = "NOLP_IO_TIMEOUT"
	EnvShutdownTimeout = "NOLP_SHUTDOWN_TIMEOUT"
	EnvInputLimit      = "NOLP_INPUT_LIMIT"
	EnvLineEnding      = "NOLP_LINE_ENDING"
	EnvLogFile         = "NOLP_LOG_FILE"
	EnvLogLevel        = "NOLP_LOG_LEVEL"
	EnvPort            = "NOLP_PORT"
	EnvBaud            = "NOLP_BAUD"
)

// ApplyEnv overrides settings from NOLP_* variables in environ
func (s *Settings) ApplyEnv(environ []string) error {
	env := parseEnv(environ)

	var err error
	durations := []struct {
		key    string
		target *time.Duration
	}{
		{EnvTick, &s.TickInterval},
		{EnvRender, &s.RenderInterval},
		{EnvCycle, &s.BridgeInterval},
		{EnvIOTimeout, &s.IOTimeout},
		{EnvShutdownTimeout, &s.ShutdownTimeout},
	}
	for _, d := range durations {
		if *d.target, err = envOrDuration(env, d.key, *d.target); err != nil {
			return err
		}
	}

	if s.InputLimit, err = envOrInt(env, EnvInputLimit, s.InputLimit); err != nil {
		return err
	}

	s.LineEnding = envOrDefault(env, EnvLineEnding, s.LineEnding)
	s.LogFile = envOrDefault(env, EnvLogFile, s.LogFile)
	s.LogLevel = envOrDefault(env, EnvLogLevel, s.LogLevel)

	if port := envOrDefault(env, EnvPort, ""); port != "" {
		s.Prefill.Name = serial.Ptr(port)
	}
	if v, ok := env[EnvBaud]; ok && strings.TrimSpace(v) != "" {
		baud, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("%s: invalid baud rate %q", EnvBaud, v)
		}
		s.Prefill.BaudRate = serial.Ptr(uint32(baud))
	}

	return nil
}

func parseEnv(environ []string) map[string]string {
	values := make(map[string]string, len(environ))
	for _, entry := range environ {
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		values[parts[0]] = parts[1]
	}
	return values
}

func envOrDefault(env map[string]string, key, fallback string) string {
	if v, ok := env[key]; ok {
		return v
	}
	return fallback
}

func envOrInt(env map[string]string, key string, fallback int) (int, error) {
	v, ok := env[key]
	if !ok || strings.TrimSpace(v) == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: invalid number %q", key, v)
	}
	return parsed, nil
}

func envOrDuration(env map[string]string, key string, fallback time.Duration) (time.Duration, error) {
	v, ok := env[key]
	if !ok || strings.TrimSpace(v) == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return parsed, nil
}

// Flag names
const (
	FlagTick            = "tick"
	FlagRender          = "render"
	FlagCycle           = "cycle"
	FlagIOTimeout       = "io-timeout"
	FlagShutdownTimeout = "shutdown-timeout"
	FlagInputLimit      = "input-limit"
	FlagLineEnding      = "line-ending"
	FlagLogFile         = "log-file"
	FlagLogLevel        = "log-level"
	FlagVerbose         = "verbose"

	FlagPort   = "port"
	FlagBaud   = "baud"
	FlagData   = "data"
	FlagStop   = "stop"
	FlagParity = "parity"
	FlagMode   = "mode"
)

// RegisterFlags adds the runtime flags to fs
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.Duration(FlagTick, d.TickInterval, "interval of periodic work such as draining received bytes")
	fs.Duration(FlagRender, d.RenderInterval, "interval between two frames")
	fs.Duration(FlagCycle, d.BridgeInterval, "pause between two serial bridge cycles")
	fs.Duration(FlagIOTimeout, d.IOTimeout, "read timeout of the serial device")
	fs.Duration(FlagShutdownTimeout, d.ShutdownTimeout, "how long to wait for the serial bridge to stop")
	fs.Int(FlagInputLimit, d.InputLimit, "maximum length of a terminal input line")
	fs.String(FlagLineEnding, d.LineEnding, "line ending appended to sent lines (none, cr, lf, crlf)")
	fs.String(FlagLogFile, d.LogFile, "write logs to this file (disabled when empty)")
	fs.String(FlagLogLevel, d.LogLevel, "log level (trace, debug, info, warn, error, disabled)")
	fs.BoolP(FlagVerbose, "v", false, "log at debug level")
}

// RegisterPortFlags adds the connection parameter flags to fs. When withPort
// is false the port name is expected as a positional argument instead.
func RegisterPortFlags(fs *pflag.FlagSet, withPort bool) {
	if withPort {
		fs.StringP(FlagPort, "p", "", "serial port name or path")
	}
	fs.Uint32P(FlagBaud, "b", 9600, "baud rate")
	fs.Uint8P(FlagData, "d", 8, "data bits (5-8)")
	fs.Uint8P(FlagStop, "s", 1, "stop bits (1-2)")
	fs.String(FlagParity, "none", "parity (none, odd, even)")
	fs.String(FlagMode, "ascii", "display mode (ascii, hex, decimal, octal)")
}

// ApplyFlags overrides settings with the flags the user actually set
func (s *Settings) ApplyFlags(fs *pflag.FlagSet) error {
	var err error
	durations := []struct {
		name   string
		target *time.Duration
	}{
		{FlagTick, &s.TickInterval},
		{FlagRender, &s.RenderInterval},
		{FlagCycle, &s.BridgeInterval},
		{FlagIOTimeout, &s.IOTimeout},
		{FlagShutdownTimeout, &s.ShutdownTimeout},
	}
	for _, d := range durations {
		if changed(fs, d.name) {
			if *d.target, err = fs.GetDuration(d.name); err != nil {
				return err
			}
		}
	}

	if changed(fs, FlagInputLimit) {
		if s.InputLimit, err = fs.GetInt(FlagInputLimit); err != nil {
			return err
		}
	}
	if changed(fs, FlagLineEnding) {
		if s.LineEnding, err = fs.GetString(FlagLineEnding); err != nil {
			return err
		}
	}
	if changed(fs, FlagLogFile) {
		if s.LogFile, err = fs.GetString(FlagLogFile); err != nil {
			return err
		}
	}
	if changed(fs, FlagLogLevel) {
		if s.LogLevel, err = fs.GetString(FlagLogLevel); err != nil {
			return err
		}
	}
	if changed(fs, FlagVerbose) {
		if s.Verbose, err = fs.GetBool(FlagVerbose); err != nil {
			return err
		}
		if s.Verbose && !changed(fs, FlagLogLevel) {
			s.LogLevel = "debug"
		}
	}

	return s.applyPortFlags(fs, false)
}

// PortParameters builds complete connection parameters for port from the
// port flags and their defaults.
func PortParameters(fs *pflag.FlagSet, port string) (serial.PortParameters, error) {
	var s Settings
	s.Prefill.Name = serial.Ptr(port)
	if err := s.applyPortFlags(fs, true); err != nil {
		return serial.PortParameters{}, err
	}
	if err := s.Prefill.Validate(); err != nil {
		return serial.PortParameters{}, fmt.Errorf("invalid connection parameters: %w", err)
	}
	return s.Prefill, nil
}

// applyPortFlags fills Prefill from the port flags. Unless all is set only
// flags given on the command line are used.
func (s *Settings) applyPortFlags(fs *pflag.FlagSet, all bool) error {
	use := func(name string) bool {
		return fs.Lookup(name) != nil && (all || changed(fs, name))
	}

	if use(FlagPort) {
		v, err := fs.GetString(FlagPort)
		if err != nil {
			return err
		}
		if v != "" {
			s.Prefill.Name = serial.Ptr(v)
		}
	}
	if use(FlagBaud) {
		v, err := fs.GetUint32(FlagBaud)
		if err != nil {
			return err
		}
		s.Prefill.BaudRate = serial.Ptr(v)
	}
	if use(FlagData) {
		v, err := fs.GetUint8(FlagData)
		if err != nil {
			return err
		}
		s.Prefill.DataBits = serial.Ptr(v)
	}
	if use(FlagStop) {
		v, err := fs.GetUint8(FlagStop)
		if err != nil {
			return err
		}
		s.Prefill.StopBits = serial.Ptr(v)
	}
	if use(FlagParity) {
		v, err := fs.GetString(FlagParity)
		if err != nil {
			return err
		}
		parity, err := serial.ParseParity(v)
		if err != nil {
			return err
		}
		s.Prefill.Parity = serial.Ptr(parity)
	}
	if use(FlagMode) {
		v, err := fs.GetString(FlagMode)
		if err != nil {
			return err
		}
		mode, err := serial.ParseMode(v)
		if err != nil {
			return err
		}
		s.Prefill.Mode = serial.Ptr(mode)
	}
	return nil
}

func changed(fs *pflag.FlagSet, name string) bool {
	f := fs.Lookup(name)
	return f != nil && f.Changed
}

// Load builds validated settings from defaults, environ and fs
func Load(fs *pflag.FlagSet, environ []string) (Settings, error) {
	s := Default()
	if err := s.ApplyEnv(environ); err != nil {
		return Settings{}, fmt.Errorf("environment: %w", err)
	}
	if fs != nil {
		if err := s.ApplyFlags(fs); err != nil {
			return Settings{}, fmt.Errorf("flags: %w", err)
		}
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return s, nil
}

// LoadFromProcess is Load with the process environment
func LoadFromProcess(fs *pflag.FlagSet) (Settings, error) {
	return Load(fs, os.Environ())
}
