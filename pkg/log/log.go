package log

import (
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// Logger is the global logger instance
	Logger zerolog.Logger
)

// Level represents log level
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// ParseLevel maps a configuration string onto a Level, falling back to info
func ParseLevel(s string) Level {
	switch Level(s) {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel:
		return Level(s)
	default:
		return InfoLevel
	}
}

// Init initializes the global logger
func Init(cfg Config) {
	// Set log level
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	// Use JSON or console output
	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// WithComponent creates a child logger with component field
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// Source identifies the originator of a stream of log lines, such as one
// socket pool or one mDNS client. It is passed down to every socket the
// originator creates so related lines can be correlated.
type Source struct {
	ID   string
	Kind string
}

// NewSource returns a Source with a fresh random ID
func NewSource(kind string) Source {
	return Source{ID: uuid.NewString(), Kind: kind}
}

// IsZero reports whether the source was never assigned
func (s Source) IsZero() bool {
	return s.ID == ""
}

// Logger returns a component logger tagged with the source
func (s Source) Logger(component string) zerolog.Logger {
	ctx := Logger.With().Str("component", component)
	if !s.IsZero() {
		ctx = ctx.Str("source_id", s.ID).Str("source_type", s.Kind)
	}
	return ctx.Logger()
}

// Info logs msg on the global logger
func Info(msg string) {
	Logger.Info().Msg(msg)
}

// Errorf logs msg with err attached on the global logger
func Errorf(msg string, err error) {
	Logger.Error().Err(err).Msg(msg)
}
