package cache

import (
	"os"

	"github.com/rs/zerolog"
)

// NoOpLogger is a logger that does nothing. It is the default Logger
// when none is configured.
type NoOpLogger struct{}

func (NoOpLogger) Debug(msg string, args ...any) {}
func (NoOpLogger) Info(msg string, args ...any)  {}
func (NoOpLogger) Warn(msg string, args ...any)  {}
func (NoOpLogger) Error(msg string, args ...any) {}

// NewNoOpLogger creates a new no-op logger.
func NewNoOpLogger() Logger { return NoOpLogger{} }

// ZerologLogger adapts github.com/rs/zerolog to the Logger interface,
// replacing the teacher's fmt.Printf-based console logger with
// structured, leveled logging (SPEC_FULL §9).
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger creates a Logger writing structured JSON lines to
// stderr, tagged with the given component name.
func NewZerologLogger(component string) Logger {
	l := zerolog.New(os.Stderr).With().Timestamp().Str("component", component).Logger()
	return &ZerologLogger{log: l}
}

func (z *ZerologLogger) event(e *zerolog.Event, msg string, args ...any) {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, args[i+1])
	}
	e.Msg(msg)
}

func (z *ZerologLogger) Debug(msg string, args ...any) { z.event(z.log.Debug(), msg, args...) }
func (z *ZerologLogger) Info(msg string, args ...any)  { z.event(z.log.Info(), msg, args...) }
func (z *ZerologLogger) Warn(msg string, args ...any)  { z.event(z.log.Warn(), msg, args...) }
func (z *ZerologLogger) Error(msg string, args ...any) { z.event(z.log.Error(), msg, args...) }
