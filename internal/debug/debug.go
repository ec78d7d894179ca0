package debug

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Debug levels
const (
	LevelOff     = 0 // No output
	LevelInfo    = 1 // Important info (captures, recorded events)
	LevelLive    = 2 // Live info (triggers, sensor edges)
	LevelVerbose = 3 // Verbose (device setup, steps)
	LevelTrace   = 4 // Trace (GPIO, very low level)
)

// fileTimeFormat matches the text log layout "2006-01-02 15:04:05,000 - INFO - msg".
const fileTimeFormat = "2006-01-02 15:04:05,000"

// Options configures Init.
type Options struct {
	Level      int    // 0-4
	File       string // log file path, "" = console only
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	JSON       bool // raw JSON lines in the file
}

var (
	mu      sync.Mutex
	level   int
	logger  zerolog.Logger = zerolog.Nop()
	console io.Writer      = os.Stdout
	file    *lumberjack.Logger
	rawJSON bool
)

// Init initializes the debug system.
// 0 = no output
// 1 = important info (captures, recorded events)
// 2 = live info (triggers, sensor edges)
// 3 = verbose (device setup, steps)
// 4 = trace (GPIO, very low level)
func Init(opts Options) {
	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		_ = file.Close()
		file = nil
	}

	level = opts.Level
	rawJSON = opts.JSON
	if opts.File != "" {
		file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		}
	}
	rebuild()
}

// SetOutput replaces the console writer (default os.Stdout).
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	console = w
	rebuild()
}

// Close flushes and closes the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	rebuild()
	return err
}

// rebuild recreates the logger from the current writers. Callers hold mu.
func rebuild() {
	if level <= LevelOff {
		logger = zerolog.Nop()
		return
	}

	writers := []io.Writer{consoleWriter{zerolog.ConsoleWriter{
		Out:        console,
		NoColor:    !isTerminal(console),
		TimeFormat: "15:04:05.000",
	}}}
	if file != nil {
		writers = append(writers, fileWriter{out: file, raw: rawJSON})
	}

	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(zerolog.TraceLevel).
		With().
		Timestamp().
		Str("app", "lvs").
		Logger()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// consoleWriter reports len(p) back to zerolog: ConsoleWriter rewrites the
// entry, and a different length makes zerolog fail with "short write".
type consoleWriter struct {
	zerolog.ConsoleWriter
}

func (c consoleWriter) WriteLevel(_ zerolog.Level, p []byte) (int, error) {
	_, err := c.ConsoleWriter.Write(p)
	return len(p), err
}

// fileWriter turns zerolog JSON into "time - LEVEL - message" lines unless raw is set.
type fileWriter struct {
	out io.Writer
	raw bool
}

func (f fileWriter) Write(p []byte) (int, error) {
	return f.WriteLevel(zerolog.NoLevel, p)
}

func (f fileWriter) WriteLevel(lvl zerolog.Level, p []byte) (int, error) {
	if f.raw {
		return f.out.Write(p)
	}
	line, err := formatLine(lvl, p)
	if err != nil {
		return f.out.Write(p)
	}
	_, err = f.out.Write([]byte(line))
	return len(p), err
}

func formatLine(lvl zerolog.Level, p []byte) (string, error) {
	var entry map[string]interface{}
	if err := json.Unmarshal(p, &entry); err != nil {
		return "", err
	}
	msg, _ := entry[zerolog.MessageFieldName].(string)

	name := "INFO"
	switch lvl {
	case zerolog.TraceLevel, zerolog.DebugLevel:
		name = "DEBUG"
	case zerolog.WarnLevel:
		name = "WARNING"
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		name = "ERROR"
	}
	return fmt.Sprintf("%s - %s - %s\n", time.Now().Format(fileTimeFormat), name, msg), nil
}

// Level returns the current debug level.
func Level() int {
	mu.Lock()
	defer mu.Unlock()
	return level
}

func current() (int, zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	return level, logger
}

// --- Level 1 functions (Info): important info ---

// Info prints a level 1 message (important info).
func Info(format string, args ...interface{}) {
	if lvl, l := current(); lvl >= LevelInfo {
		l.Info().Msgf(format, args...)
	}
}

// Summary prints an important summary (level 1).
func Summary(title string) {
	if lvl, l := current(); lvl >= LevelInfo {
		l.Info().Msg("═══════════════════════════════════════")
		l.Info().Msgf("  %s", title)
		l.Info().Msg("═══════════════════════════════════════")
	}
}

// Value prints a named value in formatted form (level 1).
func Value(name string, value interface{}) {
	if lvl, l := current(); lvl >= LevelInfo {
		l.Info().Msgf("  %s = %v", name, value)
	}
}

// Error prints an error (level 1+).
func Error(err error) {
	if lvl, l := current(); lvl >= LevelInfo {
		l.Error().Msg(err.Error())
	}
}

// Errorf prints a formatted error message (level 1+).
func Errorf(format string, args ...interface{}) {
	if lvl, l := current(); lvl >= LevelInfo {
		l.Error().Msgf(format, args...)
	}
}

// --- Level 2 functions (Live): real-time info ---

// Live prints a level 2 message (live info).
func Live(format string, args ...interface{}) {
	if lvl, l := current(); lvl >= LevelLive {
		l.Info().Str("tag", "live").Msgf(format, args...)
	}
}

// --- Level 3 functions (Verbose): everything ---

// Verbose prints a level 3 message (verbose).
func Verbose(format string, args ...interface{}) {
	if lvl, l := current(); lvl >= LevelVerbose {
		l.Debug().Msgf(format, args...)
	}
}

// PrintStruct prints a struct in formatted form (level 3).
func PrintStruct(name string, v interface{}) {
	Verbose("%s: %+v", name, v)
}

// Section prints a section separator (level 3).
func Section(name string) {
	if lvl, l := current(); lvl >= LevelVerbose {
		l.Debug().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		l.Debug().Msgf("  %s", name)
		l.Debug().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	}
}

// Step prints a numbered step (level 3).
func Step(num int, description string) {
	Verbose("Step %d: %s", num, description)
}

// --- Level 4 functions (Trace): very low level ---

// Trace prints a level 4 message.
func Trace(format string, args ...interface{}) {
	if lvl, l := current(); lvl >= LevelTrace {
		l.Trace().Msgf(format, args...)
	}
}

// GPIO prints a GPIO operation (level 4).
func GPIO(operation string, pin int, value interface{}) {
	if lvl, l := current(); lvl >= LevelTrace {
		l.Trace().Str("op", operation).Int("pin", pin).Msgf("GPIO %s pin=%d value=%v", operation, pin, value)
	}
}
