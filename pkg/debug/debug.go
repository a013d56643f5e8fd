// Package debug sets up console logging for the godwit CLI: a zerolog
// console writer with compact timestamps and a caller hook that prints
// package:file:line.
package debug

import (
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// NewLogger builds the CLI logger. Verbose enables debug-level pipeline
// traces and caller annotation.
func NewLogger(out io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	cw := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05.000",
	}

	logger := zerolog.New(cw).Level(level).Hook(TimeHook{})
	if verbose {
		logger = logger.Hook(CallerHook{WithColor: true})
	}
	return logger
}

// TimeHook stamps events with millisecond precision.
type TimeHook struct {
	Format string
}

func (t TimeHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	format := t.Format
	if format == "" {
		format = "2006-01-02T15:04:05.000Z"
	}
	e.Str("time", time.Now().Format(format))
}

// CallerHook annotates events with the logging call site.
type CallerHook struct {
	WithColor bool
}

func (c CallerHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	// Skip the hook machinery and zerolog's own frames.
	pc, file, line, ok := runtime.Caller(4)
	if !ok {
		return
	}

	pkg, _ := splitFuncName(runtime.FuncForPC(pc).Name())
	e.Str("caller", FormatCaller(pkg, file, line, c.WithColor))
}

// splitFuncName splits a runtime function name into its package path and
// bare function name, keeping method receivers with the function.
func splitFuncName(name string) (pkg, function string) {
	lastSlash := strings.LastIndexByte(name, '/')
	if lastSlash < 0 {
		lastSlash = 0
	}
	firstDot := strings.IndexByte(name[lastSlash:], '.') + lastSlash

	pkg = name[:firstDot]
	function = name[firstDot+1:]

	if strings.Contains(pkg, ".(") {
		parts := strings.Split(pkg, ".(")
		pkg = parts[0]
		function = "(" + parts[1] + "." + function
	}
	return pkg, function
}

// FormatCaller renders a call site as pkg:file:line.
func FormatCaller(pkg, path string, line int, colorize bool) string {
	file := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		file = path[i+1:]
	}

	if colorize {
		file = color.New(color.Bold).Sprint(file)
		num := color.New(color.FgHiRed, color.Bold).Sprintf("%d", line)
		sep := color.New(color.Faint).Sprint(":")
		return fmt.Sprintf("%s%s%s%s%s", pkg, sep, file, sep, num)
	}
	return fmt.Sprintf("%s:%s:%d", pkg, file, line)
}
