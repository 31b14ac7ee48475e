// Package proxylog provides the colorized stderr logger used throughout the
// proxy. Output never touches stdout, since stdout may be in use as a wire
// transport for a stdio child process.
package proxylog

import (
	"fmt"
	"os"
	"sync"

	"github.com/pterm/pterm"
)

func init() {
	pterm.SetDefaultOutput(os.Stderr)

	pterm.Info = *pterm.Info.WithPrefix(pterm.Prefix{
		Text:  "INFO",
		Style: pterm.NewStyle(pterm.FgBlue),
	}).WithMessageStyle(&pterm.ThemeDefault.DefaultText)

	pterm.Warning = *pterm.Warning.WithPrefix(pterm.Prefix{
		Text:  "WARN",
		Style: pterm.NewStyle(pterm.FgYellow),
	}).WithMessageStyle(&pterm.ThemeDefault.DefaultText)

	pterm.Error = *pterm.Error.WithPrefix(pterm.Prefix{
		Text:  "ERROR",
		Style: pterm.NewStyle(pterm.FgRed),
	}).WithMessageStyle(&pterm.ThemeDefault.DefaultText)

	pterm.Debug = *pterm.Debug.WithPrefix(pterm.Prefix{
		Text:  "DEBUG",
		Style: pterm.NewStyle(pterm.FgCyan),
	}).WithMessageStyle(&pterm.ThemeDefault.DefaultText)
}

// Logger is a small leveled-logging facade over pterm, with an optional
// "session" prefix so concurrent log lines from different sessions (one
// per WebSocket connection) stay distinguishable.
type Logger struct {
	mu      sync.Mutex
	session string
	debug   bool
}

// New returns a root logger. Debug-level messages are gated by debug.
func New(debug bool) *Logger {
	if debug {
		pterm.EnableDebugMessages()
	} else {
		pterm.DisableDebugMessages()
	}
	return &Logger{debug: debug}
}

// With returns a copy of the logger tagged with a session identifier,
// prefixed to every subsequent message.
func (l *Logger) With(session string) *Logger {
	return &Logger{session: session, debug: l.debug}
}

func (l *Logger) prefix(format string) string {
	if l.session == "" {
		return format
	}
	return "[" + l.session + "] " + format
}

func (l *Logger) Info(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pterm.Info.Println(fmt.Sprintf(l.prefix(format), args...))
}

func (l *Logger) Warning(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pterm.Warning.Println(fmt.Sprintf(l.prefix(format), args...))
}

func (l *Logger) Error(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pterm.Error.Println(fmt.Sprintf(l.prefix(format), args...))
}

func (l *Logger) Debug(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pterm.Debug.Println(fmt.Sprintf(l.prefix(format), args...))
}
