package logger

import (
	"io"
	"os"
	"strings"

	glog "github.com/labstack/gommon/log"
)

// Logger represents an interface for a shared logger.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	// WithPrefix returns a Logger writing to the same output with the
	// given prefix appended to this logger's prefix.
	WithPrefix(prefix string) Logger
}

// NopLogger discards everything.
var NopLogger Logger = nopLogger{}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (n nopLogger) WithPrefix(string) Logger    { return n }

const header = `${time_rfc3339} ${level} ${prefix}`

// Standard is a Logger backed by the gommon logger echo uses, so the HTTP
// layer and the engine share one output and one level.
type Standard struct {
	l *glog.Logger
}

// New returns a Standard logger writing to w at the named level
// (debug, info, warn, error, off).
func New(w io.Writer, level string) *Standard {
	l := glog.New("mstransform")
	l.SetOutput(w)
	l.SetHeader(header)
	l.SetLevel(ParseLevel(level))
	return &Standard{l: l}
}

// NewStderr returns an info-level logger on stderr.
func NewStderr() *Standard {
	return New(os.Stderr, "info")
}

func ParseLevel(s string) glog.Lvl {
	switch strings.ToLower(s) {
	case "debug":
		return glog.DEBUG
	case "warn", "warning":
		return glog.WARN
	case "error":
		return glog.ERROR
	case "off":
		return glog.OFF
	}
	return glog.INFO
}

// Gommon exposes the underlying logger, e.g. for echo.Echo.Logger.
func (s *Standard) Gommon() *glog.Logger { return s.l }

func (s *Standard) Debugf(format string, v ...interface{}) { s.l.Debugf(format, v...) }
func (s *Standard) Infof(format string, v ...interface{})  { s.l.Infof(format, v...) }
func (s *Standard) Warnf(format string, v ...interface{})  { s.l.Warnf(format, v...) }
func (s *Standard) Errorf(format string, v ...interface{}) { s.l.Errorf(format, v...) }

func (s *Standard) WithPrefix(prefix string) Logger {
	l := glog.New(s.l.Prefix() + ":" + prefix)
	l.SetOutput(s.l.Output())
	l.SetHeader(header)
	l.SetLevel(s.l.Level())
	return &Standard{l: l}
}
