package logger

import (
	"bytes"
	"testing"

	glog "github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
)

func TestStandardLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn")
	l.Infof("hidden %d", 1)
	l.Warnf("shown %d", 2)
	l.Errorf("also shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown 2")
	assert.Contains(t, out, "also shown")
}

func TestWithPrefix(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "debug").WithPrefix("engine")
	l.Debugf("hello")
	assert.Contains(t, buf.String(), "mstransform:engine")
	assert.Contains(t, buf.String(), "hello")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, glog.DEBUG, ParseLevel("DEBUG"))
	assert.Equal(t, glog.WARN, ParseLevel("warning"))
	assert.Equal(t, glog.OFF, ParseLevel("off"))
	assert.Equal(t, glog.INFO, ParseLevel("bogus"))
}

func TestNopLogger(t *testing.T) {
	l := NopLogger.WithPrefix("x")
	l.Errorf("nothing")
	assert.Equal(t, NopLogger, l)
}
