package raycast

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLogrusLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogrusLogger("warn", &buf)

	l.Debugf("debug %d", 1)
	l.Infof("info %d", 2)
	l.Warnf("warn %d", 3)
	l.Errorf("error %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "debug 1")
	assert.NotContains(t, out, "info 2")
	assert.Contains(t, out, "warn 3")
	assert.Contains(t, out, "error 4")
	assert.Contains(t, out, "component=raycasting")
}

func TestNewLogrusLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogrusLogger("chatty", &buf)
	l.Debugf("hidden")
	l.Infof("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
