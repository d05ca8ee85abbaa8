package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDebugfSuppressedBelowConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Info)
	l.Debugf("parse", "should not appear")
	require.Empty(t, buf.String())
}

func TestInfofPassesAtInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Info)
	l.Infof("lower", "emitting %s", "main")
	require.Contains(t, buf.String(), "[lower]")
	require.Contains(t, buf.String(), "emitting main")
}

func TestSetLevelLowersThreshold(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Warn)
	l.Debugf("verify", "hidden")
	require.Empty(t, buf.String())

	l.SetLevel(Debug)
	l.Debugf("verify", "now visible")
	require.True(t, strings.Contains(buf.String(), "now visible"))
}

func TestErrorfAlwaysPasses(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Error)
	l.Debugf("pass:dce", "skipped")
	l.Errorf("pass:dce", "failed: %v", "boom")
	out := buf.String()
	require.NotContains(t, out, "skipped")
	require.Contains(t, out, "failed: boom")
}
