package logger

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
)

func TestConfigureLevel(t *testing.T) {
	defer Configure(os.Stderr, "info")

	var buf bytes.Buffer
	Configure(&buf, "warn")

	LogInfo("hidden")
	LogWarnf("visible %d", 1)
	LogErrorIfExists(nil)
	LogErrorIfExists(errors.New("boom"), "user", "42")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message written at warn level: %q", out)
	}
	if !strings.Contains(out, "visible 1") {
		t.Errorf("warn message missing: %q", out)
	}
	if !strings.Contains(out, "boom") {
		t.Errorf("error message missing: %q", out)
	}
}

func TestConfigureUnknownLevelFallsBackToInfo(t *testing.T) {
	defer Configure(os.Stderr, "info")

	var buf bytes.Buffer
	Configure(&buf, "chatty")
	LogDebug("debug")
	LogInfo("info")

	out := buf.String()
	if strings.Contains(out, "debug") {
		t.Errorf("debug message written at info level: %q", out)
	}
	if !strings.Contains(out, "info") {
		t.Errorf("info message missing: %q", out)
	}
}
