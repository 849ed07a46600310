package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"go.uber.org/zap"
)

func TestSeverityEncoding(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)

	Warn("disk almost full", zap.String("scenario", "download"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["severity"] != "WARNING" {
		t.Errorf("severity = %v, want WARNING", entry["severity"])
	}
	if entry["msg"] != "disk almost full" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["scenario"] != "download" {
		t.Errorf("scenario = %v", entry["scenario"])
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)
	defer SetLevel("info")

	Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug logged at info level: %q", buf.String())
	}

	if err := SetLevel("debug"); err != nil {
		t.Fatal(err)
	}
	Debug("shown")
	if buf.Len() == 0 {
		t.Fatal("debug not logged at debug level")
	}
}

func TestSetLevel_Invalid(t *testing.T) {
	if err := SetLevel("loud"); err == nil {
		t.Fatal("SetLevel() expected error for unknown level")
	}
}

func TestInit_ReplacesGlobals(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)

	if err := Init("info"); err != nil {
		t.Fatal(err)
	}
	zap.L().Info("via global")
	if !bytes.Contains(buf.Bytes(), []byte("via global")) {
		t.Errorf("zap.L() did not write through logger: %q", buf.String())
	}
}

func TestL_SharesOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)

	L().Error("step failed", zap.String("step", "click"))
	if err := L().Sync(); err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"severity":"ERROR"`)) {
		t.Errorf("L() did not write through the configured output: %q", buf.String())
	}
}
