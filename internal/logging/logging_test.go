package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestConsoleLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, c := New(Options{Level: "warn"}, zapcore.AddSync(&buf))
	logger.Info("hidden")
	logger.Warn("shown")
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(Options{Level: "chatty", Format: "json"}, zapcore.AddSync(&buf))
	logger.Debug("debug")
	logger.Info("info")
	if strings.Contains(buf.String(), `"debug"`) || !strings.Contains(buf.String(), `"info"`) {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestFileOnly(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("gopkg.in/natefinch/lumberjack%2ev2.(*Logger).millRun"))

	path := filepath.Join(t.TempDir(), "armsim.log")
	logger, c := New(Options{Level: "debug", File: path}, nil)
	logger.Debug("frame", zap.Int("frame", 3))
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, data)
	}
	if entry["msg"] != "frame" || entry["frame"] != float64(3) || entry["logger"] != "armsim" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNoSinks(t *testing.T) {
	logger, c := New(Options{}, nil)
	logger.Error("dropped")
	if err := c.Close(); err != nil {
		t.Error(err)
	}
}
