package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/osi4iot/hookrelay/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "", want: slog.LevelInfo},
		{in: "DEBUG", want: slog.LevelDebug},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "verbose", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSetupFallbackWriter(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := Setup(config.LogConfig{Level: "warn"}, false, &buf)
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") || !strings.Contains(out, "k=v") {
		t.Errorf("output = %q", out)
	}
}

func TestSetupDebugOverridesLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := Setup(config.LogConfig{Level: "error"}, true, &buf)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("details")
	if !strings.Contains(buf.String(), "details") {
		t.Errorf("debug flag ignored: %q", buf.String())
	}
}

func TestSetupRotatingJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "hookrelay.log")
	logger, closer, err := Setup(config.LogConfig{File: path, Format: "json", MaxSize: 1}, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("dispatch", "event", "Stop")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &record); err != nil {
		t.Fatalf("not a JSON line: %q", data)
	}
	if record["msg"] != "dispatch" || record["event"] != "Stop" {
		t.Errorf("record = %v", record)
	}
}

func TestSetupInvalidLevel(t *testing.T) {
	if _, _, err := Setup(config.LogConfig{Level: "loud"}, false, nil); err == nil {
		t.Error("expected error")
	}
}
