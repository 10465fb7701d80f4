package obslog

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestInitJSONToStream(t *testing.T) {
	var buf bytes.Buffer
	flush, err := Init(Options{Level: "debug", Format: "json", Console: true, Stream: &buf})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer SetLogger(nil)

	L().Debug("session_apply", zap.String("game_id", "g1"))
	flush()

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("not json: %q", buf.String())
	}
	if rec["msg"] != "session_apply" || rec["game_id"] != "g1" || rec["level"] != "debug" {
		t.Fatalf("record: %v", rec)
	}
}

func TestInitFiltersLevelAndWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "client.log")
	flush, err := Init(Options{Level: "warn", Format: "legacy", File: path})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer SetLogger(nil)

	L().Info("dropped")
	L().Warn("kept")
	flush()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(b), "dropped") || !strings.Contains(string(b), "WARN | ") {
		t.Fatalf("file contents: %q", b)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("LOG_TO_FILE", "true")
	t.Setenv("LOG_FILE", "")
	o := FromEnv()
	if o.Level != "debug" || o.Format != "json" || o.File != filepath.Join("logs", "chess-client.log") {
		t.Fatalf("options: %+v", o)
	}
}
