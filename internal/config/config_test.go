package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaultsWithArgs(t *testing.T) {
	cfg, err := LoadFrom(envMap(nil), []string{"watch", "g42"})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Mode != "watch" || cfg.GameID != "g42" || cfg.TickInterval != time.Second || cfg.Transport != "ws" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestPrecedenceEnvOverFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	body := strings.Join([]string{
		"mode: play",
		"tournament: spring",
		"player: alice",
		"tick_interval: 500ms",
		"bell: false",
		"redis_prefix: from-file",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadFrom(envMap(map[string]string{
		"CHESS_CONFIG_FILE": path,
		"CHESS_PLAYER":      "bob",
		"CHESS_AUTO_PLAY":   "true",
	}), nil)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Player != "bob" || cfg.Tournament != "spring" {
		t.Fatalf("env should win over file: %+v", cfg)
	}
	if cfg.TickInterval != 500*time.Millisecond || cfg.Bell || cfg.RedisPrefix != "from-file" {
		t.Fatalf("file should win over defaults: %+v", cfg)
	}
	if !cfg.AutoPlay || cfg.DialAttempts != 3 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestArgsOverrideEnv(t *testing.T) {
	cfg, err := LoadFrom(envMap(map[string]string{"CHESS_MODE": "watch", "CHESS_GAME_ID": "g1"}),
		[]string{"play", "t1", "carol"})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Mode != "play" || cfg.Player != "carol" {
		t.Fatalf("args not applied: %+v", cfg)
	}
}

func TestValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		args []string
		want string
	}{
		{"missing game", nil, nil, "CHESS_GAME_ID"},
		{"bad mode", map[string]string{"CHESS_MODE": "spectate"}, nil, "CHESS_MODE"},
		{"bad bool", map[string]string{"CHESS_BELL": "loud"}, []string{"watch", "g"}, "CHESS_BELL"},
		{"bad duration", map[string]string{"CHESS_TICK_INTERVAL": "soon"}, []string{"watch", "g"}, "CHESS_TICK_INTERVAL"},
		{"ws url", map[string]string{"CHESS_SERVER_URL": "http://x"}, []string{"watch", "g"}, "ws://"},
		{"tcp addr", map[string]string{"CHESS_TRANSPORT": "tcp", "CHESS_SERVER_URL": "ws://x:1"}, []string{"watch", "g"}, "host:port"},
		{"auto play in watch", map[string]string{"CHESS_AUTO_PLAY": "1"}, []string{"watch", "g"}, "CHESS_AUTO_PLAY"},
		{"usage", nil, []string{"play", "t"}, "usage"},
		{"missing file", map[string]string{"CHESS_CONFIG_FILE": "/nonexistent/x.yaml"}, nil, "read config file"},
	}
	for _, tc := range cases {
		_, err := LoadFrom(envMap(tc.env), tc.args)
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error containing %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestTCPTransport(t *testing.T) {
	cfg, err := LoadFrom(envMap(map[string]string{
		"CHESS_TRANSPORT":  "TCP",
		"CHESS_SERVER_URL": "127.0.0.1:9000",
	}), []string{"watch", "g"})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Transport != "tcp" {
		t.Fatalf("transport: %q", cfg.Transport)
	}
}
