package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	yaml "gopkg.in/yaml.v3"
)

// AppConfig is the client configuration. Values come from defaults, then the YAML file
// named by CHESS_CONFIG_FILE, then CHESS_* environment variables, then command-line
// arguments.
type AppConfig struct {
	ServerURL string `yaml:"server_url"`
	Transport string `yaml:"transport"` // ws|tcp

	Mode       string `yaml:"mode"` // watch|play
	GameID     string `yaml:"game_id"`
	Tournament string `yaml:"tournament"`
	Player     string `yaml:"player"`

	TickInterval   time.Duration `yaml:"tick_interval"`
	DialAttempts   int           `yaml:"dial_attempts"`
	ExitOnGameOver bool          `yaml:"exit_on_game_over"`

	AutoPlay      bool          `yaml:"auto_play"`
	AutoPlayDelay time.Duration `yaml:"auto_play_delay"`

	Bell               bool   `yaml:"bell"`
	ANSI               bool   `yaml:"ansi"`
	SurfaceParseErrors bool   `yaml:"surface_parse_errors"`
	MessagesDir        string `yaml:"messages_dir"`

	StatusAddr  string `yaml:"status_addr"`
	RedisURL    string `yaml:"redis_url"`
	RedisPrefix string `yaml:"redis_prefix"`
	WebhookURL  string `yaml:"webhook_url"`
}

func defaults() *AppConfig {
	return &AppConfig{
		ServerURL:     "ws://127.0.0.1:8000/ws",
		Transport:     "ws",
		Mode:          "watch",
		TickInterval:  time.Second,
		DialAttempts:  3,
		AutoPlayDelay: 500 * time.Millisecond,
		Bell:          true,
		RedisPrefix:   "chess:live",
	}
}

// Load reads .env (if present) into the environment and builds the configuration.
func Load(args []string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return LoadFrom(os.Getenv, args)
}

// LoadFrom is Load with an injectable environment lookup and no .env handling.
func LoadFrom(getenv func(string) string, args []string) (*AppConfig, error) {
	cfg := defaults()

	if path := strings.TrimSpace(getenv("CHESS_CONFIG_FILE")); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	if err := cfg.applyArgs(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) applyFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("CHESS_SERVER_URL", &c.ServerURL)
	str("CHESS_TRANSPORT", &c.Transport)
	str("CHESS_MODE", &c.Mode)
	str("CHESS_GAME_ID", &c.GameID)
	str("CHESS_TOURNAMENT", &c.Tournament)
	str("CHESS_PLAYER", &c.Player)
	str("CHESS_MESSAGES_DIR", &c.MessagesDir)
	str("CHESS_STATUS_ADDR", &c.StatusAddr)
	str("REDIS_URL", &c.RedisURL)
	str("CHESS_REDIS_PREFIX", &c.RedisPrefix)
	str("CHESS_WEBHOOK_URL", &c.WebhookURL)

	var errs []error
	boolean := func(key string, dst *bool) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	boolean("CHESS_EXIT_ON_GAME_OVER", &c.ExitOnGameOver)
	boolean("CHESS_AUTO_PLAY", &c.AutoPlay)
	boolean("CHESS_BELL", &c.Bell)
	boolean("CHESS_ANSI", &c.ANSI)
	boolean("CHESS_SURFACE_PARSE_ERRORS", &c.SurfaceParseErrors)

	duration := func(key string, dst *time.Duration) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	duration("CHESS_TICK_INTERVAL", &c.TickInterval)
	duration("CHESS_AUTO_PLAY_DELAY", &c.AutoPlayDelay)

	if v := strings.TrimSpace(getenv("CHESS_DIAL_ATTEMPTS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("CHESS_DIAL_ATTEMPTS: %w", err))
		} else {
			c.DialAttempts = n
		}
	}
	return errors.Join(errs...)
}

// applyArgs accepts "watch <game_id>" or "play <tournament> <player>".
func (c *AppConfig) applyArgs(args []string) error {
	if len(args) == 0 {
		return nil
	}
	switch strings.ToLower(args[0]) {
	case "watch":
		if len(args) != 2 {
			return errors.New("usage: watch <game_id>")
		}
		c.Mode, c.GameID = "watch", args[1]
	case "play":
		if len(args) != 3 {
			return errors.New("usage: play <tournament> <player>")
		}
		c.Mode, c.Tournament, c.Player = "play", args[1], args[2]
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}

func (c *AppConfig) Validate() error {
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))

	switch c.Mode {
	case "watch":
		if c.GameID == "" {
			return errors.New("CHESS_GAME_ID is required in watch mode")
		}
	case "play":
		if c.Tournament == "" || c.Player == "" {
			return errors.New("CHESS_TOURNAMENT and CHESS_PLAYER are required in play mode")
		}
	default:
		return fmt.Errorf("CHESS_MODE must be watch or play, got %q", c.Mode)
	}

	if strings.TrimSpace(c.ServerURL) == "" {
		return errors.New("CHESS_SERVER_URL is required")
	}
	switch c.Transport {
	case "ws":
		u, err := url.Parse(c.ServerURL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
			return fmt.Errorf("CHESS_SERVER_URL must be a ws:// or wss:// url for the ws transport, got %q", c.ServerURL)
		}
	case "tcp":
		if !strings.Contains(c.ServerURL, ":") || strings.Contains(c.ServerURL, "://") {
			return fmt.Errorf("CHESS_SERVER_URL must be host:port for the tcp transport, got %q", c.ServerURL)
		}
	default:
		return fmt.Errorf("CHESS_TRANSPORT must be ws or tcp, got %q", c.Transport)
	}

	if c.TickInterval <= 0 {
		return errors.New("CHESS_TICK_INTERVAL must be positive")
	}
	if c.DialAttempts <= 0 {
		return errors.New("CHESS_DIAL_ATTEMPTS must be positive")
	}
	if c.AutoPlay && c.Mode != "play" {
		return errors.New("CHESS_AUTO_PLAY needs play mode")
	}
	return nil
}
