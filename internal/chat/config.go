package chat

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the runtime settings of the chat server.
type Config struct {
	// Addr is the TCP listen address for line clients.
	Addr string
	// MetricsAddr serves /metrics when non-empty.
	MetricsAddr string
	// WebSocketAddr serves the websocket gateway at /ws when non-empty.
	WebSocketAddr string

	MailboxSize int
	// IdleTimeout disconnects a client that sends nothing for this long. Zero disables it.
	IdleTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxLineLength   int
	ShutdownTimeout time.Duration
	LogLevel        slog.Level
}

func defaultConfig() Config {
	return Config{
		Addr:            ":5000",
		MetricsAddr:     ":9090",
		MailboxSize:     DefaultMailboxSize,
		WriteTimeout:    10 * time.Second,
		MaxLineLength:   64 * 1024,
		ShutdownTimeout: 5 * time.Second,
		LogLevel:        slog.LevelInfo,
	}
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv returns the defaults overridden by CHAT_* environment variables.
// Unparsable values fall back to the default.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if v, ok := os.LookupEnv("CHAT_ADDR"); ok && v != "" {
		cfg.Addr = v
	}
	if v, ok := os.LookupEnv("CHAT_METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := os.LookupEnv("CHAT_WS_ADDR"); ok {
		cfg.WebSocketAddr = v
	}
	if v := os.Getenv("CHAT_MAILBOX_SIZE"); v != "" {
		cfg.MailboxSize = parseIntValue(v, cfg.MailboxSize)
	}
	if v := os.Getenv("CHAT_MAX_LINE_LENGTH"); v != "" {
		cfg.MaxLineLength = parseIntValue(v, cfg.MaxLineLength)
	}
	if v := os.Getenv("CHAT_IDLE_TIMEOUT"); v != "" {
		cfg.IdleTimeout = parseDuration(v, cfg.IdleTimeout)
	}
	if v := os.Getenv("CHAT_WRITE_TIMEOUT"); v != "" {
		cfg.WriteTimeout = parseDuration(v, cfg.WriteTimeout)
	}
	if v := os.Getenv("CHAT_SHUTDOWN_TIMEOUT"); v != "" {
		cfg.ShutdownTimeout = parseDuration(v, cfg.ShutdownTimeout)
	}
	if v := os.Getenv("CHAT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = ParseLogLevel(v, cfg.LogLevel)
	}

	return &cfg
}

// sanitize replaces out-of-range values with defaults.
func (c Config) sanitize() Config {
	def := defaultConfig()
	if c.Addr == "" {
		c.Addr = def.Addr
	}
	if c.MailboxSize <= 0 {
		c.MailboxSize = def.MailboxSize
	}
	if c.IdleTimeout < 0 {
		c.IdleTimeout = 0
	}
	if c.WriteTimeout < 0 {
		c.WriteTimeout = 0
	}
	if c.MaxLineLength <= 0 {
		c.MaxLineLength = def.MaxLineLength
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
	return c
}

// ParseLogLevel accepts debug, info, warn or error.
func ParseLogLevel(value string, defaultValue slog.Level) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return defaultValue
	}
	return lvl
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

// parseDuration accepts Go durations ("90s") or a bare number of seconds.
func parseDuration(value string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(value); err == nil && d >= 0 {
		return d
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
