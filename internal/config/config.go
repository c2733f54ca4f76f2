// Package config loads and validates dashboard configuration.
//
// Values are resolved in three layers: built-in defaults, an optional TOML
// file (IDEAFORGE_CONFIG, default "ideaforge.toml"), then environment
// variables. A missing file is not an error.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all client configuration.
type Config struct {
	// Backend endpoints.
	APIURL string // Synchronous REST API base, e.g. http://localhost:8000/api/v1.
	WSURL  string // Push-event base; the channel name is appended as a path segment.

	// Push channel settings.
	Channel        string
	ReconnectDelay time.Duration

	// Request layer settings.
	RequestTimeout time.Duration

	// Research defaults used when a command does not specify them.
	LLMProvider string
	Sources     []string

	// HistoryPath is the SQLite file for local run history. Empty disables it.
	HistoryPath string

	// MCP start throttle. A zero interval or burst disables it.
	MCPStartInterval time.Duration
	MCPStartBurst    int

	// Logging.
	LogLevel  string
	LogFormat string
	LogFile   string // When set, logs are appended here instead of stderr.

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string
}

// fileConfig is the on-disk TOML layout.
type fileConfig struct {
	API struct {
		URL     string        `toml:"url"`
		Timeout time.Duration `toml:"timeout"`
	} `toml:"api"`
	Channel struct {
		URL            string        `toml:"url"`
		Name           string        `toml:"name"`
		ReconnectDelay time.Duration `toml:"reconnect_delay"`
	} `toml:"channel"`
	Research struct {
		Provider string   `toml:"provider"`
		Sources  []string `toml:"sources"`
	} `toml:"research"`
	History struct {
		Path string `toml:"path"`
	} `toml:"history"`
	MCP struct {
		StartInterval time.Duration `toml:"start_interval"`
		StartBurst    int           `toml:"start_burst"`
	} `toml:"mcp"`
	Logging struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
		File   string `toml:"file"`
	} `toml:"logging"`
}

// Default returns the configuration used for local development.
func Default() Config {
	return Config{
		APIURL:           "http://localhost:8000/api/v1",
		WSURL:            "ws://localhost:8000/api/v1/ws",
		Channel:          "research",
		ReconnectDelay:   3 * time.Second,
		RequestTimeout:   30 * time.Second,
		LLMProvider:      "groq",
		Sources:          []string{"google_trends", "hackernews", "reddit"},
		MCPStartInterval: 20 * time.Second,
		MCPStartBurst:    3,
		LogLevel:         "info",
		LogFormat:        "json",
		ServiceName:      "ideaforge",
	}
}

// Load resolves configuration from defaults, the optional TOML file and the
// environment, then validates it.
func Load() (Config, error) {
	cfg := Default()

	path := envStr("IDEAFORGE_CONFIG", "ideaforge.toml")
	if err := cfg.mergeFile(path); err != nil {
		return Config{}, err
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	cfg.APIURL = envStr("IDEAFORGE_API_URL", cfg.APIURL)
	cfg.WSURL = envStr("IDEAFORGE_WS_URL", cfg.WSURL)
	cfg.Channel = envStr("IDEAFORGE_CHANNEL", cfg.Channel)
	cfg.LLMProvider = envStr("IDEAFORGE_LLM_PROVIDER", cfg.LLMProvider)
	cfg.Sources = envList("IDEAFORGE_SOURCES", cfg.Sources)
	cfg.HistoryPath = envStr("IDEAFORGE_HISTORY_PATH", cfg.HistoryPath)
	cfg.LogLevel = envStr("IDEAFORGE_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envStr("IDEAFORGE_LOG_FORMAT", cfg.LogFormat)
	cfg.LogFile = envStr("IDEAFORGE_LOG_FILE", cfg.LogFile)
	cfg.OTELEndpoint = envStr("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTELEndpoint)
	cfg.ServiceName = envStr("OTEL_SERVICE_NAME", cfg.ServiceName)

	var err error
	cfg.ReconnectDelay, err = envDuration("IDEAFORGE_RECONNECT_DELAY", cfg.ReconnectDelay)
	collect(err)
	cfg.RequestTimeout, err = envDuration("IDEAFORGE_REQUEST_TIMEOUT", cfg.RequestTimeout)
	collect(err)
	cfg.OTELInsecure, err = envBool("OTEL_INSECURE", cfg.OTELInsecure)
	collect(err)
	cfg.MCPStartInterval, err = envDuration("IDEAFORGE_MCP_START_INTERVAL", cfg.MCPStartInterval)
	collect(err)
	cfg.MCPStartBurst, err = envInt("IDEAFORGE_MCP_START_BURST", cfg.MCPStartBurst)
	collect(err)

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// mergeFile overlays non-zero values from the TOML file at path.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var fc fileConfig
	if _, err := toml.Decode(string(data), &fc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	setStr(&c.APIURL, fc.API.URL)
	setStr(&c.WSURL, fc.Channel.URL)
	setStr(&c.Channel, fc.Channel.Name)
	setStr(&c.LLMProvider, fc.Research.Provider)
	setStr(&c.HistoryPath, fc.History.Path)
	setStr(&c.LogLevel, fc.Logging.Level)
	setStr(&c.LogFormat, fc.Logging.Format)
	setStr(&c.LogFile, fc.Logging.File)
	if fc.API.Timeout > 0 {
		c.RequestTimeout = fc.API.Timeout
	}
	if fc.Channel.ReconnectDelay > 0 {
		c.ReconnectDelay = fc.Channel.ReconnectDelay
	}
	if fc.MCP.StartInterval > 0 {
		c.MCPStartInterval = fc.MCP.StartInterval
	}
	if fc.MCP.StartBurst > 0 {
		c.MCPStartBurst = fc.MCP.StartBurst
	}
	if len(fc.Research.Sources) > 0 {
		c.Sources = fc.Research.Sources
	}
	return nil
}

// Validate checks that required configuration is present and well formed.
func (c Config) Validate() error {
	if err := validateURL("IDEAFORGE_API_URL", c.APIURL, "http", "https"); err != nil {
		return err
	}
	if err := validateURL("IDEAFORGE_WS_URL", c.WSURL, "ws", "wss"); err != nil {
		return err
	}
	if c.Channel == "" {
		return fmt.Errorf("config: IDEAFORGE_CHANNEL is required")
	}
	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("config: IDEAFORGE_RECONNECT_DELAY must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config: IDEAFORGE_REQUEST_TIMEOUT must be positive")
	}
	if c.MCPStartInterval < 0 || c.MCPStartBurst < 0 {
		return fmt.Errorf("config: MCP start throttle must not be negative")
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("config: IDEAFORGE_LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	return nil
}

func validateURL(key, raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("config: %s is required", key)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("config: %s must use scheme %s, got %q", key, strings.Join(schemes, " or "), u.Scheme)
}

func setStr(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}

func envInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}
