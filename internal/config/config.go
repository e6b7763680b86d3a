package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the tab controller and CLI.
type Config struct {
	// CDP connection settings
	CDPAddress    string
	CDPPort       int
	BridgeFilter  string
	WindowID      int
	EvalTimeoutMS int

	// Control API and logging
	BindAddr         string
	PortCandidates   string
	PortAutoFallback bool
	LogLevel         string
	LogFile          string

	// Run log and parser grammar
	RunLogDir         string
	HeaderGrammarFile string

	// Clustering oracle
	OracleBaseURL   string
	OracleModel     string
	OracleAPIKey    string
	OracleTimeoutMS int

	NotifyEndpoint string

	// Browser launch
	BrowserProfileDir string
	BrowserStartURL   string
	BrowserHeadless   bool
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		CDPAddress:        getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:           getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9222),
		BridgeFilter:      getEnvOrDefault("TAB_BRIDGE_FILTER", "tab_grouper_bridge"),
		WindowID:          getEnvIntOrDefault("TAB_WINDOW_ID", 0),
		EvalTimeoutMS:     getEnvIntOrDefault("TAB_EVAL_TIMEOUT_MS", 5000),
		BindAddr:          getEnvOrDefault("TAB_BIND_ADDR", "127.0.0.1:8190"),
		PortCandidates:    getEnvOrDefault("TAB_PORT_CANDIDATES", "127.0.0.1:8191,127.0.0.1:8192,127.0.0.1:8193"),
		PortAutoFallback:  getEnvBoolOrDefault("TAB_PORT_AUTO_FALLBACK", true),
		LogLevel:          strings.ToLower(getEnvOrDefault("TAB_LOG_LEVEL", "info")),
		LogFile:           getEnvOrDefault("TAB_LOG_FILE", "logs/tab_controller.log"),
		RunLogDir:         getEnvOrDefault("TAB_RUNLOG_DIR", "./run_logs"),
		HeaderGrammarFile: os.Getenv("TAB_HEADER_GRAMMAR_FILE"),
		OracleBaseURL:     getEnvOrDefault("ORACLE_BASE_URL", "http://127.0.0.1:1234/v1"),
		OracleModel:       getEnvOrDefault("ORACLE_MODEL", "meta-llama-3.1-8b-instruct"),
		OracleAPIKey:      os.Getenv("ORACLE_API_KEY"),
		OracleTimeoutMS:   getEnvIntOrDefault("ORACLE_TIMEOUT_MS", 120000),
		NotifyEndpoint:    os.Getenv("NOTIFY_ENDPOINT"),
		BrowserProfileDir: getEnvOrDefault("BROWSER_PROFILE_DIR", "./browser_profile"),
		BrowserStartURL:   getEnvOrDefault("BROWSER_START_URL", "about:blank"),
		BrowserHeadless:   getEnvBoolOrDefault("BROWSER_HEADLESS", false),
	}
	if cfg.EvalTimeoutMS < 1000 {
		cfg.EvalTimeoutMS = 1000
	}
	if cfg.OracleTimeoutMS < 1000 {
		cfg.OracleTimeoutMS = 1000
	}
	if cfg.CDPPort <= 0 || cfg.CDPPort > 65535 {
		return nil, fmt.Errorf("CHROMIUM_CDP_PORT out of range: %d", cfg.CDPPort)
	}
	return cfg, nil
}

// CDPURL returns the CDP HTTP endpoint.
func (c *Config) CDPURL() string {
	return "http://" + c.CDPAddress + ":" + strconv.Itoa(c.CDPPort)
}

func (c *Config) EvalTimeout() time.Duration {
	return time.Duration(c.EvalTimeoutMS) * time.Millisecond
}

func (c *Config) OracleTimeout() time.Duration {
	return time.Duration(c.OracleTimeoutMS) * time.Millisecond
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
