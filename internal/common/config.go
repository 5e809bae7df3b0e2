package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string         `toml:"environment"` // "development" or "production"
	KIND        KINDConfig     `toml:"kind"`
	Telegram    TelegramConfig `toml:"telegram"`
	Naver       NaverConfig    `toml:"naver"`
	Output      OutputConfig   `toml:"output"`
	Monitor     MonitorConfig  `toml:"monitor"`
	Logging     LoggingConfig  `toml:"logging"`
}

// KINDConfig contains settings for the KIND disclosure endpoints
type KINDConfig struct {
	BaseURL        string        `toml:"base_url" validate:"required,url"` // KIND site root
	TitleMarker    string        `toml:"title_marker" validate:"required"` // Substring that qualifies a filing title
	PageSize       int           `toml:"page_size" validate:"gt=0"`        // Rows per listing page
	MaxPages       int           `toml:"max_pages" validate:"gt=0"`        // Safety ceiling on listing pagination
	RequestTimeout time.Duration `toml:"request_timeout"`                  // Per-call HTTP timeout
	RequestDelay   time.Duration `toml:"request_delay"`                    // Politeness delay between document fetches
	PageDelay      time.Duration `toml:"page_delay"`                       // Politeness delay between listing pages
	UserAgent      string        `toml:"user_agent"`
}

// TelegramConfig contains settings for chat notification dispatch
type TelegramConfig struct {
	BotToken     string        `toml:"bot_token"`
	ChatID       string        `toml:"chat_id"`
	APIBaseURL   string        `toml:"api_base_url"` // Overridable for tests
	MaxRetries   int           `toml:"max_retries" validate:"gt=0"`
	RetryBackoff time.Duration `toml:"retry_backoff"`
	MessageLimit int           `toml:"message_limit" validate:"gt=0"` // Telegram caps messages at 4096 chars
	SendDelay    time.Duration `toml:"send_delay"`                    // Delay between consecutive sends
}

// NaverConfig contains settings for the Naver news search API
type NaverConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	APIURL       string `toml:"api_url"`
	Display      int    `toml:"display" validate:"gt=0"` // Results per request (API max 100)
}

// OutputConfig contains settings for local file outputs
type OutputConfig struct {
	Dir        string `toml:"dir" validate:"required"` // Workbooks and the sent ledger live here
	LedgerFile string `toml:"ledger_file"`             // Defaults to <dir>/sent_log.json
}

// MonitorConfig contains settings for continuous monitoring mode
type MonitorConfig struct {
	IntervalMinutes int `toml:"interval_minutes" validate:"gt=0"`
	ActiveStartHour int `toml:"active_start_hour" validate:"gte=0,lte=23"`
	ActiveEndHour   int `toml:"active_end_hour" validate:"gte=0,lte=24,gtfield=ActiveStartHour"`
}

// LoggingConfig contains logging behavior settings
type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in kindwatch.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		KIND: KINDConfig{
			BaseURL:        "https://kind.krx.co.kr",
			TitleMarker:    "잠정",
			PageSize:       500,
			MaxPages:       10,
			RequestTimeout: 30 * time.Second,
			RequestDelay:   500 * time.Millisecond,
			PageDelay:      300 * time.Millisecond,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		Telegram: TelegramConfig{
			APIBaseURL:   "https://api.telegram.org",
			MaxRetries:   3,
			RetryBackoff: 2 * time.Second,
			MessageLimit: 4096,
			SendDelay:    1 * time.Second,
		},
		Naver: NaverConfig{
			APIURL:  "https://openapi.naver.com/v1/search/news.json",
			Display: 100,
		},
		Output: OutputConfig{
			Dir: "./output",
		},
		Monitor: MonitorConfig{
			IntervalMinutes: 5,
			ActiveStartHour: 8,
			ActiveEndHour:   18,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if config.Output.LedgerFile == "" {
		config.Output.LedgerFile = config.Output.Dir + "/sent_log.json"
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration against struct-level constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("KINDWATCH_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// KIND configuration
	if baseURL := os.Getenv("KINDWATCH_KIND_BASE_URL"); baseURL != "" {
		config.KIND.BaseURL = baseURL
	}
	if marker := os.Getenv("KINDWATCH_KIND_TITLE_MARKER"); marker != "" {
		config.KIND.TitleMarker = marker
	}
	if pageSize := os.Getenv("KINDWATCH_KIND_PAGE_SIZE"); pageSize != "" {
		if ps, err := strconv.Atoi(pageSize); err == nil {
			config.KIND.PageSize = ps
		}
	}
	if maxPages := os.Getenv("KINDWATCH_KIND_MAX_PAGES"); maxPages != "" {
		if mp, err := strconv.Atoi(maxPages); err == nil {
			config.KIND.MaxPages = mp
		}
	}
	if requestTimeout := os.Getenv("KINDWATCH_KIND_REQUEST_TIMEOUT"); requestTimeout != "" {
		if rt, err := time.ParseDuration(requestTimeout); err == nil {
			config.KIND.RequestTimeout = rt
		}
	}
	if requestDelay := os.Getenv("KINDWATCH_KIND_REQUEST_DELAY"); requestDelay != "" {
		if rd, err := time.ParseDuration(requestDelay); err == nil {
			config.KIND.RequestDelay = rd
		}
	}
	if userAgent := os.Getenv("KINDWATCH_KIND_USER_AGENT"); userAgent != "" {
		config.KIND.UserAgent = userAgent
	}

	// Secrets resolve with env-over-file precedence. The KINDWATCH_ prefixed
	// name wins over the bare name carried over from the legacy deployment.
	config.Telegram.BotToken = ResolveSecret(config.Telegram.BotToken, "KINDWATCH_BOT_TOKEN", "BOT_TOKEN")
	config.Telegram.ChatID = ResolveSecret(config.Telegram.ChatID, "KINDWATCH_CHAT_ID", "CHAT_ID")
	config.Naver.ClientID = ResolveSecret(config.Naver.ClientID, "KINDWATCH_NAVER_CLIENT_ID", "NAVER_CLIENT_ID")
	config.Naver.ClientSecret = ResolveSecret(config.Naver.ClientSecret, "KINDWATCH_NAVER_CLIENT_SECRET", "NAVER_CLIENT_SECRET")

	// Output configuration
	if dir := os.Getenv("KINDWATCH_OUTPUT_DIR"); dir != "" {
		config.Output.Dir = dir
	}
	if ledgerFile := os.Getenv("KINDWATCH_LEDGER_FILE"); ledgerFile != "" {
		config.Output.LedgerFile = ledgerFile
	}

	// Monitor configuration
	if interval := os.Getenv("KINDWATCH_MONITOR_INTERVAL_MINUTES"); interval != "" {
		if iv, err := strconv.Atoi(interval); err == nil {
			config.Monitor.IntervalMinutes = iv
		}
	}

	// Logging configuration
	if level := os.Getenv("KINDWATCH_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// ResolveSecret resolves a secret value with environment variable priority.
// Environment variables are checked in the order given; the config file value
// is the fallback. Resolution happens once at startup so components receive
// the final value and never read the environment themselves.
func ResolveSecret(configValue string, envNames ...string) string {
	for _, name := range envNames {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return configValue
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, outputDir string, interval int) {
	if outputDir != "" {
		config.Output.Dir = outputDir
		config.Output.LedgerFile = outputDir + "/sent_log.json"
	}
	if interval > 0 {
		config.Monitor.IntervalMinutes = interval
	}
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}
