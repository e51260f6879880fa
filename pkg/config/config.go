// Package config resolves the reader configuration from defaults, an
// optional YAML file, .env files and environment variables, and command
// line flags, in that order of increasing precedence. The result is
// validated once at startup; nothing else reads the environment.
package config

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Documented fallback ranges. A missing or non-numeric override falls back
// to a fresh random value in these ranges on every run.
const (
	BaseTopicIDMin = 1000000
	BaseTopicIDMax = 1100000
	MaxPostsMin    = 200
	MaxPostsMax    = 300
)

// Config holds all configuration for one process.
type Config struct {
	Reader        ReaderConfig  `yaml:"reader"`
	Browser       BrowserConfig `yaml:"browser"`
	Notifications NotifyConfig  `yaml:"notifications"`
	Logging       LoggingConfig `yaml:"logging"`
	Debug         DebugConfig   `yaml:"debug"`
}

// ReaderConfig controls the topic traversal.
type ReaderConfig struct {
	// BaseURL is the forum root, without a trailing slash.
	BaseURL string `yaml:"base_url"`
	// BaseTopicID is the configured starting topic ID. Zero means
	// "randomize in [BaseTopicIDMin, BaseTopicIDMax] at startup".
	BaseTopicID int `yaml:"base_topic_id"`
	// MaxPosts is the per-run read quota. Zero means "randomize in
	// [MaxPostsMin, MaxPostsMax] at startup".
	MaxPosts int `yaml:"max_posts"`
	// CacheDir holds the per-account last-topic-id files.
	CacheDir string `yaml:"cache_dir"`
	// StateDir holds the per-account browser storage-state snapshots.
	StateDir string `yaml:"state_dir"`
	// StatePrefix prefixes storage-state filenames.
	StatePrefix string `yaml:"state_prefix"`
	// MaxTopicVisits bounds the traversal loop as a safety net against a
	// site that never yields readable topics. Zero disables the cap.
	MaxTopicVisits int `yaml:"max_topic_visits"`
	// MaxScrollSteps bounds the per-topic scroll loop. Zero disables the cap.
	MaxScrollSteps int `yaml:"max_scroll_steps"`
}

// BrowserConfig controls the Playwright-driven browser.
type BrowserConfig struct {
	Headless          bool          `yaml:"headless"`
	Locale            string        `yaml:"locale"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
}

// NotifyConfig holds the notification channel credentials. A channel is
// considered configured when its required values are non-empty.
type NotifyConfig struct {
	EmailUser        string `yaml:"email_user"`
	EmailPass        string `yaml:"email_pass"`
	EmailTo          string `yaml:"email_to"`
	SMTPServer       string `yaml:"smtp_server"`
	PushPlusToken    string `yaml:"pushplus_token"`
	ServerChanKey    string `yaml:"serverchan_key"`
	DingTalkWebhook  string `yaml:"dingtalk_webhook"`
	TelegramBotToken string `yaml:"telegram_bot_token"`
	TelegramChatID   string `yaml:"telegram_chat_id"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DebugConfig controls diagnostic screenshot and HTML dumps.
type DebugConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ScreenshotDir string `yaml:"screenshot_dir"`
	LogsDir       string `yaml:"logs_dir"`
}

// Default returns the documented defaults.
func Default() *Config {
	return &Config{
		Reader: ReaderConfig{
			BaseURL:        "https://linux.do",
			BaseTopicID:    0, // randomized at startup
			MaxPosts:       0, // randomized at startup
			CacheDir:       "linuxdo_reads",
			StateDir:       "storage-states",
			StatePrefix:    "linuxdo",
			MaxTopicVisits: 2000,
			MaxScrollSteps: 500,
		},
		Browser: BrowserConfig{
			Headless:          true,
			Locale:            "en-US",
			NavigationTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Debug: DebugConfig{
			Enabled:       false,
			ScreenshotDir: "screenshots",
			LogsDir:       "logs",
		},
	}
}

// LoadFromFile merges a YAML config file into c. An empty path searches the
// standard locations; a missing file is not an error.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func findConfigFile() string {
	locations := []string{
		".ldreader.yaml",
		".ldreader.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "ldreader", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".ldreader.yaml"),
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// LoadFromEnv merges environment variables into c. The variable names are
// carried over from the original deployment so existing crontab setups keep
// working unchanged.
func (c *Config) LoadFromEnv() {
	if v := nonNegativeInt(os.Getenv("LINUXDO_BASE_TOPIC_ID")); v >= 0 {
		c.Reader.BaseTopicID = v
	}
	if v := nonNegativeInt(os.Getenv("LINUXDO_MAX_POSTS")); v >= 0 {
		c.Reader.MaxPosts = v
	}
	if v := os.Getenv("LDREADER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := strings.ToLower(os.Getenv("DEBUG")); v == "true" || v == "1" || v == "yes" {
		c.Debug.Enabled = true
	}

	if v := os.Getenv("EMAIL_USER"); v != "" {
		c.Notifications.EmailUser = v
	}
	if v := os.Getenv("EMAIL_PASS"); v != "" {
		c.Notifications.EmailPass = v
	}
	if v := os.Getenv("EMAIL_TO"); v != "" {
		c.Notifications.EmailTo = v
	}
	if v := os.Getenv("CUSTOM_SMTP_SERVER"); v != "" {
		c.Notifications.SMTPServer = v
	}
	if v := os.Getenv("PUSHPLUS_TOKEN"); v != "" {
		c.Notifications.PushPlusToken = v
	}
	if v := os.Getenv("SERVERPUSHKEY"); v != "" {
		c.Notifications.ServerChanKey = v
	}
	if v := os.Getenv("DINGDING_WEBHOOK"); v != "" {
		c.Notifications.DingTalkWebhook = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Notifications.TelegramBotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Notifications.TelegramChatID = v
	}
}

// nonNegativeInt parses s as a non-negative integer, returning -1 when s is
// empty or not a plain decimal. Overrides accept only non-negative integers;
// anything else keeps the randomized default.
func nonNegativeInt(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return -1
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return -1
	}
	return v
}

// ApplyRandomDefaults replaces zero-valued BaseTopicID and MaxPosts with
// fresh values from their documented ranges.
func (c *Config) ApplyRandomDefaults(rng *rand.Rand) {
	if c.Reader.BaseTopicID == 0 {
		c.Reader.BaseTopicID = BaseTopicIDMin + rng.Intn(BaseTopicIDMax-BaseTopicIDMin+1)
	}
	if c.Reader.MaxPosts == 0 {
		c.Reader.MaxPosts = MaxPostsMin + rng.Intn(MaxPostsMax-MaxPostsMin+1)
	}
}

// Validate checks the fully-merged configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.Reader.BaseURL == "" {
		errs = append(errs, errors.New("reader base URL is required"))
	}
	if strings.HasSuffix(c.Reader.BaseURL, "/") {
		errs = append(errs, errors.New("reader base URL must not end with a slash"))
	}
	if c.Reader.BaseTopicID < 0 {
		errs = append(errs, errors.New("base topic ID cannot be negative"))
	}
	if c.Reader.MaxPosts < 0 {
		errs = append(errs, errors.New("max posts cannot be negative"))
	}
	if c.Reader.CacheDir == "" {
		errs = append(errs, errors.New("cache directory is required"))
	}
	if c.Reader.StateDir == "" {
		errs = append(errs, errors.New("state directory is required"))
	}
	if c.Reader.MaxTopicVisits < 0 {
		errs = append(errs, errors.New("max topic visits cannot be negative"))
	}
	if c.Reader.MaxScrollSteps < 0 {
		errs = append(errs, errors.New("max scroll steps cannot be negative"))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true, "disabled": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// StateFile returns the storage-state path for an account hash.
func (c *Config) StateFile(accountHash string) string {
	return filepath.Join(c.Reader.StateDir, fmt.Sprintf("%s_%s_storage_state.json", c.Reader.StatePrefix, accountHash))
}

// Load resolves the configuration from all sources.
// Precedence: flags > environment (including .env) > config file > defaults.
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".ldreader.env"))

	cfg := Default()

	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, err
	}
	cfg.LoadFromEnv()
	cfg.mergeFlags(flags)
	cfg.ApplyRandomDefaults(rand.New(rand.NewSource(time.Now().UnixNano())))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) mergeFlags(flags map[string]interface{}) {
	if v, ok := flags["base-topic-id"].(int); ok && v > 0 {
		c.Reader.BaseTopicID = v
	}
	if v, ok := flags["max-posts"].(int); ok && v > 0 {
		c.Reader.MaxPosts = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["headed"].(bool); ok && v {
		c.Browser.Headless = false
	}
	if v, ok := flags["debug"].(bool); ok && v {
		c.Debug.Enabled = true
	}
}
