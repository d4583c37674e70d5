package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "LINK_SCANNER_CONFIG"
	projectEnv        = "GOOGLE_CLOUD_PROJECT"
	historyDBEnv      = "LINK_SCANNER_HISTORY_DB"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// ErrMissingOutput is returned when no output prefix was configured.
var ErrMissingOutput = errors.New("output prefix is required")

// Config holds high-level settings required across the application.
type Config struct {
	Source        SourceConfig       `yaml:"source"`
	Extractor     ExtractorConfig    `yaml:"extractor"`
	Checker       CheckerConfig      `yaml:"checker"`
	Runner        RunnerConfig       `yaml:"runner"`
	Output        OutputConfig       `yaml:"output"`
	History       HistoryConfig      `yaml:"history"`
	Notifications NotificationConfig `yaml:"notifications"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// SourceConfig selects and sizes the answer dataset.
type SourceConfig struct {
	NumAnswers     int    `yaml:"num_answers"`
	Project        string `yaml:"project"`
	Location       string `yaml:"location"`
	AnswersTable   string `yaml:"answers_table"`
	QuestionsTable string `yaml:"questions_table"`
	PageSize       int64  `yaml:"page_size"`
	// Input switches to a local JSON-lines file instead of BigQuery.
	Input string `yaml:"input"`
}

// ExtractorConfig tunes link discovery in answer bodies.
type ExtractorConfig struct {
	Mode                  string `yaml:"mode"`
	ExcludedDomain        string `yaml:"excluded_domain"`
	PermalinkFormat       string `yaml:"permalink_format"`
	CaseInsensitiveScheme bool   `yaml:"case_insensitive_scheme"`
}

// CheckerConfig holds the probe settings.
type CheckerConfig struct {
	ConnectTimeout       time.Duration `yaml:"connect_timeout"`
	ReadTimeout          time.Duration `yaml:"read_timeout"`
	UserAgent            string        `yaml:"user_agent"`
	FollowRedirects      bool          `yaml:"follow_redirects"`
	MaxRequestsPerSecond float64       `yaml:"max_requests_per_second"`
}

// RunnerConfig picks the execution engine and its parallelism.
type RunnerConfig struct {
	Name             string `yaml:"name"`
	Region           string `yaml:"region"`
	TempLocation     string `yaml:"temp_location"`
	NumWorkers       int    `yaml:"num_workers"`
	WorkersPerShard  int    `yaml:"workers_per_shard"`
	DirectNumWorkers int    `yaml:"direct_num_workers"`
}

// OutputConfig says where reports go.
type OutputConfig struct {
	Prefix string `yaml:"prefix"`
}

// HistoryConfig enables the SQLite run archive when Path is set.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	TopN     int    `yaml:"top_n"`
}

// Enabled reports whether both credentials are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// LoggingConfig sets the log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load builds the configuration from defaults, the YAML file at path (or
// LINK_SCANNER_CONFIG when path is empty) and environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(projectEnv); v != "" && c.Source.Project == "" {
		c.Source.Project = v
	}

	if v := os.Getenv(historyDBEnv); v != "" {
		c.History.Path = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

// Validate checks the settings a run cannot start without.
func (c Config) Validate() error {
	if c.Output.Prefix == "" {
		return ErrMissingOutput
	}
	if c.Source.NumAnswers <= 0 {
		return fmt.Errorf("num_answers must be positive, got %d", c.Source.NumAnswers)
	}
	if c.Runner.Name == "" {
		return errors.New("runner name is required")
	}
	if c.Runner.NumWorkers <= 0 {
		return fmt.Errorf("num_workers must be positive, got %d", c.Runner.NumWorkers)
	}
	if c.Runner.DirectNumWorkers <= 0 {
		return fmt.Errorf("direct_num_workers must be positive, got %d", c.Runner.DirectNumWorkers)
	}
	if c.Checker.ConnectTimeout <= 0 || c.Checker.ReadTimeout <= 0 {
		return errors.New("checker timeouts must be positive")
	}
	if c.Checker.MaxRequestsPerSecond < 0 {
		return fmt.Errorf("max_requests_per_second must not be negative, got %s",
			strconv.FormatFloat(c.Checker.MaxRequestsPerSecond, 'g', -1, 64))
	}
	return nil
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Source: SourceConfig{
			NumAnswers:     50,
			AnswersTable:   "bigquery-public-data.stackoverflow.posts_answers",
			QuestionsTable: "bigquery-public-data.stackoverflow.posts_questions",
			PageSize:       1000,
		},
		Extractor: ExtractorConfig{
			Mode:            "regex",
			ExcludedDomain:  "stackoverflow.com",
			PermalinkFormat: "https://stackoverflow.com/a/%d",
		},
		Checker: CheckerConfig{
			ConnectTimeout: 5 * time.Second,
			ReadTimeout:    10 * time.Second,
			UserAgent:      "broken-link-checker",
		},
		Runner: RunnerConfig{
			Name:             "direct",
			NumWorkers:       4,
			WorkersPerShard:  4,
			DirectNumWorkers: 16,
		},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{TopN: 10},
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
