package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings are the publish-policy knobs. They are loaded fresh at the
// start of every run and never change mid-run.
type Settings struct {
	MaxPostsPerDay      int     `yaml:"max_posts_per_day"`
	MinIntervalMinutes  int     `yaml:"min_interval_minutes"`
	SimilarityThreshold float32 `yaml:"similarity_threshold"`
	Enabled             bool    `yaml:"enabled"`
}

func (s Settings) MinInterval() time.Duration {
	return time.Duration(s.MinIntervalMinutes) * time.Minute
}

func (s Settings) Validate() error {
	if s.MaxPostsPerDay < 0 {
		return fmt.Errorf("max_posts_per_day must be >= 0, got %d", s.MaxPostsPerDay)
	}
	if s.MinIntervalMinutes < 0 {
		return fmt.Errorf("min_interval_minutes must be >= 0, got %d", s.MinIntervalMinutes)
	}
	if s.SimilarityThreshold < 0 || s.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be in [0,1], got %v", s.SimilarityThreshold)
	}
	return nil
}

type Source struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Category string `yaml:"category"`
}

type IndexConfig struct {
	// Backend is "flat" (file snapshot, default) or "qdrant".
	Backend    string `yaml:"backend"`
	QdrantHost string `yaml:"qdrant_host"`
	QdrantPort int    `yaml:"qdrant_port"`
	Collection string `yaml:"collection"`
}

type FormatterConfig struct {
	Model         string `yaml:"model"`
	MaxCandidates int    `yaml:"max_candidates"`
	TopN          int    `yaml:"top_n"`
}

type Config struct {
	DataDir       string          `yaml:"data_dir"`
	EmbeddingURL  string          `yaml:"embedding_url"`
	LookbackHours int             `yaml:"lookback_hours"`
	APIPort       int             `yaml:"api_port"`
	Index         IndexConfig     `yaml:"index"`
	Settings      Settings        `yaml:"settings"`
	Sources       []Source        `yaml:"sources"`
	Formatter     FormatterConfig `yaml:"formatter"`
	TelegramChat  string          `yaml:"telegram_chat_id"`

	// Secrets come from the environment, never from the yaml file.
	AnthropicAPIKey  string `yaml:"-"`
	TelegramBotToken string `yaml:"-"`
}

// Load reads and validates the yaml configuration. Any malformed setting
// is fatal before a single collaborator is touched.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := &Config{
		DataDir:       "data",
		LookbackHours: 1,
		APIPort:       8002,
		Index:         IndexConfig{Backend: "flat", Collection: "news_items"},
		Settings: Settings{
			MaxPostsPerDay:      10,
			MinIntervalMinutes:  60,
			SimilarityThreshold: 0.85,
			Enabled:             true,
		},
		Formatter: FormatterConfig{MaxCandidates: 10, TopN: 3},
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	if cfg.EmbeddingURL == "" {
		return nil, fmt.Errorf("embedding_url is required")
	}
	switch cfg.Index.Backend {
	case "flat":
	case "qdrant":
		if cfg.Index.QdrantHost == "" || cfg.Index.QdrantPort == 0 {
			return nil, fmt.Errorf("qdrant backend requires qdrant_host and qdrant_port")
		}
	default:
		return nil, fmt.Errorf("unknown index backend %q (valid: flat, qdrant)", cfg.Index.Backend)
	}
	if cfg.LookbackHours <= 0 {
		return nil, fmt.Errorf("lookback_hours must be > 0, got %d", cfg.LookbackHours)
	}

	cfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")

	return cfg, nil
}
