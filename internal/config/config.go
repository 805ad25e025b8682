package config

import (
	"fmt"
	"os"
	"time"

	"pagequiz/internal/domain"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Storage  StorageConfig
	Provider ProviderConfig
	Snapshot SnapshotConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LoggerConfig struct {
	Level string
	Env   string
}

// StorageConfig selects the durable session store backend.
type StorageConfig struct {
	// Driver is "redis" or "sqlite".
	Driver string
	Redis  RedisConfig
	SQLite SQLiteConfig
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type SQLiteConfig struct {
	Path string
}

// SnapshotConfig bounds the page fetch used by the URL-based DOM snapshot
// adapter.
type SnapshotConfig struct {
	Timeout      time.Duration
	MaxBodyBytes int64
}

// ProviderConfig holds the per-provider credentials, model choices and quiz
// thresholds. It is the configuration collaborator's half of the
// ProviderSettings contract.
type ProviderConfig struct {
	Provider     string
	MaxQuestions int
	Difficulty   string
	Timeout      time.Duration

	Ollama struct {
		BaseURL string
		Model   string
	}
	OpenAI struct {
		APIKey  string
		Model   string
		BaseURL string
	}
	Anthropic struct {
		APIKey  string
		Model   string
		BaseURL string
		Version string
	}
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if os.Getenv("ENV") == "test" {
		viper.AddConfigPath("../../config")
		viper.AddConfigPath("../../")
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A missing file is fine: defaults plus env cover everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port:         viper.GetInt("server.port"),
			ReadTimeout:  viper.GetDuration("server.read_timeout") * time.Second,
			WriteTimeout: viper.GetDuration("server.write_timeout") * time.Second,
		},
		Logger: LoggerConfig{
			Level: viper.GetString("logger.level"),
			Env:   viper.GetString("logger.env"),
		},
		Storage: StorageConfig{
			Driver: viper.GetString("storage.driver"),
			Redis: RedisConfig{
				Address:  viper.GetString("storage.redis.address"),
				Password: viper.GetString("storage.redis.password"),
				DB:       viper.GetInt("storage.redis.db"),
			},
			SQLite: SQLiteConfig{
				Path: viper.GetString("storage.sqlite.path"),
			},
		},
		Snapshot: SnapshotConfig{
			Timeout:      viper.GetDuration("snapshot.timeout") * time.Second,
			MaxBodyBytes: viper.GetInt64("snapshot.max_body_bytes"),
		},
	}

	p := &config.Provider
	p.Provider = viper.GetString("provider.name")
	p.MaxQuestions = viper.GetInt("provider.max_questions")
	p.Difficulty = viper.GetString("provider.difficulty")
	p.Timeout = viper.GetDuration("provider.timeout") * time.Second
	p.Ollama.BaseURL = viper.GetString("provider.ollama.base_url")
	p.Ollama.Model = viper.GetString("provider.ollama.model")
	p.OpenAI.APIKey = viper.GetString("provider.openai.api_key")
	p.OpenAI.Model = viper.GetString("provider.openai.model")
	p.OpenAI.BaseURL = viper.GetString("provider.openai.base_url")
	p.Anthropic.APIKey = viper.GetString("provider.anthropic.api_key")
	p.Anthropic.Model = viper.GetString("provider.anthropic.model")
	p.Anthropic.BaseURL = viper.GetString("provider.anthropic.base_url")
	p.Anthropic.Version = viper.GetString("provider.anthropic.version")

	applyEnvOverrides(config)

	return config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8090)
	viper.SetDefault("server.read_timeout", 20)
	viper.SetDefault("server.write_timeout", 20)
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.env", "development")
	viper.SetDefault("storage.driver", "sqlite")
	viper.SetDefault("storage.redis.address", "localhost:6379")
	viper.SetDefault("storage.sqlite.path", "pagequiz.db")
	viper.SetDefault("snapshot.timeout", 15)
	viper.SetDefault("snapshot.max_body_bytes", 4*1024*1024)
	viper.SetDefault("provider.name", "ollama")
	viper.SetDefault("provider.max_questions", 10)
	viper.SetDefault("provider.difficulty", "medium")
	viper.SetDefault("provider.timeout", 90)
	viper.SetDefault("provider.ollama.base_url", "http://localhost:11434")
	viper.SetDefault("provider.ollama.model", "llama3.1")
	viper.SetDefault("provider.openai.model", "gpt-4o-mini")
	viper.SetDefault("provider.openai.base_url", "https://api.openai.com")
	viper.SetDefault("provider.anthropic.model", "claude-3-5-haiku-latest")
	viper.SetDefault("provider.anthropic.base_url", "https://api.anthropic.com")
	viper.SetDefault("provider.anthropic.version", "2023-06-01")
}

func applyEnvOverrides(config *Config) {
	if addr := os.Getenv("REDIS_ADDRESS"); addr != "" {
		config.Storage.Redis.Address = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		config.Storage.Redis.Password = password
	}
	if path := os.Getenv("SQLITE_PATH"); path != "" {
		config.Storage.SQLite.Path = path
	}
	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		config.Provider.Provider = provider
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.Provider.Ollama.BaseURL = baseURL
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		config.Provider.OpenAI.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Provider.Anthropic.APIKey = key
	}
}

// ProviderSettings maps the loaded configuration onto the read-only
// settings contract the core consumes. Config implements
// domain.SettingsSource.
func (c *Config) ProviderSettings() domain.ProviderSettings {
	p := c.Provider
	return domain.ProviderSettings{
		Provider: domain.ProviderName(p.Provider),
		Ollama: domain.OllamaSettings{
			BaseURL: p.Ollama.BaseURL,
			Model:   p.Ollama.Model,
		},
		OpenAI: domain.OpenAISettings{
			APIKey:  p.OpenAI.APIKey,
			Model:   p.OpenAI.Model,
			BaseURL: p.OpenAI.BaseURL,
		},
		Anthropic: domain.AnthropicSettings{
			APIKey:  p.Anthropic.APIKey,
			Model:   p.Anthropic.Model,
			BaseURL: p.Anthropic.BaseURL,
			Version: p.Anthropic.Version,
		},
		MaxQuestions: p.MaxQuestions,
		Difficulty:   p.Difficulty,
	}
}
