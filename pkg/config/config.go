package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/config.yaml"

type ServerConfig struct {
	Addr    string `yaml:"addr" env:"SERVER_ADDR"`
	Port    string `yaml:"-" env:"PORT"`
	GinMode string `yaml:"ginMode" env:"GIN_MODE"`
}

// ListenAddr prefers a bare PORT from the environment over Addr.
func (s ServerConfig) ListenAddr() string {
	if p := strings.TrimSpace(s.Port); p != "" {
		if strings.HasPrefix(p, ":") {
			return p
		}
		return ":" + p
	}
	return s.Addr
}

type LogConfig struct {
	Mode string `yaml:"mode" env:"LOG_MODE"`
}

type StorageConfig struct {
	Backend string `yaml:"backend" env:"STORAGE_BACKEND"`
}

type MongoConfig struct {
	URI            string        `yaml:"uri" env:"MONGODB_URI"`
	Host           string        `yaml:"host" env:"MONGO_HOST"`
	DBName         string        `yaml:"dbname" env:"MONGO_DBNAME"`
	Username       string        `yaml:"username" env:"MONGO_USERNAME"`
	Password       string        `yaml:"password" env:"MONGO_PASSWORD"`
	AuthSource     string        `yaml:"authSource" env:"MONGO_AUTH_SOURCE"`
	ConnectTimeout time.Duration `yaml:"connectTimeout" env:"MONGO_CONNECT_TIMEOUT"`
}

type ShopConfig struct {
	Domain       string `yaml:"domain" env:"SHOP_DOMAIN"`
	CustomDomain string `yaml:"customDomain" env:"SHOP_CUSTOM_DOMAIN"`
	Password     string `yaml:"password" env:"SHOP_PASSWORD"`
	AccessToken  string `yaml:"accessToken" env:"SHOPIFY_ACCESS_TOKEN"`
	APIVersion   string `yaml:"apiVersion" env:"SHOPIFY_API_VERSION"`
}

// StorefrontHost is the host customers browse: the custom domain when set,
// the myshopify domain otherwise.
func (s ShopConfig) StorefrontHost() string {
	if s.CustomDomain != "" {
		return s.CustomDomain
	}
	return s.Domain
}

type ScrapeConfig struct {
	MaxProducts int           `yaml:"maxProducts" env:"SCRAPE_MAX_PRODUCTS"`
	Delay       time.Duration `yaml:"delay" env:"SCRAPE_DELAY"`
	PageTimeout time.Duration `yaml:"pageTimeout" env:"SCRAPE_PAGE_TIMEOUT"`
	Interval    time.Duration `yaml:"interval" env:"SCRAPE_INTERVAL"`
	Timezone    string        `yaml:"timezone" env:"SCRAPE_TIMEZONE"`
	RunAtStart  bool          `yaml:"runAtStart" env:"SCRAPE_RUN_AT_START"`

	loc *time.Location
}

// Location is the zone scheduled runs are aligned to, resolved from Timezone
// when the config is loaded.
func (s ScrapeConfig) Location() *time.Location {
	if s.loc == nil {
		return time.UTC
	}
	return s.loc
}

type LLMConfig struct {
	Provider     string        `yaml:"provider" env:"LLM_PROVIDER"`
	APIKey       string        `yaml:"apiKey" env:"LLM_API_KEY"`
	GroqAPIKey   string        `yaml:"-" env:"GROQ_API_KEY"`
	GeminiAPIKey string        `yaml:"-" env:"GEMINI_API_KEY"`
	Model        string        `yaml:"model" env:"LLM_MODEL"`
	BaseURL      string        `yaml:"baseURL" env:"LLM_BASE_URL"`
	Timeout      time.Duration `yaml:"timeout" env:"LLM_TIMEOUT"`
	Delay        time.Duration `yaml:"delay" env:"LLM_SUMMARY_DELAY"`
	MaxReviews   int           `yaml:"maxReviews" env:"LLM_MAX_REVIEWS"`
}

// Key returns APIKey, or the provider specific variable when APIKey is empty.
func (l LLMConfig) Key() string {
	if l.APIKey != "" {
		return l.APIKey
	}
	if strings.EqualFold(l.Provider, "gemini") {
		return l.GeminiAPIKey
	}
	return l.GroqAPIKey
}

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Storage StorageConfig `yaml:"storage"`
	Mongo   MongoConfig   `yaml:"mongo"`
	Shop    ShopConfig    `yaml:"shop"`
	Scrape  ScrapeConfig  `yaml:"scrape"`
	LLM     LLMConfig     `yaml:"llm"`
}

func Default() Config {
	return Config{
		Server:  ServerConfig{Addr: ":3001", GinMode: "release"},
		Log:     LogConfig{Mode: "dev"},
		Storage: StorageConfig{Backend: "mongo"},
		Mongo:   MongoConfig{ConnectTimeout: 10 * time.Second},
		Shop:    ShopConfig{APIVersion: "2024-10"},
		Scrape: ScrapeConfig{
			MaxProducts: 20,
			Delay:       time.Second,
			PageTimeout: 20 * time.Second,
			Timezone:    "UTC",
		},
		LLM: LLMConfig{
			Provider:   "groq",
			Timeout:    60 * time.Second,
			Delay:      800 * time.Millisecond,
			MaxReviews: 100,
		},
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file at
// path, then the environment (a .env file included). A missing file is not
// an error; a malformed one is.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	_ = godotenv.Load()
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "mongo":
		if c.Mongo.URI == "" && c.Mongo.Host == "" {
			return errors.New("mongo storage needs MONGODB_URI or mongo.host")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Scrape.Interval < 0 {
		return errors.New("scrape interval must not be negative")
	}
	loc, err := time.LoadLocation(c.Scrape.Timezone)
	if err != nil {
		return fmt.Errorf("scrape timezone: %w", err)
	}
	c.Scrape.loc = loc
	return nil
}
