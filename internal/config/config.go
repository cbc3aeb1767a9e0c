package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Scraper struct {
		UserAgent      string        `yaml:"user_agent"`
		ViewportWidth  int           `yaml:"viewport_width" validate:"min=320"`
		ViewportHeight int           `yaml:"viewport_height" validate:"min=240"`
		RequestTimeout time.Duration `yaml:"request_timeout" validate:"min=1s"`
		HeadlessMode   bool          `yaml:"headless_mode"`
		StealthMode    bool          `yaml:"stealth_mode"`
		MinDelay       time.Duration `yaml:"min_delay"`
		MaxDelay       time.Duration `yaml:"max_delay" validate:"gtefield=MinDelay"`
		ResultsPerPage int           `yaml:"results_per_page" validate:"min=1"`

		Captcha struct {
			Provider        string        `yaml:"provider"`
			APIKey          string        `yaml:"api_key"`
			Timeout         time.Duration `yaml:"timeout" validate:"min=10s"`
			MaxRetries      int           `yaml:"max_retries" validate:"min=1"`
			RetryDelay      time.Duration `yaml:"retry_delay"`
			EnableAutoSolve bool          `yaml:"enable_auto_solve"`
		} `yaml:"captcha"`

		Email struct {
			MaxConcurrent int           `yaml:"max_concurrent" validate:"min=1"`
			MaxRetries    int           `yaml:"max_retries" validate:"min=1"`
			RetryDelay    time.Duration `yaml:"retry_delay"`
		} `yaml:"email"`
	} `yaml:"scraper"`

	RateLimit struct {
		RequestsPerMinute int `yaml:"requests_per_minute" validate:"min=1"`
		Burst             int `yaml:"burst" validate:"min=1"`
	} `yaml:"rate_limit"`

	Storage struct {
		PostgresDSN string `yaml:"postgres_dsn"`
		OutputFile  string `yaml:"output_file"`

		Redis struct {
			URL     string        `yaml:"url"`
			SeenTTL time.Duration `yaml:"seen_ttl"`
		} `yaml:"redis"`
	} `yaml:"storage"`

	Archive struct {
		Enabled         bool   `yaml:"enabled"`
		Region          string `yaml:"region"`
		BucketName      string `yaml:"bucket_name"`
		AccessKeyID     string `yaml:"access_key_id"`
		AccessKeySecret string `yaml:"access_key_secret"`
	} `yaml:"archive"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// expandEnvVars expands environment variables in a string using ${VAR} syntax
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	_ = godotenv.Load()

	config := &Config{}
	config.setDefaults()

	// Load from YAML file if it exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			yamlContent := expandEnvVars(string(data))
			if err := yaml.Unmarshal([]byte(yamlContent), config); err != nil {
				return nil, err
			}
		}
	}

	// Override with environment variables
	config.loadFromEnv()

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func (c *Config) setDefaults() {
	c.Scraper.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	c.Scraper.ViewportWidth = 1920
	c.Scraper.ViewportHeight = 1080
	c.Scraper.RequestTimeout = 30 * time.Second
	c.Scraper.HeadlessMode = true
	c.Scraper.StealthMode = true
	c.Scraper.MinDelay = 2 * time.Second
	c.Scraper.MaxDelay = 5 * time.Second
	c.Scraper.ResultsPerPage = 120

	c.Scraper.Captcha.Provider = "2captcha"
	c.Scraper.Captcha.Timeout = 120 * time.Second
	c.Scraper.Captcha.MaxRetries = 3
	c.Scraper.Captcha.RetryDelay = 5 * time.Second
	c.Scraper.Captcha.EnableAutoSolve = true

	c.Scraper.Email.MaxConcurrent = 2
	c.Scraper.Email.MaxRetries = 3
	c.Scraper.Email.RetryDelay = 2 * time.Second

	c.RateLimit.RequestsPerMinute = 20
	c.RateLimit.Burst = 3

	c.Storage.OutputFile = "leads.jsonl"
	c.Storage.Redis.SeenTTL = 7 * 24 * time.Hour

	c.Archive.Region = "nyc3"

	c.Logging.Level = "info"
	c.Logging.Format = "json"
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if apiKey := os.Getenv("CAPTCHA_API_KEY"); apiKey != "" {
		c.Scraper.Captcha.APIKey = apiKey
	}
	// Also support 2CAPTCHA_API_KEY for compatibility
	if apiKey := os.Getenv("2CAPTCHA_API_KEY"); apiKey != "" {
		c.Scraper.Captcha.APIKey = apiKey
	}

	if ua := os.Getenv("SCRAPER_USER_AGENT"); ua != "" {
		c.Scraper.UserAgent = ua
	}

	if headless := os.Getenv("SCRAPER_HEADLESS"); headless != "" {
		c.Scraper.HeadlessMode = headless == "true" || headless == "1"
	}

	if minDelay := os.Getenv("SCRAPER_MIN_DELAY"); minDelay != "" {
		if d, err := time.ParseDuration(minDelay); err == nil {
			c.Scraper.MinDelay = d
		}
	}

	if maxDelay := os.Getenv("SCRAPER_MAX_DELAY"); maxDelay != "" {
		if d, err := time.ParseDuration(maxDelay); err == nil {
			c.Scraper.MaxDelay = d
		}
	}

	if maxConcurrent := os.Getenv("EMAIL_MAX_CONCURRENT"); maxConcurrent != "" {
		if n, err := strconv.Atoi(maxConcurrent); err == nil {
			c.Scraper.Email.MaxConcurrent = n
		}
	}

	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		c.Storage.PostgresDSN = dsn
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Storage.Redis.URL = redisURL
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}

	if accessKey := os.Getenv("BUCKET_ACCESS_KEY_ID"); accessKey != "" {
		c.Archive.AccessKeyID = accessKey
	}

	if accessSecret := os.Getenv("BUCKET_ACCESS_KEY_SECRET"); accessSecret != "" {
		c.Archive.AccessKeySecret = accessSecret
	}

	if bucket := os.Getenv("BUCKET_NAME"); bucket != "" {
		c.Archive.BucketName = bucket
	}

	if region := os.Getenv("BUCKET_REGION"); region != "" {
		c.Archive.Region = region
	}
}
