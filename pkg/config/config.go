package config

import (
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"Whispen/pkg/cache"
	"Whispen/pkg/logger"
	"Whispen/pkg/util"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/ulule/limiter/v3"
)

// Config is the whole process configuration, read from the environment.
type Config struct {
	Addr           string        `env:"ADDR" env-default:":8000"`
	Mode           string        `env:"MODE" env-default:"release"`
	APIPrefix      string        `env:"API_PREFIX" env-default:"/api/v1"`
	CORSOrigins    []string      `env:"CORS_ORIGINS" env-separator:"," env-default:"http://localhost:3000,http://localhost:5173"`
	RateLimit      string        `env:"RATE_LIMIT" env-default:"60-M"`
	HealthCacheTTL time.Duration `env:"HEALTH_CACHE_TTL" env-default:"30s"`

	// RateLimitUpload overrides RateLimit on the upload route.
	RateLimitUpload string `env:"RATE_LIMIT_UPLOAD" env-default:"10-M"`
	// RateLimitWhitelist lists CIDRs that are never limited.
	RateLimitWhitelist []string `env:"RATE_LIMIT_WHITELIST" env-separator:","`

	// MonitorInterval is how often disk and memory usage are sampled.
	MonitorInterval time.Duration `env:"MONITOR_INTERVAL" env-default:"1m"`

	Log     logger.LogConfig
	Storage StorageConfig
	Whisper WhisperConfig
	Remote  RemoteWhisperConfig
	LLM     LLMConfig
	Cache   cache.Config
}

// StorageConfig covers temporary upload storage and retention.
type StorageConfig struct {
	TempFolder        string   `env:"TEMP_FOLDER" env-default:"./temp"`
	MaxFileSizeMB     int      `env:"MAX_FILE_SIZE_MB" env-default:"200"`
	AllowedExtensions []string `env:"ALLOWED_AUDIO_EXTENSIONS" env-separator:"," env-default:"mp3,wav,m4a,flac,ogg,webm"`
	RetentionHours    int      `env:"AUTO_DELETE_FILES_AFTER_HOURS" env-default:"24"`
	SweepSchedule     string   `env:"SWEEP_SCHEDULE" env-default:"@hourly"`
}

// WhisperConfig configures the local faster-whisper engine.
type WhisperConfig struct {
	Enabled     bool   `env:"USE_LOCAL_WHISPER" env-default:"false"`
	ModelSize   string `env:"WHISPER_MODEL_SIZE" env-default:"base"`
	Device      string `env:"WHISPER_DEVICE" env-default:"cpu"`
	ComputeType string `env:"WHISPER_COMPUTE_TYPE" env-default:"int8"`
	Python      string `env:"WHISPER_PYTHON" env-default:"python3"`

	// LoadTimeout bounds the initial model load, including a first download.
	LoadTimeout time.Duration `env:"WHISPER_LOAD_TIMEOUT" env-default:"10m"`
}

// RemoteWhisperConfig configures the OpenAI speech-to-text API engine.
type RemoteWhisperConfig struct {
	Enabled bool   `env:"USE_OPENAI_WHISPER" env-default:"false"`
	APIKey  string `env:"OPENAI_API_KEY"`
	BaseURL string `env:"OPENAI_BASE_URL"`
	Model   string `env:"OPENAI_WHISPER_MODEL" env-default:"whisper-1"`
}

// LLMConfig configures the chat-completion deployment used for summaries.
type LLMConfig struct {
	// azure, openai, ollama or lmstudio
	Provider    string  `env:"LLM_PROVIDER" env-default:"azure"`
	Endpoint    string  `env:"AZURE_OPENAI_ENDPOINT"`
	APIKey      string  `env:"AZURE_OPENAI_API_KEY"`
	APIVersion  string  `env:"AZURE_OPENAI_API_VERSION" env-default:"2024-02-15-preview"`
	Deployment  string  `env:"AZURE_GPT4_DEPLOYMENT_NAME" env-default:"gpt-4"`
	Temperature float32 `env:"LLM_TEMPERATURE" env-default:"0.3"`
	MaxTokens   int     `env:"LLM_MAX_TOKENS" env-default:"2000"`
	MinChars    int     `env:"SUMMARY_MIN_CHARS" env-default:"50"`
}

// MaxFileSizeBytes returns the upload limit in bytes.
func (s StorageConfig) MaxFileSizeBytes() int64 {
	return int64(s.MaxFileSizeMB) * 1024 * 1024
}

// Retention returns the retention window.
func (s StorageConfig) Retention() time.Duration {
	return time.Duration(s.RetentionHours) * time.Hour
}

// Extensions returns the allow-list normalized to lower case without dots.
func (s StorageConfig) Extensions() []string {
	out := make([]string, 0, len(s.AllowedExtensions))
	for _, ext := range s.AllowedExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			out = append(out, ext)
		}
	}
	return out
}

// Load reads .env files for APP_ENV (default development) and then the
// environment into a Config.
func Load() (*Config, error) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	if err := util.LoadEnv(env); err != nil {
		log.Printf("Failed to load .env file: %v", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.Storage.MaxFileSizeMB <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE_MB must be positive, got %d", c.Storage.MaxFileSizeMB)
	}
	if len(c.Storage.Extensions()) == 0 {
		return fmt.Errorf("ALLOWED_AUDIO_EXTENSIONS must list at least one extension")
	}
	if c.Storage.RetentionHours <= 0 {
		return fmt.Errorf("AUTO_DELETE_FILES_AFTER_HOURS must be positive, got %d", c.Storage.RetentionHours)
	}
	if strings.TrimSpace(c.Storage.TempFolder) == "" {
		return fmt.Errorf("TEMP_FOLDER must not be empty")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must be positive, got %d", c.LLM.MaxTokens)
	}
	for name, rate := range map[string]string{"RATE_LIMIT": c.RateLimit, "RATE_LIMIT_UPLOAD": c.RateLimitUpload} {
		if _, err := limiter.NewRateFromFormatted(rate); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	for _, cidr := range c.RateLimitWhitelist {
		if _, _, err := net.ParseCIDR(strings.TrimSpace(cidr)); err != nil {
			return fmt.Errorf("RATE_LIMIT_WHITELIST: %w", err)
		}
	}
	if c.MonitorInterval <= 0 {
		return fmt.Errorf("MONITOR_INTERVAL must be positive, got %s", c.MonitorInterval)
	}
	if c.Remote.Enabled && c.Remote.APIKey == "" {
		return fmt.Errorf("USE_OPENAI_WHISPER requires OPENAI_API_KEY")
	}
	return nil
}
