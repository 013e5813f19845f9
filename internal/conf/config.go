package conf

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	MinIO     MinIOConfig
	Log       LogConfig
	Upload    UploadConfig
	RateLimit RateLimitConfig
	Sweep     SweepConfig
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type LogConfig struct {
	Level            string        `mapstructure:"level"`
	Format           string        `mapstructure:"format"`
	Output           string        `mapstructure:"output"`
	File             FileLogConfig `mapstructure:"file"`
	EnableCaller     bool          `mapstructure:"enablecaller"`
	EnableStacktrace bool          `mapstructure:"enablestacktrace"`
}

type FileLogConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"maxsize"`
	MaxAge     int    `mapstructure:"maxage"`
	MaxBackups int    `mapstructure:"maxbackups"`
	Compress   bool   `mapstructure:"compress"`
}

// UploadConfig bounds the upload negotiation contract.
type UploadConfig struct {
	MaxFileSize    int64         `mapstructure:"max_file_size"`
	ExpiryMinutes  []int         `mapstructure:"expiry_minutes"`
	UploadURLTTL   time.Duration `mapstructure:"upload_url_ttl"`
	DownloadURLTTL time.Duration `mapstructure:"download_url_ttl"`
}

type RateLimitConfig struct {
	Upload   RateLimitRule `mapstructure:"upload"`
	Download RateLimitRule `mapstructure:"download"`
}

type RateLimitRule struct {
	Window      time.Duration `mapstructure:"window"`
	MaxRequests int           `mapstructure:"max_requests"`
}

// SweepConfig controls the lifecycle sweeper and the deferred purge queue.
type SweepConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	Batch      int           `mapstructure:"batch"`
	Workers    int           `mapstructure:"workers"`
	GraceDelay time.Duration `mapstructure:"grace_delay"`
	Token      string        `mapstructure:"token"`
}

func LoadConfig(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Upload.MaxFileSize <= 0 {
		c.Upload.MaxFileSize = 500 << 20
	}
	if len(c.Upload.ExpiryMinutes) == 0 {
		c.Upload.ExpiryMinutes = []int{10, 60, 120}
	}
	if c.Upload.UploadURLTTL <= 0 {
		c.Upload.UploadURLTTL = time.Hour
	}
	if c.Upload.DownloadURLTTL <= 0 {
		c.Upload.DownloadURLTTL = 5 * time.Minute
	}
	if c.RateLimit.Upload.MaxRequests <= 0 {
		c.RateLimit.Upload = RateLimitRule{Window: time.Minute, MaxRequests: 5}
	}
	if c.RateLimit.Download.MaxRequests <= 0 {
		c.RateLimit.Download = RateLimitRule{Window: time.Minute, MaxRequests: 20}
	}
	if c.Sweep.Interval <= 0 {
		c.Sweep.Interval = 5 * time.Minute
	}
	if c.Sweep.Batch <= 0 {
		c.Sweep.Batch = 200
	}
	if c.Sweep.Workers <= 0 {
		c.Sweep.Workers = 4
	}
	if c.Sweep.GraceDelay <= 0 {
		c.Sweep.GraceDelay = time.Minute
	}
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
