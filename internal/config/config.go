package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `json:"server" envPrefix:"SERVER_"`
	Database DatabaseConfig `json:"database" envPrefix:"DATABASE_"`
	Security SecurityConfig `json:"security" envPrefix:"SECURITY_"`
	Storage  StorageConfig  `json:"storage" envPrefix:"STORAGE_"`
	Mail     MailConfig     `json:"mail" envPrefix:"MAIL_"`
	SNS      SNSConfig      `json:"sns" envPrefix:"SNS_"`
	Digest   DigestConfig   `json:"digest" envPrefix:"DIGEST_"`
	Logging  LoggingConfig  `json:"logging" envPrefix:"LOGGING_"`
	Journal  JournalConfig  `json:"journal" envPrefix:"JOURNAL_"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host           string   `json:"host" env:"HOST"`
	Port           int      `json:"port" env:"PORT"`
	ReadTimeout    Duration `json:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout   Duration `json:"write_timeout" env:"WRITE_TIMEOUT"`
	IdleTimeout    Duration `json:"idle_timeout" env:"IDLE_TIMEOUT"`
	AllowedOrigins []string `json:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
}

// DatabaseConfig represents database configuration. CloudURI may contain a
// {password} placeholder that is filled from Password.
type DatabaseConfig struct {
	LocalURI       string   `json:"local_uri" env:"LOCAL_URI"`
	CloudURI       string   `json:"cloud_uri" env:"CLOUD_URI"`
	Cloud          bool     `json:"cloud" env:"CLOUD"`
	Password       string   `json:"password" env:"PASSWORD"`
	Name           string   `json:"name" env:"NAME"`
	ConnectTimeout Duration `json:"connect_timeout" env:"CONNECT_TIMEOUT"`
}

type SecurityConfig struct {
	JWTSecret      string   `json:"jwt_secret" env:"JWT_SECRET"`
	TokenIssuer    string   `json:"token_issuer" env:"TOKEN_ISSUER"`
	TokenTTL       Duration `json:"token_ttl" env:"TOKEN_TTL"`
	Admins         []string `json:"admins" env:"ADMINS" envSeparator:","`
	StrictReferees bool     `json:"strict_referees" env:"STRICT_REFEREES"`
}

// StorageConfig configures manuscript file storage. An empty bucket
// disables it.
type StorageConfig struct {
	Bucket          string `json:"bucket" env:"BUCKET"`
	Region          string `json:"region" env:"REGION"`
	AccessKeyID     string `json:"access_key_id" env:"ACCESS_KEY_ID"`
	SecretAccessKey string `json:"secret_access_key" env:"SECRET_ACCESS_KEY"`
	Endpoint        string `json:"endpoint" env:"ENDPOINT"`
	UsePathStyle    bool   `json:"use_path_style" env:"USE_PATH_STYLE"`
}

func (c StorageConfig) Enabled() bool {
	return c.Bucket != ""
}

type MailConfig struct {
	Enabled bool   `json:"enabled" env:"ENABLED"`
	From    string `json:"from" env:"FROM"`
	Region  string `json:"region" env:"REGION"`
}

type SNSConfig struct {
	TopicARN string `json:"topic_arn" env:"TOPIC_ARN"`
	Region   string `json:"region" env:"REGION"`
}

type DigestConfig struct {
	Enabled  bool   `json:"enabled" env:"ENABLED"`
	Schedule string `json:"schedule" env:"SCHEDULE"`
}

type LoggingConfig struct {
	Level       string `json:"level" env:"LEVEL"`
	Development bool   `json:"development" env:"DEVELOPMENT"`
}

type JournalConfig struct {
	Title string `json:"title" env:"TITLE"`
}

// Default returns the configuration used when nothing else is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  Duration(15 * time.Second),
			WriteTimeout: Duration(30 * time.Second),
			IdleTimeout:  Duration(60 * time.Second),
		},
		Database: DatabaseConfig{
			LocalURI:       "mongodb://localhost:27017",
			Name:           "journalDB",
			ConnectTimeout: Duration(10 * time.Second),
		},
		Security: SecurityConfig{
			TokenIssuer: "jlsa-fall-journal",
			TokenTTL:    Duration(24 * time.Hour),
		},
		Storage: StorageConfig{
			Region: "us-east-1",
		},
		Mail: MailConfig{
			Region: "us-east-1",
		},
		SNS: SNSConfig{
			Region: "us-east-1",
		},
		Digest: DigestConfig{
			Enabled:  true,
			Schedule: "@hourly",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Journal: JournalConfig{
			Title: "Journal of Any Subject",
		},
	}
}

// LoadConfig loads configuration from file and environment variables.
// A missing file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	config := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate reports the first unusable setting
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if strings.TrimSpace(c.Security.JWTSecret) == "" {
		return errors.New("security.jwt_secret is required")
	}
	if c.Database.Name == "" {
		return errors.New("database.name is required")
	}
	if c.Database.Cloud && c.Database.CloudURI == "" {
		return errors.New("database.cloud_uri is required when database.cloud is set")
	}
	if c.Mail.Enabled && c.Mail.From == "" {
		return errors.New("mail.from is required when mail is enabled")
	}
	if c.Digest.Enabled && c.Digest.Schedule == "" {
		return errors.New("digest.schedule is required when the digest is enabled")
	}
	return nil
}

// URI returns the Mongo connection string for the configured deployment
func (c *DatabaseConfig) URI() string {
	if c.Cloud {
		return strings.ReplaceAll(c.CloudURI, "{password}", c.Password)
	}
	return c.LocalURI
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
