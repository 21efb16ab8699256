package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var configLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	configLogger = l
}

// Config represents the complete configuration structure
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Identity IdentityConfig `yaml:"identity"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Drafts   DraftsConfig   `yaml:"drafts"`
	Content  ContentConfig  `yaml:"content"`
	Publish  PublishConfig  `yaml:"publish"`
}

type ServerConfig struct {
	Host string `yaml:"host" default:"0.0.0.0"`
	Port string `yaml:"port" default:"12600"`
}

type LoggingConfig struct {
	Level string `yaml:"level" default:"info"`
}

// IdentityConfig holds the single actor every write is attributed to.
type IdentityConfig struct {
	UserID string `yaml:"user_id" default:"local-user"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" default:"sqlite3"`
	DSN    string `yaml:"dsn" default:"./roteiro.db"`
}

type StorageConfig struct {
	Driver        string   `yaml:"driver" default:"fs"`
	Dir           string   `yaml:"dir" default:"./media"`
	PublicBaseURL string   `yaml:"public_base_url" default:"http://localhost:12600/media"`
	S3            S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket          string `yaml:"bucket" default:"roteiro"`
	Endpoint        string `yaml:"endpoint" default:""`
	Region          string `yaml:"region" default:"auto"`
	UsePathStyle    bool   `yaml:"use_path_style" default:"true"`
	AccessKeyID     string `yaml:"-"`
	SecretAccessKey string `yaml:"-"`
}

type DraftsConfig struct {
	Dir        string `yaml:"dir" default:"./.drafts"`
	DebounceMS int    `yaml:"debounce_ms" default:"500"`

	// Compression is the codec for persisted drafts: zstd, gzip or none.
	Compression string `yaml:"compression" default:"zstd"`
}

func (d DraftsConfig) Debounce() time.Duration {
	return time.Duration(d.DebounceMS) * time.Millisecond
}

type ContentConfig struct {
	MaxTipImages int `yaml:"max_tip_images" default:"10"`
	MaxGuideTips int `yaml:"max_guide_tips" default:"20"`
}

type PublishConfig struct {
	Transactional bool `yaml:"transactional" default:"true"`
}

// Environment variables that override file values. Secrets are only read from here.
const (
	EnvDatabaseDSN       = "ROTEIRO_DATABASE_DSN"
	EnvS3AccessKeyID     = "ROTEIRO_S3_ACCESS_KEY_ID"
	EnvS3SecretAccessKey = "ROTEIRO_S3_SECRET_ACCESS_KEY"
	EnvS3Endpoint        = "ROTEIRO_S3_ENDPOINT"
	EnvUserID            = "ROTEIRO_USER_ID"
	EnvLogLevel          = "ROTEIRO_LOG_LEVEL"
)

var AppConfig *Config

func LoadConfig(path string) (*Config, error) {
	config := &Config{}

	// Apply default values first
	applyDefaults(config)

	data, err := os.ReadFile(path)
	if err != nil {
		// If file doesn't exist, just use defaults
		configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
		ApplyEnv(config)
		AppConfig = config
		return config, nil
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	ApplyEnv(config)
	if err := config.Validate(); err != nil {
		return nil, err
	}

	AppConfig = config
	return config, nil
}

// ApplyEnv overrides config values with the ROTEIRO_* environment variables that are set.
func ApplyEnv(config *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvDatabaseDSN)); v != "" {
		config.Database.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvS3Endpoint)); v != "" {
		config.Storage.S3.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvUserID)); v != "" {
		config.Identity.UserID = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		config.Logging.Level = v
	}
	config.Storage.S3.AccessKeyID = os.Getenv(EnvS3AccessKeyID)
	config.Storage.S3.SecretAccessKey = os.Getenv(EnvS3SecretAccessKey)
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPgx, DriverMemory:
	default:
		return fmt.Errorf(ErrUnknownValueFmt, "database.driver", c.Database.Driver)
	}
	switch c.Storage.Driver {
	case StorageFS, StorageS3, StorageMemory:
	default:
		return fmt.Errorf(ErrUnknownValueFmt, "storage.driver", c.Storage.Driver)
	}
	switch c.Drafts.Compression {
	case "zstd", "gzip", "none":
	default:
		return fmt.Errorf(ErrUnknownValueFmt, "drafts.compression", c.Drafts.Compression)
	}
	if c.Drafts.DebounceMS < 0 {
		return fmt.Errorf(ErrNegativeValueFmt, "drafts.debounce_ms", c.Drafts.DebounceMS)
	}
	if c.Content.MaxGuideTips <= 0 {
		return fmt.Errorf(ErrNegativeValueFmt, "content.max_guide_tips", c.Content.MaxGuideTips)
	}
	if strings.TrimSpace(c.Identity.UserID) == "" {
		return fmt.Errorf(ErrRequiredFmt, "identity.user_id")
	}
	return nil
}

func ApplyDefaults(config interface{}) {
	applyDefaults(config)
}

func applyDefaults(config interface{}) {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.IsValid() || !field.CanSet() {
			continue
		}

		// Recursively apply defaults to nested structs
		if field.Kind() == reflect.Struct {
			applyDefaults(field.Addr().Interface())
			continue
		}

		defaultValue := fieldType.Tag.Get("default")
		if defaultValue == "" {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(defaultValue)
		case reflect.Bool:
			if val, err := strconv.ParseBool(defaultValue); err == nil {
				field.SetBool(val)
			}
		case reflect.Int, reflect.Int64:
			if val, err := strconv.ParseInt(defaultValue, 10, 64); err == nil {
				field.SetInt(val)
			}
		case reflect.Float64:
			if val, err := strconv.ParseFloat(defaultValue, 64); err == nil {
				field.SetFloat(val)
			}
		case reflect.Slice:
			if field.Len() == 0 && field.Type().Elem().Kind() == reflect.String {
				parts := strings.Split(defaultValue, ",")
				slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
				for j, part := range parts {
					slice.Index(j).SetString(strings.TrimSpace(part))
				}
				field.Set(slice)
			}
		default:
			configLogger.Warn().
				Str("field_name", fieldType.Name).
				Str("field_type", field.Kind().String()).
				Msg("Unsupported field type for default value")
		}
	}
}

// Example renders the default configuration as a commented YAML document.
func Example() ([]byte, error) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf(ErrWriteConfigContentFmt, err)
	}

	header := "# Roteiro configuration example\n" +
		"# Copy this file to config.yaml and customize as needed.\n" +
		"# S3 credentials are read from " + EnvS3AccessKeyID + " and " + EnvS3SecretAccessKey + ".\n\n"
	return append([]byte(header), yamlData...), nil
}
