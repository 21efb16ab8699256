package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config content: %v", err)
	}
	return path
}

func TestApplyDefaults(t *testing.T) {
	t.Run("Config struct defaults", func(t *testing.T) {
		config := &Config{}
		applyDefaults(config)

		if config.Server.Host != "0.0.0.0" {
			t.Errorf("Expected host '0.0.0.0', got %q", config.Server.Host)
		}
		if config.Server.Port != "12600" {
			t.Errorf("Expected port '12600', got %q", config.Server.Port)
		}
		if config.Database.Driver != DriverSQLite {
			t.Errorf("Expected driver %q, got %q", DriverSQLite, config.Database.Driver)
		}
		if config.Storage.Driver != StorageFS {
			t.Errorf("Expected storage driver %q, got %q", StorageFS, config.Storage.Driver)
		}
		if config.Storage.S3.Region != "auto" {
			t.Errorf("Expected region 'auto', got %q", config.Storage.S3.Region)
		}
		if !config.Storage.S3.UsePathStyle {
			t.Error("Expected path style addressing by default")
		}
		if config.Drafts.Debounce() != 500*time.Millisecond {
			t.Errorf("Expected 500ms debounce, got %v", config.Drafts.Debounce())
		}
		if config.Content.MaxTipImages != 10 {
			t.Errorf("Expected 10 images per tip, got %d", config.Content.MaxTipImages)
		}
		if config.Content.MaxGuideTips != 20 {
			t.Errorf("Expected 20 tips per guide, got %d", config.Content.MaxGuideTips)
		}
		if !config.Publish.Transactional {
			t.Error("Expected transactional publish by default")
		}
		if config.Logging.Level != "info" {
			t.Errorf("Expected logging level 'info', got %q", config.Logging.Level)
		}
		if err := config.Validate(); err != nil {
			t.Errorf("Expected defaults to validate, got %v", err)
		}
	})

	t.Run("Custom struct with various field types", func(t *testing.T) {
		type TestStruct struct {
			StringField  string   `default:"test-string"`
			BoolField    bool     `default:"true"`
			IntField     int      `default:"42"`
			Float64Field float64  `default:"3.14"`
			SliceField   []string `default:"a,b,c"`
			NoDefault    string
		}

		test := &TestStruct{}
		applyDefaults(test)

		if test.StringField != "test-string" {
			t.Errorf("Expected string field 'test-string', got %q", test.StringField)
		}
		if !test.BoolField {
			t.Error("Expected bool field to be true")
		}
		if test.IntField != 42 {
			t.Errorf("Expected int field 42, got %d", test.IntField)
		}
		if test.Float64Field != 3.14 {
			t.Errorf("Expected float64 field 3.14, got %f", test.Float64Field)
		}
		if !reflect.DeepEqual(test.SliceField, []string{"a", "b", "c"}) {
			t.Errorf("Expected slice [a b c], got %v", test.SliceField)
		}
		if test.NoDefault != "" {
			t.Errorf("Expected no default field to be empty, got %q", test.NoDefault)
		}
	})

	t.Run("Invalid default values", func(t *testing.T) {
		type InvalidStruct struct {
			BadBool bool `default:"not-a-bool"`
			BadInt  int  `default:"not-an-int"`
		}

		test := &InvalidStruct{}
		applyDefaults(test)

		if test.BadBool || test.BadInt != 0 {
			t.Errorf("Expected invalid defaults to leave zero values, got %+v", test)
		}
	})

	t.Run("Non-struct input", func(t *testing.T) {
		stringVar := "test"
		applyDefaults(&stringVar)
		applyDefaults(stringVar)
		applyDefaults(42)
		applyDefaults(nil)
	})
}

func TestLoadConfig(t *testing.T) {
	SetLogger(zerolog.New(os.Stdout).Level(zerolog.ErrorLevel))

	t.Run("Load non-existent config file", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		if err != nil {
			t.Fatalf("Expected no error for non-existent config file, got %v", err)
		}
		if cfg.Identity.UserID != "local-user" {
			t.Errorf("Expected default user, got %q", cfg.Identity.UserID)
		}
		if AppConfig != cfg {
			t.Error("Expected AppConfig to be set")
		}
	})

	t.Run("Partial config keeps defaults", func(t *testing.T) {
		path := writeConfig(t, `
server:
  port: "8080"
content:
  max_guide_tips: 5
publish:
  transactional: false
`)
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("Expected no error loading config, got %v", err)
		}
		if cfg.Server.Port != "8080" {
			t.Errorf("Expected port '8080', got %q", cfg.Server.Port)
		}
		if cfg.Content.MaxGuideTips != 5 {
			t.Errorf("Expected 5 tips per guide, got %d", cfg.Content.MaxGuideTips)
		}
		if cfg.Publish.Transactional {
			t.Error("Expected transactional publish to be disabled")
		}
		if cfg.Server.Host != "0.0.0.0" {
			t.Errorf("Expected default host, got %q", cfg.Server.Host)
		}
		if cfg.Content.MaxTipImages != 10 {
			t.Errorf("Expected default image cap, got %d", cfg.Content.MaxTipImages)
		}
	})

	t.Run("Load invalid YAML file", func(t *testing.T) {
		path := writeConfig(t, "server:\n  port: \"1\"\n  invalid yaml syntax [\n")
		_, err := LoadConfig(path)
		if err == nil {
			t.Fatal("Expected error loading invalid config file")
		}
		if !strings.Contains(err.Error(), "failed to parse config file") {
			t.Errorf("Expected parse error, got %v", err)
		}
	})

	t.Run("Unknown driver is rejected", func(t *testing.T) {
		path := writeConfig(t, "database:\n  driver: mysql\n")
		if _, err := LoadConfig(path); err == nil {
			t.Error("Expected error for unknown database driver")
		}
	})

	t.Run("Memory drivers", func(t *testing.T) {
		path := writeConfig(t, "database:\n  driver: memory\nstorage:\n  driver: memory\ndrafts:\n  compression: none\n")
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("Expected memory drivers to validate, got %v", err)
		}
		if cfg.Database.Driver != DriverMemory || cfg.Storage.Driver != StorageMemory {
			t.Errorf("Expected memory drivers, got %q and %q", cfg.Database.Driver, cfg.Storage.Driver)
		}
	})

	t.Run("Invalid values are rejected", func(t *testing.T) {
		for _, content := range []string{
			"storage:\n  driver: ftp\n",
			"drafts:\n  compression: brotli\n",
			"drafts:\n  debounce_ms: -1\n",
			"content:\n  max_guide_tips: 0\n",
			"identity:\n  user_id: \"  \"\n",
		} {
			if _, err := LoadConfig(writeConfig(t, content)); err == nil {
				t.Errorf("Expected an error for %q", content)
			}
		}
	})

	t.Run("Environment overrides file", func(t *testing.T) {
		t.Setenv(EnvDatabaseDSN, "postgres://db/roteiro")
		t.Setenv(EnvUserID, "u-42")
		t.Setenv(EnvS3AccessKeyID, "key")
		t.Setenv(EnvS3SecretAccessKey, "secret")

		path := writeConfig(t, "database:\n  dsn: ./file.db\n")
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.Database.DSN != "postgres://db/roteiro" {
			t.Errorf("Expected DSN from env, got %q", cfg.Database.DSN)
		}
		if cfg.Identity.UserID != "u-42" {
			t.Errorf("Expected user from env, got %q", cfg.Identity.UserID)
		}
		if cfg.Storage.S3.AccessKeyID != "key" || cfg.Storage.S3.SecretAccessKey != "secret" {
			t.Error("Expected S3 credentials from env")
		}
	})
}

func TestExample(t *testing.T) {
	out, err := Example()
	if err != nil {
		t.Fatalf("Example() error: %v", err)
	}
	if !strings.HasPrefix(string(out), "# Roteiro configuration example") {
		t.Error("Expected example header")
	}
	if strings.Contains(string(out), "secret") {
		t.Error("Example must not contain credential fields")
	}

	// The example must load back to the defaults.
	var cfg Config
	if err := yaml.Unmarshal(out, &cfg); err != nil {
		t.Fatalf("Example is not valid YAML: %v", err)
	}
	defaults := Config{}
	ApplyDefaults(&defaults)
	if !reflect.DeepEqual(cfg, defaults) {
		t.Errorf("Example round trip mismatch:\n got %+v\nwant %+v", cfg, defaults)
	}
}
