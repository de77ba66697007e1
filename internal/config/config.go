package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/ecomdash/internal/utils"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
	// ModelPath is the serialized regressor, reloaded on every prediction.
	ModelPath    string `mapstructure:"model_path" yaml:"model_path"`
	StrictSchema bool   `mapstructure:"strict_schema" yaml:"strict_schema"`

	// Upload/session limits
	MaxUploadMB   int `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	PreviewRows   int `mapstructure:"preview_rows" yaml:"preview_rows"`
	SessionTTLMin int `mapstructure:"session_ttl_min" yaml:"session_ttl_min"`
	MaxSessions   int `mapstructure:"max_sessions" yaml:"max_sessions"`

	// HTTP hardening
	RateLimitPerMin int      `mapstructure:"rate_limit_per_min" yaml:"rate_limit_per_min"`
	CORSOrigins     []string `mapstructure:"cors_origins" yaml:"cors_origins"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// DefaultPath returns ~/.ecomdash/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".ecomdash", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.ecomdash/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	return utils.SafeWriteFile(path, b)
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (applied by the caller) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("ECOMDASH")
	v.AutomaticEnv()

	v.SetDefault("listen_addr", "127.0.0.1:8501")
	v.SetDefault("model_path", "xgb_model.json")
	v.SetDefault("strict_schema", true)
	v.SetDefault("max_upload_mb", 200)
	v.SetDefault("preview_rows", 5)
	v.SetDefault("session_ttl_min", 60)
	v.SetDefault("max_sessions", 256)
	v.SetDefault("rate_limit_per_min", 120)
	v.SetDefault("cors_origins", []string{})
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, ".ecomdash"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
