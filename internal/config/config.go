package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the operator settings shared by every command.
type Config struct {
	PrivateKey   string        `mapstructure:"private_key"`
	KeyringRef   string        `mapstructure:"keyring_ref"`
	RPCURL       string        `mapstructure:"rpc_url"`
	ArtifactsDir string        `mapstructure:"artifacts_dir"`
	RecordDir    string        `mapstructure:"record_dir"`
	TxTimeout    time.Duration `mapstructure:"tx_timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// internal: the .env file actually read, empty when there was none
	source string
}

// Load reads envFile (KEY=value lines, optional) and the process
// environment. Environment variables take precedence over the file.
// envFile defaults to ./.env.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = DefaultEnvFile
	}

	v := viper.New()
	v.SetDefault(KeyPrivateKey, "")
	v.SetDefault(KeyKeyringRef, "")
	v.SetDefault(KeyRPCURL, "")
	v.SetDefault(KeyArtifactsDir, DefaultArtifactsDir)
	v.SetDefault(KeyRecordDir, DefaultRecordDir)
	v.SetDefault(KeyTxTimeout, DefaultTxTimeout)
	v.SetDefault(KeyPollInterval, DefaultPollInterval)
	v.AutomaticEnv()

	source := ""
	if _, err := os.Stat(envFile); err == nil {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", envFile, err)
		}
		source = envFile
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", envFile, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.source = source
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Source returns the .env file that was read, or "" when none existed.
func (c *Config) Source() string {
	return c.source
}

func (c *Config) validate() error {
	if c.TxTimeout <= 0 {
		return fmt.Errorf("%s must be positive, got %s", KeyTxTimeout, c.TxTimeout)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%s must be positive, got %s", KeyPollInterval, c.PollInterval)
	}
	return nil
}
