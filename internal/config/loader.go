package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = "qmx"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for qmx settings.
const envPrefix = "QMX"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Load reads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise qmx.yaml is searched in CWD and $HOME.
// A missing config file is not an error; defaults are used.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Log:      LogConfig{Level: DefaultLogLevel},
		Output:   OutputConfig{Format: DefaultOutputFormat},
		Journal:  JournalConfig{Path: DefaultJournalPath},
		Rewrite:  RewriteConfig{Strict: DefaultStrict},
		Scenario: ScenarioConfig{Dir: DefaultScenarioDir},
		Document: DocumentConfig{Dir: DefaultDocumentDir},
	}
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("output.format", DefaultOutputFormat)
	v.SetDefault("journal.path", DefaultJournalPath)
	v.SetDefault("rewrite.strict", DefaultStrict)
	v.SetDefault("scenario.dir", DefaultScenarioDir)
	v.SetDefault("document.dir", DefaultDocumentDir)
}
