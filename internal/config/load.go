package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config file. Environment variables use the BATCHPILOT_ prefix with
// underscores for nesting (e.g. BATCHPILOT_TASKS_CHUNK_SIZE) and take
// precedence over file values. configFile may be empty.
// Returns a populated, validated Config or an error.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("BATCHPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults establishes the default values documented in Config.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 0)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("tasks.max_items_per_task", 1_000_000)
	v.SetDefault("tasks.chunk_size", 1_000_000)
	v.SetDefault("tasks.missing_tolerance", 20)
	v.SetDefault("tasks.images_per_shard", 2000)
	v.SetDefault("tasks.name_length_limit", 92)
	v.SetDefault("tasks.concurrency", 4)
	v.SetDefault("tasks.poll_interval", "60s")
	v.SetDefault("tasks.auto_resubmit", false)

	// Viper only binds env vars it has seen a key for, so every settable
	// key needs at least an empty default.
	v.SetDefault("remote.endpoint_base", "")
	v.SetDefault("remote.caller", "")
	v.SetDefault("storage.container_url", "")
	v.SetDefault("storage.read_token", "")
	v.SetDefault("storage.write_token", "")
	v.SetDefault("storage.input_blob_root", "api_inputs")
	v.SetDefault("storage.image_path_prefix", "")
	v.SetDefault("tasks.item_patterns", []string{})
}
