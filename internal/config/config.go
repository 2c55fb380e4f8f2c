package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups; every tunable of the
// reconciliation engine is enumerated here rather than hard-coded.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" validate:"required"`
	Remote  RemoteConfig  `mapstructure:"remote" validate:"required"`
	Storage StorageConfig `mapstructure:"storage" validate:"required"`
	Tasks   TaskConfig    `mapstructure:"tasks" validate:"required"`
}

// ServerConfig contains logging and the optional operator status endpoint.
type ServerConfig struct {
	// Port for the read-only status endpoint; 0 disables it.
	Port     int    `mapstructure:"port" validate:"gte=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// RemoteConfig identifies the detection service and this caller.
type RemoteConfig struct {
	// EndpointBase is the service root, e.g.
	// "http://host:6022/v3/camera-trap/detection-batch".
	EndpointBase string `mapstructure:"endpoint_base" validate:"required,url"`
	Caller       string `mapstructure:"caller" validate:"required"`
}

// StorageConfig addresses the blob container holding input lists and
// images. Tokens are SAS tokens without a leading '?'.
type StorageConfig struct {
	ContainerURL    string `mapstructure:"container_url" validate:"required,url"`
	ReadToken       string `mapstructure:"read_token" validate:"required"`
	WriteToken      string `mapstructure:"write_token" validate:"required"`
	InputBlobRoot   string `mapstructure:"input_blob_root"`
	ImagePathPrefix string `mapstructure:"image_path_prefix"`
}

// TaskConfig holds the task lifecycle and reconciliation tunables.
type TaskConfig struct {
	// MaxItemsPerTask bounds a single task's input set.
	MaxItemsPerTask int `mapstructure:"max_items_per_task" validate:"required,gt=0"`

	// ChunkSize is the per-chunk item limit used when a partition is
	// first divided. Must not exceed MaxItemsPerTask.
	ChunkSize int `mapstructure:"chunk_size" validate:"required,gt=0,ltefield=MaxItemsPerTask"`

	// MissingTolerance is the per-task and per-group missing-item count
	// below which a result is accepted as effectively complete.
	MissingTolerance int `mapstructure:"missing_tolerance" validate:"gte=0"`

	// ImagesPerShard drives the advisory estimate of how many items a
	// failed shard implies.
	ImagesPerShard int `mapstructure:"images_per_shard" validate:"required,gt=0"`

	// NameLengthLimit bounds sanitized task names.
	NameLengthLimit int `mapstructure:"name_length_limit" validate:"required,gt=0"`

	// Concurrency bounds parallel remote calls per taskgroup.
	Concurrency int `mapstructure:"concurrency" validate:"required,gt=0"`

	// PollInterval is the coordinator's spacing between poll rounds.
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"required"`

	// AutoResubmit gates whether a synthesized missing-items task is
	// submitted automatically or held for operator review.
	AutoResubmit bool `mapstructure:"auto_resubmit"`

	// ItemPatterns are doublestar globs an identifier must match to be
	// considered a supported input item. Empty means the package default
	// image patterns.
	ItemPatterns []string `mapstructure:"item_patterns"`
}
