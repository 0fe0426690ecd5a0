package batchloader

import (
	"errors"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/kelseyhightower/envconfig"
)

// Config is the scheduling configuration of a Loader that can be loaded from the environment.
type Config struct {
	Wait                time.Duration `envconfig:"WAIT" default:"0s"`
	MaxBatch            int           `envconfig:"MAX_BATCH" default:"0"`
	ChunkWait           time.Duration `envconfig:"CHUNK_WAIT" default:"0s"`
	MaxConcurrentChunks int           `envconfig:"MAX_CONCURRENT_CHUNKS" default:"0"`
}

// LoadConfig reads the config from the environment variables with the prefix.
// For example, the prefix "USERS" reads USERS_WAIT and USERS_MAX_BATCH.
func LoadConfig(prefix string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports an error when a setting is negative.
func (c Config) Validate() error {
	var merr *multierror.Error
	if c.Wait < 0 {
		merr = multierror.Append(merr, errors.New("wait must not be negative"))
	}
	if c.MaxBatch < 0 {
		merr = multierror.Append(merr, errors.New("max batch must not be negative"))
	}
	if c.ChunkWait < 0 {
		merr = multierror.Append(merr, errors.New("chunk wait must not be negative"))
	}
	if c.MaxConcurrentChunks < 0 {
		merr = multierror.Append(merr, errors.New("max concurrent chunks must not be negative"))
	}
	return merr.ErrorOrNil()
}
