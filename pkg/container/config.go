// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package container

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/NVIDIA/addon-container/pkg/defaults"
	"github.com/NVIDIA/addon-container/pkg/version"
)

// Environment variables read by NewConfig.
const (
	EnvPollIntervalMS = "ADDON_POLL_INTERVAL_MS"
	EnvBatchSize      = "ADDON_BATCH_SIZE"
	EnvRepositoryDir  = "ADDON_REPOSITORY_DIR"
)

// Config holds container configuration.
type Config struct {
	// PollInterval is the time between reconciliation ticks.
	PollInterval time.Duration `validate:"gt=0" yaml:"pollInterval"`

	// BatchSize caps the number of addons concurrently in STARTING.
	BatchSize int `validate:"min=1" yaml:"batchSize"`

	// RepositoryDir is the root of the directory repository. Ignored when
	// a repository is passed with WithRepository.
	RepositoryDir string `yaml:"repositoryDir,omitempty"`

	// RuntimeAPIVersion overrides the version reported by the repository.
	RuntimeAPIVersion string `validate:"omitempty,apiversion" yaml:"runtimeAPIVersion,omitempty"`

	// ServerMode keeps the loop running. When false Start returns once no
	// addon is starting.
	ServerMode bool `yaml:"serverMode"`

	// ShutdownTimeout bounds the wait for workers when the container exits.
	ShutdownTimeout time.Duration `validate:"gt=0" yaml:"shutdownTimeout"`
}

// NewConfig returns a Config with defaults, overridden by environment
// variables where set.
func NewConfig() *Config {
	cfg := &Config{
		PollInterval:    defaults.PollInterval,
		BatchSize:       defaults.BatchSize,
		ServerMode:      true,
		ShutdownTimeout: defaults.ContainerShutdownTimeout,
	}

	if v := os.Getenv(EnvPollIntervalMS); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.PollInterval = time.Duration(ms) * time.Millisecond
		}
	}

	if v := os.Getenv(EnvBatchSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BatchSize = n
		}
	}

	cfg.RepositoryDir = os.Getenv(EnvRepositoryDir)

	return cfg
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// registration only fails for an empty tag or nil func
	_ = v.RegisterValidation("apiversion", func(fl validator.FieldLevel) bool {
		_, err := version.Parse(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid container config: %w", err)
	}
	return nil
}
