package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	AWS       AWS       `json:"aws" yaml:"aws"`
	Buckets   Buckets   `json:"buckets" yaml:"buckets"`
	CleverTap CleverTap `json:"clevertap" yaml:"clevertap"`
	Pipeline  Pipeline  `json:"pipeline" yaml:"pipeline"`
	Dispatch  Dispatch  `json:"dispatch" yaml:"dispatch"`
}

// AWS carries the object-storage client settings. Credentials come from the
// standard SDK chain (env, shared config, instance role), never from here.
type AWS struct {
	Region string `json:"region" yaml:"region"`
}

// Buckets names the S3 buckets per logical input/output.
type Buckets struct {
	CartAbandon   string `json:"cartAbandon" yaml:"cartAbandon"`
	ChargedEvents string `json:"chargedEvents" yaml:"chargedEvents"`
	ProductView   string `json:"productView" yaml:"productView"`
	Delta         string `json:"delta" yaml:"delta"`
}

// CleverTap configures the ingestion sink.
type CleverTap struct {
	BaseURL        string `json:"baseUrl" yaml:"baseUrl"`
	AccountID      string `json:"accountId" yaml:"accountId"`
	Passcode       string `json:"passcode" yaml:"passcode"`
	TimeoutSeconds int    `json:"timeoutSeconds" yaml:"timeoutSeconds"`
}

// Timeout returns the per-call timeout as a duration.
func (c CleverTap) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Pipeline tunes the transformation stages.
type Pipeline struct {
	MaxItemsPerProfile int `json:"maxItemsPerProfile" yaml:"maxItemsPerProfile"`
	MinViewCount       int `json:"minViewCount" yaml:"minViewCount"`
	LookbackDays       int `json:"lookbackDays" yaml:"lookbackDays"`
	// RowFilter is an optional CEL expression over raw primary rows.
	RowFilter string `json:"rowFilter" yaml:"rowFilter"`
}

// Dispatch tunes batch delivery to the ingestion API.
type Dispatch struct {
	BatchSize   int `json:"batchSize" yaml:"batchSize"`
	Concurrency int `json:"concurrency" yaml:"concurrency"`
	MaxRetries  int `json:"maxRetries" yaml:"maxRetries"`
	BaseDelayMs int `json:"baseDelayMs" yaml:"baseDelayMs"`
}

// BaseDelay returns the first retry wait as a duration.
func (d Dispatch) BaseDelay() time.Duration {
	return time.Duration(d.BaseDelayMs) * time.Millisecond
}

// Default returns built-in defaults, sized the way the ingestion API and the
// historical jobs expect.
func Default() Config {
	return Config{
		AWS: AWS{Region: "ap-south-1"},
		CleverTap: CleverTap{
			BaseURL:        "https://api.clevertap.com",
			TimeoutSeconds: 10,
		},
		Pipeline: Pipeline{
			MaxItemsPerProfile: 5,
			MinViewCount:       5,
			LookbackDays:       1,
		},
		Dispatch: Dispatch{
			BatchSize:   500,
			Concurrency: 5,
			MaxRetries:  3,
			BaseDelayMs: 1000,
		},
	}
}

// Load reads configuration from a JSON or YAML file (by extension), starting
// from defaults. An empty path returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	switch ext := filepath.Ext(path); ext {
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	default:
		return Config{}, fmt.Errorf("unsupported config extension %q", ext)
	}
	return cfg, nil
}

// Validate rejects values no job could run with. Bucket and credential
// presence is checked per job, since each job needs a different subset.
func (c Config) Validate() error {
	if c.AWS.Region == "" {
		return fmt.Errorf("aws.region is required")
	}
	if c.Pipeline.MaxItemsPerProfile < 1 {
		return fmt.Errorf("pipeline.maxItemsPerProfile must be >= 1")
	}
	if c.Pipeline.MinViewCount < 1 {
		return fmt.Errorf("pipeline.minViewCount must be >= 1")
	}
	if c.Pipeline.LookbackDays < 1 {
		return fmt.Errorf("pipeline.lookbackDays must be >= 1")
	}
	if c.Dispatch.BatchSize < 1 {
		return fmt.Errorf("dispatch.batchSize must be >= 1")
	}
	if c.Dispatch.Concurrency < 1 {
		return fmt.Errorf("dispatch.concurrency must be >= 1")
	}
	if c.Dispatch.MaxRetries < 1 {
		return fmt.Errorf("dispatch.maxRetries must be >= 1")
	}
	if c.Dispatch.BaseDelayMs < 0 {
		return fmt.Errorf("dispatch.baseDelayMs must be >= 0")
	}
	if c.CleverTap.TimeoutSeconds < 1 {
		return fmt.Errorf("clevertap.timeoutSeconds must be >= 1")
	}
	return nil
}
