// Copyright 2025 Poiesic Systems
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

// Package config loads the application configuration from a YAML file,
// an optional .env file and TUBESCRIBE_* environment variables, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/tubescribe/ai"
	"gopkg.in/yaml.v3"
)

// Storage topologies.
const (
	TopologyBadger = "badger"
	TopologyRedis  = "redis"
	TopologyFile   = "file"
)

// AIConfig configures the embedding and summarization services.
type AIConfig struct {
	EmbeddingHost       string `yaml:"embedding_host"`
	SummarizerHost      string `yaml:"summarizer_host"`
	EmbeddingModel      string `yaml:"embedding_model"`
	SummarizerModel     string `yaml:"summarizer_model"`
	APIToken            string `yaml:"api_token,omitempty"`
	EmbeddingBatchSize  int    `yaml:"embedding_batch_size"`
	MaxTranscriptTokens int    `yaml:"max_transcript_tokens"`
}

// StorageConfig selects where caches, counters and vector indexes live.
//
// The badger and redis topologies keep everything in that store. The file
// topology keeps vector indexes as files under VectorDir and caches and
// counters in badger at BadgerPath.
type StorageConfig struct {
	Topology   string        `yaml:"topology"`
	BadgerPath string        `yaml:"badger_path"`
	RedisURL   string        `yaml:"redis_url"`
	VectorDir  string        `yaml:"vector_dir"`
	Retention  time.Duration `yaml:"retention"`
}

// CacheConfig sets cache lifetimes.
type CacheConfig struct {
	TranscriptTTL time.Duration `yaml:"transcript_ttl"`
	SummaryTTL    time.Duration `yaml:"summary_ttl"`
}

// ChunkingConfig sets chunk sizes in tokens.
type ChunkingConfig struct {
	TargetSize int `yaml:"target_size"`
	Overlap    int `yaml:"overlap"`
}

// IngestionConfig tunes the background job dispatcher.
type IngestionConfig struct {
	Workers        int           `yaml:"workers"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
	WaitTimeout    time.Duration `yaml:"wait_timeout"`
}

// PolicyConfig is one rate limit.
type PolicyConfig struct {
	MaxCount int           `yaml:"max_count"`
	Window   time.Duration `yaml:"window"`
}

// RateLimitConfig holds the per-action limits.
type RateLimitConfig struct {
	Video    PolicyConfig `yaml:"video"`
	Question PolicyConfig `yaml:"question"`
}

// SourcesConfig locates transcripts and titles.
type SourcesConfig struct {
	TranscriptDir  string `yaml:"transcript_dir"`
	OEmbedEndpoint string `yaml:"oembed_endpoint"`
}

// RecordsConfig locates the records database. An empty path disables it.
type RecordsConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// Config is the root application configuration.
type Config struct {
	AI        AIConfig        `yaml:"ai"`
	Storage   StorageConfig   `yaml:"storage"`
	Cache     CacheConfig     `yaml:"cache"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Sources   SourcesConfig   `yaml:"sources"`
	Records   RecordsConfig   `yaml:"records"`
}

// Default returns the built-in configuration.
func Default() *Config {
	a := ai.DefaultConfig()
	return &Config{
		AI: AIConfig{
			EmbeddingHost:       a.EmbeddingHost,
			SummarizerHost:      a.SummarizerHost,
			EmbeddingModel:      a.EmbeddingModel,
			SummarizerModel:     a.SummarizerModel,
			EmbeddingBatchSize:  a.EmbeddingBatchSize,
			MaxTranscriptTokens: a.MaxTranscriptTokens,
		},
		Storage: StorageConfig{
			Topology:   TopologyBadger,
			BadgerPath: "data/badger",
			RedisURL:   "redis://localhost:6379/0",
			VectorDir:  "data/vectors",
			Retention:  24 * time.Hour,
		},
		Cache: CacheConfig{
			TranscriptTTL: 24 * time.Hour,
			SummaryTTL:    24 * time.Hour,
		},
		Chunking: ChunkingConfig{TargetSize: 400, Overlap: 50},
		Ingestion: IngestionConfig{
			MaxRetries:     3,
			RetryBaseDelay: time.Second,
			WaitTimeout:    5 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Video:    PolicyConfig{MaxCount: 5, Window: time.Hour},
			Question: PolicyConfig{MaxCount: 30, Window: time.Hour},
		},
		Sources: SourcesConfig{
			TranscriptDir:  "transcripts",
			OEmbedEndpoint: "https://www.youtube.com/oembed",
		},
	}
}

// LoadEnvFiles loads variables from the given .env files (".env" when none
// are named) into the process environment. Missing files are ignored and
// variables already set are never overwritten.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path or a missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the configuration for values no component can run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Topology {
	case TopologyBadger:
		if c.Storage.BadgerPath == "" {
			errs = append(errs, errors.New("storage.badger_path is required"))
		}
	case TopologyRedis:
		if c.Storage.RedisURL == "" {
			errs = append(errs, errors.New("storage.redis_url is required"))
		}
	case TopologyFile:
		if c.Storage.VectorDir == "" || c.Storage.BadgerPath == "" {
			errs = append(errs, errors.New("storage.vector_dir and storage.badger_path are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.topology %q is not one of badger, redis, file", c.Storage.Topology))
	}
	if c.Storage.Retention <= 0 {
		errs = append(errs, errors.New("storage.retention must be positive"))
	}
	if c.Cache.TranscriptTTL <= 0 || c.Cache.SummaryTTL <= 0 {
		errs = append(errs, errors.New("cache ttls must be positive"))
	}
	if c.Chunking.TargetSize <= 0 {
		errs = append(errs, errors.New("chunking.target_size must be positive"))
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.TargetSize {
		errs = append(errs, errors.New("chunking.overlap must be at least 0 and below target_size"))
	}
	if c.Ingestion.Workers < 0 {
		errs = append(errs, errors.New("ingestion.workers must not be negative"))
	}
	if c.Ingestion.MaxRetries < 0 {
		errs = append(errs, errors.New("ingestion.max_retries must not be negative"))
	}
	if c.Ingestion.RetryBaseDelay <= 0 || c.Ingestion.WaitTimeout <= 0 {
		errs = append(errs, errors.New("ingestion delays must be positive"))
	}
	for name, p := range map[string]PolicyConfig{"video": c.RateLimit.Video, "question": c.RateLimit.Question} {
		if p.MaxCount <= 0 || p.Window < time.Second {
			errs = append(errs, fmt.Errorf("rate_limit.%s needs max_count > 0 and window >= 1s", name))
		}
	}
	if c.Sources.TranscriptDir == "" {
		errs = append(errs, errors.New("sources.transcript_dir is required"))
	}
	if err := c.AIConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// AIConfig converts the AI section into provider configuration.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithSummarizerHost(c.AI.SummarizerHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithSummarizerModel(c.AI.SummarizerModel),
		ai.WithAPIToken(c.AI.APIToken),
		ai.WithEmbeddingBatchSize(c.AI.EmbeddingBatchSize),
		ai.WithMaxTranscriptTokens(c.AI.MaxTranscriptTokens),
	)
}
