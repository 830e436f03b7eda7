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

package config

import (
	"fmt"
	"strconv"
	"time"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TUBESCRIBE_"

type envBinding struct {
	name string
	set  func(c *Config, v string) error
}

func stringVar(get func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*get(c) = v
		return nil
	}
}

func intVar(get func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*get(c) = n
		return nil
	}
}

func durationVar(get func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*get(c) = d
		return nil
	}
}

var envBindings = []envBinding{
	{"EMBEDDING_HOST", stringVar(func(c *Config) *string { return &c.AI.EmbeddingHost })},
	{"SUMMARIZER_HOST", stringVar(func(c *Config) *string { return &c.AI.SummarizerHost })},
	{"EMBEDDING_MODEL", stringVar(func(c *Config) *string { return &c.AI.EmbeddingModel })},
	{"SUMMARIZER_MODEL", stringVar(func(c *Config) *string { return &c.AI.SummarizerModel })},
	{"API_TOKEN", stringVar(func(c *Config) *string { return &c.AI.APIToken })},
	{"STORAGE_TOPOLOGY", stringVar(func(c *Config) *string { return &c.Storage.Topology })},
	{"BADGER_PATH", stringVar(func(c *Config) *string { return &c.Storage.BadgerPath })},
	{"REDIS_URL", stringVar(func(c *Config) *string { return &c.Storage.RedisURL })},
	{"VECTOR_DIR", stringVar(func(c *Config) *string { return &c.Storage.VectorDir })},
	{"RETENTION", durationVar(func(c *Config) *time.Duration { return &c.Storage.Retention })},
	{"TRANSCRIPT_DIR", stringVar(func(c *Config) *string { return &c.Sources.TranscriptDir })},
	{"OEMBED_ENDPOINT", stringVar(func(c *Config) *string { return &c.Sources.OEmbedEndpoint })},
	{"RECORDS_PATH", stringVar(func(c *Config) *string { return &c.Records.SQLitePath })},
	{"WORKERS", intVar(func(c *Config) *int { return &c.Ingestion.Workers })},
	{"MAX_RETRIES", intVar(func(c *Config) *int { return &c.Ingestion.MaxRetries })},
	{"WAIT_TIMEOUT", durationVar(func(c *Config) *time.Duration { return &c.Ingestion.WaitTimeout })},
}

// applyEnv overrides fields from TUBESCRIBE_* variables found by lookup.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for _, b := range envBindings {
		v, ok := lookup(EnvPrefix + b.name)
		if !ok {
			continue
		}
		if err := b.set(c, v); err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, b.name, err)
		}
	}
	return nil
}
