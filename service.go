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

// Package tubescribe wires configuration into a running ingestion and
// retrieval service: storage topology, AI provider, caches, vector indexes,
// the ingestion orchestrator and dispatcher, search and rate limiting.
package tubescribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/poiesic/tubescribe/ai"
	"github.com/poiesic/tubescribe/ai/openai"
	"github.com/poiesic/tubescribe/cache"
	"github.com/poiesic/tubescribe/chunking"
	"github.com/poiesic/tubescribe/config"
	"github.com/poiesic/tubescribe/core"
	"github.com/poiesic/tubescribe/ingestion"
	"github.com/poiesic/tubescribe/metrics"
	"github.com/poiesic/tubescribe/ratelimit"
	"github.com/poiesic/tubescribe/records"
	"github.com/poiesic/tubescribe/search"
	"github.com/poiesic/tubescribe/source"
	"github.com/poiesic/tubescribe/storage"
	"github.com/poiesic/tubescribe/storage/badger"
	"github.com/poiesic/tubescribe/storage/file"
	redisstore "github.com/poiesic/tubescribe/storage/redis"
	"github.com/poiesic/tubescribe/vectorindex"
	goredis "github.com/redis/go-redis/v9"
)

// Service is a fully wired tubescribe instance.
type Service struct {
	cfg *config.Config

	backend  *badger.Backend
	redis    *goredis.Client
	kv       storage.KV
	vectors  storage.VectorBackend
	provider ai.Provider
	records  *records.SQLiteStore

	cache        *cache.Cache
	opener       *vectorindex.Opener
	orchestrator *ingestion.Orchestrator
	dispatcher   *ingestion.Dispatcher
	searcher     *search.Searcher
	limiter      ratelimit.Limiter

	videoPolicy    ratelimit.Policy
	questionPolicy ratelimit.Policy

	metrics *metrics.Metrics
	logger  *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	provider    ai.Provider
	transcripts source.TranscriptSource
	titles      source.TitleSource
	metrics     *metrics.Metrics
}

// WithProvider supplies the AI provider instead of building one from the
// configuration. The Service closes it.
func WithProvider(p ai.Provider) ServiceOption {
	return func(o *serviceOptions) {
		o.provider = p
	}
}

// WithTranscriptSource replaces the transcript directory.
func WithTranscriptSource(s source.TranscriptSource) ServiceOption {
	return func(o *serviceOptions) {
		o.transcripts = s
	}
}

// WithTitleSource replaces the oEmbed title lookup.
func WithTitleSource(s source.TitleSource) ServiceOption {
	return func(o *serviceOptions) {
		o.titles = s
	}
}

// WithMetrics records service metrics.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(o *serviceOptions) {
		o.metrics = m
	}
}

// NewService opens storage for cfg's topology and wires every component.
func NewService(ctx context.Context, cfg *config.Config, opts ...ServiceOption) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	options := &serviceOptions{}
	for _, opt := range opts {
		opt(options)
	}

	s := &Service{
		cfg:     cfg,
		metrics: options.metrics,
		logger:  slog.Default().With("component", "service"),
		videoPolicy: ratelimit.Policy{
			Action: ratelimit.VideoPolicy.Action, MaxCount: cfg.RateLimit.Video.MaxCount, Window: cfg.RateLimit.Video.Window,
		},
		questionPolicy: ratelimit.Policy{
			Action: ratelimit.QuestionPolicy.Action, MaxCount: cfg.RateLimit.Question.MaxCount, Window: cfg.RateLimit.Question.Window,
		},
		provider: options.provider,
	}
	if err := s.wire(ctx, options); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Service) wire(ctx context.Context, options *serviceOptions) error {
	if err := s.openStorage(ctx); err != nil {
		return err
	}

	if s.provider == nil {
		provider, err := openai.NewProvider(s.cfg.AIConfig())
		if err != nil {
			return err
		}
		s.provider = provider
	}

	if s.cfg.Records.SQLitePath != "" {
		store, err := records.NewSQLiteStore(s.cfg.Records.SQLitePath)
		if err != nil {
			return err
		}
		s.records = store
	}

	var err error
	s.cache, err = cache.New(s.kv,
		cache.WithTranscriptTTL(s.cfg.Cache.TranscriptTTL),
		cache.WithSummaryTTL(s.cfg.Cache.SummaryTTL),
		cache.WithMetrics(s.metrics))
	if err != nil {
		return err
	}

	s.opener, err = vectorindex.NewOpener(s.vectors, s.provider.Embedder(), vectorindex.WithMetrics(s.metrics))
	if err != nil {
		return err
	}

	chunker, err := chunking.New(
		chunking.WithTargetSize(s.cfg.Chunking.TargetSize),
		chunking.WithOverlap(s.cfg.Chunking.Overlap))
	if err != nil {
		return err
	}

	transcripts := options.transcripts
	if transcripts == nil {
		dir, err := source.NewDirectory(s.cfg.Sources.TranscriptDir)
		if err != nil {
			return err
		}
		transcripts = dir
	}
	titles := options.titles
	if titles == nil {
		titles = source.NewOEmbed(source.WithEndpoint(s.cfg.Sources.OEmbedEndpoint))
	}

	deps := ingestion.Dependencies{
		Cache:       s.cache,
		Indexes:     s.opener,
		Chunker:     chunker,
		Transcripts: transcripts,
		Titles:      titles,
		Summarizer:  s.provider.Summarizer(),
	}
	if s.records != nil {
		deps.Records = s.records
	}
	s.orchestrator, err = ingestion.NewOrchestrator(deps)
	if err != nil {
		return err
	}

	dispatcherOpts := []ingestion.DispatcherOption{
		ingestion.WithRetries(s.cfg.Ingestion.MaxRetries, s.cfg.Ingestion.RetryBaseDelay),
		ingestion.WithDispatcherMetrics(s.metrics),
	}
	if s.cfg.Ingestion.Workers > 0 {
		dispatcherOpts = append(dispatcherOpts, ingestion.WithPoolSize(s.cfg.Ingestion.Workers))
	}
	s.dispatcher, err = ingestion.NewDispatcher(s.orchestrator, dispatcherOpts...)
	if err != nil {
		return err
	}

	s.searcher, err = search.NewSearcher(s.opener, search.WithMetrics(s.metrics))
	return err
}

// openStorage opens the KV store, vector backend and limiter for the
// configured topology.
func (s *Service) openStorage(ctx context.Context) error {
	st := s.cfg.Storage
	var err error
	switch st.Topology {
	case config.TopologyRedis:
		s.redis, err = redisstore.Connect(ctx, st.RedisURL)
		if err != nil {
			return err
		}
		s.kv = redisstore.NewKV(s.redis)
		if s.vectors, err = redisstore.NewVectorStore(s.redis, redisstore.WithRetention(st.Retention)); err != nil {
			return err
		}
		s.limiter, err = ratelimit.NewRedisLimiter(s.redis, s.metrics)
		return err

	case config.TopologyBadger, config.TopologyFile:
		s.backend, err = badger.OpenBackend(st.BadgerPath, false)
		if err != nil {
			return err
		}
		s.kv = badger.NewKV(s.backend)
		if st.Topology == config.TopologyFile {
			if err := os.MkdirAll(st.VectorDir, 0o755); err != nil {
				return fmt.Errorf("create vector dir: %w", err)
			}
			s.vectors, err = file.NewVectorStore(st.VectorDir, file.WithRetention(st.Retention))
		} else {
			s.vectors, err = badger.NewVectorStore(s.backend, badger.WithRetention(st.Retention))
		}
		if err != nil {
			return err
		}
		s.limiter, err = ratelimit.NewBadgerLimiter(s.backend, s.metrics)
		return err
	}
	return fmt.Errorf("unknown storage topology %q", st.Topology)
}

// Ingest queues ingestion of sourceID.
func (s *Service) Ingest(sourceID string) (*ingestion.Job, error) {
	return s.dispatcher.Submit(sourceID)
}

// IngestAndWait queues ingestion of sourceID and waits up to the configured
// wait timeout. ingestion.ErrStillProcessing means the job is still running.
func (s *Service) IngestAndWait(ctx context.Context, sourceID string) (*core.Outcome, error) {
	job, err := s.Ingest(sourceID)
	if err != nil {
		return nil, err
	}
	return job.Wait(ctx, s.cfg.Ingestion.WaitTimeout)
}

// Search returns up to topK chunks of sourceID relevant to query.
func (s *Service) Search(ctx context.Context, sourceID, query string, topK int) ([]core.SearchResult, error) {
	return s.searcher.FindRelevant(ctx, sourceID, query, topK)
}

// AllowVideo applies the video ingestion limit to callerID.
func (s *Service) AllowVideo(ctx context.Context, callerID string) (bool, error) {
	return s.videoPolicy.Allow(ctx, s.limiter, callerID)
}

// AllowQuestion applies the question limit to callerID.
func (s *Service) AllowQuestion(ctx context.Context, callerID string) (bool, error) {
	return s.questionPolicy.Allow(ctx, s.limiter, callerID)
}

// RemainingVideos reports how many ingestions callerID has left.
func (s *Service) RemainingVideos(ctx context.Context, callerID string) (int, error) {
	return s.videoPolicy.Remaining(ctx, s.limiter, callerID)
}

// RemainingQuestions reports how many questions callerID has left.
func (s *Service) RemainingQuestions(ctx context.Context, callerID string) (int, error) {
	return s.questionPolicy.Remaining(ctx, s.limiter, callerID)
}

// RecordInteraction stores a question and its answer. Failures are logged.
func (s *Service) RecordInteraction(ctx context.Context, callerID, sourceID, question, answer, language string) {
	if s.records == nil {
		return
	}
	if err := s.records.SaveInteraction(ctx, callerID, sourceID, question, answer, language); err != nil {
		s.logger.Warn("failed to save interaction", "source_id", sourceID, "error", err)
	}
}

// Limiter returns the rate limiter for the configured topology.
func (s *Service) Limiter() ratelimit.Limiter {
	return s.limiter
}

// Searcher returns the searcher over this service's indexes.
func (s *Service) Searcher() *search.Searcher {
	return s.searcher
}

// Cache returns the transcript and summary cache.
func (s *Service) Cache() *cache.Cache {
	return s.cache
}

// Records returns the records store, or nil when disabled.
func (s *Service) Records() *records.SQLiteStore {
	return s.records
}

// Close releases the dispatcher, the provider and all storage.
func (s *Service) Close() error {
	var errs []error
	if s.dispatcher != nil {
		s.dispatcher.Release()
	}
	if s.provider != nil {
		if err := s.provider.Close(); err != nil {
			s.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if s.records != nil {
		if err := s.records.Close(); err != nil {
			s.logger.Error("error closing records store", "err", err)
			errs = append(errs, err)
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("error closing redis client", "err", err)
			errs = append(errs, err)
		}
	}
	if s.backend != nil && !s.backend.IsClosed() {
		if err := s.backend.Close(); err != nil {
			s.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
