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

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/poiesic/tubescribe"
	"github.com/poiesic/tubescribe/config"
	"github.com/poiesic/tubescribe/core"
	"github.com/poiesic/tubescribe/ingestion"
	"github.com/poiesic/tubescribe/metrics"
	"github.com/poiesic/tubescribe/search"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
)

// serviceOptions are appended to every service the CLI builds.
var serviceOptions []tubescribe.ServiceOption

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "tubescribe",
		Usage: "Ingest, summarize and search timestamped video transcripts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file (defaults apply when missing)",
				Value:   "config.yaml",
			},
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "Load environment variables from these files (default .env)",
			},
			&cli.StringFlag{
				Name:  "embedding-host",
				Usage: "Embedding service host URL (overrides config)",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name (overrides config)",
			},
			&cli.StringFlag{
				Name:  "summarizer-host",
				Usage: "Summarizer service host URL (overrides config)",
			},
			&cli.StringFlag{
				Name:  "summarizer-model",
				Usage: "Summarizer model name (overrides config)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest sources and print their summaries",
				ArgsUsage: "<url-or-id>...",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "caller",
						Usage: "Apply the video rate limit to this caller id",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print outcomes as JSON lines",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Retrieve the transcript chunks most relevant to a query",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "source",
						Aliases:  []string{"s"},
						Usage:    "Source URL or id",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Result size preset (question, deep-dive, action-points)",
						Value: "question",
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Number of results (overrides mode)",
					},
					&cli.StringFlag{
						Name:  "caller",
						Usage: "Apply the question rate limit to this caller id",
					},
				},
			},
			{
				Name:   "worker",
				Usage:  "Ingest source ids read from stdin, one per line",
				Action: workerCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "metrics-addr",
						Usage: "Serve Prometheus metrics on this address (empty disables)",
						Value: ":9090",
					},
				},
			},
			{
				Name:   "init-config",
				Usage:  "Write the default configuration",
				Action: initConfigCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "output",
						Usage: "Destination path",
						Value: "config.yaml",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
			},
		},
	}
}

// loadConfig reads env files and the config file, then applies flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if err := config.LoadEnvFiles(c.StringSlice("env-file")...); err != nil {
		return nil, err
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	overrides := map[string]*string{
		"embedding-host":   &cfg.AI.EmbeddingHost,
		"embedding-model":  &cfg.AI.EmbeddingModel,
		"summarizer-host":  &cfg.AI.SummarizerHost,
		"summarizer-model": &cfg.AI.SummarizerModel,
	}
	for name, field := range overrides {
		if c.IsSet(name) {
			*field = c.String(name)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func openService(c *cli.Context, extra ...tubescribe.ServiceOption) (*tubescribe.Service, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	opts := append(append([]tubescribe.ServiceOption{}, serviceOptions...), extra...)
	return tubescribe.NewService(c.Context, cfg, opts...)
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("at least one source URL or id is required")
	}
	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	out := c.App.Writer
	for _, arg := range c.Args().Slice() {
		sourceID, err := core.ExtractSourceID(arg)
		if err != nil {
			printOutcome(out, arg, core.Failed(core.ValidationMessage(err)), c.Bool("json"))
			continue
		}
		if caller := c.String("caller"); caller != "" {
			allowed, err := svc.AllowVideo(c.Context, caller)
			if err != nil {
				return err
			}
			if !allowed {
				printOutcome(out, sourceID, core.Failed("Rate limit reached. Please try again later."), c.Bool("json"))
				continue
			}
		}
		outcome, err := svc.IngestAndWait(c.Context, sourceID)
		if errors.Is(err, ingestion.ErrStillProcessing) {
			fmt.Fprintf(out, "%s: still processing, run again later for the cached result\n", sourceID)
			continue
		}
		if err != nil {
			return err
		}
		printOutcome(out, sourceID, outcome, c.Bool("json"))
	}
	return nil
}

type outcomeLine struct {
	SourceID string `json:"source_id"`
	*core.Outcome
}

func printOutcome(w io.Writer, sourceID string, outcome *core.Outcome, asJSON bool) {
	if asJSON {
		_ = json.NewEncoder(w).Encode(outcomeLine{SourceID: sourceID, Outcome: outcome})
		return
	}
	if !outcome.OK() {
		fmt.Fprintf(w, "%s: error: %s\n", sourceID, outcome.Message)
		return
	}
	cached := ""
	if outcome.Cached {
		cached = " (cached)"
	}
	fmt.Fprintf(w, "%s: %s%s\n\n%s\n\n", sourceID, outcome.Title, cached, outcome.Summary)
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	sourceID, err := core.ExtractSourceID(c.String("source"))
	if err != nil {
		return err
	}
	topK, err := topKFor(c.String("mode"))
	if err != nil {
		return err
	}
	if c.IsSet("top-k") {
		topK = c.Int("top-k")
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	if caller := c.String("caller"); caller != "" {
		allowed, err := svc.AllowQuestion(c.Context, caller)
		if err != nil {
			return err
		}
		if !allowed {
			return errors.New("question rate limit reached, please try again later")
		}
	}

	results, err := svc.Searcher().FindRelevantWithMonitor(c.Context, sourceID, query, topK, &logMonitor{logger: slog.Default()})
	if err != nil {
		return err
	}
	out := c.App.Writer
	if len(results) == 0 {
		fmt.Fprintf(out, "no indexed content for %s, ingest it first\n", sourceID)
		return nil
	}
	for _, r := range results {
		fmt.Fprintf(out, "[%s] (%.3f) %s\n", core.FormatTimestamp(r.Chunk.Start), r.Score, strings.TrimSpace(r.Chunk.Text))
	}
	return nil
}

func topKFor(mode string) (int, error) {
	switch mode {
	case "question":
		return search.QuestionTopK, nil
	case "deep-dive":
		return search.DeepDiveTopK, nil
	case "action-points":
		return search.ActionPointsTopK, nil
	}
	return 0, fmt.Errorf("invalid mode %q: must be one of question, deep-dive, action-points", mode)
}

// logMonitor traces search stages at debug level.
type logMonitor struct {
	logger *slog.Logger
}

func (m *logMonitor) Start(sourceID, query string) {
	m.logger.Debug("search started", "source_id", sourceID, "query", query)
}

func (m *logMonitor) AfterIndexOpen(chunks int) {
	m.logger.Debug("index opened", "chunks", chunks)
}

func (m *logMonitor) Finish(results []core.SearchResult) {
	m.logger.Debug("search finished", "results", len(results))
}

func workerCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	svc, err := openService(c, tubescribe.WithMetrics(m))
	if err != nil {
		return err
	}
	defer svc.Close()

	if addr := c.String("metrics-addr"); addr != "" {
		server := metrics.NewServer(addr, reg)
		server.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", "err", err)
			}
		}()
	}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		out = c.App.Writer
	)
	scanner := bufio.NewScanner(c.App.Reader)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		sourceID, err := core.ExtractSourceID(line)
		if err != nil {
			mu.Lock()
			printOutcome(out, line, core.Failed(core.ValidationMessage(err)), true)
			mu.Unlock()
			continue
		}
		job, err := svc.Ingest(sourceID)
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case <-job.Done():
				mu.Lock()
				printOutcome(out, job.SourceID, job.Outcome(), true)
				mu.Unlock()
			case <-ctx.Done():
			}
		}()
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	wg.Wait()
	return ctx.Err()
}

func initConfigCommand(c *cli.Context) error {
	path := c.String("output")
	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}
	if err := config.Save(path, config.Default()); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "wrote %s\n", path)
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
