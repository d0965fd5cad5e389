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
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/ai/lexical"
	"github.com/poiesic/recall/ai/onnx"
	"github.com/poiesic/recall/config"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/search"
	badgerstore "github.com/poiesic/recall/storage/badger"
	"github.com/poiesic/recall/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	app := &cli.App{
		Name:  "recall",
		Usage: "Incremental semantic indexing for conversational data",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "index",
				Usage:  "Embed a message store into per-model vector indexes",
				Action: indexCommand(cfg),
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB message store directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "index",
						Aliases:  []string{"i"},
						Usage:    "Directory that receives the vector index files",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "two-tier",
						Usage: "Run a fast lexical pass before the semantic pass",
					},
					&cli.StringFlag{
						Name:  "fast-model",
						Usage: "Fast tier model name",
						Value: cfg.FastModel,
					},
					&cli.StringFlag{
						Name:  "quality-model",
						Usage: "Quality tier model name",
						Value: cfg.QualityModel,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: cfg.EmbeddingHost,
					},
					&cli.StringFlag{
						Name:  "data-dir",
						Usage: "Directory holding model bundles",
						Value: cfg.DataDir,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of texts per embedding request",
						Value: cfg.BatchSize,
					},
				},
			},
			{
				Name:   "cancel",
				Usage:  "Cancel pending or running embedding jobs for a store",
				Action: cancelCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB message store directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "model",
						Usage: "Only cancel jobs for this model (default: all models)",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Query a vector index",
				ArgsUsage: "<query>",
				Action:    searchCommand(cfg),
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "index",
						Aliases:  []string{"i"},
						Usage:    "Directory holding the vector index files",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "db",
						Aliases: []string{"d"},
						Usage:   "Message store for resolving hits to full records",
					},
					&cli.StringFlag{
						Name:  "model",
						Usage: "Model whose index to query",
						Value: cfg.QualityModel,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: cfg.EmbeddingHost,
					},
					&cli.StringFlag{
						Name:  "data-dir",
						Usage: "Directory holding model bundles",
						Value: cfg.DataDir,
					},
					&cli.Float64Flag{
						Name:  "min-score",
						Usage: "Minimum similarity score",
						Value: 0.3,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of hits",
						Value: 10,
					},
				},
			},
			{
				Name:   "import",
				Usage:  "Import messages from a JSONL file into a store",
				Action: importCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB message store directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "JSONL file with one message object per line",
						Required: true,
					},
				},
			},
			{
				Name:   "jobs",
				Usage:  "List embedding jobs for a store",
				Action: jobsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB message store directory",
						Required: true,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func indexCommand(cfg *config.Config) cli.ActionFunc {
	return func(c *cli.Context) error {
		aiConfig := ai.NewConfig(
			ai.WithInferenceHost(c.String("embedding-host")),
			ai.WithDataDir(c.String("data-dir")),
		)
		if err := aiConfig.Validate(); err != nil {
			return fmt.Errorf("invalid AI configuration: %w", err)
		}

		handle := worker.Start(badgerstore.Opener{},
			worker.WithAIConfig(aiConfig),
			worker.WithBatchSize(c.Int("batch-size")),
		)

		err := handle.Submit(worker.JobRequest{
			StorePath:    c.String("db"),
			IndexPath:    c.String("index"),
			TwoTier:      c.Bool("two-tier"),
			FastModel:    c.String("fast-model"),
			QualityModel: c.String("quality-model"),
		})
		if err != nil {
			return fmt.Errorf("submitting job: %w", err)
		}

		// Shutdown drains the queue, so this waits for the job to finish.
		handle.Shutdown()
		return nil
	}
}

func cancelCommand(c *cli.Context) error {
	dbPath := c.String("db")

	store, err := badgerstore.OpenStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	n, err := store.Jobs().CancelJobsMatching(context.Background(), dbPath, c.String("model"))
	if err != nil {
		return fmt.Errorf("cancelling jobs: %w", err)
	}

	fmt.Printf("cancelled %d job(s)\n", n)
	return nil
}

func searchCommand(cfg *config.Config) cli.ActionFunc {
	return func(c *cli.Context) error {
		query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
		if query == "" {
			return fmt.Errorf("query argument is required")
		}

		embedder, err := buildEmbedder(c.String("model"),
			c.String("embedding-host"), c.String("data-dir"))
		if err != nil {
			return err
		}
		defer releaseEmbedder(embedder)

		var store *badgerstore.Store
		if dbPath := c.String("db"); dbPath != "" {
			store, err = badgerstore.OpenStore(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer store.Close()
		}

		var searcher *search.Searcher
		if store != nil {
			searcher, err = search.NewSearcher(c.String("index"), embedder, store.Messages())
		} else {
			searcher, err = search.NewSearcher(c.String("index"), embedder, nil)
		}
		if err != nil {
			return err
		}

		hits, err := searcher.Search(context.Background(), query,
			float32(c.Float64("min-score")), c.Int("limit"))
		if err != nil {
			return err
		}

		for i, hit := range hits {
			if hit.Record != nil {
				fmt.Printf("%d: '%s' (%d)[%0.3f]\n", i, hit.Record.Contents, hit.RecordID, hit.Score)
			} else {
				fmt.Printf("%d: record %d [%0.3f]\n", i, hit.RecordID, hit.Score)
			}
		}
		return nil
	}
}

// importMessage is one line of an import file.
type importMessage struct {
	Id          uint64 `json:"id"`
	Role        string `json:"role"`
	Contents    string `json:"contents"`
	CreatedAt   int64  `json:"created_at"`
	AgentId     uint64 `json:"agent_id"`
	WorkspaceId uint64 `json:"workspace_id"`
	SourceId    string `json:"source_id"`
}

func importCommand(c *cli.Context) error {
	file, err := os.Open(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to open import file: %w", err)
	}
	defer file.Close()

	store, err := badgerstore.OpenStore(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	var (
		batch    []*core.MessageRecord
		imported int
		line     int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := store.Messages().AddMessages(ctx, batch...); err != nil {
			return err
		}
		imported += len(batch)
		batch = batch[:0]
		return nil
	}

	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var msg importMessage
		if err := json.Unmarshal([]byte(text), &msg); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		batch = append(batch, &core.MessageRecord{
			Id:           core.ID(msg.Id),
			Role:         msg.Role,
			Contents:     msg.Contents,
			CreatedAt:    msg.CreatedAt,
			AgentId:      msg.AgentId,
			WorkspaceId:  msg.WorkspaceId,
			SourceIdHash: core.SourceIDHash(msg.SourceId),
		})
		if len(batch) >= 500 {
			if err := flush(); err != nil {
				return fmt.Errorf("line %d: %w", line, err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading import file: %w", err)
	}
	if err := flush(); err != nil {
		return err
	}

	fmt.Printf("imported %d message(s)\n", imported)
	return nil
}

func jobsCommand(c *cli.Context) error {
	dbPath := c.String("db")

	store, err := badgerstore.OpenStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	jobs, err := store.Jobs().ListJobs(context.Background(), "")
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Println("no jobs")
		return nil
	}

	for _, job := range jobs {
		line := fmt.Sprintf("%d  %-9s  %-8s  %d/%d  %s",
			job.Id, job.Status, job.ModelName,
			job.CompletedCount, job.TotalCount,
			job.UpdatedAt.Format("2006-01-02 15:04:05"))
		if job.ErrorMessage != "" {
			line += "  (" + job.ErrorMessage + ")"
		}
		fmt.Println(line)
	}
	return nil
}

// buildEmbedder constructs the embedder for a model name.
func buildEmbedder(model, host, dataDir string) (ai.Embedder, error) {
	if model == ai.ModelHash {
		return lexical.New(lexical.DefaultDimension)
	}

	aiConfig := ai.NewConfig(
		ai.WithInferenceHost(host),
		ai.WithDataDir(dataDir),
	)
	embedder, err := onnx.Load(aiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

func releaseEmbedder(e ai.Embedder) {
	if r, ok := e.(interface{ Release() }); ok {
		r.Release()
	}
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
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

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
