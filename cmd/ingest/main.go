// Command ingest builds or extends the local course dataset from a course
// bundle file, embedding and indexing any chunks not seen before. The
// resulting directory is what the API serves, directly or after an upload
// to object storage.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"ai-course-tutor/config"
	"ai-course-tutor/internal/ai"
	"ai-course-tutor/internal/core/token"
	"ai-course-tutor/internal/ingest"
	"ai-course-tutor/internal/vectorindex"
	"ai-course-tutor/pkg/logger"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to the config file")
		bundlePath = flag.String("course", "", "path to the course bundle JSON")
		outDir     = flag.String("out", "", "dataset directory (defaults to context_store.base_url)")
	)
	flag.Parse()

	if *bundlePath == "" {
		logger.Errorf("%v: -course is required", config.ModuleIngest)
		os.Exit(2)
	}
	if err := config.Init(*configPath); err != nil {
		logger.Fatal(err, "%v: config init failed", config.ModuleSetting)
	}
	if err := logger.SetLevel(string(config.Cfg.LogLevel)); err != nil {
		logger.Warn("%v: %v", config.ModuleSetting, err)
	}
	dir := *outDir
	if dir == "" {
		dir = config.Cfg.ContextStore.BaseURL
	}

	raw, err := os.ReadFile(*bundlePath)
	if err != nil {
		logger.Fatal(err, "%v: read bundle failed", config.ModuleIngest)
	}
	var course ingest.Course
	if err := json.Unmarshal(raw, &course); err != nil {
		logger.Fatal(err, "%v: parse bundle failed", config.ModuleIngest)
	}

	registry := ai.NewRegistry()
	client, err := ai.NewClient(ai.Options{
		APIKey:        config.Cfg.OpenAI.Key,
		Provider:      config.Cfg.OpenAI.Provider,
		AzureEndpoint: config.Cfg.OpenAI.AzureEndpoint,
	}, registry)
	if err != nil {
		logger.Fatal(err, "%v: client init failed", config.ModuleOpenAI)
	}
	embedder, err := ai.NewEmbedder(client, config.Cfg.OpenAI.EmbeddingModel)
	if err != nil {
		logger.Fatal(err, "%v: embedder init failed", config.ModuleOpenAI)
	}

	ctx := context.Background()
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	index, err := vectorindex.Connect(connectCtx, vectorindex.Config{
		Address:    config.Cfg.Milvus.Address,
		Collection: config.Cfg.Milvus.Collection,
		MetricType: config.Cfg.Milvus.MetricType,
		SearchEf:   config.Cfg.Milvus.SearchEf,
		Dim:        config.Cfg.OpenAI.EmbeddingDim,
	})
	cancel()
	if err != nil {
		logger.Fatal(err, "%v: connect failed", config.ModuleMilvus)
	}
	defer index.Close()
	if err := index.EnsureCollection(ctx); err != nil {
		logger.Fatal(err, "%v: collection setup failed", config.ModuleMilvus)
	}

	ing := ingest.New(dir, embedder, index, token.NewAccountant())
	stats, err := ing.IngestCourse(ctx, course)
	if err != nil {
		logger.Fatal(err, "%v: ingest %s failed", config.ModuleIngest, course.Key)
	}
	logger.Info("%v: done: %d chunks, %d embedded, %d skipped",
		config.ModuleIngest, stats.Chunks, stats.Embedded, stats.Skipped)
}
