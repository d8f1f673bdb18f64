package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"

	"ai-course-tutor/config"
	"ai-course-tutor/internal/ai"
	chatapi "ai-course-tutor/internal/api/chat"
	courseapi "ai-course-tutor/internal/api/course"
	"ai-course-tutor/internal/api/healthcheck"
	"ai-course-tutor/internal/contextstore"
	"ai-course-tutor/internal/core/classify"
	"ai-course-tutor/internal/core/condense"
	"ai-course-tutor/internal/core/engine"
	"ai-course-tutor/internal/core/prompt"
	"ai-course-tutor/internal/core/retriever"
	"ai-course-tutor/internal/core/token"
	"ai-course-tutor/internal/middleware"
	"ai-course-tutor/internal/vectorindex"
	"ai-course-tutor/pkg/logger"
)

func main() {
	if err := config.Init("config.yaml"); err != nil {
		logger.Fatal(err, "%v: config init failed", config.ModuleSetting)
	}
	if err := logger.SetLevel(string(config.Cfg.LogLevel)); err != nil {
		logger.Warn("%v: %v", config.ModuleSetting, err)
	}

	ctx := context.Background()

	store, err := contextstore.Load(ctx, config.Cfg.ContextStore.BaseURL)
	if err != nil {
		logger.Fatal(err, "%v: dataset load failed", config.ModuleContext)
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

	counter := token.NewAccountant()

	classifyModel := config.Cfg.OpenAI.ClassifyModel
	classifyWindow, err := registry.ContextWindow(classifyModel)
	if err != nil {
		logger.Fatal(err, "%v: unknown classify model", config.ModuleClassify)
	}
	embeddingModel, err := registry.Lookup(config.Cfg.OpenAI.EmbeddingModel)
	if err != nil {
		logger.Fatal(err, "%v: unknown embedding model", config.ModuleRetriever)
	}

	eng := engine.New(engine.Config{
		DefaultModel:           config.Cfg.OpenAI.ChatModel,
		KeepRecentTurns:        config.Cfg.Chat.KeepRecentTurns,
		GenerateReservedTokens: config.Cfg.Chat.GenerateReservedTokens,
	}, engine.Deps{
		Classifier: classify.New(classify.Config{
			Model:          classifyModel,
			ContextWindow:  classifyWindow,
			ReservedTokens: config.Cfg.Chat.ClassifyReservedTokens,
		}, client, counter),
		Condenser: condense.New(config.Cfg.OpenAI.ChatModel, client, config.Cfg.Chat.CondenseReservedTokens),
		Retriever: retriever.New(retriever.Config{
			PlatformCourseKey: config.Cfg.Chat.PlatformCourseKey,
			EmbeddingModel:    embeddingModel.Name,
			EmbeddingWindow:   embeddingModel.ContextWindow,
		}, embedder, index, store, counter),
		Assembler: prompt.NewAssembler(counter),
		Streamer:  client,
		Summaries: store,
		Registry:  registry,
		Counter:   counter,
	})
	comparer := engine.NewComparer(config.Cfg.OpenAI.ChatModel, client)

	app := fiber.New(fiber.Config{
		AppName:   config.Cfg.Server.AppName,
		BodyLimit: config.Cfg.Server.BodyLimit,
	})

	var limiter *middleware.ConnectionLimiter
	if config.Cfg.Server.Concurrency > 0 {
		limiter = middleware.NewConnectionLimiter(config.Cfg.Server.Concurrency)
	}
	middleware.Setup(app, limiter)

	healthcheck.RegisterRoutes(app)
	chatapi.RegisterRoutes(app, chatapi.NewHandler(eng, comparer))
	courseapi.RegisterRoutes(app, courseapi.NewHandler(store))

	addr := fmt.Sprintf(":%d", config.Cfg.Server.Port)
	logger.Info("%v: listening on %s", config.ModuleServer, addr)
	if err := app.Listen(addr); err != nil {
		logger.Fatal(err, "%v: server stopped", config.ModuleServer)
	}
}
