package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	orchestratorx "github.com/tanpawarit/albaqer-concierge/agent/agents/orchestrator"
	routerx "github.com/tanpawarit/albaqer-concierge/agent/agents/router"
	specialistx "github.com/tanpawarit/albaqer-concierge/agent/agents/specialist"
	datastorex "github.com/tanpawarit/albaqer-concierge/agent/datastore"
	llmx "github.com/tanpawarit/albaqer-concierge/agent/llm"
	metricsx "github.com/tanpawarit/albaqer-concierge/agent/metrics"
	promptx "github.com/tanpawarit/albaqer-concierge/agent/prompt"
	retrievalx "github.com/tanpawarit/albaqer-concierge/agent/retrieval"
	statex "github.com/tanpawarit/albaqer-concierge/agent/state"
	toolx "github.com/tanpawarit/albaqer-concierge/agent/tool"
	transcriptx "github.com/tanpawarit/albaqer-concierge/agent/transcript"
	chatmodelx "github.com/tanpawarit/albaqer-concierge/pkg/chatmodel"
	configx "github.com/tanpawarit/albaqer-concierge/pkg/config"
	databasex "github.com/tanpawarit/albaqer-concierge/pkg/database"
	_ "github.com/tanpawarit/albaqer-concierge/pkg/logger/autoload"
	qstashx "github.com/tanpawarit/albaqer-concierge/pkg/qstash"
)

type AppConfig struct {
	KnowledgeFile string `split_words:"true" default:"data/knowledge.yaml"`
}

var sessionFlag = flag.String("session", "", "session id used for every line read from stdin")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCfg := configx.MustNew[AppConfig]("CONCIERGE")
	llmCfg := configx.MustNew[llmx.Config]("LLM")
	embeddingCfg := configx.MustNew[retrievalx.EmbedderConfig]("EMBEDDING")
	dbCfg := configx.MustNew[databasex.Config]("DB")
	loopCfg := configx.MustNew[specialistx.LoopConfig]("LOOP")
	redisCfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS")
	qstashCfg := configx.MustNew[qstashx.Config]("QSTASH")
	metricsCfg := configx.MustNew[metricsx.Config]("METRICS")

	if metricsCfg.Enabled() {
		go func() {
			if err := metricsx.Serve(ctx, metricsCfg.Addr); err != nil {
				log.Error().Err(err).Str("addr", metricsCfg.Addr).Msg("metrics endpoint stopped")
			}
		}()
	}

	var db *bun.DB
	if dbCfg.DSN != "" {
		var err error
		db, err = databasex.Open(ctx, *dbCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open database")
		}
		defer db.Close()
	}

	gateway, err := llmx.NewGatewayFromConfig(ctx, *llmCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize model gateway")
	}
	selector := llmx.NewSelector(llmCfg.SelectorConfig())

	embedder := newEmbedder(*embeddingCfg)
	catalog, corpus := newStores(ctx, db, embedder, appCfg.KnowledgeFile)
	engine, err := retrievalx.NewEngine(embedder, corpus)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize retrieval engine")
	}

	toolbox, err := toolx.NewToolbox(toolx.Deps{Catalog: catalog, Knowledge: engine})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize toolbox")
	}
	prompts := promptx.MustLoadPromptSet()
	registry, err := specialistx.NewRegistry(prompts, toolbox)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize specialist registry")
	}
	router, err := routerx.New(gateway, selector, prompts.Router, registry.Roster(), registry.Names())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize router")
	}
	loop, err := specialistx.NewLoop(gateway, selector, *loopCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tool loop")
	}

	deps := orchestratorx.Deps{Router: router, Registry: registry, Loop: loop}
	if redisCfg.Enabled() {
		store, err := statex.NewUpstashRedisStore(*redisCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize session store")
		}
		deps.Store = store
	}
	if qstashCfg.Enabled() {
		recorder, err := transcriptx.NewQStashRecorder(qstashx.MustNew(*qstashCfg), qstashCfg.Topic)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize transcript recorder")
		}
		deps.Recorder = recorder
	}

	o, err := orchestratorx.New(deps)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize orchestrator")
	}

	log.Info().
		Bool("database", db != nil).
		Bool("embeddings", embedder != nil).
		Bool("session_store", deps.Store != nil).
		Bool("transcripts", deps.Recorder != nil).
		Bool("metrics", metricsCfg.Enabled()).
		Msg("concierge ready, reading queries from stdin")

	if err := serve(ctx, o, os.Stdin, os.Stdout, *sessionFlag); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("stdin loop stopped")
	}
}

func newEmbedder(cfg retrievalx.EmbedderConfig) retrievalx.Embedder {
	client := chatmodelx.NewClient(cfg.BaseURL, cfg.APIKey)
	if client == nil {
		log.Warn().Msg("no embedding api key, knowledge search is lexical only")
		return nil
	}
	embedder, err := retrievalx.NewOpenAIEmbedder(client, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize embedder")
	}
	return embedder
}

// newStores picks Postgres when a database is configured, otherwise the
// sample catalog and the local knowledge file.
func newStores(ctx context.Context, db *bun.DB, embedder retrievalx.Embedder, knowledgeFile string) (datastorex.Catalog, retrievalx.Corpus) {
	if db != nil {
		return datastorex.NewPostgresCatalog(db), datastorex.NewKnowledgeTable(db)
	}

	catalog := datastorex.NewMemoryCatalog(datastorex.SampleSeed())
	docs, err := loadKnowledgeFile(knowledgeFile)
	if err != nil {
		log.Warn().Err(err).Str("file", knowledgeFile).Msg("knowledge file unavailable, corpus is empty")
		return catalog, retrievalx.NewMemoryCorpus()
	}
	if embedder == nil {
		return catalog, retrievalx.FromDocuments(docs)
	}

	corpus := retrievalx.NewMemoryCorpus()
	n, err := retrievalx.Ingest(ctx, embedder, corpus, docs)
	if err != nil {
		log.Warn().Err(err).Msg("embedding knowledge file failed, corpus is lexical only")
		return catalog, retrievalx.FromDocuments(docs)
	}
	log.Info().Int("entries", n).Str("version", embedder.Version()).Msg("knowledge corpus embedded")
	return catalog, corpus
}

func loadKnowledgeFile(path string) ([]retrievalx.Document, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("knowledge file %s does not exist", path)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return retrievalx.LoadDocuments(f)
}
