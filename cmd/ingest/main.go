// Command ingest embeds a YAML knowledge corpus and upserts it into the
// knowledge table.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	datastorex "github.com/tanpawarit/albaqer-concierge/agent/datastore"
	retrievalx "github.com/tanpawarit/albaqer-concierge/agent/retrieval"
	chatmodelx "github.com/tanpawarit/albaqer-concierge/pkg/chatmodel"
	configx "github.com/tanpawarit/albaqer-concierge/pkg/config"
	databasex "github.com/tanpawarit/albaqer-concierge/pkg/database"
	_ "github.com/tanpawarit/albaqer-concierge/pkg/logger/autoload"
)

var (
	fileFlag   = flag.String("file", "data/knowledge.yaml", "YAML corpus to ingest")
	createFlag = flag.Bool("create-table", true, "create the knowledge table if it does not exist")
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	embeddingCfg := configx.MustNew[retrievalx.EmbedderConfig]("EMBEDDING")
	dbCfg := configx.MustNew[databasex.Config]("DB")

	client := chatmodelx.NewClient(embeddingCfg.BaseURL, embeddingCfg.APIKey)
	if client == nil {
		log.Fatal().Msg("EMBEDDING_API_KEY is required to ingest")
	}
	embedder, err := retrievalx.NewOpenAIEmbedder(client, *embeddingCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize embedder")
	}

	f, err := os.Open(*fileFlag)
	if err != nil {
		log.Fatal().Err(err).Str("file", *fileFlag).Msg("failed to open corpus")
	}
	docs, err := retrievalx.LoadDocuments(f)
	_ = f.Close()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse corpus")
	}

	db, err := databasex.Open(ctx, *dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if *createFlag {
		if err := datastorex.CreateKnowledgeTable(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("failed to create knowledge table")
		}
	}

	n, err := retrievalx.Ingest(ctx, embedder, datastorex.NewKnowledgeTable(db), docs)
	if err != nil {
		log.Fatal().Err(err).Msg("ingest failed")
	}
	log.Info().
		Int("entries", n).
		Str("version", embedder.Version()).
		Int("dimension", embedder.Dimension()).
		Msg("knowledge corpus ingested")
}
