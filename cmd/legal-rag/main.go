package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"legal-rag/internal/chat"
	"legal-rag/internal/chunker"
	"legal-rag/internal/config"
	"legal-rag/internal/docload"
	"legal-rag/internal/embedding"
	"legal-rag/internal/indexer"
	"legal-rag/internal/retrieval"
	"legal-rag/internal/vectorstore"
	"legal-rag/internal/vectorstore/chromemdb"
	"legal-rag/internal/vectorstore/pgvector"
	"legal-rag/internal/vectorstore/qdrant"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	_ = godotenv.Load()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	indexCases := flag.String("index-cases", "", "Comma-separated JSON files of case records to index")
	indexLaws := flag.String("index-laws", "", "Comma-separated JSON or XLSX files of law records to index")
	caseFile := flag.String("case-file", "", "Single judgment document (.pdf, .docx, .txt) to index as a case")
	caseTitle := flag.String("case-title", "", "Case title for -case-file (defaults to the filename)")
	division := flag.String("division", "", "Court division for -case-file")
	query := flag.String("query", "", "Question to answer")
	model := flag.String("model", "", "LLM model id for -query (gemini | openai | explicit model name)")
	caseRAG := flag.Bool("case-rag", true, "Ground -query answers on the case collection")
	lawRAG := flag.Bool("law-rag", true, "Ground -query answers on the law collection")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	info := flag.Bool("info", false, "Print collection statistics")
	reset := flag.Bool("reset", false, "Delete both collections")
	flag.Parse()

	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	log.Debug().Interface("config", cfg).Msg("Loaded config")

	caseStore, err := newStore(cfg, cfg.Collections.Cases.Name)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening case store")
	}
	lawStore, err := newStore(cfg, cfg.Collections.Laws.Name)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening law store")
	}

	ctx := context.Background()

	switch {
	case *reset:
		resetCollections(ctx, caseStore, lawStore)
	case *info:
		printInfo(ctx, caseStore, lawStore)
	case *indexCases != "":
		ix := caseIndexer(cfg, caseStore)
		n, err := ix.AddFiles(ctx, splitList(*indexCases))
		if err != nil {
			log.Fatal().Err(err).Int("indexed", n).Msg("Case indexing aborted")
		}
		log.Info().Int("indexed", n).Msg("Case indexing complete")
	case *caseFile != "":
		record, err := docload.CaseRecord(*caseFile, *caseTitle, *division)
		if err != nil {
			log.Fatal().Err(err).Str("file", *caseFile).Msg("Error reading judgment document")
		}
		ix := caseIndexer(cfg, caseStore)
		n, err := ix.AddRecords(ctx, []json.RawMessage{record})
		if err != nil || n == 0 {
			log.Fatal().Err(err).Str("file", *caseFile).Msg("Error indexing judgment document")
		}
		log.Info().Str("file", *caseFile).Msg("Judgment indexed")
	case *indexLaws != "":
		indexLawFiles(ctx, cfg, lawStore, splitList(*indexLaws))
	case *query != "":
		answer(ctx, cfg, caseStore, lawStore, chat.Request{
			Message:    *query,
			LLMModelID: *model,
			IsCaseRAG:  *caseRAG,
			IsLawRAG:   *lawRAG,
		})
	default:
		flag.Usage()
	}
}

func newStore(cfg *config.Config, collection string) (vectorstore.Store, error) {
	switch cfg.Store.Backend {
	case "qdrant":
		return qdrant.New(qdrant.Config{
			URL:        cfg.Store.Qdrant.URL,
			APIKey:     os.Getenv(cfg.Store.Qdrant.APIKeyEnv),
			Collection: collection,
			Timeout:    time.Duration(cfg.Store.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	case "chromem":
		return chromemdb.New(chromemdb.Config{
			Path:       cfg.Store.Chromem.Path,
			InMemory:   cfg.Store.Chromem.InMemory,
			Collection: collection,
		})
	case "pgvector":
		dsn := cfg.Store.Postgres.DSN
		if dsn == "" {
			dsn = os.Getenv(cfg.Store.Postgres.DSNEnv)
		}
		if dsn == "" {
			return nil, fmt.Errorf("no postgres DSN: set store.postgres.dsn or %s", cfg.Store.Postgres.DSNEnv)
		}
		return pgvector.Connect(pgvector.Config{
			DSN:        dsn,
			Collection: collection,
			Debug:      cfg.Store.Postgres.Debug,
		})
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func newGateway(cfg *config.Config) *embedding.Gateway {
	gw, err := embedding.NewGateway(cfg.Embedder)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	return gw
}

func caseIndexer(cfg *config.Config, store vectorstore.Store) *indexer.Indexer {
	ch := chunker.New(cfg.Collections.Cases.ChunkSize, cfg.Collections.Cases.ChunkOverlap)
	return indexer.New(indexer.CaseSource{}, ch, newGateway(cfg), store)
}

func lawIndexer(cfg *config.Config, store vectorstore.Store) *indexer.Indexer {
	ch := chunker.New(cfg.Collections.Laws.ChunkSize, cfg.Collections.Laws.ChunkOverlap)
	return indexer.New(indexer.LawSource{}, ch, newGateway(cfg), store)
}

func indexLawFiles(ctx context.Context, cfg *config.Config, store vectorstore.Store, paths []string) {
	ix := lawIndexer(cfg, store)
	total := 0
	for _, path := range paths {
		var (
			n   int
			err error
		)
		if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
			var records []json.RawMessage
			records, err = docload.LoadLawXLSX(path)
			if err == nil {
				n, err = ix.AddRecords(ctx, records)
			}
		} else {
			n, err = ix.AddFile(ctx, path)
		}
		total += n
		if err != nil {
			log.Fatal().Err(err).Str("file", path).Int("indexed", total).Msg("Law indexing aborted")
		}
	}
	log.Info().Int("indexed", total).Msg("Law indexing complete")
}

func answer(ctx context.Context, cfg *config.Config, caseStore, lawStore vectorstore.Store, req chat.Request) {
	merger := retrieval.New(newGateway(cfg), caseStore, lawStore, cfg.Retrieval)
	svc := chat.New(merger, cfg.Chat)

	resp, err := svc.Chat(ctx, req)
	if err != nil {
		log.Fatal().Err(err).Msg("Error answering query")
	}
	for _, w := range resp.Warnings {
		log.Warn().Msg(w)
	}

	fmt.Printf("Question:\n%s\n\n", req.Message)
	fmt.Printf("Answer:\n%s\n\n", resp.Response)
	if len(resp.Citations) > 0 {
		fmt.Println("Citations:")
		for _, c := range resp.Citations {
			fmt.Printf("  - %s\n", c)
		}
	}
}

func printInfo(ctx context.Context, caseStore, lawStore vectorstore.Store) {
	for _, store := range []vectorstore.Store{caseStore, lawStore} {
		inf, err := store.Info(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Error reading collection info")
			continue
		}
		fmt.Printf("%s: %d records, dimension %d\n", inf.Name, inf.Records, inf.Dimension)
	}
}

func resetCollections(ctx context.Context, caseStore, lawStore vectorstore.Store) {
	for _, store := range []vectorstore.Store{caseStore, lawStore} {
		if _, err := store.DeleteCollection(ctx); err != nil {
			log.Fatal().Err(err).Msg("Error deleting collection")
		}
	}
	log.Info().Msg("Collections deleted")
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
