package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/edurag-project/backend/internal/config"
	db "github.com/edurag-project/backend/internal/core/database"
	"github.com/edurag-project/backend/internal/core/ingestion_engine"
	"github.com/edurag-project/backend/internal/core/llm"
	objectclient "github.com/edurag-project/backend/internal/core/object-client"
	"github.com/edurag-project/backend/internal/core/ocr"
	"github.com/edurag-project/backend/internal/core/pdf"
	"github.com/edurag-project/backend/internal/core/rag"
	"github.com/edurag-project/backend/internal/core/tokens"
)

type App struct {
	DBClient *db.DatabaseClient
	Ingestor ingestion_engine.Ingestor
	Server   *Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Database initialized and ready.")

	objClient, err := objectclient.NewS3Client(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Object client initialized and ready.")

	geminiEmbedder, err := llm.NewGeminiEmbedder(appCtx, cfg.AIAPIKey, cfg.EmbedModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the embedder: %w", err)
	}

	llmProvider, err := llm.NewGeminiLLM(appCtx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the generator: %w", err)
	}

	tokenCounter := tokens.NewCounter()

	extractor := pdf.NewExtractor(nil, tokenCounter.Count)
	if cfg.OCREnabled {
		visionOCR, err := ocr.NewVisionOCR(appCtx)
		if err != nil {
			// Digital PDFs still work; scanned ones will fail fast.
			log.Printf("OCR unavailable, continuing without it: %v", err)
		} else {
			extractor = pdf.NewExtractor(visionOCR, tokenCounter.Count)
		}
	}

	chunker := ingestion_engine.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap, tokenCounter.Count)

	ingCfg := &ingestion_engine.IngestConfig{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		Bucket:       cfg.BucketName,
	}
	ingestor := ingestion_engine.NewMaterialIngestor(dbClient, objClient, geminiEmbedder, extractor, chunker, ingCfg)

	retriever := rag.NewRetriever(dbClient, geminiEmbedder, cfg.SimilarityThreshold)
	answerer := rag.NewAnswerer(llmProvider)

	server := NewServer(cfg, dbClient, objClient, ingestor, retriever, answerer)

	return &App{
		DBClient: dbClient.(*db.DatabaseClient),
		Ingestor: ingestor,
		Server:   server,
	}, nil
}

func (a *App) Close() {
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
