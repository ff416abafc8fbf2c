package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL  string
	SslCertPath  string
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string
	AIAPIKey     string
	EmbedModel   string
	EmbedDim     int
	GenModel     string
	Port         string

	ChunkSize           int     // target tokens per chunk
	ChunkOverlap        int     // token overlap between consecutive chunks
	TopK                int     // default chunks per retrieval
	SimilarityThreshold float64 // minimum cosine similarity for a hit
	IngestWorkers       int     // simultaneous background ingestions
	OCREnabled          bool    // Vision OCR for scanned PDFs
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		SslCertPath:  getEnv("SSL_CERT_PATH", ""),
		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "course-materials"),
		AIAPIKey:     getEnv("GEMINI_API_KEY", ""),
		EmbedModel:   getEnv("EMBED_MODEL", "text-embedding-004"),
		EmbedDim:     getEnvInt("EMBED_DIM", 768),
		GenModel:     getEnv("GEN_MODEL", "gemini-1.5-flash"),
		Port:         getEnv("PORT", "8000"),

		ChunkSize:           getEnvInt("RAG_CHUNK_SIZE", 500),
		ChunkOverlap:        getEnvInt("RAG_CHUNK_OVERLAP", 50),
		TopK:                getEnvInt("RAG_TOP_K", 5),
		SimilarityThreshold: getEnvFloat("RAG_SIMILARITY_THRESHOLD", 0.3),
		IngestWorkers:       getEnvInt("INGEST_WORKERS", 2),
		OCREnabled:          getEnvBool("OCR_ENABLED", true),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("WARN: %s=%q not a float, using default %g", key, v, def)
		return def
	}
	return f
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a bool, using default %t", key, v, def)
		return def
	}
	return b
}
