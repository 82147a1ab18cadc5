package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/medicsearch/rcpgest/internal/builder"
	"github.com/medicsearch/rcpgest/internal/smpc"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Storage
	DBPath string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// URL fetching
	FetchTimeout time.Duration
	FetchRetries int

	// Chunking
	ChunkSize    int
	ChunkOverlap int

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool

	// Structuring profile
	ProfileFile   string
	SectionCutoff string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present; variables already set
// in the environment win.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("RCPGEST_API_KEY"),

		DBPath: envOr("DB_PATH", "data/rcpgest.db"),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 20971520), // 20MB

		FetchTimeout: envDuration("FETCH_TIMEOUT", 30*time.Second),
		FetchRetries: envInt("FETCH_RETRIES", 3),

		ChunkSize:    envInt("CHUNK_SIZE", 512),
		ChunkOverlap: envInt("CHUNK_OVERLAP", 64),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		ProfileFile:   os.Getenv("PROFILE_FILE"),
		SectionCutoff: os.Getenv("SECTION_CUTOFF"),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20971520
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.FetchRetries < 0 {
		cfg.FetchRetries = 0
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 512
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 64
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("RCPGEST_API_KEY is required")
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	if c.SectionCutoff != "" {
		if _, ok := builder.SectionNumber(c.SectionCutoff); !ok {
			return fmt.Errorf("SECTION_CUTOFF %q is not a section number", c.SectionCutoff)
		}
	}
	return nil
}

// Profile returns the structuring profile: PROFILE_FILE when set, the ANSM
// default otherwise, with SECTION_CUTOFF applied on top.
func (c Config) Profile() (smpc.Profile, error) {
	p := smpc.DefaultProfile()
	if c.ProfileFile != "" {
		var err error
		if p, err = smpc.LoadProfile(c.ProfileFile); err != nil {
			return smpc.Profile{}, err
		}
	}
	if c.SectionCutoff != "" {
		p.Cutoff = c.SectionCutoff
	}
	return p, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
