package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Provider holds one scanner client's endpoint/credential pair plus its
// polling budget. Injected at client construction so tests can substitute
// fakes per provider; never read from ambient globals.
type Provider struct {
	BaseURL      string
	APIKey       string
	PollInterval time.Duration
	MaxAttempts  int
	MaxFileSize  int64 // bytes; 0 means no ceiling
}

// Configured reports whether the provider has credentials and can be wired.
func (p Provider) Configured() bool { return p.BaseURL != "" && p.APIKey != "" }

type Config struct {
	Env         string
	ListenAddr  string
	DatabaseURL string
	RedisAddr   string // empty disables the queue nudge; workers tick instead
	BlobDir     string
	ScanWorkers int
	MaxUpload   int64 // bytes accepted by the upload endpoint

	MobSF          Provider
	VirusTotal     Provider
	MetaDefender   Provider
	HybridAnalysis Provider
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var out int
		if _, err := fmt.Sscanf(v, "%d", &out); err == nil {
			return out
		}
	}
	return def
}

func getenvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		var out int64
		if _, err := fmt.Sscanf(v, "%d", &out); err == nil {
			return out
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func provider(prefix string, defInterval time.Duration, defAttempts int, defMaxSize int64) Provider {
	return Provider{
		BaseURL:      os.Getenv(prefix + "_URL"),
		APIKey:       os.Getenv(prefix + "_API_KEY"),
		PollInterval: getenvDuration(prefix+"_POLL_INTERVAL", defInterval),
		MaxAttempts:  getenvInt(prefix+"_MAX_ATTEMPTS", defAttempts),
		MaxFileSize:  getenvInt64(prefix+"_MAX_FILE_SIZE", defMaxSize),
	}
}

// Load reads configuration from a local .env file (if present) and the
// environment. A missing DATABASE_URL is reported via the error value so
// callers can decide whether it is fatal.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:         getenv("APP_ENV", "development"),
		ListenAddr:  getenv("LISTEN_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		BlobDir:     getenv("BLOB_DIR", "data/blobs"),
		ScanWorkers: getenvInt("SCAN_WORKERS", 2),
		MaxUpload:   getenvInt64("MAX_UPLOAD_BYTES", 200<<20),

		// Poll budgets follow vendor guidance: static analysis and the AV
		// aggregator answer within minutes, the sandbox can take half an hour.
		MobSF:          provider("MOBSF", 10*time.Second, 30, 0),
		VirusTotal:     provider("VIRUSTOTAL", 20*time.Second, 30, 32<<20),
		MetaDefender:   provider("METADEFENDER", 15*time.Second, 40, 140<<20),
		HybridAnalysis: provider("HYBRID_ANALYSIS", 30*time.Second, 60, 100<<20),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL not set")
	}
	return cfg, nil
}
