package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/adapters/blob"
	httpadapter "github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/adapters/http"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/adapters/memq"
	pg "github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/adapters/postgres"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/adapters/redisq"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/config"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/domain"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/orchestrator"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/ports"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/providers"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/providers/hybridanalysis"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/providers/metadefender"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/providers/mobsf"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/providers/polling"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/providers/virustotal"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/report"
	scansvc "github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/services/scans"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/workers/scanrunner"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("warning: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	if !cfg.MobSF.Configured() {
		log.Fatal("MOBSF_URL and MOBSF_API_KEY are required: static analysis is the mandatory provider")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer db.Close()

	blobs, err := blob.NewFS(cfg.BlobDir)
	if err != nil {
		log.Fatalf("blob store error: %v", err)
	}

	var queue ports.JobQueue
	if cfg.RedisAddr != "" {
		rq, err := redisq.New(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatalf("redis connect error: %v", err)
		}
		defer rq.Close()
		queue = rq
	} else {
		log.Printf("REDIS_ADDR not set: workers tick without enqueue nudges")
		queue = memq.New()
	}

	orc := buildOrchestrator(cfg)
	log.Printf("providers configured: %v", orc.Providers())

	processor := &scanrunner.Processor{
		Jobs:     db,
		Blobs:    blobs,
		Runner:   orc,
		Renderer: report.NewPlain(),
		WorkDir:  os.TempDir(),
	}
	if cfg.ScanWorkers > 0 {
		scanrunner.Run(ctx, db, queue, processor, cfg.ScanWorkers, 2*time.Second)
		log.Printf("scan workers started: %d", cfg.ScanWorkers)
	}

	scans := scansvc.New(db, blobs, queue, cfg.MaxUpload)
	srv := httpadapter.New(scans, db, blobs, cfg.MaxUpload)
	r := chi.NewRouter()
	r.Mount("/", srv.Routes())

	errCh := make(chan error, 1)
	go func() { errCh <- http.ListenAndServe(cfg.ListenAddr, r) }()
	log.Printf("listening on %s", cfg.ListenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Printf("shutting down on %s", sig)
		cancel()
		time.Sleep(300 * time.Millisecond)
	case err := <-errCh:
		log.Fatal(fmt.Errorf("server error: %w", err))
	}
}

// buildOrchestrator wires every provider that has credentials. Optional
// providers without credentials are left out and simply never appear in
// result bundles.
func buildOrchestrator(cfg config.Config) *orchestrator.Orchestrator {
	policies := map[domain.Provider]polling.Policy{
		domain.ProviderMobSF:          {Interval: cfg.MobSF.PollInterval, MaxAttempts: cfg.MobSF.MaxAttempts},
		domain.ProviderVirusTotal:     {Interval: cfg.VirusTotal.PollInterval, MaxAttempts: cfg.VirusTotal.MaxAttempts},
		domain.ProviderMetaDefender:   {Interval: cfg.MetaDefender.PollInterval, MaxAttempts: cfg.MetaDefender.MaxAttempts},
		domain.ProviderHybridAnalysis: {Interval: cfg.HybridAnalysis.PollInterval, MaxAttempts: cfg.HybridAnalysis.MaxAttempts},
	}

	var optional []providers.Client
	if cfg.VirusTotal.Configured() {
		optional = append(optional, virustotal.New(cfg.VirusTotal))
	} else {
		log.Printf("virustotal not configured, AV aggregation disabled")
	}
	if cfg.MetaDefender.Configured() {
		optional = append(optional, metadefender.New(cfg.MetaDefender))
	} else {
		log.Printf("metadefender not configured, file reputation disabled")
	}
	if cfg.HybridAnalysis.Configured() {
		optional = append(optional, hybridanalysis.New(cfg.HybridAnalysis))
	} else {
		log.Printf("hybrid analysis not configured, sandbox disabled")
	}

	return orchestrator.New(mobsf.New(cfg.MobSF), optional, policies)
}
