package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	gstorage "cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/okechukwu95dev/pitchindex/internal/api"
	"github.com/okechukwu95dev/pitchindex/internal/checkpoint"
	"github.com/okechukwu95dev/pitchindex/internal/clock/system"
	"github.com/okechukwu95dev/pitchindex/internal/config"
	"github.com/okechukwu95dev/pitchindex/internal/crawl"
	"github.com/okechukwu95dev/pitchindex/internal/export"
	gcsexport "github.com/okechukwu95dev/pitchindex/internal/export/gcs"
	psexport "github.com/okechukwu95dev/pitchindex/internal/export/pubsub"
	"github.com/okechukwu95dev/pitchindex/internal/fetcher/detector"
	"github.com/okechukwu95dev/pitchindex/internal/fetcher/headless"
	"github.com/okechukwu95dev/pitchindex/internal/fetcher/static"
	"github.com/okechukwu95dev/pitchindex/internal/hash/sha256"
	"github.com/okechukwu95dev/pitchindex/internal/ledger"
	ledgerpg "github.com/okechukwu95dev/pitchindex/internal/ledger/postgres"
	"github.com/okechukwu95dev/pitchindex/internal/logging"
	"github.com/okechukwu95dev/pitchindex/internal/metrics"
	"github.com/okechukwu95dev/pitchindex/internal/ratelimit"
)

func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Runs one crawl over the full hierarchy",
		Long: `Discovers the country list, walks every country's leagues and extracts
each league's teams, checkpointing after every league. The pipeline is
fixed: discover, crawl, flush final snapshot.`,
		RunE: runCrawlCommand,
	}
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	metrics.Init()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := system.New()

	store, err := checkpoint.New(checkpoint.Config{Dir: cfg.Checkpoint.Dir}, clk, logger)
	if err != nil {
		return fmt.Errorf("init checkpoint store: %w", err)
	}

	headlessFetcher, err := headless.New(headless.Config{
		MaxParallel:    cfg.Fetch.HeadlessMaxParallel,
		UserAgent:      cfg.Crawl.UserAgent,
		DefaultTimeout: cfg.LeagueTimeout(),
		CookieSelector: cfg.Fetch.CookieSelector,
	}, logger)
	if err != nil {
		return fmt.Errorf("init headless fetcher: %w", err)
	}
	defer headlessFetcher.Close()

	staticFetcher := static.New(static.Config{
		UserAgent: cfg.Crawl.UserAgent,
		Timeout:   cfg.StaticTimeout(),
	})

	discoverer := crawl.NewDiscoverer(
		staticFetcher,
		headlessFetcher,
		detector.NewHeuristic(cfg.Fetch.DetectorMinHTMLBytes),
		cfg.LeagueTimeout(),
		logger,
	)

	teams := crawl.NewTeamFetcher(headlessFetcher, crawl.RetryConfig{
		Attempts:      cfg.Crawl.RetryAttempts,
		LeagueTimeout: cfg.LeagueTimeout(),
		CupTimeout:    cfg.CupTimeout(),
		TeamsSelector: cfg.Fetch.TeamsSelector,
	}, logger)

	ldg, err := buildLedger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer ldg.Close()

	view := crawl.NewProgressView()
	if cfg.Server.Enabled {
		srv := api.NewServer(view, cfg.Server.Port, logger)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("status server shutdown", zap.Error(err))
			}
		}()
	}

	orch := crawl.New(
		crawl.Config{EntryURL: cfg.Crawl.EntryURL},
		discoverer,
		teams,
		store,
		ratelimit.New(ratelimit.Config{Delay: cfg.Delay()}),
		ldg,
		view,
		clk,
		logger,
	)

	result, err := orch.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("crawl canceled; checkpoint preserved for resume")
			return nil
		}
		return fmt.Errorf("run crawl: %w", err)
	}

	if err := exportResult(ctx, cfg, result, logger); err != nil {
		// The snapshot is already durable locally; export failure is not
		// worth a non-zero exit.
		logger.Warn("export failed", zap.Error(err))
	}
	return nil
}

func buildLedger(ctx context.Context, cfg config.Config, logger *zap.Logger) (ledger.Ledger, error) {
	if cfg.DB.DSN == "" {
		return ledger.Noop{}, nil
	}
	ldg, err := ledgerpg.New(ctx, cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("init run ledger: %w", err)
	}
	logger.Info("run ledger enabled")
	return ldg, nil
}

func exportResult(ctx context.Context, cfg config.Config, result crawl.Result, logger *zap.Logger) error {
	data, err := os.ReadFile(result.FinalPath)
	if err != nil {
		return fmt.Errorf("read final snapshot: %w", err)
	}
	digest := sha256.New().Hash(data)

	uri := result.FinalPath
	if cfg.Export.GCSBucket != "" {
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("create storage client: %w", err)
		}
		defer client.Close() //nolint:errcheck // read-side cleanup
		uploader, err := gcsexport.New(client, cfg.Export.GCSBucket)
		if err != nil {
			return err
		}
		uri, err = uploader.Upload(ctx, filepath.Base(result.FinalPath), data)
		if err != nil {
			return fmt.Errorf("upload snapshot: %w", err)
		}
		logger.Info("snapshot uploaded", zap.String("uri", uri))
	}

	var notifier export.Notifier = export.NoopNotifier{}
	if cfg.Export.PubSubProject != "" && cfg.Export.PubSubTopic != "" {
		notifier, err = psexport.New(ctx, cfg.Export.PubSubProject, cfg.Export.PubSubTopic)
		if err != nil {
			return fmt.Errorf("init notifier: %w", err)
		}
	}
	defer notifier.Close() //nolint:errcheck // best-effort close

	return notifier.Notify(ctx, export.RunComplete{
		RunID:       result.RunID.String(),
		SnapshotURI: uri,
		SHA256:      digest,
		Totals:      result.Totals,
		FinishedAt:  time.Now().UTC(),
	})
}
