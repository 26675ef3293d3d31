package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marknadsdata/insider-crawler/internal/api"
	"github.com/marknadsdata/insider-crawler/internal/archive"
	"github.com/marknadsdata/insider-crawler/internal/clock/system"
	"github.com/marknadsdata/insider-crawler/internal/crawl"
	"github.com/marknadsdata/insider-crawler/internal/registry"
)

// newCrawlCmd creates and configures the 'crawl' subcommand. It walks the
// disclosure registry within the configured date window and loads every
// usable row into the configured writer.
func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Starts the disclosure crawl",
		Long: `Walks the insider trading registry page by page, newest
disclosures first, until the end of the configured publication-date
window or the registry's last page. Each row is normalized and written
to the configured warehouse provider.`,

		RunE: runCrawlCommand,
	}
	return cmd
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.GetLogger()
	cfg := appInstance.GetConfig()
	clk := system.New()

	source, err := registry.NewCollySource(registry.Config{
		BaseURL:   cfg.Registry.BaseURL,
		UserAgent: cfg.Registry.UserAgent,
		Timeout:   time.Duration(cfg.Registry.TimeoutSeconds) * time.Second,
	}, logger)
	if err != nil {
		return fmt.Errorf("init registry source: %w", err)
	}

	var archiver crawl.Archiver
	if cfg.Archive.Enabled {
		fsArchive, err := archive.New(cfg.Archive.Dir, cfg.Archive.MaxPageBytes, logger)
		if err != nil {
			return fmt.Errorf("init page archive: %w", err)
		}
		archiver = fsArchive
	}

	controller, err := crawl.New(crawl.Config{
		StartDate: cfg.Crawl.StartDate,
		EndDate:   cfg.Crawl.EndDate,
		PageJump:  cfg.Crawl.PageJump,
		Delay:     time.Duration(cfg.Crawl.DelaySeconds) * time.Second,
	}, source, appInstance.GetStage(), archiver, clk, logger)
	if err != nil {
		return fmt.Errorf("init crawl controller: %w", err)
	}

	if cfg.Server.Enabled {
		startStatusServer(cfg.Server.Port, clk, logger)
	}

	result, err := controller.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("run crawl: %w", err)
	}

	logger.Info("Crawl command finished.",
		zap.String("reason", string(result.Reason)),
		zap.Int("pages", result.Pages),
		zap.Int("emitted", result.Emitted),
		zap.Int("skipped", result.Skipped),
		zap.Int("dropped", result.Dropped),
	)
	return nil
}

// startStatusServer exposes /healthz and /metrics for the duration of the
// crawl. The listener dies with the process; there is nothing to drain.
func startStatusServer(port int, clk crawl.Clock, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           api.NewServer(clk, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Starting status server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Status server failed", zap.Error(err))
		}
	}()
}
