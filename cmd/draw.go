package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/google/logger"
	"github.com/spf13/cobra"

	"luckydraw/internal/config"
	"luckydraw/internal/rng"
	"luckydraw/internal/services"
)

type drawFlags struct {
	tier    string
	names   string
	catalog string
	slots   int
}

func newDrawCmd() *cobra.Command {
	var f drawFlags
	cmd := &cobra.Command{
		Use:   "draw",
		Short: "Run one draw in the terminal and print the results as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			// Logs only go to a file here; the terminal shows the reveal.
			cfg.LogVerbose = false
			if cfg.LogFile == "" {
				logger.Init("luckydraw", false, false, io.Discard)
			} else {
				closer, err := setupLogger(cfg)
				if err != nil {
					return err
				}
				defer closer.Close()
			}
			return runDraw(cmd, cfg, f)
		},
	}
	cmd.Flags().StringVar(&f.tier, "tier", "", "prize tier to draw (required)")
	cmd.Flags().StringVar(&f.names, "names", "", "participant list, CSV or plain text (default: catalog roster)")
	cmd.Flags().StringVar(&f.catalog, "catalog", "", "tier catalog YAML (default: CATALOG_FILE or built-in)")
	cmd.Flags().IntVar(&f.slots, "slots", 0, "winners to draw (default: every remaining slot)")
	_ = cmd.MarkFlagRequired("tier")
	return cmd
}

func runDraw(cmd *cobra.Command, cfg *config.AppConfig, f drawFlags) error {
	catalogPath := cfg.CatalogFile
	if f.catalog != "" {
		catalogPath = f.catalog
	}
	catalog, err := config.LoadCatalog(catalogPath)
	if err != nil {
		return err
	}

	names := catalog.Participants
	if f.names != "" {
		file, err := os.Open(f.names)
		if err != nil {
			return err
		}
		names, err = services.ReadNames(file)
		file.Close()
		if err != nil {
			return err
		}
	}

	pool := services.NewCandidatePool()
	pool.BulkAdd(names)
	ledger := services.NewPrizeLedger()
	for _, t := range catalog.PrizeTiers() {
		if err := ledger.ConfigureTier(t.Name, t.Quota, t.Icon, t.Order); err != nil {
			return err
		}
	}
	sampler, err := rng.NewSampler(nil)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	observer := services.ObserverFuncs{
		Tick: func(tier string, display []string) {
			fmt.Fprintf(stderr, "\r\033[K%s  %s", tier, strings.Join(display, "  "))
		},
		Completed: func(tier string, winners []string) {
			icon := ""
			if t, ok := ledger.Tier(tier); ok {
				icon = t.Icon + " "
			}
			fmt.Fprintf(stderr, "\r\033[K%s%s: %s\n", icon, tier, strings.Join(winners, ", "))
		},
	}
	engine := services.NewDrawEngine(pool, ledger, sampler, observer, services.EngineConfig{
		TickInterval: cfg.TickInterval,
		Duration:     cfg.RevealDuration,
	})

	// Ctrl+C cancels the reveal; nothing is recorded.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	d, err := engine.RequestDraw(ctx, f.tier, services.DrawOptions{Slots: f.slots})
	if err != nil {
		return err
	}
	<-d.Done()
	outcome := d.Outcome()
	switch outcome.Status {
	case services.OutcomeCancelled:
		fmt.Fprintln(stderr, "\r\033[Kdraw cancelled")
		return errors.New("draw cancelled")
	case services.OutcomeConflict:
		return outcome.Err
	}
	return services.WriteResultsCSV(cmd.OutOrStdout(), ledger.ExportRecords())
}
