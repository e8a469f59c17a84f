package main

import (
	"fmt"

	"github.com/google/logger"
	"github.com/spf13/cobra"

	"luckydraw/internal/config"
	"luckydraw/internal/services"
	"luckydraw/internal/storage"
)

func newExportCmd() *cobra.Command {
	var (
		tenantID string
		list     bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print a stored tenant's results as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			closer, err := setupLogger(cfg)
			if err != nil {
				return err
			}
			defer closer.Close()

			store, err := storage.NewSQLiteStore(cfg.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if list {
				tenants, err := store.Tenants(cmd.Context())
				if err != nil {
					return err
				}
				for _, t := range tenants {
					fmt.Fprintln(cmd.OutOrStdout(), t)
				}
				return nil
			}
			if tenantID == "" {
				return fmt.Errorf("--tenant is required unless --list is set")
			}

			snap, ok, err := store.Load(cmd.Context(), tenantID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no stored session for tenant %q", tenantID)
			}
			ledger := services.NewPrizeLedger()
			ledger.Restore(snap.Tiers, snap.Records)
			logger.Infof("exporting %d records for tenant %s", ledger.Len(), tenantID)
			return services.WriteResultsCSV(cmd.OutOrStdout(), ledger.ExportRecords())
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant id to export")
	cmd.Flags().BoolVar(&list, "list", false, "list stored tenant ids instead")
	return cmd
}
