package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/spec-kit/sla-engine/internal/persistence"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/service"
	"github.com/spec-kit/sla-engine/internal/sla"
)

// scanner is satisfied by *service.AlertService.
type scanner interface {
	Scan(ctx context.Context, ownerID string) (service.ScanResult, error)
}

func newScanCmd() *cobra.Command {
	var ownerID string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one SLA scan and print the result",
		Long: `Checks pending emails whose deadline falls inside the risk window and
records an alert for each one at risk. Leave --owner empty to scan every
owner. Events raised here are not forwarded to webhooks; the API server
owns delivery.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadRuntime()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			if cfg.Postgres.DSN == "" {
				return fmt.Errorf("scan: %w", errNoDatabase)
			}
			ctx := cmd.Context()
			pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
			if err != nil {
				return fmt.Errorf("scan: connect: %w", err)
			}
			defer pg.Close()

			policy, err := sla.NewPolicy(nil, cfg.SLA.RiskWindow())
			if cfg.SLA.PolicyFile != "" {
				policy, err = sla.LoadPolicyFile(cfg.SLA.PolicyFile, cfg.SLA.RiskWindow())
			}
			if err != nil {
				return fmt.Errorf("scan: %w", err)
			}

			stores := repository.NewPostgresStores(pg.PoolHandle())
			alerts := service.NewAlertService(service.AlertDependencies{
				TicketRepo:  stores.Tickets,
				AlertRepo:   stores.Alerts,
				Policy:      policy,
				Logger:      logger,
				Concurrency: cfg.SLA.ScanConcurrency,
			})
			return runScan(ctx, cmd.OutOrStdout(), alerts, ownerID)
		},
	}

	cmd.Flags().StringVar(&ownerID, "owner", "", "owner account id (empty scans all owners)")
	return cmd
}

func runScan(ctx context.Context, out io.Writer, s scanner, ownerID string) error {
	result, err := s.Scan(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
