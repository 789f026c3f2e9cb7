package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/streamhub/internal/domain"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire lapsed entitlements and reconcile promoted registrations once",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.close()

		result, err := rt.maintenanceService().Run(cmd.Context(), domain.SystemCaller("cli"))
		if err != nil {
			return err
		}
		rt.logger.Info("sweep finished",
			zap.Int("expired", result.Expired),
			zap.Int("reconciled", result.Reconciled))
		fmt.Fprintf(cmd.OutOrStdout(), "expired=%d reconciled=%d\n", result.Expired, result.Reconciled)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
