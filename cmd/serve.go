package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/itinfra/seatsweep/internal/server"
	"github.com/itinfra/seatsweep/internal/utils"
	"github.com/itinfra/seatsweep/pkg/license"
	"github.com/itinfra/seatsweep/pkg/sweep"
)

// serveCmd starts the manual-trigger HTTP surface. Intended for development
// and for deployments where an external scheduler POSTs the trigger instead
// of invoking the CLI.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP trigger server",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		user, _ := cmd.Flags().GetString("username")
		pass, _ := cmd.Flags().GetString("password")
		interval, _ := cmd.Flags().GetDuration("interval")

		var srv *server.Server
		onVendorDone := func(vendor string, _ license.Result, err error) {
			if err != nil {
				srv.Collector.RecordVendorError(vendor)
			}
		}
		srv = server.New(func(ctx context.Context, vendor string) (sweep.Result, error) {
			return runSweepResult(ctx, vendor, onVendorDone)
		}, user, pass)

		if interval > 0 {
			go func() {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for range ticker.C {
					res, err := runSweepResult(context.Background(), "", onVendorDone)
					if err != nil {
						utils.Log.Errorf("scheduled sweep failed: %v", err)
						continue
					}
					srv.Collector.RecordSweep(res.Warned, res.WarnFailed, res.RemovalCandidates)
				}
			}()
			utils.Log.Infof("sweeping every %s", interval)
		}

		utils.Log.Infof("listening on %s", addr)
		return srv.Start(addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8138", "Listen address")
	serveCmd.Flags().String("username", "", "Basic auth username (empty disables auth)")
	serveCmd.Flags().String("password", "", "Basic auth password")
	serveCmd.Flags().Duration("interval", 0, "Also sweep on this interval (0 disables)")
}
