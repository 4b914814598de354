package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/itinfra/seatsweep/internal/config"
	"github.com/itinfra/seatsweep/internal/utils"
	"github.com/itinfra/seatsweep/pkg/license"
	"github.com/itinfra/seatsweep/pkg/notify"
	"github.com/itinfra/seatsweep/pkg/sweep"
	"github.com/itinfra/seatsweep/pkg/vendors"
	"github.com/itinfra/seatsweep/pkg/vendors/copilot"
	"github.com/itinfra/seatsweep/pkg/vendors/jetbrains"
)

// sweepCmd implements: seatsweep sweep
//
// Runs one full pass over every enabled vendor: fetch rosters and activity,
// classify by the notify/remove thresholds, deduplicate across vendors, DM
// warnings, and post the removal rollup.
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one inactivity sweep over all enabled vendors",
}

func init() {
	// RunE is assigned here rather than in the literal to avoid an
	// initialization cycle (runSweepResult reads sweepCmd's flags).
	sweepCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return fmt.Errorf("unknown command: '%s'. See 'seatsweep sweep --help'", args[0])
		}
		return runSweep(cmd.Context(), "")
	}
	rootCmd.AddCommand(sweepCmd)
	sweepCmd.PersistentFlags().Int("concurrency", 3, "Number of concurrent warning DMs")
}

// buildSources constructs the enabled vendor sources, optionally restricted
// to one vendor key. Credential problems surface here, before any fetching.
func buildSources(ctx context.Context, cfg *config.Config, only string) ([]vendors.UsageSource, error) {
	var sources []vendors.UsageSource

	if cfg.EnableJetBrains && (only == "" || only == "jetbrains") {
		src := jetbrains.New(cfg.JetBrainsAPIKey, cfg.JetBrainsCustomerCode)
		if err := src.Authenticate(ctx, vendors.AuthConfig{Token: cfg.JetBrainsAPIKey, CustomerCode: cfg.JetBrainsCustomerCode}); err != nil {
			utils.Log.Errorf("JetBrains auth failed: %v", err)
		} else {
			sources = append(sources, src)
		}
	} else if only == "" {
		utils.Log.Info("Skipping JetBrains: not enabled in config.")
	}

	if cfg.EnableCopilot && (only == "" || only == "copilot") {
		src := copilot.New(cfg.CopilotToken, cfg.CopilotOrg)
		if err := src.Authenticate(ctx, vendors.AuthConfig{Token: cfg.CopilotToken, Organization: cfg.CopilotOrg}); err != nil {
			utils.Log.Errorf("Copilot auth failed: %v", err)
		} else {
			sources = append(sources, src)
		}
	} else if only == "" {
		utils.Log.Info("Skipping Copilot: not enabled in config.")
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("no vendors to sweep; enable one in ~/.seatsweep.yaml")
	}
	return sources, nil
}

// runSweepResult loads config, wires the dispatcher, and executes one run.
// only restricts the run to a single vendor key ("" = all enabled). A fresh
// dispatcher is built per call so the handle cache never outlives a run.
// onVendorDone is forwarded to the orchestrator; serve mode uses it to count
// per-vendor failures.
func runSweepResult(ctx context.Context, only string, onVendorDone func(vendor string, result license.Result, err error)) (sweep.Result, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return sweep.Result{}, err
	}

	sources, err := buildSources(ctx, cfg, only)
	if err != nil {
		return sweep.Result{}, err
	}

	var dispatcher *notify.Dispatcher
	if cfg.NotificationsEnabled {
		dispatcher = notify.NewDispatcher(notify.NewSlackClient(cfg.SlackToken))
	}

	concurrency, _ := sweepCmd.PersistentFlags().GetInt("concurrency")
	return sweep.Run(ctx, sweep.Config{
		Sources:              sources,
		NotifyAfterDays:      cfg.NotifyAfterDays,
		RemoveAfterDays:      cfg.RemoveAfterDays,
		Dispatcher:           dispatcher,
		AdminChannel:         cfg.AdminChannel,
		NotificationsEnabled: cfg.NotificationsEnabled,
		Concurrency:          concurrency,
		Log:                  utils.Log,
		OnVendorDone:         onVendorDone,
	})
}

func runSweep(ctx context.Context, only string) error {
	res, err := runSweepResult(ctx, only, nil)
	if err != nil {
		return err
	}
	fmt.Printf("warned=%d warnFailed=%d removalCandidates=%d\n", res.Warned, res.WarnFailed, res.RemovalCandidates)
	return nil
}
