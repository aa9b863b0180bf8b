package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/services"
)

var (
	scheduleCron string
	scheduleNow  bool
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Re-run ingestion on a cron schedule",
	Long: `Runs ingestion repeatedly with the sources from the config file. The
schedule is a standard five-field cron expression or a descriptor such as
@daily or "@every 6h". A run that is still going when the next one is due
causes that tick to be skipped. Stop with Ctrl-C.`,
	Example: `  aganitha schedule --cron "0 2 * * *" -c config.toml
  aganitha schedule --cron "@every 6h" --now`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", "cron schedule (defaults to pipeline.schedule from the config)")
	scheduleCmd.Flags().BoolVar(&scheduleNow, "now", false, "run once immediately before waiting for the schedule")
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	spec := cfg.Pipeline.Schedule
	if cmd.Flags().Changed("cron") {
		spec = scheduleCron
	}
	if spec == "" {
		return domain.ConfigError("no schedule: pass --cron or set pipeline.schedule")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	opts := []services.SchedulerOption{
		services.WithResultHandler(func(r *domain.RunReport, _ error) {
			if r != nil {
				printReport(cmd, cfg, r)
			}
		}),
	}
	if scheduleNow {
		opts = append(opts, services.WithRunOnStart())
	}

	scheduler, err := services.NewScheduler(spec, func(ctx context.Context) (*domain.RunReport, error) {
		return runPipeline(ctx, cfg)
	}, opts...)
	if err != nil {
		return err
	}

	cmd.Printf("Scheduled ingestion on %q. Press Ctrl-C to stop.\n", spec)

	if err := scheduler.Start(cmd.Context()); err != nil && cmd.Context().Err() == nil {
		return err
	}
	return nil
}
