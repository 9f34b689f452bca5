// Command fitpal-notify schedules meal and workout reminders from a FitPal plan.
//
// Usage:
//
//	fitpal-notify serve
//	fitpal-notify current-meal --at 13:30
//	fitpal-notify preview
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	_ "time/tzdata" // profile zones must resolve in minimal containers

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hcissey0/fitpal-notify/internal/app"
	"github.com/hcissey0/fitpal-notify/internal/config"
	"github.com/hcissey0/fitpal-notify/internal/delivery"
	"github.com/hcissey0/fitpal-notify/internal/domain"
	"github.com/hcissey0/fitpal-notify/internal/logger"
	"github.com/hcissey0/fitpal-notify/internal/planapi"
	"github.com/hcissey0/fitpal-notify/internal/reminder"
	"github.com/hcissey0/fitpal-notify/internal/scheduler"
)

func main() {
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:           "fitpal-notify",
		Short:         "FitPal meal and workout reminders",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(currentMealCmd())
	root.AddCommand(previewCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		_, _ = os.Stderr.WriteString("error: " + err.Error() + "\n")
		os.Exit(1)
	}
}

// setup loads config and builds the logger shared by every subcommand.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, fmt.Errorf("config: %w", err)
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return cfg, nil, fmt.Errorf("logger init: %w", err)
	}
	return cfg, log, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler, HTTP API and Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			application, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				return fmt.Errorf("app init: %w", err)
			}
			return application.Run(cmd.Context())
		},
	}
}

func currentMealCmd() *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "current-meal",
		Short: "Print the meal window the user is in",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			var tod *domain.TimeOfDay
			if at != "" {
				t, err := domain.ParseTimeOfDay(at)
				if err != nil {
					return err
				}
				tod = &t
			}

			sched, svc := offline(cfg, log)
			defer sched.CancelAll()
			cur, err := svc.CurrentMeal(cmd.Context(), tod)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", cur.At, cur.Label)
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Time of day (HH:MM or HH:MM:SS), default now in the user's zone")
	return cmd
}

func previewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview",
		Short: "Show the reminders a rebuild would schedule, without delivering any",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			sched, svc := offline(cfg, log)
			defer sched.CancelAll()
			sum, err := svc.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			if !sum.Enabled {
				fmt.Fprintln(cmd.OutOrStdout(), "notifications are disabled in the profile")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FIRE AT\tID\tTITLE")
			for _, p := range sched.Pending() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.FireAt.Format("2006-01-02 15:04:05 MST"), p.ID, p.Title)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d reminders scheduled\n", sum.Scheduled, sum.Submitted)
			return nil
		},
	}
}

// offline builds a service over a scheduler that only logs, for one-shot commands.
func offline(cfg config.Config, log *zap.Logger) (*scheduler.Scheduler, *reminder.Service) {
	sched := scheduler.New(delivery.NewLog(log), log, scheduler.WithIcon(cfg.NotificationIcon))
	builder := reminder.NewBuilder(sched, nil, log)
	source := planapi.NewClient(cfg.APIBaseURL, cfg.APIToken, cfg.APIRequestsPerMinute, log)
	sync := reminder.NewSync(source, builder, nil, cfg.Location(), log)
	return sched, reminder.NewService(sched, sync, nil)
}
