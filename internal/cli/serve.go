package cli

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/lcrostarosa/lastword/internal/api"
	"github.com/lcrostarosa/lastword/internal/cli/runner"
	"github.com/lcrostarosa/lastword/internal/config"
	"github.com/lcrostarosa/lastword/internal/logging"
	"github.com/lcrostarosa/lastword/internal/metrics"
	"github.com/lcrostarosa/lastword/internal/middleware"
	"github.com/lcrostarosa/lastword/internal/scheduler"
	"github.com/lcrostarosa/lastword/internal/server"
	"github.com/lcrostarosa/lastword/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (with optional in-process schedule)",
	Long: `Start the HTTP server exposing the check-in link endpoint and the
scheduled check endpoints for an external cron.

With a schedule configured, the daily check also runs inside the process so
no external cron is needed.`,
	Example: `  # Serve on the configured address, external cron calls /api/daily-check
  lastword serve

  # Serve and run the check every morning
  lastword serve --addr :9090 --schedule daily`,
	RunE: runners.Validated().Wrap(runServe),
}

func init() {
	f := serveCmd.Flags()
	f.StringP("addr", "a", "", "Listen address (default: listen_addr or :8080)")
	f.String("schedule", "", "Run the daily check in-process on this schedule (e.g. daily, \"every 6h\", \"0 9 * * *\")")
	f.Bool("run-on-start", false, "Run the daily check once at startup when scheduling")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx *runner.CommandContext, cmd *cobra.Command, args []string) error {
	flags := runner.Flags(cmd)
	addr := flags.String("addr")
	scheduleExpr := flags.String("schedule")
	runOnStart := flags.Bool("run-on-start")
	if err := flags.Err(); err != nil {
		return err
	}

	serveCfg := ctx.Config
	if addr == "" {
		addr = serveCfg.ListenAddr
	}
	if scheduleExpr == "" {
		scheduleExpr = serveCfg.Schedule
	}

	switchSvc, err := ctx.SwitchService(cmd.Context())
	if err != nil {
		return err
	}
	checkInSvc, err := ctx.CheckInService(cmd.Context())
	if err != nil {
		return err
	}
	statusSvc, err := ctx.StatusService(cmd.Context())
	if err != nil {
		return err
	}

	if !serveCfg.HasCronCredential() {
		logging.Warn("No cron secret configured; /api/daily-check and /api/status will refuse every call")
	}

	var metricsHandler http.Handler
	if reg, _ := ctx.Metrics(); reg != nil {
		metricsHandler = metrics.HTTPHandler(reg)
	}

	srv := api.NewServer(api.Options{
		Addr:               addr,
		Switch:             switchSvc,
		CheckIn:            checkInSvc,
		Status:             statusSvc,
		CronAuth:           middleware.NewCronAuth(serveCfg.CronSecret, serveCfg.CronSecretHash),
		RateLimit:          rateLimitConfig(serveCfg),
		CheckInRedirectURL: serveCfg.CheckInRedirectURL,
		Metrics:            metricsHandler,
	})

	sched, err := setupScheduler(cmd.Context(), scheduleExpr, runOnStart, switchSvc)
	if err != nil {
		srv.Close()
		return err
	}

	printServerInfo(serveCfg, addr, sched, metricsHandler != nil)

	gs := server.NewGracefulServer(srv.HTTPServer(), &server.GracefulServerOptions{
		BeforeStop: func() {
			if sched != nil {
				sched.Stop()
			}
			srv.Close()
		},
	})
	return gs.ListenAndServe()
}

func rateLimitConfig(c *config.Config) *middleware.RateLimitConfig {
	rl := middleware.DefaultRateLimitConfig()
	if c.RateLimit.RequestsPerMinute > 0 {
		rl.RequestsPerMinute = c.RateLimit.RequestsPerMinute
	}
	if c.RateLimit.Burst > 0 {
		rl.Burst = c.RateLimit.Burst
	}
	return rl
}

// setupScheduler starts the in-process schedule, or returns nil when none is set
func setupScheduler(ctx context.Context, expr string, runOnStart bool, svc *service.SwitchService) (*scheduler.Scheduler, error) {
	if expr == "" {
		return nil, nil
	}
	sched, err := scheduler.ParseSchedule(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule: %w", err)
	}

	opts := []scheduler.Option{
		scheduler.WithRetry(scheduler.DefaultRetryStrategy()),
		scheduler.WithCallbacks(&scheduler.Callbacks{
			OnRetryExhausted: func(results []*scheduler.RunResult) {
				logging.Error("Scheduled check failed after retries",
					logging.Int("attempts", len(results)),
					logging.Err(results[len(results)-1].Error))
			},
		}),
	}
	if runOnStart {
		opts = append(opts, scheduler.WithRunOnStart())
	}

	s := scheduler.New(sched, dailyCheckJob(svc), opts...)
	s.Start(context.WithoutCancel(ctx))
	return s, nil
}

// dailyCheckJob runs the daily check and fails only when nothing succeeded.
// A partial run is not retried so the reminder is not sent again.
func dailyCheckJob(svc *service.SwitchService) scheduler.Job {
	return func(ctx context.Context) error {
		report := svc.RunDailyCheck(ctx)
		if report.Outcome == service.OutcomeFailure {
			return report.Err()
		}
		return nil
	}
}

func printServerInfo(c *config.Config, addr string, sched *scheduler.Scheduler, metricsOn bool) {
	logging.Info("lastword server starting",
		logging.String("addr", addr),
		logging.Int("inactivity_days", c.Switch().GetInactivityDays()),
		logging.String("storage", c.Storage.Backend))

	logging.Info("Endpoints available:")
	logging.Info("  GET      /health               - Health check")
	logging.Info("  GET/POST /api/daily-check      - Scheduled check (cron secret)")
	logging.Info("  GET/POST /api/send-keep-alive-email - Reminder phase only (cron secret)")
	logging.Info("  GET/POST /api/inactivity-check - Final message phase only (cron secret)")
	logging.Info("  GET      /api/keep-alive       - Check-in link target")
	logging.Info("  GET      /api/status           - Switch status (cron secret)")
	if metricsOn {
		logging.Info("  GET      /metrics              - Prometheus metrics")
	}

	if sched != nil {
		logging.Info("In-process schedule enabled", logging.String("schedule", sched.Schedule().String()))
	} else {
		logging.Info("No in-process schedule; call /api/daily-check from an external cron")
	}
}
