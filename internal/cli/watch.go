package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/linkgraph/internal/sweep"
	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

const shutdownTimeout = 10 * time.Second

func newWatchCmd(a *app) *cobra.Command {
	var (
		schedule string
		addr     string
		repair   bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the consistency sweep on a schedule and serve metrics",
		Long: "Keep the store attached, run the consistency check on a cron schedule\n" +
			"and expose Prometheus metrics on /metrics until interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("schedule") {
				schedule = a.config.GetString(cfgKeySweepSchedule)
			}
			if !cmd.Flags().Changed("metrics-addr") {
				addr = a.config.GetString(cfgKeyMetricsAddr)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return a.withStore(func(s types.Store) error {
				sched, err := sweep.New(s, sweep.Options{
					Schedule: schedule,
					Repair:   repair,
					Logger:   a.logger,
					Metrics:  a.metrics,
				})
				if err != nil {
					return usagef("%s", err)
				}
				return a.serve(ctx, sched, addr)
			})
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", sweep.DefaultSchedule, "cron schedule with seconds, or @every <duration>")
	cmd.Flags().StringVar(&addr, "metrics-addr", defaultMetricsAddr, "listen address for /metrics")
	cmd.Flags().BoolVar(&repair, "repair", false, "delete unpaired halves found by each sweep")
	return cmd
}

// serve runs the sweep scheduler and the metrics server until ctx ends.
func (a *app) serve(ctx context.Context, sched *sweep.Scheduler, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sched.Start()
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(sched.Stop(shutdownCtx), srv.Shutdown(shutdownCtx))
	})
	return g.Wait()
}
