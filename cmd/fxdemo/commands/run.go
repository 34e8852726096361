package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/fxdemo/internal/core/observability/log"
	"github.com/zeusync/fxdemo/internal/core/systems/economy"
	"github.com/zeusync/fxdemo/internal/core/systems/farming"
	"github.com/zeusync/fxdemo/internal/core/systems/player"
	"github.com/zeusync/fxdemo/internal/injector"
)

func newRunCommand() *cobra.Command {
	var (
		frames      uint64
		metricsAddr string
		debug       bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the frame loop until interrupted or the frame limit is reached",
		Example: `  # Run forever with the default systems
  fxdemo run

  # Run 600 frames with verbose system logs and a metrics endpoint
  fxdemo run --frames 600 --debug --metrics-addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("frames") {
				cfg.Loop.MaxFrames = frames
			}
			if metricsAddr != "" {
				cfg.Metrics.Enabled = true
				cfg.Metrics.Addr = metricsAddr
			}
			if debug {
				cfg.Systems.Debug = true
				cfg.Log.Level = "debug"
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			app, cleanup, err := injector.InitializeApp(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			return runApp(cmd.Context(), app)
		},
	}

	cmd.Flags().Uint64Var(&frames, "frames", 0, "stop after this many frames (0 runs until interrupted)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging for every system")

	return cmd
}

// runApp drives the frame loop and, when configured, the metrics endpoint.
// Whichever stops first stops the other.
func runApp(ctx context.Context, app *injector.App) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := app.Context.Logger
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return app.Context.Run(gctx)
	})

	if addr := app.Context.Config.Metrics.Addr; addr != "" && app.Metrics.Enabled() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", app.Metrics.Handler())
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			logger.Info("metrics endpoint listening", log.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()
	summarize(logger, app.Roster)
	return err
}

func summarize(logger log.Log, roster injector.Roster) {
	for _, s := range roster {
		switch s := s.(type) {
		case *player.Player:
			logger.Info("player summary", log.Int("level", s.Level()), log.Int("experience", s.Experience()))
		case *farming.Farming:
			logger.Info("farming summary", log.Strings("crops", s.Crops()))
		case *economy.Economy:
			logger.Info("economy summary", log.Int("gold", s.Gold()), log.Int("transactions", len(s.History())))
		}
	}
}
