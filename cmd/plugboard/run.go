package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/plugboard/plugboard/internal/config"
	"github.com/plugboard/plugboard/internal/logging"
	"github.com/plugboard/plugboard/internal/observability"
	"github.com/plugboard/plugboard/pkg/runtime"
)

// newRunCmd creates the run subcommand.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured plugins until interrupted",
		Long: `Initialize a runtime with the configured plugins and keep it
running until SIGINT or SIGTERM. With observability.addr set, Prometheus
metrics and health probes are served over HTTP while the runtime is up.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(resolveConfigFile(), cmd.Flags())
			if err != nil {
				return err
			}

			logger := logging.Setup("plugboard", runtime.Version, cfg.Logging.Format, cfg.Logging.Level, cmd.ErrOrStderr())

			opts := []runtime.Option{
				runtime.WithLogger(logger),
				runtime.WithPluginPaths(cfg.Plugins.Paths...),
				runtime.WithPluginPackages(cfg.Plugins.Packages...),
				runtime.WithHostContext(cfg.Runtime.Host),
				runtime.WithPerformanceMonitoring(cfg.Runtime.PerformanceMonitoring),
			}

			var (
				obs   *observability.Server
				obsCh <-chan error
			)
			var rt *runtime.Runtime
			if cfg.Observability.Addr != "" {
				obs = observability.NewServer(cfg.Observability.Addr, func() bool {
					return rt != nil && rt.State() == runtime.StateInitialized
				})
				opts = append(opts,
					runtime.WithPerformanceMonitoring(true),
					runtime.WithPrometheusRegisterer(obs.Registry()),
				)
			}
			rt = runtime.New(opts...)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := rt.Initialize(ctx); err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			defer rt.Shutdown(context.Background())

			if obs != nil {
				obsCh, err = obs.Start()
				if err != nil {
					return fmt.Errorf("observability server failed to start: %w", err)
				}
				defer func() { _ = obs.Stop(context.Background()) }()
			}

			logger.Info("runtime running, press Ctrl-C to stop",
				"instance", rt.InstanceID(),
				"plugins", len(rt.Context().Plugins().List()))

			select {
			case <-ctx.Done():
			case err, ok := <-obsCh:
				if ok && err != nil {
					return fmt.Errorf("observability server failed: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSlice("plugins.paths", nil, "directories scanned for plugins")
	cmd.Flags().StringSlice("plugins.packages", nil, "individual plugin directories")
	cmd.Flags().String("observability.addr", "", "listen address for metrics and health endpoints")

	return cmd
}
