package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/TFMV/masquerade/api"
	"github.com/TFMV/masquerade/logger"
)

func newServeCommand(global *globalOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API for function previews and metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global, false)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Server.Port = port
			}
			log, err := initLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			gens, err := newGenerators(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer gens.Close()

			server := api.NewServer(api.ServerOptions{
				Port:      cfg.Server.Port,
				Prefork:   cfg.Server.Prefork,
				Functions: gens.registry,
				Gatherer:  newServeRegistry(),
				Logger:    log,
			})
			return server.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Listen port; overrides server.port")
	return cmd
}

// newServeRegistry holds the runtime metrics of the API process. Anonymizer
// counters belong to run and reach Prometheus through the Pushgateway.
func newServeRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}
