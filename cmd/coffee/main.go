package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/RAHULYADAV122/Coffee/internal/auth"
	"github.com/RAHULYADAV122/Coffee/internal/clock"
	"github.com/RAHULYADAV122/Coffee/internal/config"
	"github.com/RAHULYADAV122/Coffee/internal/dispatch"
	"github.com/RAHULYADAV122/Coffee/internal/handler"
	"github.com/RAHULYADAV122/Coffee/internal/logger"
	"github.com/RAHULYADAV122/Coffee/internal/metrics"
	"github.com/RAHULYADAV122/Coffee/internal/roster"
	"github.com/RAHULYADAV122/Coffee/internal/service"
	"github.com/RAHULYADAV122/Coffee/internal/simulation"
	"github.com/RAHULYADAV122/Coffee/internal/store"
	"github.com/RAHULYADAV122/Coffee/internal/token"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newRootCmd().ExecuteContext(ctx)
}

var (
	flagConfig   string
	flagLogLevel string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "coffee",
		Short:        "Coffee counter order dispatch",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(newServeCmd(), newSimulateCmd())
	return root
}

// loadConfig собирает настройки: умолчания, файл, окружение, флаги.
func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logger.LogLevel = flagLogLevel
	}

	zaplog, err := logger.NewZapLog(cfg.Logger)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, zaplog, nil
}

func newServeCmd() *cobra.Command {
	var (
		addr   string
		dsn    string
		memory bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the dispatch ticks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, zaplog, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer zaplog.Sync()

			if cmd.Flags().Changed("addr") {
				cfg.Handler.ServerAddr = addr
			}
			if cmd.Flags().Changed("dsn") {
				cfg.Store.DBDsn = dsn
			}
			if memory {
				cfg.Store.Memory = true
			}
			return serve(cmd.Context(), cfg, zaplog)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (or RUN_ADDRESS env)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "PostgreSQL DSN (or DATABASE_URI env)")
	cmd.Flags().BoolVar(&memory, "memory", false, "Keep everything in memory")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, zaplog *zap.Logger) error {
	store, err := store.NewStore(cfg.Store)
	if err != nil {
		return err
	}

	roster := roster.NewRoster(store)
	workers, err := roster.Init(ctx, cfg.Service.Workers)
	if err != nil {
		return fmt.Errorf("init workers: %w", err)
	}
	if err := roster.InitManager(ctx, cfg.Service.AdminLogin, cfg.Service.AdminPassword); err != nil {
		return fmt.Errorf("init manager: %w", err)
	}
	zaplog.Info("roster ready", zap.Int("workers", len(workers)))

	clk := clock.Real{}
	metrics := metrics.New()

	dispatcher, err := dispatch.NewDispatcher(cfg.Dispatch, store, clk, metrics, zaplog)
	if err != nil {
		return err
	}
	scheduler := dispatch.NewScheduler(zaplog, dispatcher.Jobs()...)

	engine := simulation.NewEngine(cfg.Simulation, clk, metrics, zaplog)
	service, err := service.NewService(cfg.Service, store, clk, engine, zaplog)
	if err != nil {
		return err
	}
	auth := auth.NewAuth(store, token.NewToken(cfg.Handler.TokenSecret))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := scheduler.Start(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return handler.Serve(ctx, cfg.Handler, auth, service, dispatcher, metrics.Handler(), zaplog)
	})
	return g.Wait()
}

func newSimulateCmd() *cobra.Command {
	var (
		trials  int
		seed    int64
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the morning rush simulation and print per-trial reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, zaplog, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer zaplog.Sync()

			if !cmd.Flags().Changed("trials") {
				trials = cfg.Service.SimulationTrials
			}
			if !cmd.Flags().Changed("seed") {
				seed = cfg.Service.SimulationSeed
			}

			engine := simulation.NewEngine(cfg.Simulation, clock.Real{}, nil, zaplog)
			reports, err := engine.Run(cmd.Context(), seed, trials)
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(reports)
			}
			return printReports(cmd.OutOrStdout(), reports)
		},
	}
	cmd.Flags().IntVar(&trials, "trials", 10, "Number of trials")
	cmd.Flags().Int64Var(&seed, "seed", 1, "Base seed, trial i uses seed+i")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print reports as JSON")
	return cmd
}

func printReports(w io.Writer, reports []simulation.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TRIAL\tSEED\tORDERS\tAVG WAIT\tCOMPLAINTS\tSERVED\tABANDONED\tLATE\tUNSERVED\tWORKLOAD")
	for _, r := range reports {
		names := make([]string, 0, len(r.WorkerWorkload))
		for name := range r.WorkerWorkload {
			names = append(names, name)
		}
		sort.Strings(names)

		var workload string
		for i, name := range names {
			if i > 0 {
				workload += ", "
			}
			workload += fmt.Sprintf("%s=%d", name, r.WorkerWorkload[name])
		}

		fmt.Fprintf(tw, "%d\t%d\t%d\t%.2f\t%d\t%d\t%d\t%d\t%d\t%s\n",
			r.TestCaseID, r.Seed, r.TotalOrders, r.AverageWaitMinutes, r.Complaints,
			r.Served, r.Abandoned, r.LateServed, r.Unserved, workload)
	}
	return tw.Flush()
}
