package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dyike/stockdesk/config"
	"github.com/dyike/stockdesk/internal/report"
	"github.com/dyike/stockdesk/internal/server"
	"github.com/dyike/stockdesk/pkg/logger"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	// Initialize configuration early
	cfg := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "stockdesk",
		Short: "stockdesk - stock quotes and AI research reports",
		Long: `stockdesk serves a market quote board and drives per-symbol research agents
that write HTML reports, over HTTP or straight from the terminal.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if level, _ := cmd.Flags().GetString("log-level"); level != "" {
				cfg.LogLevel = level
			}
		},
	}

	rootCmd.AddCommand(newServeCmd(cfg))
	rootCmd.AddCommand(newReportCmd(cfg))
	rootCmd.AddCommand(newQuotesCmd(cfg))
	rootCmd.AddCommand(newAgentsCmd(cfg))
	rootCmd.AddCommand(newConfigCmd(cfg))
	rootCmd.AddCommand(newVersionCmd())

	// Global flags
	rootCmd.PersistentFlags().String("log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")

	return rootCmd
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newServeCmd creates the serve command
func newServeCmd(cfg *config.Config) *cobra.Command {
	var configDir string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			applyServeFlags(cmd, cfg)

			ctx, stop := signalContext()
			defer stop()

			effective := *cfg
			var mgr *config.Manager
			if configDir != "" {
				cfgLog, err := logger.New(cfg.LogLevel, cfg.Env)
				if err != nil {
					return fmt.Errorf("init logger: %w", err)
				}
				mgr, err = config.NewManager(
					config.WithConfigDir(configDir),
					config.WithLogger(cfgLog.Named("config")),
					config.WithOverlay(func(c *config.Config) error {
						err := c.LoadFromEnv()
						applyServeFlags(cmd, c)
						return err
					}),
				)
				if err != nil {
					return fmt.Errorf("load config file: %w", err)
				}
				effective = mgr.Get()
			}

			a, err := newApp(effective)
			if err != nil {
				return err
			}
			defer a.close()

			srv := server.New(effective, server.Deps{
				Reports: a.workflow,
				Agents:  a.client,
				Quotes:  a.market,
				Metrics: a.metrics,
				Logger:  a.logger.Named("http"),
			})

			if mgr != nil {
				err := mgr.Watch(ctx, func(next config.Config) {
					srv.SetPollSettings(server.PollSettingsFrom(next))
					a.logger.Info("poll settings reloaded",
						zap.Duration("poll_interval", next.PollInterval),
						zap.Int("max_ticks", next.MaxTicks),
						zap.Duration("stream_poll_interval", next.StreamPollInterval),
						zap.Int("stream_max_ticks", next.StreamMaxTicks),
					)
				})
				if err != nil {
					return fmt.Errorf("watch config: %w", err)
				}
				a.logger.Info("watching config file", zap.String("path", mgr.Path()))
			}

			return srv.Run(ctx)
		},
	}
	cmd.Flags().String("host", "", "Listen host (overrides SERVER_HOST)")
	cmd.Flags().Int("port", 0, "Listen port (overrides SERVER_PORT)")
	cmd.Flags().StringVar(&configDir, "config-dir", "", "Directory of a JSON config file to create and hot-reload")
	return cmd
}

// applyServeFlags copies explicitly set serve flags onto c.
func applyServeFlags(cmd *cobra.Command, c *config.Config) {
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		c.ServerHost = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		c.ServerPort = port
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		c.LogLevel = level
	}
}

// newReportCmd creates the report command
func newReportCmd(cfg *config.Config) *cobra.Command {
	var (
		stream bool
		out    string
	)
	cmd := &cobra.Command{
		Use:   "report [SYMBOL]",
		Short: "Generate (or reuse) a research report for a stock symbol",
		Long: `Generate a research report for a ticker through its dedicated agent.
Example: stockdesk report TSLA --stream --out tsla.html`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var symbol string
			if len(args) == 1 {
				symbol = args[0]
			} else {
				var err error
				if symbol, err = PromptForTicker(); err != nil {
					return err
				}
			}

			a, err := newApp(*cfg)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signalContext()
			defer stop()

			w := cmd.OutOrStdout()
			opts := report.RunOptions{
				Poll: report.PollOptions{Interval: cfg.PollInterval, MaxTicks: cfg.MaxTicks},
				Mode: "cli",
			}
			var emit report.Emitter
			if stream {
				opts.Poll = report.PollOptions{Interval: cfg.StreamPollInterval, MaxTicks: cfg.StreamMaxTicks}
				emit = func(ev report.Event) { printEvent(w, ev) }
			} else {
				fmt.Fprintln(w, inProgressStyle.Render(fmt.Sprintf("Generating report for %s, this can take several minutes...", report.DisplaySymbol(symbol))))
			}

			result, err := a.workflow.Run(ctx, symbol, opts, emit)
			if err != nil {
				if !stream {
					printEvent(w, report.Event{Name: "error", Data: report.ErrorEventFor(err)})
				}
				return err
			}

			printResult(w, result)
			if out != "" {
				return saveReport(w, out, result.Report)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&stream, "stream", false, "Print progress events while the report is generated")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the report HTML to this file")
	return cmd
}

// newQuotesCmd creates the quotes command
func newQuotesCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "quotes [SYMBOL...]",
		Short: "Show the market quote board",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*cfg)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signalContext()
			defer stop()

			snap, err := a.market.Snapshot(ctx, args...)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), RenderSnapshot(snap))
			return nil
		},
	}
}

// newAgentsCmd creates the agents command
func newAgentsCmd(cfg *config.Config) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "List agents known to the agent service",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*cfg)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signalContext()
			defer stop()

			agents, err := a.client.ListAgents(ctx, limit)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), RenderAgents(agents))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of agents to list")
	return cmd
}

// newConfigCmd creates the config command
func newConfigCmd(cfg *config.Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	// config show subcommand
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration (secrets redacted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := json.MarshalIndent(cfg.Redacted(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	})

	// config validate subcommand
	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			if strings.TrimSpace(cfg.RaworcAPIKey) == "" {
				return errors.New("RAWORC_API_KEY is not set")
			}
			fmt.Fprintln(cmd.OutOrStdout(), completedStyle.Render("✓ configuration is valid"))
			return nil
		},
	})

	return configCmd
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stockdesk %s\n", Version)
		},
	}
}
