package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/storage-analysis/internal/service"
	"github.com/storage-analysis/pkg/config"
	"github.com/storage-analysis/pkg/pprof"
	"github.com/storage-analysis/pkg/telemetry"
	"github.com/storage-analysis/pkg/utils"
)

// rootOptions holds state shared by every subcommand of one invocation.
type rootOptions struct {
	configPath string
	verbose    bool

	// Profiling flags
	pprofEnabled  bool
	pprofDir      string
	pprofProfiles string

	config   *config.Config
	logger   utils.Logger
	shutdown telemetry.ShutdownFunc
	profiler *pprof.Profiler
}

// NewRootCmd builds the storage-analysis command tree.
func NewRootCmd() *cobra.Command {
	root, _ := newRootCmd()
	return root
}

func newRootCmd() (*cobra.Command, *rootOptions) {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "storage-analysis",
		Short: "Storage size breakdown and account search for chain state snapshots",
		Long: `storage-analysis scans a chain state snapshot and either reports how much
space each pallet and storage item takes, or finds every key and value that
mentions a set of accounts.

Record keys are classified by the twox128 hashes of pallet and item names,
read from a schema file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	bin := BinName()
	root.Example = `  # Size breakdown of a snapshot
  ` + bin + ` info --snapshot ./polkadot.snap --schema ./polkadot.yaml

  # Only the System pallet, with key and value sizes
  ` + bin + ` info --snapshot ./polkadot.snap --schema ./polkadot.yaml --category System -v

  # Find every record mentioning an account
  ` + bin + ` grep --snapshot ./polkadot.snap --schema ./polkadot.yaml address 15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5

  # Find the sovereign account of parachain 2000
  ` + bin + ` grep --snapshot ./polkadot.snap --schema ./polkadot.yaml para-account 2000 child

  # Profile a slow scan
  ` + bin + ` info --snapshot ./polkadot.snap --schema ./polkadot.yaml --pprof --pprof-profiles cpu,heap`

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output")

	root.PersistentFlags().BoolVar(&opts.pprofEnabled, "pprof", false, "Profile the run with pprof")
	root.PersistentFlags().StringVar(&opts.pprofDir, "pprof-dir", "./pprof", "Output directory for pprof data")
	root.PersistentFlags().StringVar(&opts.pprofProfiles, "pprof-profiles", "cpu,heap", "Comma-separated profile types: cpu,heap,goroutine,block,mutex,allocs")

	root.AddCommand(
		newInfoCmd(opts),
		newGrepCmd(opts),
		newHistoryCmd(opts),
		newVersionCmd(),
	)
	return root, opts
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root, opts := newRootCmd()
	err := root.ExecuteContext(ctx)
	opts.teardown(ctx)
	if err != nil {
		stop()
		os.Exit(1)
	}
}

// BinName returns the base name of the current executable
func BinName() string {
	return filepath.Base(os.Args[0])
}

// setup loads configuration and installs the logger and tracing.
func (o *rootOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if o.verbose {
		cfg.Log.Level = "debug"
		cfg.Output.Verbose = true
	}
	o.config = cfg

	logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	o.logger = logger
	utils.SetGlobalLogger(logger)

	shutdown, err := telemetry.Init(cmd.Context())
	if err != nil {
		logger.Warn("Tracing disabled: %v", err)
	}
	o.shutdown = shutdown

	if o.pprofEnabled {
		if err := o.startProfiler(); err != nil {
			return err
		}
	}
	return nil
}

func (o *rootOptions) startProfiler() error {
	profiles, err := pprof.ParseProfileTypes(o.pprofProfiles)
	if err != nil {
		return err
	}
	cfg := pprof.DefaultConfig()
	cfg.Enabled = true
	cfg.OutputDir = o.pprofDir
	cfg.Profiles = profiles

	profiler, err := pprof.New(cfg, pprof.WithLogger(o.logger))
	if err != nil {
		return err
	}
	if err := profiler.Start(); err != nil {
		return err
	}
	o.profiler = profiler
	o.logger.Info("pprof collection started (dir: %s)", cfg.OutputDir)
	return nil
}

// teardown stops profiling and flushes traces. It runs whether or not the
// command succeeded.
func (o *rootOptions) teardown(ctx context.Context) {
	if o.profiler != nil {
		written, err := o.profiler.Stop()
		if err != nil {
			o.logger.Warn("Failed to stop pprof collection: %v", err)
		}
		for _, path := range written {
			o.logger.Info("pprof data saved to: %s", path)
		}
		o.profiler = nil
	}
	if o.shutdown != nil {
		if err := o.shutdown(context.WithoutCancel(ctx)); err != nil {
			o.logger.Warn("Failed to flush traces: %v", err)
		}
		o.shutdown = nil
	}
}

// newService creates and initializes a service printing to the command's
// output.
func (o *rootOptions) newService(cmd *cobra.Command) (*service.Service, error) {
	if err := o.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	svc, err := service.New(o.config, o.logger, service.WithOutput(cmd.OutOrStdout()))
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	if err := svc.Initialize(cmd.Context()); err != nil {
		svc.Close()
		return nil, fmt.Errorf("failed to initialize service: %w", err)
	}
	return svc, nil
}

func newLogger(cfg config.LogConfig, stderr io.Writer) (utils.Logger, error) {
	level := utils.ParseLogLevel(cfg.Level)
	if cfg.OutputPath != "" {
		logger, err := utils.NewFileLogger(level, cfg.OutputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		return logger, nil
	}
	return utils.NewDefaultLogger(level, stderr), nil
}
