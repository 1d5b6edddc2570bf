package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KevoDB/blkview/pkg/common/log"
	"github.com/KevoDB/blkview/pkg/config"
	"github.com/KevoDB/blkview/pkg/telemetry"
)

var (
	version = "dev"
	commit  = "none"
)

// app carries the global flags and the state built from them
type app struct {
	configPath string
	network    string
	mmap       bool
	logLevel   string
	enableTel  bool

	cfg    *config.Config
	logger log.Logger
	tel    telemetry.Telemetry
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "blkview",
		Short: "Inspect blk*.dat block files",
		Long: `blkview decodes length-prefixed block files such as Bitcoin Core's blk*.dat.
It finds where the chain starts, decodes records on demand and keeps an
in-memory height index, so any block can be looked up without loading the
whole file.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.shutdown(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to a JSON config file")
	flags.StringVar(&a.network, "network", "", "Network whose record marker to expect (mainnet, testnet, regtest, signet)")
	flags.BoolVar(&a.mmap, "mmap", false, "Memory-map the block file instead of using positioned reads")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.BoolVar(&a.enableTel, "telemetry", false, "Export traces and metrics to stderr")

	root.AddCommand(
		newShowCommand(a),
		newScanCommand(a),
		newExportCommand(a),
		newShellCommand(a),
	)
	return root
}

// setup resolves the configuration from file, environment and flags, in
// increasing order of precedence
func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.NewDefaultConfig()
	if a.configPath != "" {
		loaded, err := config.LoadFile(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg.LoadFromEnv()

	cfg.Update(func(c *config.Config) {
		if a.network != "" {
			c.Network = a.network
			c.MagicHex = ""
		}
		if a.mmap {
			c.ReadMode = config.ReadModeMmap
		}
		if a.logLevel != "" {
			c.LogLevel = a.logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := log.NewStandardLogger(log.WithLevel(level), log.WithOutput(cmd.ErrOrStderr()))
	log.SetDefaultLogger(logger)

	telCfg := telemetry.DefaultConfig()
	telCfg.ServiceVersion = version
	telCfg.LoadFromEnv()
	if a.enableTel {
		telCfg.Enabled = true
	}
	telCfg.Output = cmd.ErrOrStderr()

	tel, err := telemetry.New(telCfg)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.tel = tel
	return nil
}

func (a *app) shutdown(ctx context.Context) error {
	if a.tel == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return a.tel.Shutdown(ctx)
}
