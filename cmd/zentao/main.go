// Command zentao is a natural-language front end for the ZenTao tracker.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"zentaohelper/internal/config"
	"zentaohelper/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// errCommandFailed marks a command whose failure was already printed.
var errCommandFailed = errors.New("command failed")

// rootOptions holds the persistent flags and the config they load.
type rootOptions struct {
	configPath string
	verbose    bool
	timeout    time.Duration
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "zentao",
		Short: "禅道助手 - 用自然语言查询和操作禅道",
		Long: `zentao turns Chinese or English sentences into ZenTao operations:
listing your stories and tasks, splitting a task into subtasks, and
reassigning a task.

Run without arguments to start the interactive prompt.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.timeout > 0 {
				cfg.Zentao.Timeout = opts.timeout.String()
			}
			logOpts := cfg.LoggingOptions()
			if opts.verbose {
				logOpts.Level = "debug"
				logOpts.DebugMode = true
			}
			if err := logging.Initialize(logOpts); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			opts.cfg = cfg
			logging.BootDebug("config loaded from %s", opts.configPath)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd, opts)
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "Config file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "Per-call tracker timeout (overrides zentao.timeout)")

	root.AddCommand(
		newRunCmd(opts),
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newHistoryCmd(opts),
		newIntentsCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "zentao %s\n", version)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errCommandFailed) {
			fmt.Fprintln(os.Stderr, "错误:", err)
		}
		os.Exit(1)
	}
}
