package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"zentaohelper/internal/config"
	"zentaohelper/internal/logging"
	"zentaohelper/internal/prompt"
	"zentaohelper/internal/types"
	"zentaohelper/internal/ux"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "run [text...]",
		Short: "Execute one sentence and exit",
		Long: `Executes a single sentence, for example:

  zentao run 查看我的任务
  zentao run 拆解任务#123为前端开发和后端开发
  zentao run --json 把任务#456分配给张三`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(opts.cfg, prompt.NewTerminal())
			if err != nil {
				return err
			}
			defer a.Close()

			resp := a.skill.Execute(ctx, joinArgs(args))
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(resp); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), renderer().Response(resp))
			}
			if !resp.Success {
				return errCommandFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw response envelope")
	return cmd
}

// isExit reports whether line ends the REPL.
func isExit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "exit", "quit", "退出":
		return true
	}
	return false
}

// runREPL reads sentences until exit, EOF or Ctrl-C.
func runREPL(cmd *cobra.Command, opts *rootOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()

	p := prompt.NewTerminal()
	a, err := newApp(opts.cfg, p)
	if err != nil {
		return err
	}
	defer a.Close()

	r := renderer()
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, r.Banner(version, opts.cfg.Zentao.BaseURL))

	if w := watchConfig(ctx, opts.configPath, a); w != nil {
		defer w.Stop()
	}

	return repl(ctx, p, a.skill, r, out)
}

type executor interface {
	Execute(ctx context.Context, text string) types.Response
}

func repl(ctx context.Context, p prompt.Prompter, exec executor, r *ux.Renderer, out io.Writer) error {
	for {
		line, err := p.ReadLine(ctx, "禅道")
		if err != nil {
			if errors.Is(err, prompt.ErrCancelled) {
				fmt.Fprintln(out, "再见")
				return nil
			}
			return err
		}
		if isExit(line) {
			fmt.Fprintln(out, "再见")
			return nil
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		fmt.Fprintln(out, r.Response(exec.Execute(ctx, line)))
	}
}

// watchConfig swaps the parser whenever the config file changes.
func watchConfig(ctx context.Context, path string, a *app) *config.Watcher {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	w, err := config.NewWatcher(path, func(cfg *config.Config) {
		if err := cfg.Validate(); err != nil {
			logging.BootWarn("ignoring reloaded config: %v", err)
			return
		}
		a.skill.SetParser(newParser(cfg))
		logging.Boot("intent table reloaded (%d intents)", len(cfg.IntentTable().Labels()))
	})
	if err != nil {
		logging.BootWarn("config watch disabled: %v", err)
		return nil
	}
	if err := w.Start(ctx); err != nil {
		logging.BootWarn("config watch disabled: %v", err)
		w.Stop()
		return nil
	}
	return w
}
