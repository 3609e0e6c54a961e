package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"zentaohelper/internal/store"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently executed sentences",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.cfg.History.Enabled {
				fmt.Fprintln(cmd.OutOrStdout(), "历史记录未启用 (history.enabled)")
				return nil
			}
			h, err := store.OpenHistory(opts.cfg.History.Path, opts.cfg.History.MaxRows)
			if err != nil {
				return err
			}
			defer h.Close()

			turns, err := h.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderer().History(turns))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries")
	return cmd
}
