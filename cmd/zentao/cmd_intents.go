package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"zentaohelper/internal/perception"
)

func newIntentsCmd(opts *rootOptions) *cobra.Command {
	var explain string
	cmd := &cobra.Command{
		Use:   "intents",
		Short: "List the intent keyword table, or explain how a sentence is classified",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			table := opts.cfg.IntentTable()

			if explain == "" {
				for _, e := range table.Entries() {
					fmt.Fprintf(out, "%-14s %s\n", e.Label, strings.Join(e.Keywords, ", "))
				}
				return nil
			}

			kc := perception.NewKeywordClassifier(table)
			scores := kc.Score(explain)
			labels := make([]perception.IntentLabel, 0, len(scores))
			for l := range scores {
				labels = append(labels, l)
			}
			sort.Slice(labels, func(i, j int) bool {
				if scores[labels[i]] != scores[labels[j]] {
					return scores[labels[i]] > scores[labels[j]]
				}
				return labels[i] < labels[j]
			})
			for _, l := range labels {
				fmt.Fprintf(out, "%-14s %d\n", l, scores[l])
			}
			cmdParsed := perception.NewCommandParser(kc).Parse(cmd.Context(), explain)
			fmt.Fprintf(out, "=> %s\n", cmdParsed.Intent)
			if e := cmdParsed.Entities; e.HasTaskID() || e.HasUsername() || e.HasSubtasks() || e.HasStatus() || e.HasStoryID() {
				fmt.Fprintf(out, "   entities: %+v\n", e)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&explain, "explain", "", "Sentence to score against the keyword table")
	return cmd
}
