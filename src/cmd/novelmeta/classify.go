package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"novelmeta/src/internal/keyword"
	"novelmeta/src/internal/querytext"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <query>",
		Short: "Show how a query is cleaned and classified, without any network access",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := strings.Join(args, " ")
			q := keyword.Classify(raw)
			norm := querytext.Normalize(q.Keyword)
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "normalized: %s\n", norm)
			_, _ = fmt.Fprintf(w, "keyword:    %s\n", q.Keyword)
			_, _ = fmt.Fprintf(w, "intent:     %s (type %d)\n", q.Intent, q.Intent.Code())
			for _, v := range querytext.Variations(norm) {
				_, _ = fmt.Fprintf(w, "variation:  %s\n", v)
			}
			return nil
		},
	}
}
