package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"novelmeta/src/internal/booksearch"
)

func newCoverCmd(a *app) *cobra.Command {
	var (
		req booksearch.Request
		out string
	)
	cmd := &cobra.Command{
		Use:   "cover",
		Short: "Download the cover of a novel",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.ID == "" && req.Title == "" {
				return fmt.Errorf("provide --id or --title")
			}
			if out == "" {
				return fmt.Errorf("provide an output file with -o")
			}
			if err := a.setup(); err != nil {
				return err
			}
			defer a.close()

			data, rec, err := a.covers().ForQuery(cmd.Context(), a.searcher(), req)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes) for %s %s\n", out, len(data), rec.ID, rec.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.ID, "id", "", "Jinjiang novel id")
	cmd.Flags().StringVar(&req.Title, "title", "", "Book title")
	cmd.Flags().StringArrayVar(&req.Authors, "author", nil, "Author (repeatable)")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file")
	return cmd
}
