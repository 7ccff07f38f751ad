package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/antzucaro/matchr"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"novelmeta/src/internal/booksearch"
	"novelmeta/src/internal/fallback"
	"novelmeta/src/internal/schema"
	"novelmeta/src/internal/store"
)

func newIdentifyCmd(a *app) *cobra.Command {
	var (
		req    booksearch.Request
		format string
		outDir string
		trace  bool
	)
	cmd := &cobra.Command{
		Use:   "identify",
		Short: "Identify a novel by title/author or id and print its metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "table", "yaml", "json":
			default:
				return fmt.Errorf("unknown format %q (want table, yaml or json)", format)
			}
			if err := a.setup(); err != nil {
				return err
			}
			defer a.close()

			var opts []booksearch.Option
			if trace {
				opts = append(opts, booksearch.WithAttemptHook(traceHook(cmd.ErrOrStderr())))
			}
			ctx := cmd.Context()
			recs, err := a.searcher(opts...).Identify(ctx, req, ctx.Done())
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "no matching books")
				return nil
			}
			if outDir != "" {
				for _, r := range recs {
					path, err := store.WriteRecord(outDir, r)
					if err != nil {
						return err
					}
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", path)
				}
			}
			return render(cmd.OutOrStdout(), format, req, recs)
		},
	}
	cmd.Flags().StringVar(&req.Title, "title", "", "Book title")
	cmd.Flags().StringArrayVar(&req.Authors, "author", nil, "Author (repeatable)")
	cmd.Flags().StringVar(&req.ID, "id", "", "Jinjiang novel id (skips the search)")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table, yaml or json")
	cmd.Flags().StringVar(&outDir, "out", "", "also write one YAML file per record under DIR/novels")
	cmd.Flags().BoolVar(&trace, "trace", false, "print every URL tried to stderr")
	return cmd
}

// traceHook prints one "tried:" line per request.
func traceHook(w io.Writer) booksearch.AttemptHook {
	var mu sync.Mutex
	return func(pipeline string, at fallback.Attempt) {
		mu.Lock()
		defer mu.Unlock()
		state := "ok"
		if !at.Success {
			state = "failed: " + at.Error
		}
		_, _ = fmt.Fprintf(w, "tried: [%s] %s (%d) %s\n", pipeline, at.URL, at.Status, state)
	}
}

func render(w io.Writer, format string, req booksearch.Request, recs []schema.Record) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(recs)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(recs)
	}
	renderTable(w, req, recs)
	return nil
}

type ranked struct {
	rec   schema.Record
	score float64
}

// rank orders recs by title similarity to the query, best first. With no
// title in the query the order is unchanged.
func rank(query string, recs []schema.Record) []ranked {
	out := make([]ranked, 0, len(recs))
	for _, r := range recs {
		s := 0.0
		if query != "" {
			s = matchr.JaroWinkler(query, r.Title, false)
		}
		out = append(out, ranked{rec: r, score: s})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}

func renderTable(w io.Writer, req booksearch.Request, recs []schema.Record) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"ID", "Title", "Authors", "Published", "Status", "Words", "Tags", "Match"})
	for _, r := range rank(strings.TrimSpace(req.Title), recs) {
		t.AppendRow(table.Row{
			r.rec.ID, r.rec.Title, strings.Join(r.rec.Authors, " & "), r.rec.Published,
			r.rec.Status, r.rec.WordCount, strings.Join(r.rec.Tags, ","), fmt.Sprintf("%.2f", r.score),
		})
	}
	t.Render()
}
