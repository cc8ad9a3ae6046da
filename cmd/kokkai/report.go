package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/japaniel/kokkai/pkg/dashboard"
)

var reportFlags struct {
	data    string
	format  string
	workers int
	filter  dashboard.FilterParams
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarise a speech CSV",
	Long: `report loads a speech CSV (as written by fetch) and prints the dashboard
panels for the rows matching the filter: headline metrics, top keywords,
party × keyword heatmap, keyword examples, speaker ranking, party totals,
the daily timeline and the latest speeches.`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

// addFilterFlags binds the shared dashboard filter to cmd.
func addFilterFlags(cmd *cobra.Command, p *dashboard.FilterParams) {
	f := cmd.Flags()
	f.StringVar(&p.From, "from", "", "first date (YYYY-MM-DD)")
	f.StringVar(&p.Until, "until", "", "last date (YYYY-MM-DD)")
	f.StringSliceVar(&p.Houses, "house", nil, "only these houses, repeatable")
	f.StringSliceVar(&p.Committees, "committee", nil, "only these committees, repeatable")
	f.StringVarP(&p.Q, "query", "q", "", "space separated keywords, any may match")
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportFlags.data, "data", "", "speech CSV (default from KOKKAI_DATA)")
	f.StringVar(&reportFlags.format, "format", "text", "output format: text or json")
	f.IntVar(&reportFlags.workers, "workers", 0, "panel workers (default from KOKKAI_WORKERS)")
	addFilterFlags(reportCmd, &reportFlags.filter)
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportFlags.format != "text" && reportFlags.format != "json" {
		return fmt.Errorf("unknown format %q", reportFlags.format)
	}
	filter, err := reportFlags.filter.Filter()
	if err != nil {
		return err
	}

	path := cfg.DataPath
	if reportFlags.data != "" {
		path = reportFlags.data
	}
	data, err := dashboard.Open(cmd.Context(), path, logger)
	if err != nil {
		return err
	}
	defer data.Close()

	dash := dashboard.New(data)
	dash.Workers = cfg.Workers
	if reportFlags.workers > 0 {
		dash.Workers = reportFlags.workers
	}
	r, err := dash.Report(cmd.Context(), filter)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if reportFlags.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	return printReport(out, r)
}

func printReport(out io.Writer, r *dashboard.Report) error {
	if r.Empty {
		_, err := fmt.Fprintln(out, "No speeches match the filter.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	m := r.Metrics
	fmt.Fprintf(w, "Speeches\t%d\nSpeakers\t%d\nCharacters\t%d\nParties\t%d\n", m.Speeches, m.Speakers, m.Characters, m.Parties)

	fmt.Fprintln(w, "\nTop keywords")
	for i, tc := range r.TopKeywords {
		fmt.Fprintf(w, "%d\t%s\t%d\n", i+1, tc.Term, tc.Count)
	}

	if r.Heatmap != nil {
		fmt.Fprintln(w, "\nParty × keyword")
		if r.Heatmap.Insufficient {
			fmt.Fprintln(w, "not enough keyword hits")
		} else {
			printHeatmap(w, r.Heatmap)
		}
	}

	if r.Examples != nil {
		fmt.Fprintf(w, "\nExamples of %s\n", r.Examples.Term)
		for _, ex := range r.Examples.Examples {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ex.Date, ex.Speaker, ex.Party, oneLine(ex.Excerpt))
		}
	}

	fmt.Fprintln(w, "\nSpeakers by characters")
	for _, s := range r.Speakers {
		fmt.Fprintf(w, "%s\t%s\t%d\n", s.Speaker, s.Party, s.Characters)
	}

	fmt.Fprintln(w, "\nParties")
	for _, p := range r.Parties {
		fmt.Fprintf(w, "%s\t%d\t%d\n", p.Party, p.Speeches, p.Characters)
	}

	fmt.Fprintln(w, "\nTimeline")
	for _, d := range r.Timeline {
		fmt.Fprintf(w, "%s\t%d\t%d\n", d.Date, d.Speeches, d.Characters)
	}

	fmt.Fprintln(w, "\nLatest")
	for _, l := range r.Latest {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", l.Date, l.House, l.Committee, l.Speaker, oneLine(l.Excerpt))
	}
	return w.Flush()
}

func printHeatmap(w io.Writer, h *dashboard.Heatmap) {
	t := h.Table
	counts := make(map[[2]string]int, len(t.Cells))
	for _, c := range t.Cells {
		counts[[2]string{c.Group, c.Term}] = c.Count
	}
	fmt.Fprintf(w, "\t%s\n", strings.Join(t.Terms, "\t"))
	for _, g := range t.Groups {
		row := make([]string, len(t.Terms))
		for i, term := range t.Terms {
			row[i] = fmt.Sprint(counts[[2]string{g, term}])
		}
		fmt.Fprintf(w, "%s\t%s\n", g, strings.Join(row, "\t"))
	}
	if h.Truncated {
		fmt.Fprintf(w, "(first %d keywords shown)\n", len(t.Terms))
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
