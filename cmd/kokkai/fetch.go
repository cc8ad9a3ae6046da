package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/japaniel/kokkai/pkg/kokkai"
	"github.com/japaniel/kokkai/pkg/records"
	"github.com/japaniel/kokkai/pkg/storage"
)

var fetchFlags struct {
	plan          string
	kind          string
	from          string
	until         string
	houses        []string
	committees    []string
	allCommittees bool
	keywords      string
	mode          string
	out           string
	outDir        string
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download speeches or meeting lists as CSV",
	Long: `fetch pages through the speech (or meeting_list) endpoint for every
house × committee × keyword combination and writes one deduplicated
BOM-prefixed UTF-8 CSV. With KOKKAI_S3_ENDPOINT set the file is uploaded to
the configured bucket instead of --out-dir.

Nothing is written when any request fails.`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	f := fetchCmd.Flags()
	f.StringVar(&fetchFlags.plan, "plan", "", "YAML fetch plan; other flags override its values")
	f.StringVar(&fetchFlags.kind, "kind", string(records.KindSpeech), "record kind: speech or meeting")
	f.StringVar(&fetchFlags.from, "from", "2024-01-01", "first date (YYYY-MM-DD)")
	f.StringVar(&fetchFlags.until, "until", time.Now().Format("2006-01-02"), "last date (YYYY-MM-DD)")
	f.StringSliceVar(&fetchFlags.houses, "house", nil, "house name, repeatable (衆議院, 参議院, 両院)")
	f.StringSliceVar(&fetchFlags.committees, "committee", nil, "committee name, repeatable")
	f.BoolVar(&fetchFlags.allCommittees, "all-committees", false, "ignore --committee and search every committee")
	f.StringVar(&fetchFlags.keywords, "keywords", "", "space separated keywords")
	f.StringVar(&fetchFlags.mode, "mode", string(kokkai.ModeOr), "keyword mode: AND, OR or NONE")
	f.StringVarP(&fetchFlags.out, "out", "o", "speeches_or_meetings.csv", "output file name")
	f.StringVar(&fetchFlags.outDir, "out-dir", "", "local output directory (default from KOKKAI_OUT_DIR)")
}

// fetchQuery merges the plan file, if any, with the flags the user set.
func fetchQuery(cmd *cobra.Command) (kokkai.Query, error) {
	var q kokkai.Query
	flags := cmd.Flags()
	if fetchFlags.plan != "" {
		var err error
		if q, err = kokkai.LoadPlan(fetchFlags.plan); err != nil {
			return q, err
		}
	}
	set := func(name string) bool { return fetchFlags.plan == "" || flags.Changed(name) }

	if set("kind") {
		kind, err := records.ParseKind(fetchFlags.kind)
		if err != nil {
			return q, err
		}
		q.Kind = kind
	}
	if set("mode") {
		mode, err := kokkai.ParseMode(fetchFlags.mode)
		if err != nil {
			return q, err
		}
		q.Mode = mode
	}
	if set("from") {
		q.From = fetchFlags.from
	}
	if set("until") {
		q.Until = fetchFlags.until
	}
	if set("house") {
		q.Houses = fetchFlags.houses
	}
	if set("committee") {
		q.Committees = fetchFlags.committees
	}
	if set("all-committees") {
		q.AllCommittees = fetchFlags.allCommittees
	}
	if set("keywords") {
		q.Terms = kokkai.SplitTerms(fetchFlags.keywords)
	}
	return q, q.Validate()
}

func newSink(cmd *cobra.Command) (storage.Sink, error) {
	if cfg.Storage.Enabled() {
		return storage.NewMinioSink(cmd.Context(), cfg.Storage.Minio())
	}
	dir := cfg.OutDir
	if fetchFlags.outDir != "" {
		dir = fetchFlags.outDir
	}
	return storage.FileSink{Dir: dir}, nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	q, err := fetchQuery(cmd)
	if err != nil {
		return err
	}
	sink, err := newSink(cmd)
	if err != nil {
		return fmt.Errorf("output sink: %w", err)
	}

	fetcher := kokkai.NewFetcher(&http.Client{Timeout: cfg.Timeout}, logger)
	fetcher.BaseURL = cfg.BaseURL
	if cfg.UserAgent != "" {
		fetcher.UserAgent = cfg.UserAgent
	}

	res, err := fetcher.Fetch(cmd.Context(), q)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	out := cmd.OutOrStdout()
	diag, err := json.MarshalIndent(res.Diagnostics, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Diagnostics:\n%s\n", diag)

	if res.Len() == 0 {
		fmt.Fprintln(out, "No records matched.")
		if p := res.Preview(); p != "" {
			fmt.Fprintf(out, "Response preview:\n%s\n", p)
		}
		return nil
	}

	var buf bytes.Buffer
	if err := res.WriteCSV(&buf); err != nil {
		return err
	}
	size := int64(buf.Len())
	loc, err := sink.Put(cmd.Context(), fetchFlags.out, &buf, size)
	if err != nil {
		return fmt.Errorf("write %s: %w", fetchFlags.out, err)
	}
	logger.Info("csv written", zap.String("location", loc), zap.Int("rows", res.Len()), zap.Int64("bytes", size))
	fmt.Fprintf(out, "Fetched %d %s rows into %s\n", res.Len(), res.Kind, loc)
	return nil
}
