package kokkai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/japaniel/kokkai/pkg/records"
)

const (
	// maxBodySize bounds a single page response.
	maxBodySize = 32 * 1024 * 1024

	speechDelay  = 1 * time.Second
	meetingDelay = 500 * time.Millisecond
)

// ErrMalformedResponse is returned when a success response is not the
// expected JSON object.
var ErrMalformedResponse = errors.New("malformed response")

// StatusError reports a non-success HTTP status from the API.
type StatusError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("kokkai api: %s returned %s", e.URL, e.Status)
}

// Diagnostics describes the last request of a fetch run, for troubleshooting
// query construction.
type Diagnostics struct {
	LastURL    string            `json:"last_url"`
	LastParams map[string]string `json:"last_params"`
	// NumberOfRecords is the last total reported upstream, nil if none was.
	NumberOfRecords *int `json:"number_of_records,omitempty"`
	// RawPreview is the start of the last response that carried no records.
	RawPreview string `json:"raw_preview,omitempty"`
	Requests   int    `json:"requests"`
}

// Result is the flat, deduplicated table of one fetch run.
type Result struct {
	Kind        records.Kind
	Speeches    []records.Speech
	Meetings    []records.Meeting
	Diagnostics Diagnostics
}

// Len returns the number of rows of the result's kind.
func (r *Result) Len() int {
	if r.Kind == records.KindMeeting {
		return len(r.Meetings)
	}
	return len(r.Speeches)
}

// Preview returns the raw preview only when the run produced no rows.
func (r *Result) Preview() string {
	if r.Len() > 0 {
		return ""
	}
	return r.Diagnostics.RawPreview
}

// Columns returns the CSV header for the result's kind.
func (r *Result) Columns() []string {
	if r.Kind == records.KindMeeting {
		return records.MeetingColumns
	}
	return records.SpeechColumns
}

// WriteCSV writes the rows as BOM-prefixed UTF-8 CSV.
func (r *Result) WriteCSV(w io.Writer) error {
	if r.Kind == records.KindMeeting {
		return records.WriteMeetingsCSV(w, r.Meetings)
	}
	return records.WriteSpeechesCSV(w, r.Speeches)
}

// Fetcher pages through the speech and meeting_list endpoints.
type Fetcher struct {
	BaseURL   string
	UserAgent string
	Client    *http.Client
	Logger    *zap.Logger

	// SpeechPacer and MeetingPacer give the pause between consecutive pages.
	SpeechPacer  backoff.BackOff
	MeetingPacer backoff.BackOff
}

// NewFetcher returns a Fetcher with the public API root and the default
// politeness delays. A nil client gets a 60 second timeout; a nil logger
// discards output.
func NewFetcher(client *http.Client, logger *zap.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		BaseURL:      DefaultBaseURL,
		UserAgent:    DefaultUserAgent,
		Client:       client,
		Logger:       logger,
		SpeechPacer:  backoff.NewConstantBackOff(speechDelay),
		MeetingPacer: backoff.NewConstantBackOff(meetingDelay),
	}
}

func (f *Fetcher) endpoint(kind records.Kind) string {
	if kind == records.KindMeeting {
		return f.BaseURL + "/meeting_list"
	}
	return f.BaseURL + "/speech"
}

func (f *Fetcher) pacer(kind records.Kind) backoff.BackOff {
	if kind == records.KindMeeting {
		return f.MeetingPacer
	}
	return f.SpeechPacer
}

// Fetch runs every combination of q sequentially and returns the pooled rows.
// Any transport error, non-success status or malformed body aborts the whole
// run and no rows are returned.
func (f *Fetcher) Fetch(ctx context.Context, q Query) (*Result, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	res := &Result{Kind: q.Kind}
	pacer := f.pacer(q.Kind)
	if pacer != nil {
		pacer.Reset()
	}

	for _, c := range q.combinations() {
		n, err := f.fetchCombination(ctx, q, c, pacer, res)
		if err != nil {
			return nil, err
		}
		f.Logger.Info("combination exhausted",
			zap.String("kind", string(q.Kind)),
			zap.String("house", c.house),
			zap.String("committee", c.committee),
			zap.Strings("terms", c.terms),
			zap.Int("rows", n),
		)
	}

	if q.Kind == records.KindSpeech {
		before := len(res.Speeches)
		res.Speeches = records.DedupeSpeeches(res.Speeches)
		if dropped := before - len(res.Speeches); dropped > 0 {
			f.Logger.Debug("dropped duplicate speeches", zap.Int("count", dropped))
		}
	}
	return res, nil
}

// fetchCombination pages through one combination, appending to res. It
// returns the number of rows this combination contributed.
func (f *Fetcher) fetchCombination(ctx context.Context, q Query, c combination, pacer backoff.BackOff, res *Result) (int, error) {
	start := 1
	total := 0
	for {
		params := q.params(c, start)
		body, err := f.get(ctx, q.Kind, params, &res.Diagnostics)
		if err != nil {
			return total, err
		}

		var p page
		if err := json.Unmarshal(body, &p); err != nil {
			return total, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, res.Diagnostics.LastURL, err)
		}
		if n, ok := p.numberOfRecords(); ok {
			res.Diagnostics.NumberOfRecords = &n
		} else {
			res.Diagnostics.NumberOfRecords = nil
		}

		var got int
		if q.Kind == records.KindMeeting {
			got = len(p.MeetingRecord)
			for _, m := range p.MeetingRecord {
				res.Meetings = append(res.Meetings, m.row())
			}
		} else {
			got = len(p.SpeechRecord)
			for _, s := range p.SpeechRecord {
				res.Speeches = append(res.Speeches, s.row())
			}
		}
		f.Logger.Debug("page fetched",
			zap.String("url", res.Diagnostics.LastURL),
			zap.Int("start", start),
			zap.Int("records", got),
		)

		if got == 0 {
			res.Diagnostics.RawPreview = preview(body)
			return total, nil
		}
		total += got
		if got < PageSize {
			return total, nil
		}
		start += got

		if err := wait(ctx, pacer); err != nil {
			return total, err
		}
	}
}

// get performs one page request and returns the body of a 2xx response.
func (f *Fetcher) get(ctx context.Context, kind records.Kind, params url.Values, diag *Diagnostics) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint(kind), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.URL.RawQuery = params.Encode()
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Accept", "application/json")

	diag.LastURL = req.URL.String()
	diag.LastParams = flattenParams(params)
	diag.Requests++

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", diag.LastURL, err)
	}
	defer resp.Body.Close()
	if resp.Request != nil && resp.Request.URL != nil {
		diag.LastURL = resp.Request.URL.String()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, URL: diag.LastURL}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", diag.LastURL, err)
	}
	if len(body) > maxBodySize {
		return nil, fmt.Errorf("response %s exceeded %d bytes", diag.LastURL, maxBodySize)
	}
	return body, nil
}

// wait sleeps for the pacer's next interval or until ctx is done.
func wait(ctx context.Context, pacer backoff.BackOff) error {
	if pacer == nil {
		return ctx.Err()
	}
	d := pacer.NextBackOff()
	if d == backoff.Stop {
		return fmt.Errorf("pacer stopped")
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
