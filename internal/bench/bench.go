// Package bench measures the latency of a running translation server.
//
// The same request is sent twice: the first may load the model, the second
// should be answered from the cache.
package bench

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ZaguanLabs/sitetrans"
	"resty.dev/v3"
)

// DefaultText is the text sent when none is given.
const DefaultText = "About Satin Rose Salon & Spa"

// Request is the /translate request body.
type Request struct {
	Texts      []string `json:"texts"`
	TargetLang string   `json:"target_lang"`
	SiteID     string   `json:"site_id,omitempty"`
}

type response struct {
	Translations []string `json:"translations"`
	TimeMS       *float64 `json:"time_ms"`
	ModelUsed    bool     `json:"model_used"`
}

// Sample is one timed request.
type Sample struct {
	Label        string
	RoundTrip    time.Duration
	ServerMS     float64
	HasServerMS  bool
	ModelUsed    bool
	Translations []string
}

// OverheadMS is the round trip minus the time the server reported.
func (s Sample) OverheadMS() float64 {
	return ms(s.RoundTrip) - s.ServerMS
}

// Runner posts benchmark requests to one URL.
type Runner struct {
	client *resty.Client
	url    string
}

// New creates a runner for the translate endpoint at url.
func New(url string) *Runner {
	client := resty.New().
		SetHeader("User-Agent", sitetrans.UserAgent()).
		SetHeader("Content-Type", "application/json").
		SetTimeout(5 * time.Minute)
	return &Runner{client: client, url: url}
}

// Close releases the underlying HTTP client.
func (r *Runner) Close() error {
	return r.client.Close()
}

// Post sends one request and times it.
func (r *Runner) Post(ctx context.Context, label string, req Request) (Sample, error) {
	var out response
	start := time.Now()
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post(r.url)
	rtt := time.Since(start)
	if err != nil {
		return Sample{}, fmt.Errorf("%s request: %w", label, err)
	}
	if resp.IsError() {
		return Sample{}, fmt.Errorf("%s request: status %d: %s", label, resp.StatusCode(), resp.String())
	}

	s := Sample{
		Label:        label,
		RoundTrip:    rtt,
		ModelUsed:    out.ModelUsed,
		Translations: out.Translations,
	}
	if out.TimeMS != nil {
		s.ServerMS = *out.TimeMS
		s.HasServerMS = true
	}
	return s, nil
}

// Run sends req twice and returns the cold and the cached sample.
func (r *Runner) Run(ctx context.Context, req Request) ([]Sample, error) {
	cold, err := r.Post(ctx, "Request 1", req)
	if err != nil {
		return nil, err
	}
	cached, err := r.Post(ctx, "Request 2 (CACHED)", req)
	if err != nil {
		return []Sample{cold}, err
	}
	return []Sample{cold, cached}, nil
}

// Report prints samples and a verdict on the last one.
func Report(w io.Writer, samples []Sample) {
	for i, s := range samples {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s:\n", s.Label)
		fmt.Fprintf(w, "  Total Round Trip: %.2fms\n", ms(s.RoundTrip))
		if s.HasServerMS {
			fmt.Fprintf(w, "  Server Internal: %.2fms\n", s.ServerMS)
		} else {
			fmt.Fprintf(w, "  Server Internal: N/A\n")
		}
		fmt.Fprintf(w, "  Network/IO Overhead: %.2fms\n", s.OverheadMS())
		fmt.Fprintf(w, "  Model Used: %t\n", s.ModelUsed)
	}

	if len(samples) < 2 {
		return
	}
	last := samples[len(samples)-1]
	fmt.Fprintln(w)
	fmt.Fprintln(w, Verdict(last))
}

// Verdict grades a cached request by its server-side time.
func Verdict(s Sample) string {
	switch {
	case !s.HasServerMS:
		return "INFO: Server did not report its processing time."
	case s.ServerMS < 3:
		return "SUCCESS: Server logic is extremely fast (< 3ms)!"
	case s.ServerMS < 10:
		return "OK: Server logic is fast (< 10ms)."
	default:
		return "INFO: Server logic is taking longer than expected. Check whether the cache is being rewritten on every request."
	}
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
