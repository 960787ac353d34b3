// Package imagecheck validates product image URLs: a cheap shape check at
// write time and a network reachability check as a separate step.
package imagecheck

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"catalog-service/internal/apperrors"
	"catalog-service/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTimeout     = 5 * time.Second
	DefaultConcurrency = 4
)

// ValidateShape requires a non-empty list of absolute http(s) URLs.
func ValidateShape(urls []string) error {
	if len(urls) == 0 {
		return apperrors.Validation("at least one image URL is required")
	}
	for i, raw := range urls {
		if err := validateURL(raw); err != nil {
			return apperrors.Validation(fmt.Sprintf("images[%d]: %v", i, err))
		}
	}
	return nil
}

func validateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("empty URL")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", raw)
	}
	return nil
}

// Result is the outcome of checking one URL.
type Result struct {
	URL        string `json:"url"`
	Reachable  bool   `json:"reachable"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Report collects per-URL results in input order.
type Report struct {
	Results []Result `json:"results"`
}

// OK reports whether every URL answered 200.
func (r *Report) OK() bool {
	if len(r.Results) == 0 {
		return false
	}
	for _, res := range r.Results {
		if !res.Reachable {
			return false
		}
	}
	return true
}

// Failed returns the URLs that did not answer 200.
func (r *Report) Failed() []string {
	var failed []string
	for _, res := range r.Results {
		if !res.Reachable {
			failed = append(failed, res.URL)
		}
	}
	return failed
}

// Verifier checks image reachability with HEAD requests.
type Verifier struct {
	client      *http.Client
	timeout     time.Duration
	concurrency int
	logger      *zap.Logger
}

// NewVerifier creates a verifier issuing HEAD requests with a per-request timeout.
func NewVerifier(client *http.Client, timeout time.Duration, concurrency int) *Verifier {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Verifier{
		client:      client,
		timeout:     timeout,
		concurrency: concurrency,
		logger:      util.Component("imagecheck"),
	}
}

// Verify checks every URL. Unreachable URLs are reported, not returned as errors;
// the error is non-nil only when ctx is cancelled.
func (v *Verifier) Verify(ctx context.Context, urls []string) (*Report, error) {
	ctx, span := util.StartSpan(ctx, "Verifier.Verify")
	defer span.End()

	report := &Report{Results: make([]Result, len(urls))}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)

	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			report.Results[i] = v.check(gCtx, u)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return report, err
	}

	result := "verified"
	if !report.OK() {
		result = "unreachable"
		v.logger.Warn("Image verification failed",
			zap.Strings("failed_urls", report.Failed()))
	}
	util.ImageVerificationsTotal.WithLabelValues(result).Inc()

	return report, nil
}

func (v *Verifier) check(ctx context.Context, rawURL string) Result {
	res := Result{URL: rawURL}
	if err := validateURL(rawURL); err != nil {
		res.Error = err.Error()
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	resp, err := v.client.Do(req)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	resp.Body.Close()

	res.StatusCode = resp.StatusCode
	res.Reachable = resp.StatusCode == http.StatusOK
	if !res.Reachable {
		res.Error = fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}
	return res
}
