package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/medicsearch/rcpgest/internal/metrics"
	"github.com/medicsearch/rcpgest/internal/parser"
)

const userAgent = "rcpgest/1.0 (+https://github.com/medicsearch/rcpgest)"

// Fetcher downloads source documents over HTTP with bounded retries.
type Fetcher struct {
	Client    *http.Client
	Retries   int           // attempts after the first
	BaseDelay time.Duration // first backoff, doubled per attempt
	MaxBytes  int64         // 0: unlimited
	Log       *slog.Logger
	Metrics   metrics.Recorder
}

// NewFetcher returns a fetcher with the given per-request timeout.
func NewFetcher(timeout time.Duration, retries int, log *slog.Logger) *Fetcher {
	return &Fetcher{
		Client:    &http.Client{Timeout: timeout},
		Retries:   retries,
		BaseDelay: time.Second,
		Log:       log,
		Metrics:   metrics.NoopRecorder{},
	}
}

// Fetched is a downloaded document.
type Fetched struct {
	Data        []byte
	Filename    string // derived from the URL path and content type
	ContentType string
}

// Fetch downloads rawURL, retrying transport errors, 429 and 5xx responses
// with jittered exponential backoff.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Fetched, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid url %q", rawURL)
	}

	var lastErr error
	for attempt := 0; attempt <= f.Retries; attempt++ {
		if attempt > 0 {
			f.Metrics.IncFetchRetry()
			if f.Log != nil {
				f.Log.Warn("retryable fetch error", "url", rawURL, "attempt", attempt, "error", lastErr)
			}
			select {
			case <-time.After(Backoff(f.BaseDelay, attempt-1)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		fetched, err := f.get(ctx, u)
		if err == nil {
			return fetched, nil
		}
		lastErr = err
		if !IsRetryable(err) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (f *Fetcher) get(ctx context.Context, u *url.URL) (*Fetched, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return nil, &StatusError{URL: u.String(), Code: resp.StatusCode}
	}

	var body io.Reader = resp.Body
	if f.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, f.MaxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("read body: %w", err)}
	}
	if f.MaxBytes > 0 && int64(len(data)) > f.MaxBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", f.MaxBytes)
	}

	ct := resp.Header.Get("Content-Type")
	return &Fetched{
		Data:        data,
		Filename:    filenameFor(u, ct),
		ContentType: ct,
	}, nil
}

// filenameFor keeps the URL's file name when its extension is supported and
// otherwise derives one from the content type. ANSM pages have no extension.
func filenameFor(u *url.URL, contentType string) string {
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		base = u.Host
	}
	if parser.IsSupportedExtension(base) {
		return base
	}
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch {
	case mediaType == "application/pdf":
		return base + ".pdf"
	case mediaType == "text/plain":
		return base + ".txt"
	case mediaType == "text/markdown":
		return base + ".md"
	case mediaType == "text/csv":
		return base + ".csv"
	case strings.Contains(mediaType, "wordprocessingml"):
		return base + ".docx"
	default:
		return base + ".html"
	}
}
