// Package fetch grabs pages politely, with a bounded number of retries.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"
)

// ErrExhausted is matched (via errors.Is) by the error returned when every
// attempt at a fetch has failed.
var ErrExhausted = errors.New("retries exhausted")

// ExhaustedError reports a fetch which failed on every attempt.
// It unwraps to the error from the final attempt.
type ExhaustedError struct {
	URL      string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: %s after %d attempts (last error: %s)", e.URL, ErrExhausted, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

func (e *ExhaustedError) Is(target error) bool { return target == ErrExhausted }

// HTTPError is a non-200 response.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP code %d (%s)", e.StatusCode, e.URL)
}

type Logger interface {
	Printf(format string, v ...interface{})
}

type NullLogger struct{}

func (l NullLogger) Printf(format string, v ...interface{}) {
}

// Doer performs a single HTTP request. *http.Client is one.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Archiver is given every response received, before the status is checked.
type Archiver interface {
	ArchiveResponse(resp *http.Response, srcURL string, timeStamp time.Time) error
}

// Policy governs retries.
type Policy struct {
	// Attempts is the maximum number of requests made per fetch.
	Attempts int
	// Each attempt is preceded by a random delay in [0, MaxDelay).
	MaxDelay time.Duration
	// Timeout applies to each attempt separately.
	Timeout time.Duration
}

// DefaultPolicy is three attempts, up to 3s delay before each, 10s timeout.
func DefaultPolicy() Policy {
	return Policy{
		Attempts: 3,
		MaxDelay: 3 * time.Second,
		Timeout:  10 * time.Second,
	}
}

// Delay maps r, in [0,1), onto a pre-request delay.
func (p Policy) Delay(r float64) time.Duration {
	return time.Duration(r * float64(p.MaxDelay))
}

// Page is a successfully fetched page.
type Page struct {
	URL         string
	ContentType string
	Body        []byte
}

// Fetcher performs GET requests under a retry Policy.
type Fetcher struct {
	Client Doer
	Policy Policy
	// Header is sent with every request
	Header http.Header
	// Archive, if set, is handed every response
	Archive Archiver

	// Rand returns the random numbers for politeness delays (defaults to math/rand)
	Rand func() float64
	// Sleep waits for d or until ctx is done (defaults to a timer)
	Sleep func(ctx context.Context, d time.Duration) error

	ErrorLog Logger
	InfoLog  Logger
}

// NewFetcher returns a Fetcher using client, with the default policy.
func NewFetcher(client Doer) *Fetcher {
	return &Fetcher{
		Client:   client,
		Policy:   DefaultPolicy(),
		Header:   http.Header{},
		Rand:     rand.Float64,
		Sleep:    sleep,
		ErrorLog: NullLogger{},
		InfoLog:  NullLogger{},
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Fetch GETs pageURL, retrying on any error or non-200 response.
// Fails with an *ExhaustedError once all the attempts are used up, or with
// the context error if ctx is cancelled.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	attempts := f.Policy.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		delay := f.Policy.Delay(f.Rand())
		f.InfoLog.Printf("[%d/%d] waiting %.2fs before requesting %s\n", i+1, attempts, delay.Seconds(), pageURL)
		err := f.Sleep(ctx, delay)
		if err != nil {
			return nil, err
		}

		page, err := f.attempt(ctx, pageURL)
		if err == nil {
			return page, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.ErrorLog.Printf("[%d/%d] %s\n", i+1, attempts, err)
		lastErr = err
	}
	return nil, &ExhaustedError{URL: pageURL, Attempts: attempts, Last: lastErr}
}

// attempt makes a single request.
func (f *Fetcher) attempt(ctx context.Context, pageURL string) (*Page, error) {
	if f.Policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Policy.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, err
	}
	// NOTE: some sites always return 403 if no Accept header is present.
	req.Header.Set("Accept", "*/*")
	for name, vals := range f.Header {
		req.Header[name] = append([]string(nil), vals...)
	}

	fetchTime := time.Now()
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if f.Archive != nil {
		resp.Body = io.NopCloser(bytes.NewReader(body))
		err = f.Archive.ArchiveResponse(resp, pageURL, fetchTime)
		if err != nil {
			f.ErrorLog.Printf("archive failed (%s): %s\n", pageURL, err)
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: pageURL}
	}

	return &Page{
		URL:         pageURL,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
