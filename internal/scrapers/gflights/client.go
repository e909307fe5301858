// client.go contains everything about talking to the results site over http,
// it does not know anything about the page's markup.

package gflights

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"flightscraper-backend/internal/components/assert"
	"flightscraper-backend/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/andybalholm/brotli"
	"github.com/go-resty/resty/v2"
)

const (
	report_fetcher_fetch = "fetcher.fetch"
)

const DefaultMaxBodyBytes = 8 << 20

var ErrBodyTooLarge = errors.New("response body too large")

// Page is a fetched response, Body is already decompressed.
type Page struct {
	StatusCode int
	Body       []byte
}

func (p Page) OK() bool {
	return p.StatusCode >= 200 && p.StatusCode < 300
}

// Fetcher performs exactly one http request per call, it never retries. Any
// returned error is a transport failure, http error statuses are returned as
// a Page.
type Fetcher interface {
	Fetch(ctx context.Context, req RequestDescriptor) (Page, error)
}

type FetcherOptions struct {
	Timeout      time.Duration
	MaxBodyBytes int64
	// DisableCloudflareBypass keeps the stock transport, tests against plain
	// http servers use it.
	DisableCloudflareBypass bool
}

// RestyFetcher is the Fetcher used in production.
type RestyFetcher struct {
	http         *resty.Client
	maxBodyBytes int64
	tel          telemetry.API
}

func NewFetcher(opts FetcherOptions, tel telemetry.API) *RestyFetcher {
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("gflights", tel)

	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	httpClient := resty.New()
	if !opts.DisableCloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	httpClient.SetCookieJar(nil)
	httpClient.SetTimeout(opts.Timeout)
	httpClient.SetRetryCount(0)
	httpClient.SetDoNotParseResponse(true)

	telemetry.InstrumentResty(httpClient, tel)

	return &RestyFetcher{
		http:         httpClient,
		maxBodyBytes: opts.MaxBodyBytes,
		tel:          tel,
	}
}

func (f *RestyFetcher) Fetch(ctx context.Context, desc RequestDescriptor) (Page, error) {
	res, err := f.http.R().
		SetContext(ctx).
		SetHeaderMultiValues(desc.Header()).
		Get(desc.URL())
	if err != nil {
		return Page{}, fmt.Errorf("fetch: %w", err)
	}

	body, err := f.readBody(res)
	if err != nil {
		f.tel.ReportBroken(report_fetcher_fetch, err, desc.URL())
		return Page{}, err
	}
	telemetry.ReportResponse(f.tel, res, body)

	return Page{
		StatusCode: res.StatusCode(),
		Body:       body,
	}, nil
}

func (f *RestyFetcher) readBody(res *resty.Response) ([]byte, error) {
	raw := res.RawBody()
	if raw == nil {
		return nil, nil
	}

	reader := io.Reader(raw)
	closers := []io.Closer{raw}

	encoding := strings.ToLower(strings.TrimSpace(res.Header().Get("Content-Encoding")))
	switch encoding {
	case "gzip":
		gz, err := gzip.NewReader(raw)
		if err != nil {
			_ = raw.Close()
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		reader = gz
		closers = append(closers, gz)
	case "br":
		reader = brotli.NewReader(raw)
	case "deflate":
		fl := flate.NewReader(raw)
		reader = fl
		closers = append(closers, fl)
	}

	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	limited := io.LimitReader(reader, f.maxBodyBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, f.maxBodyBytes)
	}
	return body, nil
}
