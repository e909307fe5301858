package gflights

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"flightscraper-backend/internal/components/telemetry"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/require"
)

const testPage = `<html><body><div role="listitem">hello</div></body></html>`

func compress(t testing.TB, encoding string, body string) []byte {
	var buf bytes.Buffer
	switch encoding {
	case "gzip":
		w := gzip.NewWriter(&buf)
		_, err := w.Write([]byte(body))
		require.NoError(t, err)
		require.NoError(t, w.Close())
	case "br":
		w := brotli.NewWriter(&buf)
		_, err := w.Write([]byte(body))
		require.NoError(t, err)
		require.NoError(t, w.Close())
	case "deflate":
		w, err := flate.NewWriter(&buf, flate.DefaultCompression)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
		require.NoError(t, w.Close())
	default:
		buf.WriteString(body)
	}
	return buf.Bytes()
}

func newTestFetcher(opts FetcherOptions) *RestyFetcher {
	opts.DisableCloudflareBypass = true
	return NewFetcher(opts, telemetry.NewRecorder())
}

func testDescriptor(t testing.TB, baseUrl string) RequestDescriptor {
	desc, err := NewEncoder(baseUrl, nil, nil).Encode(SearchRequest{
		Origin:        "JFK",
		Destination:   "LAX",
		DepartureDate: "2025-03-01",
	})
	require.NoError(t, err)
	return desc
}

func TestFetchDecodesBodies(t *testing.T) {
	for _, encoding := range []string{"", "gzip", "br", "deflate"} {
		t.Run("encoding="+encoding, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if encoding != "" {
					w.Header().Set("Content-Encoding", encoding)
				}
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write(compress(t, encoding, testPage))
			}))
			defer server.Close()

			res, err := newTestFetcher(FetcherOptions{}).Fetch(context.Background(), testDescriptor(t, server.URL))
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, res.StatusCode)
			require.Equal(t, testPage, string(res.Body))
		})
	}
}

func TestFetchSendsDescriptorHeaders(t *testing.T) {
	var got http.Header
	var query string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		query = r.URL.RawQuery
		_, _ = w.Write([]byte(testPage))
	}))
	defer server.Close()

	desc := testDescriptor(t, server.URL)
	_, err := newTestFetcher(FetcherOptions{}).Fetch(context.Background(), desc)
	require.NoError(t, err)

	require.Equal(t, desc.UserAgent(), got.Get("User-Agent"))
	require.Equal(t, "document", got.Get("Sec-Fetch-Dest"))
	require.Equal(t, "gzip, deflate, br", got.Get("Accept-Encoding"))
	require.Empty(t, got.Get("Cookie"))
	require.Contains(t, query, "q=Flights%20from%20JFK%20to%20LAX")
}

func TestFetchReturnsErrorStatusesAsPages(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("unavailable"))
	}))
	defer server.Close()

	res, err := newTestFetcher(FetcherOptions{}).Fetch(context.Background(), testDescriptor(t, server.URL))
	require.NoError(t, err)
	require.False(t, res.OK())
	require.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
	require.Equal(t, "unavailable", string(res.Body))
	require.Equal(t, 1, requests)
}

func TestFetchBodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 2048)))
	}))
	defer server.Close()

	_, err := newTestFetcher(FetcherOptions{MaxBodyBytes: 1024}).Fetch(context.Background(), testDescriptor(t, server.URL))
	require.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := newTestFetcher(FetcherOptions{Timeout: 50 * time.Millisecond}).Fetch(context.Background(), testDescriptor(t, server.URL))
	require.Error(t, err)
}
