package gflights

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultBaseUrl = "https://www.google.com/travel/flights/search"

// searchToken is the opaque trip descriptor the results page expects next to
// the free-text query, the page reads origin and destination from `q`.
const searchToken = "CAEQARoKEggSBAj-ARABGAEaaRIHCgNBTlkSAhIBGhIKCC9tLzBsNHdrEghMYSBHdWFyZBIHCgNBTlkSAhIBGhIKCAIEEgYI_gEQAhoGCgQQAhAAIhIKCC9tLzBsNHdrEghMYSBHdWFyZCoSCggCBBIGCP4BEAIaBggEEAIQAA"

var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.1 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:89.0) Gecko/20100101 Firefox/89.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 14_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0 Mobile/15E148 Safari/604.1",
}

var staticHeaders = [][2]string{
	{"Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"},
	{"Accept-Language", "en-US,en;q=0.5"},
	{"Accept-Encoding", "gzip, deflate, br"},
	{"DNT", "1"},
	{"Connection", "keep-alive"},
	{"Upgrade-Insecure-Requests", "1"},
	{"Sec-Fetch-Dest", "document"},
	{"Sec-Fetch-Mode", "navigate"},
	{"Sec-Fetch-Site", "none"},
	{"Sec-Fetch-User", "?1"},
	{"Cache-Control", "max-age=0"},
}

// RequestDescriptor is everything needed to perform one fetch. It cannot be
// changed once built, Header hands out a copy.
type RequestDescriptor struct {
	url    string
	header http.Header
}

func (d RequestDescriptor) URL() string {
	return d.url
}

func (d RequestDescriptor) Header() http.Header {
	return d.header.Clone()
}

func (d RequestDescriptor) UserAgent() string {
	return d.header.Get("User-Agent")
}

// Encoder turns a SearchRequest into a RequestDescriptor, rotating the
// user agent on every call.
type Encoder struct {
	baseUrl    string
	userAgents []string
	pick       func(n int) int
}

// NewEncoder creates an encoder, an empty baseUrl or user agent pool falls
// back to the defaults. pick chooses an index in [0, n) and defaults to
// math/rand.
func NewEncoder(baseUrl string, userAgents []string, pick func(n int) int) Encoder {
	if baseUrl == "" {
		baseUrl = DefaultBaseUrl
	}
	if len(userAgents) == 0 {
		userAgents = DefaultUserAgents
	}
	if pick == nil {
		pick = rand.IntN
	}
	return Encoder{
		baseUrl:    baseUrl,
		userAgents: append([]string(nil), userAgents...),
		pick:       pick,
	}
}

func checkDate(name, value string) error {
	_, err := time.Parse(dateLayout, value)
	if err != nil {
		return fmt.Errorf("invalid %s %q, expected YYYY-MM-DD", name, value)
	}
	return nil
}

// Encode builds the request for req. It fails only when a date is not a
// valid YYYY-MM-DD calendar date.
func (e Encoder) Encode(req SearchRequest) (RequestDescriptor, error) {
	req = req.Normalize()

	err := checkDate("date", req.DepartureDate)
	if err != nil {
		return RequestDescriptor{}, err
	}
	if req.ReturnDate != "" {
		err = checkDate("return date", req.ReturnDate)
		if err != nil {
			return RequestDescriptor{}, err
		}
	}

	// parameter order is stable so two encodings of the same request only
	// differ in their user agent
	params := [][2]string{
		{"hl", "en"},
		{"tfs", searchToken},
		{"q", fmt.Sprintf("Flights from %s to %s", req.Origin, req.Destination)},
		{"d", req.DepartureDate},
	}
	if req.ReturnDate != "" {
		params = append(params, [2]string{"r", req.ReturnDate})
	}
	params = append(params, [2]string{"p", strconv.Itoa(req.Adults)})

	var query strings.Builder
	for i, p := range params {
		if i > 0 {
			query.WriteByte('&')
		}
		query.WriteString(url.QueryEscape(p[0]))
		query.WriteByte('=')
		query.WriteString(strings.ReplaceAll(url.QueryEscape(p[1]), "+", "%20"))
	}

	separator := "?"
	if strings.Contains(e.baseUrl, "?") {
		separator = "&"
	}

	header := http.Header{}
	header.Set("User-Agent", e.userAgents[e.pick(len(e.userAgents))])
	for _, h := range staticHeaders {
		header.Set(h[0], h[1])
	}

	return RequestDescriptor{
		url:    e.baseUrl + separator + query.String(),
		header: header,
	}, nil
}
