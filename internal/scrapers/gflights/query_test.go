package gflights

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeRoundTrip(t *testing.T) {
	encoder := NewEncoder("", nil, nil)
	desc, err := encoder.Encode(SearchRequest{
		Origin:        "JFK",
		Destination:   "LAX",
		DepartureDate: "2025-03-01",
		ReturnDate:    "2025-03-08",
		Adults:        2,
	})
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(desc.URL(), DefaultBaseUrl+"?hl=en&tfs="))
	require.Contains(t, desc.URL(), "JFK")
	require.Contains(t, desc.URL(), "LAX")
	require.Contains(t, desc.URL(), "2025-03-01")
	require.Contains(t, desc.URL(), "q=Flights%20from%20JFK%20to%20LAX")
	require.Contains(t, desc.URL(), "&d=2025-03-01&r=2025-03-08&p=2")

	parsed, err := url.Parse(desc.URL())
	require.NoError(t, err)
	require.Equal(t, "Flights from JFK to LAX", parsed.Query().Get("q"))
	require.Equal(t, searchToken, parsed.Query().Get("tfs"))
}

func TestEncodeOneWayDefaultsAdults(t *testing.T) {
	encoder := NewEncoder("", nil, nil)
	desc, err := encoder.Encode(SearchRequest{
		Origin:        "SFO",
		Destination:   "SEA",
		DepartureDate: "2025-12-24",
	})
	require.NoError(t, err)
	require.NotContains(t, desc.URL(), "&r=")
	require.True(t, strings.HasSuffix(desc.URL(), "&d=2025-12-24&p=1"))
}

func TestEncodeInvalidDates(t *testing.T) {
	encoder := NewEncoder("", nil, nil)

	testCases := []struct {
		name string
		req  SearchRequest
	}{
		{
			name: "wrong layout",
			req:  SearchRequest{Origin: "JFK", Destination: "LAX", DepartureDate: "03/01/2025"},
		},
		{
			name: "not a calendar date",
			req:  SearchRequest{Origin: "JFK", Destination: "LAX", DepartureDate: "2025-02-30"},
		},
		{
			name: "bad return date",
			req:  SearchRequest{Origin: "JFK", Destination: "LAX", DepartureDate: "2025-03-01", ReturnDate: "next week"},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			_, err := encoder.Encode(test.req)
			require.Error(t, err)
		})
	}
}

func TestEncodeHeaders(t *testing.T) {
	pool := []string{"agent-a", "agent-b", "agent-c"}
	next := 0
	encoder := NewEncoder("http://localhost:1234/search", pool, func(n int) int {
		i := next % n
		next++
		return i
	})

	req := SearchRequest{Origin: "JFK", Destination: "LAX", DepartureDate: "2025-03-01"}
	var agents []string
	for i := 0; i < 4; i++ {
		desc, err := encoder.Encode(req)
		require.NoError(t, err)
		agents = append(agents, desc.UserAgent())

		header := desc.Header()
		require.Equal(t, "en-US,en;q=0.5", header.Get("Accept-Language"))
		require.Equal(t, "navigate", header.Get("Sec-Fetch-Mode"))
		require.Equal(t, "1", header.Get("DNT"))
		require.Empty(t, header.Get("Cookie"))
		require.True(t, strings.HasPrefix(desc.URL(), "http://localhost:1234/search?hl=en"))
	}
	require.Equal(t, []string{"agent-a", "agent-b", "agent-c", "agent-a"}, agents)
}

func TestRequestDescriptorIsImmutable(t *testing.T) {
	desc, err := NewEncoder("", nil, nil).Encode(SearchRequest{
		Origin: "JFK", Destination: "LAX", DepartureDate: "2025-03-01",
	})
	require.NoError(t, err)

	agent := desc.UserAgent()
	desc.Header().Set("User-Agent", "changed")
	require.Equal(t, agent, desc.UserAgent())
	require.Contains(t, DefaultUserAgents, agent)
}

func TestEncodeIsDeterministicApartFromAgent(t *testing.T) {
	encoder := NewEncoder("", nil, nil)
	req := SearchRequest{Origin: "JFK", Destination: "LAX", DepartureDate: "2025-03-01"}

	a, err := encoder.Encode(req)
	require.NoError(t, err)
	b, err := encoder.Encode(req)
	require.NoError(t, err)
	require.Equal(t, a.URL(), b.URL())
}

func TestSearchRequestValidate(t *testing.T) {
	testCases := []struct {
		req      SearchRequest
		expected error
	}{
		{SearchRequest{Origin: "JFK", Destination: "LAX", DepartureDate: "2025-03-01"}.Normalize(), nil},
		{SearchRequest{Destination: "LAX", DepartureDate: "2025-03-01", Adults: 1}, ErrMissingParameters},
		{SearchRequest{Origin: " ", Destination: "LAX", DepartureDate: "2025-03-01"}.Normalize(), ErrMissingParameters},
		{SearchRequest{Origin: "JFK", Destination: "LAX", DepartureDate: "2025-03-01", Adults: -1}, ErrInvalidAdults},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, test.req.Validate())
	}
}
