package gflights

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var ErrMissingParameters = errors.New("Missing required parameters")
var ErrInvalidAdults = errors.New("adults must be a positive integer")

// SearchRequest describes one flight search.
type SearchRequest struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"date"`
	// ReturnDate is empty for a one-way search.
	ReturnDate string `json:"return_date"`
	Adults     int    `json:"adults"`
}

// Normalize trims every field and applies the default of one adult.
func (r SearchRequest) Normalize() SearchRequest {
	r.Origin = strings.TrimSpace(r.Origin)
	r.Destination = strings.TrimSpace(r.Destination)
	r.DepartureDate = strings.TrimSpace(r.DepartureDate)
	r.ReturnDate = strings.TrimSpace(r.ReturnDate)
	if r.Adults == 0 {
		r.Adults = 1
	}
	return r
}

// Validate checks for the fields a caller must always provide, dates are
// checked later during encoding.
func (r SearchRequest) Validate() error {
	if r.Origin == "" || r.Destination == "" || r.DepartureDate == "" {
		return ErrMissingParameters
	}
	if r.Adults < 1 {
		return ErrInvalidAdults
	}
	return nil
}

// FlightRecord is one flight listing as shown on the results page. Times and
// duration are kept exactly as the site renders them.
type FlightRecord struct {
	Airline       string `json:"airline"`
	DepartureTime string `json:"departure_time"`
	ArrivalTime   string `json:"arrival_time"`
	Duration      string `json:"duration"`
	// Stops is one of "Nonstop", "1 stop" or "N stops".
	Stops string `json:"stops"`
	// Price keeps its currency symbol and grouping, ex. "$1,234".
	Price string `json:"price"`
}

type FailureKind int

const (
	FAILURE_TRANSPORT FailureKind = iota
	FAILURE_HTTP_STATUS
	FAILURE_UNEXPECTED
)

func (k FailureKind) String() string {
	switch k {
	case FAILURE_TRANSPORT:
		return "transport"
	case FAILURE_HTTP_STATUS:
		return "http_status"
	case FAILURE_UNEXPECTED:
		return "unexpected"
	}
	return fmt.Sprintf("FailureKind(%d)", int(k))
}

// Failure is the reason a search produced no page to extract from.
type Failure struct {
	Kind FailureKind
	// StatusCode is set for FAILURE_HTTP_STATUS.
	StatusCode int
	Message    string
	// Snippet holds the first bytes of the response body for FAILURE_HTTP_STATUS.
	Snippet string
}

func (f Failure) Error() string {
	switch f.Kind {
	case FAILURE_HTTP_STATUS:
		return fmt.Sprintf("Failed to fetch data: Status code %d", f.StatusCode)
	case FAILURE_TRANSPORT:
		return fmt.Sprintf("Request error: %s", f.Message)
	default:
		return fmt.Sprintf("Unexpected error: %s", f.Message)
	}
}

// Success is the result of a search whose page was fetched and extracted.
type Success struct {
	Request     SearchRequest
	Flights     []FlightRecord
	Timestamp   time.Time
	Diagnostics Diagnostics
}

// FetchOutcome is either a Success or a Failure, never both.
type FetchOutcome struct {
	success *Success
	failure *Failure
}

func Succeeded(s Success) FetchOutcome {
	return FetchOutcome{success: &s}
}

func Failed(f Failure) FetchOutcome {
	return FetchOutcome{failure: &f}
}

// Success returns the success half of the outcome, ok is false on failure.
func (o FetchOutcome) Success() (Success, bool) {
	if o.success == nil {
		return Success{}, false
	}
	return *o.success, true
}

// Failure returns the failure half of the outcome, ok is false on success.
func (o FetchOutcome) Failure() (Failure, bool) {
	if o.failure == nil {
		return Failure{}, false
	}
	return *o.failure, true
}

type successJSON struct {
	Origin       string         `json:"origin"`
	Destination  string         `json:"destination"`
	Date         string         `json:"date"`
	ReturnDate   *string        `json:"return_date"`
	Flights      []FlightRecord `json:"flights"`
	Timestamp    string         `json:"timestamp"`
	ResultsCount int            `json:"results_count"`
	Warnings     []string       `json:"warnings,omitempty"`
}

type failureJSON struct {
	Error string `json:"error"`
}

func (o FetchOutcome) MarshalJSON() ([]byte, error) {
	if o.failure != nil {
		return json.Marshal(failureJSON{Error: o.failure.Error()})
	}
	if o.success == nil {
		return nil, errors.New("marshal empty outcome")
	}

	s := o.success
	var returnDate *string
	if s.Request.ReturnDate != "" {
		returnDate = &s.Request.ReturnDate
	}
	flights := s.Flights
	if flights == nil {
		flights = []FlightRecord{}
	}

	return json.Marshal(successJSON{
		Origin:       s.Request.Origin,
		Destination:  s.Request.Destination,
		Date:         s.Request.DepartureDate,
		ReturnDate:   returnDate,
		Flights:      flights,
		Timestamp:    s.Timestamp.Format(time.RFC3339),
		ResultsCount: len(flights),
		Warnings:     s.Diagnostics.Warnings(),
	})
}
