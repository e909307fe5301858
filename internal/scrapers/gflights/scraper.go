// scraper.go ties pacing, encoding, fetching and extraction together into a
// single search.

package gflights

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"flightscraper-backend/internal/components/assert"
	"flightscraper-backend/internal/components/chrono"
	"flightscraper-backend/internal/components/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const (
	report_scraper_search  = "scraper.search"
	report_scraper_state   = "scraper.state"
	report_scraper_records = "scraper.records"
	report_scraper_url     = "scraper.url"
	report_scraper_status  = "scraper.status"
	report_scraper_meter   = "scraper.meter"
)

const snippetBytes = 200

var tracer = otel.Tracer("flightscraper.gflights")
var meter = otel.Meter("flightscraper.gflights")

type State int

const (
	STATE_IDLE State = iota
	STATE_PACING
	STATE_FETCHING
	STATE_EXTRACTING
	STATE_DONE
	STATE_FAILED
)

func (s State) String() string {
	switch s {
	case STATE_IDLE:
		return "idle"
	case STATE_PACING:
		return "pacing"
	case STATE_FETCHING:
		return "fetching"
	case STATE_EXTRACTING:
		return "extracting"
	case STATE_DONE:
		return "done"
	case STATE_FAILED:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Gate decides when the next fetch may go out.
type Gate interface {
	Acquire(ctx context.Context) error
}

type Options struct {
	Gate      Gate
	Encoder   Encoder
	Fetcher   Fetcher
	Assembler Assembler
	Time      chrono.TimeAPI
	Tel       telemetry.API
}

// Scraper runs flight searches. It is safe for concurrent use, concurrent
// searches queue up on the gate.
type Scraper struct {
	gate      Gate
	encoder   Encoder
	fetcher   Fetcher
	assembler Assembler
	time      chrono.TimeAPI
	tel       telemetry.API

	outcomes metric.Int64Counter
}

func NewScraper(opts Options) Scraper {
	assert.NotNil(opts.Gate)
	assert.NotNil(opts.Fetcher)
	assert.NotNil(opts.Time)
	assert.NotNil(opts.Tel)

	tel := telemetry.NewScopedAPI("gflights", opts.Tel)
	if opts.Encoder.pick == nil {
		opts.Encoder = NewEncoder("", nil, nil)
	}
	if opts.Assembler.tel == nil {
		opts.Assembler = NewAssembler(DefaultLocators(), nil, opts.Tel)
	}

	var outcomes metric.Int64Counter = noop.Int64Counter{}
	counter, err := meter.Int64Counter(
		"search_outcomes",
		metric.WithDescription("number of searches by outcome"),
	)
	if err != nil {
		tel.ReportBroken(report_scraper_meter, err)
	} else {
		outcomes = counter
	}

	return Scraper{
		gate:      opts.Gate,
		encoder:   opts.Encoder,
		fetcher:   opts.Fetcher,
		assembler: opts.Assembler,
		time:      opts.Time,
		tel:       tel,
		outcomes:  outcomes,
	}
}

func truncateSnippet(body []byte) string {
	if len(body) > snippetBytes {
		body = body[:snippetBytes]
	}
	return strings.ToValidUTF8(string(body), "")
}

type search struct {
	Scraper
	state State
}

func (s *search) transition(next State) {
	s.tel.ReportDebug(report_scraper_state, s.state.String(), next.String())
	s.state = next
}

func (s *search) fail(failure Failure) FetchOutcome {
	s.transition(STATE_FAILED)
	return Failed(failure)
}

// Search runs one search from start to finish. It never panics and never
// retries, every problem ends up as a Failure in the outcome.
func (s Scraper) Search(ctx context.Context, req SearchRequest) (outcome FetchOutcome) {
	req = req.Normalize()

	ctx, span := tracer.Start(ctx, "Search")
	defer span.End()
	span.SetAttributes(
		attribute.String("origin", req.Origin),
		attribute.String("destination", req.Destination),
		attribute.String("date", req.DepartureDate),
	)

	run := &search{Scraper: s, state: STATE_IDLE}

	defer func() {
		if r := recover(); r != nil {
			s.tel.ReportBroken(
				report_scraper_search,
				fmt.Errorf("panic: %v", r),
				run.state.String(),
				string(debug.Stack()),
			)
			outcome = run.fail(Failure{Kind: FAILURE_UNEXPECTED, Message: "internal error"})
		}

		kind := "success"
		if failure, failed := outcome.Failure(); failed {
			kind = failure.Kind.String()
			span.SetStatus(codes.Error, failure.Error())
		}
		s.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", kind)))
	}()

	run.transition(STATE_PACING)
	err := s.gate.Acquire(ctx)
	if err != nil {
		return run.fail(Failure{Kind: FAILURE_UNEXPECTED, Message: err.Error()})
	}

	run.transition(STATE_FETCHING)
	desc, err := s.encoder.Encode(req)
	if err != nil {
		return run.fail(Failure{Kind: FAILURE_UNEXPECTED, Message: err.Error()})
	}
	s.tel.ReportDebug(report_scraper_url, desc.URL())

	// once the gate let the search through the fetch runs to completion, the
	// fetcher's timeout is its only bound.
	page, err := s.fetcher.Fetch(context.WithoutCancel(ctx), desc)
	if err != nil {
		span.RecordError(err)
		return run.fail(Failure{Kind: FAILURE_TRANSPORT, Message: err.Error()})
	}
	if !page.OK() {
		snippet := truncateSnippet(page.Body)
		s.tel.ReportWarning(report_scraper_status, page.StatusCode, snippet)
		return run.fail(Failure{
			Kind:       FAILURE_HTTP_STATUS,
			StatusCode: page.StatusCode,
			Message:    fmt.Sprintf("status code %d", page.StatusCode),
			Snippet:    snippet,
		})
	}

	run.transition(STATE_EXTRACTING)
	_, extractSpan := tracer.Start(ctx, "Extract")
	records, diag, err := s.assembler.AssembleHTML(page.Body)
	extractSpan.End()
	if err != nil {
		s.tel.ReportBroken(report_scraper_search, err)
		return run.fail(Failure{Kind: FAILURE_UNEXPECTED, Message: "internal error"})
	}
	s.tel.ReportCount(report_scraper_records, int64(len(records)))
	span.SetAttributes(
		attribute.Int("results_count", len(records)),
		attribute.Bool("structural_miss", diag.StructuralMiss),
	)

	run.transition(STATE_DONE)
	return Succeeded(Success{
		Request:     req,
		Flights:     records,
		Timestamp:   s.time.Now(),
		Diagnostics: diag,
	})
}
