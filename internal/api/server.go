package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"flightscraper-backend/internal/components/assert"
	"flightscraper-backend/internal/components/telemetry"
	"flightscraper-backend/internal/scrapers/gflights"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	report_api_search = "api.search"
)

// Searcher runs one flight search, gflights.Scraper implements it.
type Searcher interface {
	Search(ctx context.Context, req gflights.SearchRequest) gflights.FetchOutcome
}

type Options struct {
	Searcher    Searcher
	ClientRate  float64
	ClientBurst int
	// TrustedProxies lists the proxies whose forwarding headers name the
	// client ip. When empty the peer address is the client.
	TrustedProxies []string
	Tel            telemetry.API
}

type Server struct {
	searcher Searcher
	tel      telemetry.API
}

// NewRouter builds the http handler serving the search api, the health check
// and the prometheus metrics.
func NewRouter(opts Options) (*gin.Engine, error) {
	assert.NotNil(opts.Searcher)
	assert.NotNil(opts.Tel)
	assert.Positive("client rate", opts.ClientRate)
	assert.Positive("client burst", opts.ClientBurst)

	tel := telemetry.NewScopedAPI("api", opts.Tel)
	s := Server{searcher: opts.Searcher, tel: tel}

	router := gin.New()
	err := router.SetTrustedProxies(opts.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	router.Use(gin.Recovery())
	router.Use(requestID(tel))
	router.Use(prometheusMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AddExposeHeaders(requestIDHeader)
	router.Use(cors.New(corsConfig))

	limiter := newClientLimiter(opts.ClientRate, opts.ClientBurst)
	router.GET("/api/search", limiter.middleware(tel), s.search)
	router.GET("/api/health", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router, nil
}

func (s Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func parseSearchRequest(c *gin.Context) (gflights.SearchRequest, error) {
	req := gflights.SearchRequest{
		Origin:        c.Query("origin"),
		Destination:   c.Query("destination"),
		DepartureDate: c.Query("date"),
		ReturnDate:    c.Query("return_date"),
	}

	if raw := c.Query("adults"); raw != "" {
		adults, err := strconv.Atoi(raw)
		if err != nil || adults < 1 {
			return req, gflights.ErrInvalidAdults
		}
		req.Adults = adults
	}

	req = req.Normalize()
	return req, req.Validate()
}

func (s Server) search(c *gin.Context) {
	req, err := parseSearchRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome := s.searcher.Search(c.Request.Context(), req)
	if failure, failed := outcome.Failure(); failed {
		searchesTotal.WithLabelValues(failure.Kind.String()).Inc()
		s.tel.ReportWarning(report_api_search, c.GetString("request_id"), failure.Error())
		c.JSON(http.StatusInternalServerError, outcome)
		return
	}

	success, _ := outcome.Success()
	searchesTotal.WithLabelValues("success").Inc()
	flightsServed.Add(float64(len(success.Flights)))
	c.JSON(http.StatusOK, outcome)
}
