package api

import (
	"net/http"
	"sync"
	"time"

	"flightscraper-backend/internal/components/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const requestIDHeader = "X-Request-ID"

const (
	report_api_request = "api.request"
	report_api_limited = "api.client-limited"
)

func requestID(tel telemetry.API) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)

		c.Next()

		tel.ReportDebug(
			report_api_request,
			id,
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
		)
	}
}

const minIdleAfter = 10 * time.Minute

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter hands every client ip its own token bucket. Buckets idle for
// longer than idleAfter are full again and get evicted.
type clientLimiter struct {
	rate      rate.Limit
	burst     int
	idleAfter time.Duration
	now       func() time.Time

	mutex     sync.Mutex
	buckets   map[string]*clientBucket
	lastSweep time.Time
}

func newClientLimiter(perSecond float64, burst int) *clientLimiter {
	idleAfter := time.Duration(float64(burst) / perSecond * float64(time.Second))
	if idleAfter < minIdleAfter {
		idleAfter = minIdleAfter
	}
	return &clientLimiter{
		rate:      rate.Limit(perSecond),
		burst:     burst,
		idleAfter: idleAfter,
		now:       time.Now,
		buckets:   map[string]*clientBucket{},
	}
}

func (l *clientLimiter) sweep(now time.Time) {
	for key, bucket := range l.buckets {
		if now.Sub(bucket.lastSeen) >= l.idleAfter {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

func (l *clientLimiter) allow(key string) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idleAfter {
		l.sweep(now)
	}

	bucket, ok := l.buckets[key]
	if !ok {
		bucket = &clientBucket{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[key] = bucket
	}
	bucket.lastSeen = now
	return bucket.limiter.AllowN(now, 1)
}

func (l *clientLimiter) size() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return len(l.buckets)
}

func (l *clientLimiter) middleware(tel telemetry.API) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !l.allow(ip) {
			clientsLimited.Inc()
			tel.ReportWarning(report_api_limited, ip)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
