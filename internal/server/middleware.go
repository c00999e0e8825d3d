package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	testclockctx "github.com/pullpaylabs/pullpay/internal/testclock/context"
)

const headerRequestID = "X-Request-Id"

// requestID tags every request with a uuid, honoring one supplied by the
// caller so upstream proxies can correlate.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(headerRequestID, id)
		c.Writer.Header().Set(headerRequestID, id)
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString(headerRequestID)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= 500:
			s.log.Error("request", fields...)
		case c.Writer.Status() >= 400:
			s.log.Warn("request", fields...)
		default:
			s.log.Info("request", fields...)
		}
	}
}

// httpMetrics records request counts and latency per route pattern. The
// pattern, not the raw path, keeps label cardinality bounded.
func (s *Server) httpMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.HTTPRequests.WithLabelValues(
			c.Request.Method, route, strconv.Itoa(c.Writer.Status()),
		).Inc()
		s.metrics.HTTPDuration.WithLabelValues(c.Request.Method, route).
			Observe(time.Since(start).Seconds())
	}
}

const headerTestClock = "X-Test-Clock"

// testClockHeader pins the request to a test clock's frozen time. Production
// never honors the header, so simulated time cannot leak into live billing.
func (s *Server) testClockHeader() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(headerTestClock))
		if raw == "" || s.cfg.IsProduction() {
			c.Next()
			return
		}

		id, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError(headerTestClock, "invalid_test_clock", "invalid test clock id"))
			return
		}

		tc, err := s.testClockSvc.Get(c.Request.Context(), id)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := testclockctx.WithTestClock(c.Request.Context(), tc.ID, tc.FrozenTime)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// AdminRequired enforces the casbin policy for the caller's role against the
// requested path. Ownership checks stay in the services; this guards the
// admin surface only.
func (s *Server) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		allowed, err := s.enforcer.Enforce(string(id.Role), c.Request.URL.Path, c.Request.Method)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !allowed {
			AbortWithError(c, ErrForbidden)
			return
		}

		c.Next()
	}
}
