package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ignatij/kyubey/internal/metrics"
	"github.com/ignatij/kyubey/pkg/service"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var errRouteNotFound = errors.New("route not found")

// badRequest marks an error caused by malformed request parameters.
type badRequest struct {
	msg string
}

func (e badRequest) Error() string {
	return e.msg
}

func observeRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

func logRequests(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request served")
	}
}

// statusFor maps the service error taxonomy onto HTTP status codes.
func statusFor(err error) (int, string) {
	var br badRequest
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest, br.msg
	case errors.Is(err, errRouteNotFound):
		return http.StatusNotFound, "Page not found"
	case errors.Is(err, service.ErrNoAttempts):
		return http.StatusNotFound, "No logs yet"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, service.ErrNoParentSystem):
		return http.StatusConflict, "No parent system found"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// renderErrors turns the last error attached by a handler into a response.
// Internal failures were already logged by the service; details never reach the client.
func renderErrors(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status, msg := statusFor(err)
		if status == http.StatusInternalServerError && !errors.Is(err, service.ErrInternal) {
			logger.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		}

		switch {
		case strings.HasPrefix(c.Request.URL.Path, "/api/"):
			c.JSON(status, gin.H{"error": msg})
		case strings.HasPrefix(c.Request.URL.Path, "/component/"):
			c.String(status, msg)
		default:
			c.HTML(status, "error.html", gin.H{
				"Title":   http.StatusText(status),
				"Crumbs":  Crumbs{},
				"Status":  status,
				"Message": msg,
			})
		}
	}
}
