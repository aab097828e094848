package httpserver

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mailhook/internal/entrypoint"
)

const maxBodyBytes = 1 << 20

// Handler is a synchronous entry point.
type Handler interface {
	Handle(ctx context.Context, req entrypoint.Request) entrypoint.Response
}

// ReadinessCheck reports whether a dependency is usable.
type ReadinessCheck func(ctx context.Context) error

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	gmailHandler Handler,
	chatHandler Handler,
	checks map[string]ReadinessCheck,
	logger *zap.Logger,
) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), MetricsMiddleware(), LoggerMiddleware(logger))

	// Health endpoints
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		for name, check := range checks {
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": name + "_not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/gmail", adapt(gmailHandler))
	r.OPTIONS("/gmail", preflight)
	if chatHandler != nil {
		r.POST("/chat", adapt(chatHandler))
		r.OPTIONS("/chat", preflight)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(":" + port)
}

// adapt serves an entry point over HTTP. The handler's status, headers and
// body are passed through unchanged.
func adapt(h Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
		if err != nil {
			writeResponse(c, entrypoint.BadRequest("failed to read request body"))
			return
		}
		writeResponse(c, h.Handle(c.Request.Context(), entrypoint.Request{Body: string(body)}))
	}
}

func writeResponse(c *gin.Context, resp entrypoint.Response) {
	for k, v := range resp.Headers {
		c.Header(k, v)
	}
	c.Data(resp.StatusCode, resp.Headers["Content-Type"], []byte(resp.Body))
}

func preflight(c *gin.Context) {
	for k, v := range entrypoint.CORSHeaders() {
		c.Header(k, v)
	}
	c.Status(http.StatusNoContent)
}
