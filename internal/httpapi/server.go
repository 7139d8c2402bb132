// SPDX-License-Identifier: Apache-2.0

// Package httpapi serves the REST API and the streamable MCP endpoint.
package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/rxverify/rxverify-mcp/internal/metrics"
	"github.com/rxverify/rxverify-mcp/internal/prescription"
	"github.com/rxverify/rxverify-mcp/internal/tool"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	serviceName     = "rxverify"
)

type Config struct {
	Service *tool.Service
	// MCPServer, when set, is served over streamable HTTP at /mcp.
	MCPServer *mcp.Server
	// Metrics, when set, is served at /metrics.
	Metrics      *metrics.Metrics
	Logger       *zap.Logger
	MaxBodyBytes int64
}

type handler struct {
	svc *tool.Service
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(cfg Config) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(logger), corsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": serviceName,
		})
	})
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	h := &handler{svc: cfg.Service}
	api := r.Group("/api/v1", limitBody(cfg.MaxBodyBytes))
	{
		api.POST("/prescriptions/extract", h.extract)
		api.POST("/medicines/validate", h.validateMedicine)
	}

	if cfg.MCPServer != nil {
		server := cfg.MCPServer
		mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
		r.Any("/mcp", limitBody(cfg.MaxBodyBytes), gin.WrapH(mcpHandler))
	}
	return r
}

// extract accepts either a JSON body matching the extract_prescription
// tool input or the raw OCR payload with the format in the query string.
func (h *handler) extract(c *gin.Context) {
	var in tool.InputExtractPrescription
	if strings.HasPrefix(c.ContentType(), "application/json") || c.ContentType() == "" {
		if err := c.ShouldBindJSON(&in); err != nil {
			respondBindError(c, err)
			return
		}
	} else {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			respondBindError(c, err)
			return
		}
		in = tool.InputExtractPrescription{
			Content:  string(body),
			Format:   c.Query("format"),
			SourceID: c.Query("source_id"),
		}
	}

	out, err := h.svc.Extract(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": out})
}

func (h *handler) validateMedicine(c *gin.Context) {
	var in tool.InputValidateMedicine
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}
	out, err := h.svc.ValidateMedicine(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": out})
}

func respondBindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		abort(c, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	abort(c, http.StatusBadRequest, "invalid request body: "+err.Error())
}

func respondError(c *gin.Context, err error) {
	if errors.Is(err, prescription.ErrInvalidInput) {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	abort(c, http.StatusInternalServerError, "internal error")
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success":    false,
		"error":      msg,
		"request_id": c.GetString(requestIDKey),
	})
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

// requestID echoes X-Request-ID or generates one, and puts it on the
// request context for the tool layer.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(tool.ContextWithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func limitBody(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if max > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		}
		c.Next()
	}
}

func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+requestIDHeader)
		c.Writer.Header().Set("Access-Control-Expose-Headers", requestIDHeader)
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
