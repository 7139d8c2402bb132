// SPDX-License-Identifier: Apache-2.0

// Package tool exposes the prescription pipeline as MCP tools. The same
// Service backs the REST API and the CLI.
package tool

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rxverify/rxverify-mcp/internal/cache"
	"github.com/rxverify/rxverify-mcp/internal/metrics"
	"github.com/rxverify/rxverify-mcp/internal/prescription"
)

type Service struct {
	pipeline *prescription.Pipeline
	cache    cache.Cache
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

type Option func(*Service)

func WithCache(c cache.Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService wraps pipeline. Without options results are not cached,
// metrics are not recorded and logs are discarded.
func NewService(pipeline *prescription.Pipeline, opts ...Option) *Service {
	s := &Service{
		pipeline: pipeline,
		cache:    cache.Nop{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Pipeline() *prescription.Pipeline {
	return s.pipeline
}

type requestIDKey struct{}

// ContextWithRequestID attaches a caller-supplied request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID on ctx, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

func requestID(ctx context.Context) string {
	if id, ok := RequestIDFromContext(ctx); ok {
		return id
	}
	return uuid.NewString()
}
