// Package appctx provides the application context that holds all runtime dependencies.
package appctx

import (
	"media-fetch-go/pkg/config"
	"media-fetch-go/pkg/fetcher"
	"media-fetch-go/pkg/logging"
	"media-fetch-go/pkg/metrics"
)

// Context holds all application runtime dependencies.
// Pass this single struct to components instead of individual parameters.
type Context struct {
	Config  *config.Config
	Log     *logging.Logger
	Fetcher *fetcher.Service
	Metrics *metrics.Metrics
}

// New creates a new application context.
func New(cfg *config.Config, log *logging.Logger) *Context {
	return &Context{
		Config: cfg,
		Log:    log,
	}
}

// WithFetcher sets the extraction gateway.
func (c *Context) WithFetcher(f *fetcher.Service) *Context {
	c.Fetcher = f
	return c
}

// WithMetrics sets the metrics collectors.
func (c *Context) WithMetrics(m *metrics.Metrics) *Context {
	c.Metrics = m
	return c
}
