package paygate

import (
	"time"

	"github.com/vitwit/paygate/clients"
	"github.com/vitwit/paygate/events"
	"github.com/vitwit/paygate/logger"
	"github.com/vitwit/paygate/metrics"
	"github.com/vitwit/paygate/store"
)

type Option func(*Gateway)

func WithLogger(l logger.Logger) Option {
	return func(g *Gateway) {
		g.logger = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(g *Gateway) {
		g.metrics = r
	}
}

func WithTimeout(t time.Duration) Option {
	return func(g *Gateway) {
		g.timeout = t
	}
}

// WithStore replaces the default in-memory store.
func WithStore(s store.Store) Option {
	return func(g *Gateway) {
		g.store = s
	}
}

// WithChainClient skips dialling and uses c instead. The gateway takes
// ownership and closes it.
func WithChainClient(c clients.ChainClient) Option {
	return func(g *Gateway) {
		g.client = c
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(g *Gateway) {
		g.publisher = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		g.now = now
	}
}
