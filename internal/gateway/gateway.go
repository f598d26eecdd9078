package gateway

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"codequery/internal/core"
)

// FallbackHost replaces the profile host when a connect fails with a network-class error.
const FallbackHost = "127.0.0.1"

// Client is one live database connection, used for a single logical
// operation group and then closed.
type Client interface {
	Query(ctx context.Context, query string, args ...interface{}) (*core.ResultSet, error)
	Exec(ctx context.Context, query string, args ...interface{}) (int64, error)
	// Close is safe to call more than once.
	Close() error
}

// Opener dials a connection string.
type Opener func(ctx context.Context, dsn string) (Client, error)

type Options struct {
	SSLMode        string
	ConnectTimeout int
}

// Gateway opens transient connections with a single IPv4 loopback retry.
type Gateway struct {
	open Opener
	opts Options
}

func New(opts Options) *Gateway {
	return NewWithOpener(OpenPostgres, opts)
}

func NewWithOpener(open Opener, opts Options) *Gateway {
	if opts.SSLMode == "" {
		opts.SSLMode = "disable"
	}
	return &Gateway{open: open, opts: opts}
}

// Open connects using the descriptor. Only network-class failures trigger
// the fallback, and a failed fallback reports the original error.
func (g *Gateway) Open(ctx context.Context, desc *core.ConnectionDescriptor) (Client, error) {
	log := zap.S().Named("gateway")
	if desc.IsZero() {
		return nil, core.ErrMissingParameters
	}

	dsn := BuildDSN(desc, g.opts)
	client, err := g.open(ctx, dsn)
	if err == nil {
		return client, nil
	}

	name, host, _ := desc.Label()
	log.Warnw("database connect failed", "connection", name, "host", host, "error", err)
	if !IsNetworkError(err) {
		return nil, err
	}

	client, fallbackErr := g.open(ctx, FallbackDSN(desc, g.opts))
	if fallbackErr != nil {
		log.Warnw("database connect fallback failed", "connection", name, "host", FallbackHost, "error", fallbackErr)
		return nil, err
	}
	log.Infow("database connect fallback succeeded", "connection", name, "host", FallbackHost, "form", descForm(desc))
	return client, nil
}

func descForm(desc *core.ConnectionDescriptor) string {
	if desc.Profile != nil {
		return "object"
	}
	return "string"
}

// Describe renders the descriptor target for error messages.
func Describe(desc *core.ConnectionDescriptor) string {
	name, host, db := desc.Label()
	return fmt.Sprintf("%s (%s/%s)", name, host, db)
}
