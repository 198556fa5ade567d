// Package discovery dispatches catalog search queries: DSL first, full text as the fallback.
//
// The Dispatcher does not search by itself. It validates the query and paging parameters,
// calls a StructuredSearcher or FullTextSearcher, and shapes whatever rows come back into an
// Envelope. Search is the forgiving entry point: any DSL failure is retried once as a
// full-text query. SearchDSL and SearchFullText never fall back.
package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/tansaku/internal/models"
	"go.uber.org/zap"
)

// StructuredSearcher runs a DSL query. Implementations wrap ErrParse for queries they cannot
// interpret and ErrExecution for engine failures.
type StructuredSearcher interface {
	SearchDSL(ctx context.Context, query string, limit, offset int) ([]models.Row, error)
}

// FullTextSearcher runs a free-text query. Implementations wrap ErrExecution for engine failures.
type FullTextSearcher interface {
	SearchFullText(ctx context.Context, query string, excludeDeleted bool, limit, offset int) ([]models.Row, error)
}

// RequestIDFunc returns the request ID of the call carried by ctx.
type RequestIDFunc func(ctx context.Context) string

// Recorder observes dispatch results. Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveSearch(queryType string, err error)
	ObserveFallback()
}

type nopRecorder struct{}

func (nopRecorder) ObserveSearch(string, error) {}
func (nopRecorder) ObserveFallback()            {}

// Config holds the paging bounds. It is read-only once the Dispatcher is built.
type Config struct {
	MaxLimit     int
	DefaultLimit int
}

// Validate checks that the default limit is itself a valid limit.
func (c Config) Validate() error {
	if c.DefaultLimit <= 0 || c.DefaultLimit >= c.MaxLimit {
		return fmt.Errorf("default limit %d must be in (0, %d)", c.DefaultLimit, c.MaxLimit)
	}
	return nil
}

// Dispatcher is safe for concurrent use; it holds no per-request state.
type Dispatcher struct {
	config    Config
	dsl       StructuredSearcher
	fullText  FullTextSearcher
	requestID RequestIDFunc
	recorder  Recorder
	logger    *zap.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets a logger for debug output (fallbacks, collaborator failures).
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.recorder = r
		}
	}
}

// NewDispatcher creates a dispatcher. requestID may be nil, in which case envelopes carry an
// empty request ID.
func NewDispatcher(
	cfg Config,
	dsl StructuredSearcher,
	fullText FullTextSearcher,
	requestID RequestIDFunc,
	opts ...Option,
) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dispatcher config: %w", err)
	}
	if dsl == nil || fullText == nil {
		return nil, fmt.Errorf("dispatcher requires both a DSL and a full-text searcher")
	}
	if requestID == nil {
		requestID = func(context.Context) string { return "" }
	}
	d := &Dispatcher{
		config:    cfg,
		dsl:       dsl,
		fullText:  fullText,
		requestID: requestID,
		recorder:  nopRecorder{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Config returns the paging bounds the dispatcher was built with.
func (d *Dispatcher) Config() Config {
	return d.config
}

// Search runs query as DSL and, if that fails for any reason, once more as full text
// using the original limit and offset. The full-text failure, if any, is returned.
func (d *Dispatcher) Search(ctx context.Context, query string, limit, offset int) (*Envelope, error) {
	env, dslErr := d.SearchDSL(ctx, query, limit, offset)
	if dslErr == nil {
		return env, nil
	}

	d.logger.Debug("DSL query failed, falling back to full-text",
		zap.String("query", query),
		zap.Error(dslErr),
	)
	d.recorder.ObserveFallback()

	return d.SearchFullText(ctx, query, limit, offset, false)
}

// SearchDSL runs query through the DSL engine only.
func (d *Dispatcher) SearchDSL(ctx context.Context, query string, limit, offset int) (env *Envelope, err error) {
	defer func() { d.recorder.ObserveSearch(QueryTypeDSL, err) }()

	page, err := d.prepare(query, limit, offset)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("dsl search",
		zap.String("query", query),
		zap.Int("limit", page.Limit),
		zap.Int("offset", page.Offset),
	)
	rows, err := d.dsl.SearchDSL(ctx, query, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("dsl search %q: %w", query, err)
	}
	return BuildEnvelope(d.requestID(ctx), query, Structured(rows))
}

// SearchFullText runs query through the full-text engine only.
func (d *Dispatcher) SearchFullText(ctx context.Context, query string, limit, offset int, excludeDeleted bool) (env *Envelope, err error) {
	defer func() { d.recorder.ObserveSearch(QueryTypeFullText, err) }()

	page, err := d.prepare(query, limit, offset)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("full-text search",
		zap.String("query", query),
		zap.Int("limit", page.Limit),
		zap.Int("offset", page.Offset),
		zap.Bool("exclude_deleted", excludeDeleted),
	)
	rows, err := d.fullText.SearchFullText(ctx, query, excludeDeleted, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("full-text search %q: %w", query, err)
	}
	return BuildEnvelope(d.requestID(ctx), query, FullText(rows))
}

func (d *Dispatcher) prepare(query string, limit, offset int) (models.PageRequest, error) {
	if strings.TrimSpace(query) == "" {
		return models.PageRequest{}, fmt.Errorf("%w: query cannot be null or empty", ErrInvalidArgument)
	}
	return ResolvePage(limit, offset, d.config.MaxLimit, d.config.DefaultLimit)
}
