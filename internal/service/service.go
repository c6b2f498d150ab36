package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/metrics"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
	"github.com/google/uuid"
)

// BracketCache stores assembled brackets per tournament. Implementations
// report a miss as (nil, false, nil). SetBracket must drop the write when
// InvalidateBracket ran after version was read from BracketVersion.
type BracketCache interface {
	GetBracket(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Stage, bool, error)
	BracketVersion(ctx context.Context, tournamentID uuid.UUID) (int64, error)
	SetBracket(ctx context.Context, tournamentID uuid.UUID, version int64, stages []bracket.Stage) error
	InvalidateBracket(ctx context.Context, tournamentID uuid.UUID) error
}

type options struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	cache   BracketCache
}

type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithCache enables the bracket read cache. Every committed write invalidates it.
func WithCache(c BracketCache) Option {
	return func(o *options) { o.cache = c }
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// invalidate drops the cached bracket. A failure only costs a stale read until the TTL.
func (o options) invalidate(ctx context.Context, tournamentID uuid.UUID) {
	if o.cache == nil {
		return
	}
	if err := o.cache.InvalidateBracket(ctx, tournamentID); err != nil {
		o.logger.Warn("failed to invalidate cached bracket", "tournament_id", tournamentID, "error", err)
	}
}

func lookupError(err error, what string, id uuid.UUID) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", bracket.ErrNotFound, what, id)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

// guardError turns a lost compare-and-set into a conflict described by msg.
func guardError(err error, msg string) error {
	if errors.Is(err, store.ErrNoRowsAffected) {
		return fmt.Errorf("%w: %s", bracket.ErrConflict, msg)
	}
	return err
}
