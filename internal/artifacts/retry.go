package artifacts

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/compose-network/predeploy-dump/internal/logger"
	"github.com/compose-network/predeploy-dump/internal/storage"
)

// ErrMalformed marks artifacts that were fetched but cannot be parsed; retrying
// would not change the outcome.
var ErrMalformed = errors.New("malformed artifact")

type (
	Source interface {
		Bytecode(ctx context.Context, contract string) ([]byte, error)
		StorageLayout(ctx context.Context, contract string) (*storage.Layout, error)
	}

	// Retrying retries transient lookup failures of the wrapped source with
	// exponential backoff. Not-found and malformed artifacts fail immediately.
	Retrying struct {
		source     Source
		maxTries   uint
		newBackOff func() backoff.BackOff
		logger     *slog.Logger
	}
)

// NewRetrying wraps source, attempting each lookup at most maxTries times
func NewRetrying(source Source, maxTries uint, initialInterval time.Duration) *Retrying {
	if maxTries == 0 {
		maxTries = 1
	}

	return &Retrying{
		source:   source,
		maxTries: maxTries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			if initialInterval > 0 {
				b.InitialInterval = initialInterval
			}
			return b
		},
		logger: logger.Named("artifacts_retry"),
	}
}

func (r *Retrying) Bytecode(ctx context.Context, contract string) ([]byte, error) {
	return retry(ctx, r, contract, "bytecode", func() ([]byte, error) {
		return r.source.Bytecode(ctx, contract)
	})
}

func (r *Retrying) StorageLayout(ctx context.Context, contract string) (*storage.Layout, error) {
	return retry(ctx, r, contract, "storage_layout", func() (*storage.Layout, error) {
		return r.source.StorageLayout(ctx, contract)
	})
}

func retry[T any](ctx context.Context, r *Retrying, contract, lookup string, fn func() (T, error)) (T, error) {
	log := r.logger.With("contract", contract).With("lookup", lookup)

	return backoff.Retry(ctx, func() (T, error) {
		result, err := fn()
		if err != nil && (errors.Is(err, ErrNotFound) || errors.Is(err, ErrMalformed)) {
			return result, backoff.Permanent(err)
		}
		return result, err
	},
		backoff.WithBackOff(r.newBackOff()),
		backoff.WithMaxTries(r.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.With("err", err.Error()).With("retry_in", next.String()).Warn("artifact lookup failed, retrying")
		}),
	)
}
