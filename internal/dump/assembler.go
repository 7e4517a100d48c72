package dump

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/compose-network/predeploy-dump/internal/logger"
	"github.com/compose-network/predeploy-dump/internal/predeploys"
	"github.com/compose-network/predeploy-dump/internal/storage"
)

const defaultConcurrency = 8

type (
	ArtifactSource interface {
		Bytecode(ctx context.Context, contract string) ([]byte, error)
	}

	LayoutSource interface {
		StorageLayout(ctx context.Context, contract string) (*storage.Layout, error)
	}

	SlotEncoder interface {
		Encode(layout *storage.Layout, values storage.Values) ([]storage.Write, error)
	}

	// Assembler builds the genesis dump of the predeploys.
	Assembler struct {
		artifacts   ArtifactSource
		layouts     LayoutSource
		encoder     SlotEncoder
		concurrency int
		logger      *slog.Logger
	}

	Option func(*Assembler)
)

// WithConcurrency bounds the number of predeploys processed at once.
func WithConcurrency(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// NewAssembler creates a new dump assembler
func NewAssembler(artifacts ArtifactSource, layouts LayoutSource, encoder SlotEncoder, opts ...Option) *Assembler {
	a := &Assembler{
		artifacts:   artifacts,
		layouts:     layouts,
		encoder:     encoder,
		concurrency: defaultConcurrency,
		logger:      logger.Named("dump_assembler"),
	}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Assemble produces one account per registry entry. It either returns a dump
// covering the whole registry or the first fault encountered, never both.
func (a *Assembler) Assemble(ctx context.Context, registry *predeploys.Registry, assignments Assignments) (Dump, error) {
	for _, name := range assignments.Contracts() {
		if !registry.Contains(name) {
			return nil, contractError(name, fmt.Errorf("%w: initial values are configured but the contract is not a registered predeploy", ErrUnknownContract))
		}
	}

	entries := registry.Entries()
	a.logger.
		With("predeploys", len(entries)).
		With("with_storage", len(assignments)).
		Info("assembling predeploy dump")

	accounts := make([]Account, len(entries))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, entry := range entries {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			account, err := a.assembleAccount(ctx, entry.Name, assignments[entry.Name])
			if err != nil {
				return contractError(entry.Name, err)
			}
			accounts[i] = account

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		a.logger.With("err", err.Error()).Error("predeploy dump assembly failed")
		return nil, err
	}

	dump := make(Dump, len(entries))
	for i, entry := range entries {
		dump[entry.Address] = accounts[i]
	}

	a.logger.With("accounts", len(dump)).Info("predeploy dump assembled")

	return dump, nil
}

func (a *Assembler) assembleAccount(ctx context.Context, name string, values storage.Values) (Account, error) {
	logger := a.logger.With("contract", name)

	code, err := a.artifacts.Bytecode(ctx, name)
	if err != nil {
		return Account{}, fmt.Errorf("%w: %w", ErrUnknownContract, err)
	}
	if len(code) == 0 {
		return Account{}, ErrMissingBytecode
	}

	account := Account{Code: code, Storage: make(SlotMap)}
	if values == nil {
		logger.Debug("no initial values, bytecode only")
		return account, nil
	}

	layout, err := a.layouts.StorageLayout(ctx, name)
	if err != nil {
		return Account{}, fmt.Errorf("%w: %w", ErrMissingLayout, err)
	}
	if err := layout.Check(values); err != nil {
		return Account{}, err
	}

	writes, err := a.encoder.Encode(layout, values)
	if err != nil {
		return Account{}, fmt.Errorf("failed to encode storage: %w", err)
	}

	slots := newSlotWriter()
	for _, w := range writes {
		if err := slots.apply(w); err != nil {
			return Account{}, err
		}
	}
	account.Storage = slots.slots

	logger.
		With("variables", len(values)).
		With("slots", len(account.Storage)).
		Debug("storage encoded")

	return account, nil
}
