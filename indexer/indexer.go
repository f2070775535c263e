package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ruteri/certificate-registry/bindings/certregistry"
	"github.com/ruteri/certificate-registry/interfaces"
	"github.com/ruteri/certificate-registry/registry"
	"github.com/ruteri/certificate-registry/txutils"
)

// DefaultBatchSize is the number of blocks requested per log query.
const DefaultBatchSize = 5000

// ChainReader is the part of a ledger client the indexer needs.
type ChainReader interface {
	bind.ContractFilterer
	BlockNumber(ctx context.Context) (uint64, error)
}

// Indexer copies registry events from the ledger into a Store.
type Indexer struct {
	chain      ChainReader
	filterer   *certregistry.CertRegistryFilterer
	store      *Store
	startBlock uint64
	batchSize  uint64
	readPolicy txutils.RetryPolicy
	log        *slog.Logger
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithStartBlock sets the first block scanned when the store is empty,
// typically the registry's deployment block.
func WithStartBlock(block uint64) Option {
	return func(ix *Indexer) { ix.startBlock = block }
}

// WithBatchSize sets the number of blocks requested per log query.
func WithBatchSize(size uint64) Option {
	return func(ix *Indexer) {
		if size > 0 {
			ix.batchSize = size
		}
	}
}

// WithReadPolicy sets the retry policy used for ledger reads.
func WithReadPolicy(policy txutils.RetryPolicy) Option {
	return func(ix *Indexer) { ix.readPolicy = policy }
}

// New creates an indexer for the registry at address.
func New(chain ChainReader, address common.Address, store *Store, log *slog.Logger, opts ...Option) (*Indexer, error) {
	filterer, err := certregistry.NewCertRegistryFilterer(address, chain)
	if err != nil {
		return nil, fmt.Errorf("failed to bind registry filterer: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}

	ix := &Indexer{
		chain:      chain,
		filterer:   filterer,
		store:      store,
		batchSize:  DefaultBatchSize,
		readPolicy: txutils.DefaultReadPolicy(),
		log:        log,
	}
	for _, opt := range opts {
		opt(ix)
	}
	ix.readPolicy.Log = log
	return ix, nil
}

// Sync indexes every registry event between the last checkpoint and the
// current head. It returns the number of newly recorded events.
func (ix *Indexer) Sync(ctx context.Context) (int, error) {
	head, err := txutils.Retry(ctx, ix.readPolicy, func(ctx context.Context) (uint64, error) {
		return ix.chain.BlockNumber(ctx)
	})
	if err != nil {
		return 0, txutils.ClassifyRead(err).WithMessage("Failed to read ledger head")
	}

	from := ix.startBlock
	last, ok, err := ix.store.LastBlock(ctx)
	if err != nil {
		return 0, err
	}
	if ok {
		from = last + 1
	}

	total := 0
	for from <= head {
		to := min(from+ix.batchSize-1, head)

		logs, err := txutils.Retry(ctx, ix.readPolicy, func(ctx context.Context) ([]types.Log, error) {
			return ix.filterer.FilterRegistryLogs(&bind.FilterOpts{Start: from, End: &to, Context: ctx})
		})
		if err != nil {
			return total, txutils.ClassifyRead(err).WithMessage("Failed to fetch registry events")
		}

		events, err := ix.decode(logs)
		if err != nil {
			return total, err
		}

		n, err := ix.store.SaveEvents(ctx, events, to)
		if err != nil {
			return total, err
		}
		total += n

		ix.log.Info("indexed block range", "from", from, "to", to, "events", len(events), "new", n)
		from = to + 1
	}
	return total, nil
}

// Watch indexes events as they are emitted until ctx is done or the
// subscription fails. Once subscribed it syncs up to the current head, so
// events emitted before the subscription started are not missed; logs seen
// by both paths are stored once.
func (ix *Indexer) Watch(ctx context.Context) error {
	logs := make(chan types.Log, 64)
	sub, err := ix.filterer.WatchRegistryLogs(&bind.WatchOpts{Context: ctx}, logs)
	if err != nil {
		return txutils.Classify(err).WithMessage("Failed to subscribe to registry events")
	}
	defer sub.Unsubscribe()

	n, err := ix.Sync(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	ix.log.Debug("caught up before watching", "new", n)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			if err == nil || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("registry event subscription failed: %w", err)
		case lg := <-logs:
			if lg.Removed {
				ix.log.Warn("ignoring removed log", "txHash", lg.TxHash.Hex(), "block", lg.BlockNumber)
				continue
			}
			events, err := ix.decode([]types.Log{lg})
			if err != nil {
				return err
			}
			// The checkpoint only advances to the previous block, since later
			// logs of the same block may still arrive.
			syncedTo := uint64(0)
			if lg.BlockNumber > 0 {
				syncedTo = lg.BlockNumber - 1
			}
			if _, err := ix.store.SaveEvents(ctx, events, syncedTo); err != nil {
				return err
			}
		}
	}
}

func (ix *Indexer) decode(logs []types.Log) ([]interfaces.Event, error) {
	events := make([]interfaces.Event, 0, len(logs))
	for _, lg := range logs {
		ev, err := registry.DecodeEvent(ix.filterer, lg)
		if errors.Is(err, certregistry.ErrUnknownEvent) {
			ix.log.Debug("skipping unknown log", "txHash", lg.TxHash.Hex(), "index", lg.Index)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode log %s/%d: %w", lg.TxHash.Hex(), lg.Index, err)
		}
		events = append(events, ev)
	}
	return events, nil
}
