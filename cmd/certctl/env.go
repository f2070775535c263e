package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/urfave/cli/v2"

	"github.com/ruteri/certificate-registry/api"
	"github.com/ruteri/certificate-registry/cmd/flags"
	"github.com/ruteri/certificate-registry/config"
	"github.com/ruteri/certificate-registry/indexer"
	"github.com/ruteri/certificate-registry/interfaces"
	"github.com/ruteri/certificate-registry/registry"
	"github.com/ruteri/certificate-registry/storage"
)

// env carries what a command needs. Ledger, archive and index connections
// are opened on first use so offline commands work without a node.
type env struct {
	ctx  context.Context
	cCtx *cli.Context
	cfg  *config.Config
	log  *slog.Logger
	out  io.Writer

	eth     *ethclient.Client
	client  *registry.OnchainRegistryClient
	archive interfaces.StorageBackend
	store   *indexer.Store
}

func withEnv(fn func(e *env) error) cli.ActionFunc {
	return func(cCtx *cli.Context) error {
		cfg, err := flags.LoadConfig(cCtx)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cCtx.Context, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e := &env{
			ctx:  ctx,
			cCtx: cCtx,
			cfg:  cfg,
			log:  flags.SetupLogger(cCtx, cfg),
			out:  cCtx.App.Writer,
		}
		defer e.close()
		return fn(e)
	}
}

func (e *env) close() {
	if e.store != nil {
		e.store.Close()
	}
	if e.eth != nil {
		e.eth.Close()
	}
}

// registry returns the on-chain client, signing with the configured key when there is one.
func (e *env) registry() (*registry.OnchainRegistryClient, error) {
	if e.client != nil {
		return e.client, nil
	}

	address, err := e.cfg.ContractAddress()
	if err != nil {
		return nil, err
	}

	eth, err := ethclient.DialContext(e.ctx, e.cfg.Ledger.RPCAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", e.cfg.Ledger.RPCAddr, err)
	}
	e.eth = eth

	readPolicy, err := e.cfg.ReadPolicy()
	if err != nil {
		return nil, err
	}
	mutationTimeout, err := e.cfg.MutationTimeout()
	if err != nil {
		return nil, err
	}

	client, err := registry.NewOnchainRegistryClient(eth, eth, address)
	if err != nil {
		return nil, fmt.Errorf("failed to bind registry: %w", err)
	}
	client = client.
		WithLogger(e.log.With("registry", address.Hex())).
		WithReadPolicy(readPolicy).
		WithGasBuffer(e.cfg.Client.GasBufferPercent).
		WithMutationTimeout(mutationTimeout)

	if e.cCtx.String(flags.KeystoreFlag.Name) != "" || e.cfg.Ledger.PrivateKey != "" {
		chainID, err := e.chainID()
		if err != nil {
			return nil, err
		}
		auth, err := flags.Transactor(e.ctx, e.cCtx, e.cfg, chainID)
		if err != nil {
			return nil, err
		}
		if auth != nil {
			client = client.WithTransactOpts(auth)
			e.log.Debug("signing transactions", "from", auth.From.Hex(), "chainID", chainID)
		}
	}

	e.client = client
	return client, nil
}

func (e *env) chainID() (*big.Int, error) {
	if e.cfg.Ledger.ChainID != 0 {
		return big.NewInt(e.cfg.Ledger.ChainID), nil
	}
	chainID, err := e.eth.ChainID(e.ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query chain id: %w", err)
	}
	return chainID, nil
}

// archiveBackend returns the configured receipt archive, or nil when none is configured.
func (e *env) archiveBackend() (interfaces.StorageBackend, error) {
	if e.archive != nil || len(e.cfg.Archive.Locations) == 0 {
		return e.archive, nil
	}
	backend, err := storage.NewStorageBackendFactory(e.log).BackendFromURIs(e.cfg.Archive.Locations)
	if err != nil {
		return nil, fmt.Errorf("failed to set up archive: %w", err)
	}
	e.archive = backend
	return backend, nil
}

func (e *env) service() (*api.Service, error) {
	client, err := e.registry()
	if err != nil {
		return nil, err
	}
	archive, err := e.archiveBackend()
	if err != nil {
		return nil, err
	}
	return api.NewService(client, archive, e.log), nil
}

func (e *env) indexStore() (*indexer.Store, error) {
	if e.store != nil {
		return e.store, nil
	}
	if e.cfg.Index.Path == "" {
		return nil, fmt.Errorf("no index configured, set --%s or index.path", flags.IndexDBFlag.Name)
	}
	store, err := indexer.Open(e.ctx, e.cfg.Index.Path, e.log)
	if err != nil {
		return nil, err
	}
	e.store = store
	return store, nil
}

func (e *env) print(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// respond prints resp and turns a failed response into a non-zero exit.
func (e *env) respond(resp *api.Response) error {
	if err := e.print(resp); err != nil {
		return err
	}
	if !resp.Success {
		return cli.Exit("", 1)
	}
	return nil
}
