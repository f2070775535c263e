package indexer

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/certificate-registry/bindings/certregistry"
	"github.com/ruteri/certificate-registry/interfaces"
	"github.com/ruteri/certificate-registry/ledgersim"
	"github.com/ruteri/certificate-registry/txutils"
)

type chainFixture struct {
	backend  *ledgersim.Backend
	address  common.Address
	contract *certregistry.CertRegistry
	owner    *bind.TransactOpts
	issuer   *bind.TransactOpts
}

func newTransactor(t *testing.T, chainID *big.Int) *bind.TransactOpts {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	auth, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	require.NoError(t, err)
	return auth
}

func setupChain(t *testing.T) *chainFixture {
	t.Helper()
	chainID := big.NewInt(1337)
	backend, err := ledgersim.New(chainID, ledgersim.WithLogger(testLogger()))
	require.NoError(t, err)

	owner := newTransactor(t, chainID)
	address, err := backend.Deploy(owner.From)
	require.NoError(t, err)
	contract, err := certregistry.NewCertRegistry(address, backend)
	require.NoError(t, err)

	return &chainFixture{
		backend:  backend,
		address:  address,
		contract: contract,
		owner:    owner,
		issuer:   newTransactor(t, chainID),
	}
}

func (f *chainFixture) mine(t *testing.T, tx *types.Transaction, err error) {
	t.Helper()
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	receipt, err := bind.WaitMined(ctx, f.backend, tx)
	require.NoError(t, err)
	require.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "index.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestIndexer_Sync(t *testing.T) {
	chain := setupChain(t)
	store := openTestStore(t)
	ctx := context.Background()

	ix, err := New(chain.backend, chain.address, store, testLogger(),
		WithBatchSize(2),
		WithReadPolicy(txutils.RetryPolicy{Attempts: 3, Delay: 10 * time.Millisecond, Retryable: txutils.IsRetryableRead}))
	require.NoError(t, err)

	tx, err := chain.contract.AuthorizeIssuer(chain.owner, chain.issuer.From)
	chain.mine(t, tx, err)
	tx, err = chain.contract.IssueCertificate(chain.issuer, "CERT-1", "Alice", "Systems 101", "2024-01-01")
	chain.mine(t, tx, err)
	tx, err = chain.contract.IssueCertificate(chain.issuer, "CERT-2", "Bob", "Systems 101", "2024-01-02")
	chain.mine(t, tx, err)
	tx, err = chain.contract.RevokeCertificate(chain.owner, "CERT-1")
	chain.mine(t, tx, err)

	n, err := ix.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	head, err := chain.backend.BlockNumber(ctx)
	require.NoError(t, err)
	last, ok, err := store.LastBlock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, head, last)

	certs, err := store.ListByIssuer(ctx, chain.issuer.From)
	require.NoError(t, err)
	require.Len(t, certs, 2)
	assert.Equal(t, "CERT-1", certs[0].ID)
	assert.False(t, certs[0].Valid)
	assert.Equal(t, "CERT-2", certs[1].ID)
	assert.True(t, certs[1].Valid)

	history, err := store.History(ctx, "CERT-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, interfaces.CertificateIssued, history[0].Kind)
	assert.Equal(t, interfaces.CertificateRevoked, history[1].Kind)

	// A second sync with no new blocks records nothing.
	n, err = ix.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	tx, err = chain.contract.RevokeIssuer(chain.owner, chain.issuer.From)
	chain.mine(t, tx, err)
	n, err = ix.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	issuerHistory, err := store.IssuerHistory(ctx, chain.issuer.From)
	require.NoError(t, err)
	require.Len(t, issuerHistory, 2)
	assert.Equal(t, interfaces.IssuerAuthorized, issuerHistory[0].Kind)
	assert.Equal(t, interfaces.IssuerRevoked, issuerHistory[1].Kind)
}

func TestIndexer_Watch(t *testing.T) {
	chain := setupChain(t)
	store := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ix, err := New(chain.backend, chain.address, store, testLogger())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- ix.Watch(ctx) }()

	// Wait for the subscription before emitting.
	require.Eventually(t, func() bool {
		tx, err := chain.contract.AuthorizeIssuer(chain.owner, chain.issuer.From)
		if err != nil {
			return false
		}
		chain.mine(t, tx, nil)
		events, err := store.IssuerHistory(ctx, chain.issuer.From)
		return err == nil && len(events) > 0
	}, 5*time.Second, 50*time.Millisecond)

	tx, err := chain.contract.IssueCertificate(chain.issuer, "CERT-1", "Alice", "Systems 101", "2024-01-01")
	chain.mine(t, tx, err)

	require.Eventually(t, func() bool {
		certs, err := store.ListByIssuer(ctx, chain.issuer.From)
		return err == nil && len(certs) == 1
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestIndexer_WatchCatchesUpAfterSync(t *testing.T) {
	chain := setupChain(t)
	store := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ix, err := New(chain.backend, chain.address, store, testLogger())
	require.NoError(t, err)

	_, err = ix.Sync(ctx)
	require.NoError(t, err)

	// Emitted after the sync but before anyone is subscribed.
	tx, err := chain.contract.IssueCertificate(chain.owner, "GAP-1", "Alice", "Systems 101", "2024-01-01")
	chain.mine(t, tx, err)

	done := make(chan error, 1)
	go func() { done <- ix.Watch(ctx) }()

	tx, err = chain.contract.IssueCertificate(chain.owner, "AFTER-1", "Bob", "Systems 101", "2024-01-02")
	chain.mine(t, tx, err)

	ids := func() ([]string, error) {
		certs, err := store.ListByIssuer(context.Background(), chain.owner.From)
		if err != nil {
			return nil, err
		}
		var out []string
		for _, cert := range certs {
			out = append(out, cert.ID)
		}
		return out, nil
	}
	require.Eventually(t, func() bool {
		got, err := ids()
		return err == nil && len(got) == 2
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}

	_, err = ix.Sync(context.Background())
	require.NoError(t, err)
	got, err := ids()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"GAP-1", "AFTER-1"}, got)
}
