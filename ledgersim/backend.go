package ledgersim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/atomic"

	"github.com/ruteri/certificate-registry/bindings/certregistry"
	"github.com/ruteri/certificate-registry/registry"
)

// Gas schedule. Costs are fixed per method so estimates are reproducible.
const (
	TxGas         uint64 = 21_000
	CalldataGas   uint64 = 16
	BlockGasLimit uint64 = 30_000_000
)

var methodGas = map[string]uint64{
	"issueCertificate":  110_000,
	"revokeCertificate": 30_000,
	"authorizeIssuer":   26_000,
	"revokeIssuer":      24_000,
}

var (
	ErrNonceMismatch   = errors.New("invalid nonce")
	ErrIntrinsicGas    = errors.New("intrinsic gas too low")
	ErrAlreadyDeployed = errors.New("registry already deployed at address")
)

// contractCode is returned by CodeAt for deployed registries.
var contractCode = []byte{0x60, 0x80, 0x60, 0x40, 0x52}

// Backend is an in-process ledger hosting registry contracts. It implements
// bind.ContractBackend and bind.DeployBackend.
//
// All transactions are executed under one lock, one per block, in the order
// SendTransaction is called. That lock is the ledger's total order.
type Backend struct {
	mu sync.Mutex

	chainID *big.Int
	signer  types.Signer
	abi     *abi.ABI
	log     *slog.Logger

	head      uint64
	contracts map[common.Address]*registry.Machine
	nonces    map[common.Address]uint64
	receipts  map[common.Hash]*types.Receipt
	logs      []types.Log
	subs      map[*logSubscription]struct{}
	overhead  uint64

	failCalls *atomic.Int64
	failErr   *atomic.Error
	calls     *atomic.Uint64
	txs       *atomic.Uint64
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used for executed transactions.
func WithLogger(log *slog.Logger) Option {
	return func(b *Backend) {
		b.log = log
	}
}

// New creates an empty ledger for chainID.
func New(chainID *big.Int, opts ...Option) (*Backend, error) {
	parsed, err := certregistry.ParsedABI()
	if err != nil {
		return nil, fmt.Errorf("parsing registry abi: %w", err)
	}

	b := &Backend{
		chainID:   new(big.Int).Set(chainID),
		signer:    types.LatestSignerForChainID(chainID),
		abi:       parsed,
		log:       slog.Default(),
		contracts: make(map[common.Address]*registry.Machine),
		nonces:    make(map[common.Address]uint64),
		receipts:  make(map[common.Hash]*types.Receipt),
		subs:      make(map[*logSubscription]struct{}),
		failCalls: atomic.NewInt64(0),
		failErr:   atomic.NewError(nil),
		calls:     atomic.NewUint64(0),
		txs:       atomic.NewUint64(0),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Deploy creates a registry owned by owner and returns its address. The
// address is derived from the owner and its nonce, as for a contract creation.
func (b *Backend) Deploy(owner common.Address) (common.Address, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	addr := crypto.CreateAddress(owner, b.nonces[owner])
	if _, ok := b.contracts[addr]; ok {
		return common.Address{}, fmt.Errorf("%w %s", ErrAlreadyDeployed, addr.Hex())
	}
	b.nonces[owner]++
	b.contracts[addr] = registry.NewMachine(owner)
	b.head++

	b.log.Debug("registry deployed", "address", addr.Hex(), "owner", owner.Hex(), "block", b.head)
	return addr, nil
}

// SetExecutionOverhead adds gas to the cost of every executed transaction
// without changing estimates, so cost can drift between estimation and execution.
func (b *Backend) SetExecutionOverhead(gas uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overhead = gas
}

// FailNextCalls makes the next n CallContract invocations return err.
func (b *Backend) FailNextCalls(n int, err error) {
	b.failErr.Store(err)
	b.failCalls.Store(int64(n))
}

// CallCount returns the number of CallContract invocations served so far.
func (b *Backend) CallCount() uint64 {
	return b.calls.Load()
}

// TxCount returns the number of transactions included so far.
func (b *Backend) TxCount() uint64 {
	return b.txs.Load()
}

// ChainID returns the chain id transactions must be signed for.
func (b *Backend) ChainID(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(b.chainID), nil
}

// BlockNumber returns the current head.
func (b *Backend) BlockNumber(ctx context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.head, nil
}

// CodeAt returns placeholder code for deployed registries and nothing otherwise.
func (b *Backend) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.contracts[contract]; ok {
		return common.CopyBytes(contractCode), nil
	}
	return nil, nil
}

// PendingCodeAt is CodeAt against the pending state, which here is the head.
func (b *Backend) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return b.CodeAt(ctx, account, nil)
}

// CallContract executes a call against the latest state without persisting it.
func (b *Backend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	b.calls.Inc()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := b.injectedFault(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if call.To == nil {
		return nil, errors.New("contract creation is not supported")
	}
	machine, ok := b.contracts[*call.To]
	if !ok {
		return nil, nil
	}

	res, err := b.execute(machine.Clone(), call.From, call.Data)
	if err != nil {
		return nil, err
	}
	return res.output, nil
}

func (b *Backend) injectedFault() error {
	for {
		n := b.failCalls.Load()
		if n <= 0 {
			return nil
		}
		if b.failCalls.CompareAndSwap(n, n-1) {
			return b.failErr.Load()
		}
	}
}

// HeaderByNumber returns a header without a base fee, so clients build legacy transactions.
func (b *Backend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.head
	if number != nil && number.Sign() >= 0 {
		if number.Uint64() > b.head {
			return nil, ethereum.NotFound
		}
		n = number.Uint64()
	}
	return &types.Header{
		Number:     new(big.Int).SetUint64(n),
		GasLimit:   BlockGasLimit,
		Time:       n * 12,
		Difficulty: big.NewInt(0),
	}, nil
}

// PendingNonceAt returns the next nonce account must use.
func (b *Backend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nonces[account], nil
}

// SuggestGasPrice returns a fixed gas price of one gwei.
func (b *Backend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

// SuggestGasTipCap returns a fixed tip of one gwei.
func (b *Backend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

// EstimateGas dry-runs call against a copy of the latest state. A reverted
// execution fails with the revert reason attached as JSON-RPC error data.
func (b *Backend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	gas := intrinsicGas(call.Data)
	if call.To == nil {
		return gas, nil
	}
	machine, ok := b.contracts[*call.To]
	if !ok {
		return gas, nil
	}

	res, err := b.execute(machine.Clone(), call.From, call.Data)
	if err != nil {
		return 0, err
	}
	return gas + res.gas, nil
}

// SendTransaction validates tx and executes it in a new block. Reverts and
// out-of-gas executions are included with a failed receipt.
func (b *Backend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from, err := types.Sender(b.signer, tx)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if expected := b.nonces[from]; tx.Nonce() != expected {
		return fmt.Errorf("%w: have %d, want %d", ErrNonceMismatch, tx.Nonce(), expected)
	}
	intrinsic := intrinsicGas(tx.Data())
	if tx.Gas() < intrinsic {
		return fmt.Errorf("%w: have %d, want %d", ErrIntrinsicGas, tx.Gas(), intrinsic)
	}

	b.nonces[from]++
	b.head++
	b.txs.Inc()

	blockHash := blockHash(b.head)
	receipt := &types.Receipt{
		Type:              tx.Type(),
		Status:            types.ReceiptStatusSuccessful,
		TxHash:            tx.Hash(),
		GasUsed:           intrinsic,
		BlockHash:         blockHash,
		BlockNumber:       new(big.Int).SetUint64(b.head),
		TransactionIndex:  0,
		EffectiveGasPrice: tx.GasPrice(),
		Logs:              []*types.Log{},
	}

	if machine, ok := b.contracts[derefAddr(tx.To())]; ok {
		b.applyToContract(machine, from, tx, intrinsic, receipt)
	}
	receipt.CumulativeGasUsed = receipt.GasUsed
	b.receipts[tx.Hash()] = receipt

	b.log.Debug("transaction executed",
		"tx", tx.Hash().Hex(),
		"from", from.Hex(),
		"block", b.head,
		"status", receipt.Status,
		"gasUsed", receipt.GasUsed,
		"gasLimit", tx.Gas())
	return nil
}

func (b *Backend) applyToContract(machine *registry.Machine, from common.Address, tx *types.Transaction, intrinsic uint64, receipt *types.Receipt) {
	// Execute on a copy first; state is only replaced when the whole call,
	// including its gas, succeeded.
	scratch := machine.Clone()
	res, err := b.execute(scratch, from, tx.Data())
	if err != nil {
		receipt.Status = types.ReceiptStatusFailed
		receipt.GasUsed = min(tx.Gas(), intrinsic+b.overhead)
		return
	}

	required := intrinsic + res.gas + b.overhead
	if tx.Gas() < required {
		receipt.Status = types.ReceiptStatusFailed
		receipt.GasUsed = tx.Gas()
		return
	}

	b.contracts[derefAddr(tx.To())] = scratch
	receipt.GasUsed = required
	if res.log == nil {
		return
	}

	lg := *res.log
	lg.Address = derefAddr(tx.To())
	lg.BlockNumber = b.head
	lg.BlockHash = receipt.BlockHash
	lg.TxHash = tx.Hash()
	lg.TxIndex = 0
	lg.Index = 0
	b.logs = append(b.logs, lg)
	receipt.Logs = append(receipt.Logs, &lg)
	b.publish(lg)
}

// TransactionReceipt returns the receipt of an included transaction.
func (b *Backend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	receipt, ok := b.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	cpy := *receipt
	return &cpy, nil
}

// FilterLogs returns the logs matching q.
func (b *Backend) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if q.BlockHash != nil {
		var out []types.Log
		for _, lg := range b.logs {
			if lg.BlockHash == *q.BlockHash && matchAddressAndTopics(q, lg) {
				out = append(out, lg)
			}
		}
		return out, nil
	}

	from, to := uint64(0), b.head
	if q.FromBlock != nil && q.FromBlock.Sign() >= 0 {
		from = q.FromBlock.Uint64()
	}
	if q.ToBlock != nil && q.ToBlock.Sign() >= 0 {
		to = q.ToBlock.Uint64()
	}

	out := []types.Log{}
	for _, lg := range b.logs {
		if lg.BlockNumber < from || lg.BlockNumber > to {
			continue
		}
		if matchAddressAndTopics(q, lg) {
			out = append(out, lg)
		}
	}
	return out, nil
}

var _ bind.ContractBackend = (*Backend)(nil)
var _ bind.DeployBackend = (*Backend)(nil)

func intrinsicGas(data []byte) uint64 {
	return TxGas + uint64(len(data))*CalldataGas
}

func blockHash(n uint64) common.Hash {
	return crypto.Keccak256Hash([]byte("ledgersim-block"), new(big.Int).SetUint64(n).Bytes())
}

func derefAddr(addr *common.Address) common.Address {
	if addr == nil {
		return common.Address{}
	}
	return *addr
}

func matchAddressAndTopics(q ethereum.FilterQuery, lg types.Log) bool {
	if len(q.Addresses) > 0 {
		found := false
		for _, addr := range q.Addresses {
			if addr == lg.Address {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(q.Topics) > len(lg.Topics) {
		return false
	}
	for i, alternatives := range q.Topics {
		if len(alternatives) == 0 {
			continue
		}
		match := false
		for _, topic := range alternatives {
			if topic == lg.Topics[i] {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	return true
}
