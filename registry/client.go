package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ruteri/certificate-registry/bindings/certregistry"
	"github.com/ruteri/certificate-registry/interfaces"
	"github.com/ruteri/certificate-registry/txutils"
)

// ErrNoTransactOpts is returned when a transaction is attempted without first setting transaction options.
var ErrNoTransactOpts = errors.New("no authorized transactor available")

// OnchainRegistryClient implements interfaces.CertificateRegistry for a
// registry contract deployed on a ledger.
//
// Mutations are estimated, submitted with a gas safety margin and awaited
// until included. Reads are retried per the read policy to absorb propagation
// lag. Every error returned is an *interfaces.RegistryError.
//
// A client is immutable once built; the With* methods return modified copies,
// so one instance can be shared freely between goroutines.
type OnchainRegistryClient struct {
	contract *certregistry.CertRegistry
	abi      *abi.ABI
	client   bind.ContractBackend
	backend  bind.DeployBackend
	address  common.Address
	auth     *bind.TransactOpts

	gasBufferPercent uint64
	readPolicy       txutils.RetryPolicy
	mutationTimeout  time.Duration
	log              *slog.Logger
}

// NewOnchainRegistryClient creates a new client for interacting with the registry contract
// at the specified address. It requires a ContractBackend for reading from the blockchain
// and a DeployBackend for waiting on transactions.
func NewOnchainRegistryClient(client bind.ContractBackend, backend bind.DeployBackend, address common.Address) (*OnchainRegistryClient, error) {
	contract, err := certregistry.NewCertRegistry(address, client)
	if err != nil {
		return nil, err
	}
	parsed, err := certregistry.ParsedABI()
	if err != nil {
		return nil, err
	}

	return &OnchainRegistryClient{
		contract:         contract,
		abi:              parsed,
		client:           client,
		backend:          backend,
		address:          address,
		gasBufferPercent: txutils.DefaultGasBufferPercent,
		readPolicy:       txutils.DefaultReadPolicy(),
		log:              slog.Default(),
	}, nil
}

// WithTransactOpts returns a copy of the client that signs transactions with auth.
func (c *OnchainRegistryClient) WithTransactOpts(auth *bind.TransactOpts) *OnchainRegistryClient {
	cpy := *c
	cpy.auth = auth
	return &cpy
}

// WithGasBuffer returns a copy of the client adding percent to every gas estimate.
func (c *OnchainRegistryClient) WithGasBuffer(percent uint64) *OnchainRegistryClient {
	cpy := *c
	cpy.gasBufferPercent = percent
	return &cpy
}

// WithReadPolicy returns a copy of the client retrying reads per policy.
func (c *OnchainRegistryClient) WithReadPolicy(policy txutils.RetryPolicy) *OnchainRegistryClient {
	cpy := *c
	cpy.readPolicy = policy
	if cpy.readPolicy.Log == nil {
		cpy.readPolicy.Log = c.log
	}
	return &cpy
}

// WithMutationTimeout returns a copy of the client that stops waiting for a
// submitted transaction after d. The transaction may still be included later.
// Zero waits indefinitely.
func (c *OnchainRegistryClient) WithMutationTimeout(d time.Duration) *OnchainRegistryClient {
	cpy := *c
	cpy.mutationTimeout = d
	return &cpy
}

// WithLogger returns a copy of the client logging to log.
func (c *OnchainRegistryClient) WithLogger(log *slog.Logger) *OnchainRegistryClient {
	cpy := *c
	cpy.log = log
	cpy.readPolicy.Log = log
	return &cpy
}

// Address returns the registry contract address.
func (c *OnchainRegistryClient) Address() common.Address {
	return c.address
}

// Caller returns the address transactions are signed by, or the zero address for read-only clients.
func (c *OnchainRegistryClient) Caller() common.Address {
	if c.auth == nil {
		return common.Address{}
	}
	return c.auth.From
}

// IssueCertificate submits an issuance and waits for it to be included.
func (c *OnchainRegistryClient) IssueCertificate(ctx context.Context, req interfaces.CertificateRequest) (*interfaces.Receipt, error) {
	req = req.Normalized()
	return c.transact(ctx, "issueCertificate", func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.contract.IssueCertificate(opts, req.ID, req.StudentName, req.CourseName, req.IssueDate)
	}, req.ID, req.StudentName, req.CourseName, req.IssueDate)
}

// RevokeCertificate submits a revocation and waits for it to be included.
func (c *OnchainRegistryClient) RevokeCertificate(ctx context.Context, id string) (*interfaces.Receipt, error) {
	id = interfaces.NormalizeID(id)
	return c.transact(ctx, "revokeCertificate", func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.contract.RevokeCertificate(opts, id)
	}, id)
}

// AuthorizeIssuer grants issuing rights to issuer.
func (c *OnchainRegistryClient) AuthorizeIssuer(ctx context.Context, issuer common.Address) (*interfaces.Receipt, error) {
	return c.transact(ctx, "authorizeIssuer", func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.contract.AuthorizeIssuer(opts, issuer)
	}, issuer)
}

// RevokeIssuer withdraws issuing rights from issuer.
func (c *OnchainRegistryClient) RevokeIssuer(ctx context.Context, issuer common.Address) (*interfaces.Receipt, error) {
	return c.transact(ctx, "revokeIssuer", func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.contract.RevokeIssuer(opts, issuer)
	}, issuer)
}

// VerifyCertificate returns the validity of a certificate.
func (c *OnchainRegistryClient) VerifyCertificate(ctx context.Context, id string) (bool, error) {
	id = interfaces.NormalizeID(id)
	valid, err := txutils.Retry(ctx, c.readPolicy, func(ctx context.Context) (bool, error) {
		return c.contract.VerifyCertificate(c.callOpts(ctx), id)
	})
	if err != nil {
		return false, txutils.ClassifyRead(err)
	}
	return valid, nil
}

// GetCertificateDetails returns a certificate snapshot.
func (c *OnchainRegistryClient) GetCertificateDetails(ctx context.Context, id string) (*interfaces.Certificate, error) {
	id = interfaces.NormalizeID(id)
	cert, err := txutils.Retry(ctx, c.readPolicy, func(ctx context.Context) (certregistry.CertRegistryCertificate, error) {
		return c.contract.GetCertificateDetails(c.callOpts(ctx), id)
	})
	if err != nil {
		return nil, txutils.ClassifyRead(err)
	}
	return &interfaces.Certificate{
		ID:          cert.Id,
		StudentName: cert.StudentName,
		CourseName:  cert.CourseName,
		IssueDate:   cert.IssueDate,
		Valid:       cert.IsValid,
		Issuer:      cert.Issuer,
	}, nil
}

// IsAuthorizedIssuer reports whether addr may issue certificates.
func (c *OnchainRegistryClient) IsAuthorizedIssuer(ctx context.Context, addr common.Address) (bool, error) {
	ok, err := txutils.Retry(ctx, c.readPolicy, func(ctx context.Context) (bool, error) {
		return c.contract.IsAuthorizedIssuer(c.callOpts(ctx), addr)
	})
	if err != nil {
		return false, txutils.ClassifyRead(err)
	}
	return ok, nil
}

// Owner returns the registry owner.
func (c *OnchainRegistryClient) Owner(ctx context.Context) (common.Address, error) {
	owner, err := txutils.Retry(ctx, c.readPolicy, func(ctx context.Context) (common.Address, error) {
		return c.contract.Owner(c.callOpts(ctx))
	})
	if err != nil {
		return common.Address{}, txutils.ClassifyRead(err)
	}
	return owner, nil
}

func (c *OnchainRegistryClient) callOpts(ctx context.Context) *bind.CallOpts {
	return &bind.CallOpts{Context: ctx, From: c.Caller()}
}

// transact runs one mutation: estimate, buffer, sign and send, then wait for
// inclusion. A revert during estimation is reported without submitting.
func (c *OnchainRegistryClient) transact(ctx context.Context, method string, send func(*bind.TransactOpts) (*types.Transaction, error), args ...interface{}) (*interfaces.Receipt, error) {
	if c.auth == nil {
		return nil, txutils.Classify(ErrNoTransactOpts)
	}

	input, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, txutils.Classify(fmt.Errorf("encoding %s: %w", method, err))
	}

	call := ethereum.CallMsg{From: c.auth.From, To: &c.address, Data: input}
	estimate, err := c.client.EstimateGas(ctx, call)
	if err != nil {
		c.log.Debug("gas estimation failed", "method", method, "err", err)
		return nil, txutils.Classify(err)
	}

	gasLimit, err := txutils.GasWithBuffer(estimate, c.gasBufferPercent)
	if err != nil {
		return nil, txutils.Classify(err)
	}

	opts := *c.auth
	opts.Context = ctx
	opts.GasLimit = gasLimit

	start := time.Now()
	tx, err := send(&opts)
	if err != nil {
		c.log.Debug("transaction not submitted", "method", method, "err", err)
		return nil, txutils.Classify(err)
	}

	// Once accepted the transaction cannot be abandoned, only observed.
	waitCtx := context.WithoutCancel(ctx)
	if c.mutationTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(waitCtx, c.mutationTimeout)
		defer cancel()
	}
	receipt, err := bind.WaitMined(waitCtx, c.backend, tx)
	if err != nil {
		return nil, txutils.Classify(fmt.Errorf("waiting for %s: %w", tx.Hash().Hex(), err))
	}

	c.log.Info("transaction mined",
		slog.String("method", method),
		slog.String("tx", tx.Hash().Hex()),
		slog.Uint64("block", receipt.BlockNumber.Uint64()),
		slog.Uint64("status", receipt.Status),
		slog.Uint64("gasEstimate", estimate),
		slog.Uint64("gasLimit", gasLimit),
		slog.Uint64("gasUsed", receipt.GasUsed),
		slog.Duration("duration", time.Since(start)))

	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, c.failureReason(ctx, call, tx, receipt)
	}

	out := &interfaces.Receipt{
		TxHash:      tx.Hash(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasLimit:    gasLimit,
		GasUsed:     receipt.GasUsed,
	}
	for _, lg := range receipt.Logs {
		ev, err := DecodeEvent(&c.contract.CertRegistryFilterer, *lg)
		if err != nil {
			c.log.Warn("could not decode receipt log", "tx", tx.Hash().Hex(), "err", err)
			continue
		}
		out.Events = append(out.Events, ev)
	}
	return out, nil
}

// failureReason recovers why an included transaction failed by replaying it
// as a call against the state it was executed on.
func (c *OnchainRegistryClient) failureReason(ctx context.Context, call ethereum.CallMsg, tx *types.Transaction, receipt *types.Receipt) error {
	call.Gas = tx.Gas()
	if _, err := c.client.CallContract(context.WithoutCancel(ctx), call, receipt.BlockNumber); err != nil {
		if rerr := txutils.Classify(err); rerr.Kind != interfaces.KindTransientUnavailable {
			return rerr
		}
	}

	details := fmt.Sprintf("transaction %s failed in block %d", tx.Hash().Hex(), receipt.BlockNumber.Uint64())
	if receipt.GasUsed >= tx.Gas() {
		details = fmt.Sprintf("transaction %s ran out of gas (limit %d)", tx.Hash().Hex(), tx.Gas())
	}
	return &interfaces.RegistryError{Kind: interfaces.KindUnknown, Message: "Transaction failed", Details: details}
}

// RegistryFactory creates registry clients for different contract addresses,
// sharing one backend and signer.
type RegistryFactory struct {
	client  bind.ContractBackend
	backend bind.DeployBackend
	auth    *bind.TransactOpts
	log     *slog.Logger
}

// NewRegistryFactory creates a new factory for registry clients.
// auth may be nil for read-only clients.
func NewRegistryFactory(client bind.ContractBackend, backend bind.DeployBackend, auth *bind.TransactOpts, log *slog.Logger) *RegistryFactory {
	if log == nil {
		log = slog.Default()
	}
	return &RegistryFactory{client: client, backend: backend, auth: auth, log: log}
}

// RegistryFor returns a client for the registry deployed at address.
func (f *RegistryFactory) RegistryFor(address common.Address) (interfaces.CertificateRegistry, error) {
	c, err := NewOnchainRegistryClient(f.client, f.backend, address)
	if err != nil {
		return nil, err
	}
	return c.WithLogger(f.log.With("registry", address.Hex())).WithTransactOpts(f.auth), nil
}

var _ interfaces.CertificateRegistry = (*OnchainRegistryClient)(nil)
var _ interfaces.RegistryFactory = (*RegistryFactory)(nil)
