package registry

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ruteri/certificate-registry/interfaces"
)

// LocalRegistry keeps the registry in process memory instead of on a ledger.
// A single lock stands in for the ledger's total order: every mutation holds
// it exclusively, which provides the per-id mutual exclusion the uniqueness
// and single-revocation invariants need.
type LocalRegistry struct {
	mutex   sync.RWMutex
	machine *Machine
	block   uint64
	events  []interfaces.Event
}

// NewLocalRegistry creates an empty in-memory registry owned by owner.
func NewLocalRegistry(owner common.Address) *LocalRegistry {
	return &LocalRegistry{
		machine: NewMachine(owner),
	}
}

// Session returns a CertificateRegistry bound to caller.
func (r *LocalRegistry) Session(caller common.Address) *LocalSession {
	return &LocalSession{registry: r, caller: caller}
}

// Events returns every event emitted so far, in order.
func (r *LocalRegistry) Events() []interfaces.Event {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make([]interfaces.Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *LocalRegistry) apply(ctx context.Context, op string, fn func(m *Machine) (interfaces.Event, error)) (*interfaces.Receipt, error) {
	// Abandoning is only possible before the operation is accepted.
	if err := ctx.Err(); err != nil {
		return nil, &interfaces.RegistryError{Kind: interfaces.KindUserRejected, Message: interfaces.ErrUserRejected.Message, Details: err.Error(), Err: err}
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	event, err := fn(r.machine)
	if err != nil {
		return nil, err
	}

	r.block++
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], r.block)
	txHash := crypto.Keccak256Hash(seq[:], []byte(op), []byte(event.CertificateID), event.Issuer.Bytes())

	event.TxHash = txHash
	event.BlockNumber = r.block
	r.events = append(r.events, event)

	return &interfaces.Receipt{
		TxHash:      txHash,
		BlockNumber: r.block,
		Events:      []interfaces.Event{event},
	}, nil
}

func (r *LocalRegistry) read(fn func(m *Machine) error) error {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return fn(r.machine)
}

// LocalSession is a LocalRegistry seen by one caller.
type LocalSession struct {
	registry *LocalRegistry
	caller   common.Address
}

// Caller returns the identity this session acts as.
func (s *LocalSession) Caller() common.Address {
	return s.caller
}

// IssueCertificate creates a certificate issued by the session caller.
func (s *LocalSession) IssueCertificate(ctx context.Context, req interfaces.CertificateRequest) (*interfaces.Receipt, error) {
	req = req.Normalized()
	return s.registry.apply(ctx, "issueCertificate", func(m *Machine) (interfaces.Event, error) {
		return m.Issue(s.caller, req)
	})
}

// RevokeCertificate revokes a certificate.
func (s *LocalSession) RevokeCertificate(ctx context.Context, id string) (*interfaces.Receipt, error) {
	id = interfaces.NormalizeID(id)
	return s.registry.apply(ctx, "revokeCertificate", func(m *Machine) (interfaces.Event, error) {
		return m.Revoke(s.caller, id)
	})
}

// VerifyCertificate returns the validity of a certificate.
func (s *LocalSession) VerifyCertificate(ctx context.Context, id string) (bool, error) {
	id = interfaces.NormalizeID(id)
	var valid bool
	err := s.registry.read(func(m *Machine) error {
		var err error
		valid, err = m.Verify(id)
		return err
	})
	return valid, err
}

// GetCertificateDetails returns a certificate snapshot.
func (s *LocalSession) GetCertificateDetails(ctx context.Context, id string) (*interfaces.Certificate, error) {
	id = interfaces.NormalizeID(id)
	var cert *interfaces.Certificate
	err := s.registry.read(func(m *Machine) error {
		var err error
		cert, err = m.Details(id)
		return err
	})
	return cert, err
}

// AuthorizeIssuer grants issuing rights to issuer.
func (s *LocalSession) AuthorizeIssuer(ctx context.Context, issuer common.Address) (*interfaces.Receipt, error) {
	return s.registry.apply(ctx, "authorizeIssuer", func(m *Machine) (interfaces.Event, error) {
		return m.AuthorizeIssuer(s.caller, issuer)
	})
}

// RevokeIssuer withdraws issuing rights from issuer.
func (s *LocalSession) RevokeIssuer(ctx context.Context, issuer common.Address) (*interfaces.Receipt, error) {
	return s.registry.apply(ctx, "revokeIssuer", func(m *Machine) (interfaces.Event, error) {
		return m.RevokeIssuer(s.caller, issuer)
	})
}

// IsAuthorizedIssuer reports whether addr may issue certificates.
func (s *LocalSession) IsAuthorizedIssuer(ctx context.Context, addr common.Address) (bool, error) {
	var ok bool
	err := s.registry.read(func(m *Machine) error {
		ok = m.IsAuthorizedIssuer(addr)
		return nil
	})
	return ok, err
}

// Owner returns the registry owner.
func (s *LocalSession) Owner(ctx context.Context) (common.Address, error) {
	var owner common.Address
	err := s.registry.read(func(m *Machine) error {
		owner = m.Owner()
		return nil
	})
	return owner, err
}

var _ interfaces.CertificateRegistry = (*LocalSession)(nil)
