package registry

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/ruteri/certificate-registry/interfaces"
)

// Machine is the authoritative certificate registry state and its transition
// rules. Every operation is a total function over (state, caller, args): it
// either applies completely and returns the emitted event, or fails without
// touching the state.
//
// Machine holds no lock. Its invariants (unique ids, single revocation) rely on
// operations being applied one at a time in a total order, as a ledger does.
// Any other backing store must serialize access itself; see LocalRegistry.
type Machine struct {
	owner      common.Address
	authorized map[common.Address]bool
	certs      map[string]*interfaces.Certificate
}

// NewMachine creates an empty registry owned by owner.
func NewMachine(owner common.Address) *Machine {
	return &Machine{
		owner:      owner,
		authorized: map[common.Address]bool{owner: true},
		certs:      make(map[string]*interfaces.Certificate),
	}
}

// Owner returns the registry owner.
func (m *Machine) Owner() common.Address {
	return m.owner
}

// Len returns the number of stored certificates.
func (m *Machine) Len() int {
	return len(m.certs)
}

// Issue creates a certificate issued by caller.
func (m *Machine) Issue(caller common.Address, req interfaces.CertificateRequest) (interfaces.Event, error) {
	if !CanIssue(m.owner, m.authorized, caller) {
		return interfaces.Event{}, interfaces.NewRevertError(interfaces.ReasonNotIssuer)
	}
	if _, exists := m.certs[req.ID]; exists {
		return interfaces.Event{}, interfaces.NewRevertError(interfaces.ReasonDuplicateID)
	}

	cert := &interfaces.Certificate{
		ID:          req.ID,
		StudentName: req.StudentName,
		CourseName:  req.CourseName,
		IssueDate:   req.IssueDate,
		Valid:       true,
		Issuer:      caller,
	}
	m.certs[req.ID] = cert

	snapshot := *cert
	return interfaces.Event{
		Kind:          interfaces.CertificateIssued,
		CertificateID: cert.ID,
		Certificate:   &snapshot,
		Issuer:        caller,
	}, nil
}

// Revoke invalidates a certificate. Only the owner and the original issuer may revoke.
func (m *Machine) Revoke(caller common.Address, id string) (interfaces.Event, error) {
	cert, ok := m.certs[id]
	if !ok {
		return interfaces.Event{}, interfaces.NewRevertError(interfaces.ReasonNotFound)
	}
	if !CanRevoke(m.owner, caller, cert) {
		return interfaces.Event{}, interfaces.NewRevertError(interfaces.ReasonNotRevoker)
	}
	if !cert.Valid {
		return interfaces.Event{}, interfaces.NewRevertError(interfaces.ReasonAlreadyRevoked)
	}

	cert.Valid = false
	return interfaces.Event{
		Kind:          interfaces.CertificateRevoked,
		CertificateID: id,
		Issuer:        cert.Issuer,
	}, nil
}

// Verify returns the validity of a certificate.
func (m *Machine) Verify(id string) (bool, error) {
	cert, ok := m.certs[id]
	if !ok {
		return false, interfaces.NewRevertError(interfaces.ReasonNotFound)
	}
	return cert.Valid, nil
}

// Details returns a copy of a stored certificate.
func (m *Machine) Details(id string) (*interfaces.Certificate, error) {
	cert, ok := m.certs[id]
	if !ok {
		return nil, interfaces.NewRevertError(interfaces.ReasonNotFound)
	}
	snapshot := *cert
	return &snapshot, nil
}

// AuthorizeIssuer grants issuing rights to addr. Re-authorizing is a no-op success.
func (m *Machine) AuthorizeIssuer(caller, addr common.Address) (interfaces.Event, error) {
	if !CanManageIssuers(m.owner, caller) {
		return interfaces.Event{}, interfaces.NewRevertError(interfaces.ReasonOnlyOwner)
	}
	m.authorized[addr] = true
	return interfaces.Event{Kind: interfaces.IssuerAuthorized, Issuer: addr}, nil
}

// RevokeIssuer withdraws issuing rights from addr. The owner can never be
// revoked, whoever asks. Revoking an unauthorized address is a no-op success.
func (m *Machine) RevokeIssuer(caller, addr common.Address) (interfaces.Event, error) {
	if addr == m.owner {
		return interfaces.Event{}, interfaces.NewRevertError(interfaces.ReasonCannotRevokeOwner)
	}
	if !CanManageIssuers(m.owner, caller) {
		return interfaces.Event{}, interfaces.NewRevertError(interfaces.ReasonOnlyOwner)
	}
	delete(m.authorized, addr)
	return interfaces.Event{Kind: interfaces.IssuerRevoked, Issuer: addr}, nil
}

// IsAuthorizedIssuer reports whether addr may issue certificates.
func (m *Machine) IsAuthorizedIssuer(addr common.Address) bool {
	return CanIssue(m.owner, m.authorized, addr)
}

// Clone returns a deep copy, used to dry-run operations.
func (m *Machine) Clone() *Machine {
	c := &Machine{
		owner:      m.owner,
		authorized: make(map[common.Address]bool, len(m.authorized)),
		certs:      make(map[string]*interfaces.Certificate, len(m.certs)),
	}
	for addr, ok := range m.authorized {
		c.authorized[addr] = ok
	}
	for id, cert := range m.certs {
		snapshot := *cert
		c.certs[id] = &snapshot
	}
	return c
}
