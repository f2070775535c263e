package registry

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/certificate-registry/interfaces"
)

var (
	ownerAddr    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	issuerAddr   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	issuer2Addr  = common.HexToAddress("0x00000000000000000000000000000000000000b3")
	strangerAddr = common.HexToAddress("0x00000000000000000000000000000000000000c4")
)

func certRequest(id string) interfaces.CertificateRequest {
	return interfaces.CertificateRequest{
		ID:          id,
		StudentName: "Alice",
		CourseName:  "Systems 101",
		IssueDate:   "2024-01-01",
	}
}

func TestMachine_IssueThenRead(t *testing.T) {
	m := NewMachine(ownerAddr)

	ev, err := m.Issue(ownerAddr, certRequest("CERT-1"))
	require.NoError(t, err)
	assert.Equal(t, interfaces.CertificateIssued, ev.Kind)
	assert.Equal(t, "CERT-1", ev.CertificateID)
	assert.Equal(t, ownerAddr, ev.Issuer)

	valid, err := m.Verify("CERT-1")
	require.NoError(t, err)
	assert.True(t, valid)

	cert, err := m.Details("CERT-1")
	require.NoError(t, err)
	assert.Equal(t, &interfaces.Certificate{
		ID:          "CERT-1",
		StudentName: "Alice",
		CourseName:  "Systems 101",
		IssueDate:   "2024-01-01",
		Valid:       true,
		Issuer:      ownerAddr,
	}, cert)

	// Details returns a copy.
	cert.Valid = false
	valid, _ = m.Verify("CERT-1")
	assert.True(t, valid)
}

func TestMachine_DuplicateLeavesStateUntouched(t *testing.T) {
	m := NewMachine(ownerAddr)
	_, err := m.AuthorizeIssuer(ownerAddr, issuerAddr)
	require.NoError(t, err)

	_, err = m.Issue(ownerAddr, certRequest("CERT-1"))
	require.NoError(t, err)

	dup := certRequest("CERT-1")
	dup.StudentName = "Mallory"
	_, err = m.Issue(issuerAddr, dup)
	assert.ErrorIs(t, err, interfaces.ErrDuplicateID)
	assert.Equal(t, interfaces.ReasonDuplicateID, interfaces.Reason(err))

	cert, err := m.Details("CERT-1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", cert.StudentName)
	assert.Equal(t, ownerAddr, cert.Issuer)
	assert.Equal(t, 1, m.Len())
}

func TestMachine_IssueRequiresAuthorization(t *testing.T) {
	m := NewMachine(ownerAddr)

	_, err := m.Issue(strangerAddr, certRequest("CERT-1"))
	assert.ErrorIs(t, err, interfaces.ErrNotAuthorized)
	assert.Equal(t, interfaces.ReasonNotIssuer, interfaces.Reason(err))
	assert.Equal(t, 0, m.Len())
}

func TestMachine_Revoke(t *testing.T) {
	tests := []struct {
		name     string
		caller   common.Address
		wantKind interfaces.ErrorKind
	}{
		{"issuer revokes own certificate", issuerAddr, interfaces.KindUnknown},
		{"owner revokes any certificate", ownerAddr, interfaces.KindUnknown},
		{"other issuer is rejected", issuer2Addr, interfaces.KindNotAuthorized},
		{"stranger is rejected", strangerAddr, interfaces.KindNotAuthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine(ownerAddr)
			_, err := m.AuthorizeIssuer(ownerAddr, issuerAddr)
			require.NoError(t, err)
			_, err = m.AuthorizeIssuer(ownerAddr, issuer2Addr)
			require.NoError(t, err)
			_, err = m.Issue(issuerAddr, certRequest("CERT-1"))
			require.NoError(t, err)

			ev, err := m.Revoke(tt.caller, "CERT-1")
			valid, verr := m.Verify("CERT-1")
			require.NoError(t, verr)

			if tt.wantKind != interfaces.KindUnknown {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, interfaces.KindOf(err))
				assert.Equal(t, interfaces.ReasonNotRevoker, interfaces.Reason(err))
				assert.True(t, valid)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, interfaces.CertificateRevoked, ev.Kind)
			assert.Equal(t, "CERT-1", ev.CertificateID)
			assert.False(t, valid)

			cert, err := m.Details("CERT-1")
			require.NoError(t, err)
			assert.Equal(t, issuerAddr, cert.Issuer)
		})
	}
}

func TestMachine_RevokeTwice(t *testing.T) {
	m := NewMachine(ownerAddr)
	_, err := m.Issue(ownerAddr, certRequest("CERT-1"))
	require.NoError(t, err)

	_, err = m.Revoke(ownerAddr, "CERT-1")
	require.NoError(t, err)

	_, err = m.Revoke(ownerAddr, "CERT-1")
	assert.ErrorIs(t, err, interfaces.ErrAlreadyRevoked)
	assert.Equal(t, interfaces.ReasonAlreadyRevoked, interfaces.Reason(err))
}

func TestMachine_UnknownCertificate(t *testing.T) {
	m := NewMachine(ownerAddr)

	_, err := m.Verify("missing")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	_, err = m.Details("missing")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	_, err = m.Revoke(ownerAddr, "missing")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	assert.Equal(t, interfaces.ReasonNotFound, interfaces.Reason(err))
}

func TestMachine_IssuerManagement(t *testing.T) {
	m := NewMachine(ownerAddr)
	assert.True(t, m.IsAuthorizedIssuer(ownerAddr))
	assert.False(t, m.IsAuthorizedIssuer(issuerAddr))

	// Idempotent: authorizing twice succeeds and emits each time.
	for i := 0; i < 2; i++ {
		ev, err := m.AuthorizeIssuer(ownerAddr, issuerAddr)
		require.NoError(t, err)
		assert.Equal(t, interfaces.IssuerAuthorized, ev.Kind)
		assert.Equal(t, issuerAddr, ev.Issuer)
		assert.True(t, m.IsAuthorizedIssuer(issuerAddr))
	}

	_, err := m.AuthorizeIssuer(issuerAddr, issuer2Addr)
	assert.ErrorIs(t, err, interfaces.ErrNotAuthorized)
	assert.Equal(t, interfaces.ReasonOnlyOwner, interfaces.Reason(err))
	assert.False(t, m.IsAuthorizedIssuer(issuer2Addr))

	_, err = m.RevokeIssuer(strangerAddr, issuerAddr)
	assert.ErrorIs(t, err, interfaces.ErrNotAuthorized)
	assert.True(t, m.IsAuthorizedIssuer(issuerAddr))

	ev, err := m.RevokeIssuer(ownerAddr, issuerAddr)
	require.NoError(t, err)
	assert.Equal(t, interfaces.IssuerRevoked, ev.Kind)
	assert.False(t, m.IsAuthorizedIssuer(issuerAddr))

	// Revoking an address that holds no rights is a no-op success.
	_, err = m.RevokeIssuer(ownerAddr, strangerAddr)
	assert.NoError(t, err)
}

func TestMachine_OwnerCannotBeRevoked(t *testing.T) {
	for _, caller := range []common.Address{ownerAddr, issuerAddr, strangerAddr} {
		m := NewMachine(ownerAddr)
		_, err := m.AuthorizeIssuer(ownerAddr, issuerAddr)
		require.NoError(t, err)

		_, err = m.RevokeIssuer(caller, ownerAddr)
		assert.ErrorIs(t, err, interfaces.ErrCannotRevokeOwner, "caller %s", caller.Hex())
		assert.True(t, m.IsAuthorizedIssuer(ownerAddr))
	}
}

func TestMachine_Clone(t *testing.T) {
	m := NewMachine(ownerAddr)
	_, err := m.Issue(ownerAddr, certRequest("CERT-1"))
	require.NoError(t, err)

	c := m.Clone()
	_, err = c.Revoke(ownerAddr, "CERT-1")
	require.NoError(t, err)
	_, err = c.AuthorizeIssuer(ownerAddr, issuerAddr)
	require.NoError(t, err)

	valid, err := m.Verify("CERT-1")
	require.NoError(t, err)
	assert.True(t, valid)
	assert.False(t, m.IsAuthorizedIssuer(issuerAddr))
}

func TestPolicy(t *testing.T) {
	authorized := map[common.Address]bool{issuerAddr: true}
	cert := &interfaces.Certificate{ID: "CERT-1", Issuer: issuerAddr}

	assert.True(t, CanIssue(ownerAddr, authorized, ownerAddr))
	assert.True(t, CanIssue(ownerAddr, authorized, issuerAddr))
	assert.False(t, CanIssue(ownerAddr, authorized, strangerAddr))

	assert.True(t, CanRevoke(ownerAddr, ownerAddr, cert))
	assert.True(t, CanRevoke(ownerAddr, issuerAddr, cert))
	assert.False(t, CanRevoke(ownerAddr, issuer2Addr, cert))

	assert.True(t, CanManageIssuers(ownerAddr, ownerAddr))
	assert.False(t, CanManageIssuers(ownerAddr, issuerAddr))
}
