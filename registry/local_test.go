package registry

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/certificate-registry/interfaces"
)

func TestLocalRegistry_NormalizesIDs(t *testing.T) {
	ctx := context.Background()
	reg := NewLocalRegistry(ownerAddr)
	owner := reg.Session(ownerAddr)

	_, err := owner.IssueCertificate(ctx, certRequest("  CERT-1 "))
	require.NoError(t, err)

	valid, err := owner.VerifyCertificate(ctx, "CERT-1")
	require.NoError(t, err)
	assert.True(t, valid)

	_, err = owner.IssueCertificate(ctx, certRequest("CERT-1"))
	assert.ErrorIs(t, err, interfaces.ErrDuplicateID)

	cert, err := owner.GetCertificateDetails(ctx, "\tCERT-1\n")
	require.NoError(t, err)
	assert.Equal(t, "CERT-1", cert.ID)
}

func TestLocalRegistry_Receipts(t *testing.T) {
	ctx := context.Background()
	reg := NewLocalRegistry(ownerAddr)
	owner := reg.Session(ownerAddr)

	r1, err := owner.IssueCertificate(ctx, certRequest("CERT-1"))
	require.NoError(t, err)
	r2, err := owner.RevokeCertificate(ctx, "CERT-1")
	require.NoError(t, err)

	assert.Equal(t, uint64(1), r1.BlockNumber)
	assert.Equal(t, uint64(2), r2.BlockNumber)
	assert.NotEqual(t, r1.TxHash, r2.TxHash)
	require.Len(t, r1.Events, 1)
	assert.Equal(t, interfaces.CertificateIssued, r1.Events[0].Kind)
	assert.Equal(t, r1.TxHash, r1.Events[0].TxHash)

	// Failed operations do not produce blocks or events.
	_, err = owner.RevokeCertificate(ctx, "CERT-1")
	assert.ErrorIs(t, err, interfaces.ErrAlreadyRevoked)

	events := reg.Events()
	require.Len(t, events, 2)
	assert.Equal(t, interfaces.CertificateRevoked, events[1].Kind)
}

func TestLocalRegistry_AbandonedBeforeAcceptance(t *testing.T) {
	reg := NewLocalRegistry(ownerAddr)
	owner := reg.Session(ownerAddr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := owner.IssueCertificate(ctx, certRequest("CERT-1"))
	assert.ErrorIs(t, err, interfaces.ErrUserRejected)

	_, err = owner.VerifyCertificate(context.Background(), "CERT-1")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestLocalRegistry_ConcurrentDuplicateIssue(t *testing.T) {
	ctx := context.Background()
	reg := NewLocalRegistry(ownerAddr)
	_, err := reg.Session(ownerAddr).AuthorizeIssuer(ctx, issuerAddr)
	require.NoError(t, err)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		dups      int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			caller := ownerAddr
			if i%2 == 1 {
				caller = issuerAddr
			}
			req := certRequest("CERT-RACE")
			req.StudentName = fmt.Sprintf("student-%d", i)
			_, err := reg.Session(caller).IssueCertificate(ctx, req)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if assert.ErrorIs(t, err, interfaces.ErrDuplicateID) {
				dups++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, dups)
}

func TestLocalRegistry_ScenarioIssueRevokeReissue(t *testing.T) {
	ctx := context.Background()
	owner := NewLocalRegistry(ownerAddr).Session(ownerAddr)

	_, err := owner.IssueCertificate(ctx, certRequest("CERT-A"))
	require.NoError(t, err)

	valid, err := owner.VerifyCertificate(ctx, "CERT-A")
	require.NoError(t, err)
	assert.True(t, valid)

	_, err = owner.RevokeCertificate(ctx, "CERT-A")
	require.NoError(t, err)

	valid, err = owner.VerifyCertificate(ctx, "CERT-A")
	require.NoError(t, err)
	assert.False(t, valid)

	_, err = owner.IssueCertificate(ctx, certRequest("CERT-A"))
	assert.ErrorIs(t, err, interfaces.ErrDuplicateID)
}

func TestLocalRegistry_ScenarioIssuerLifecycle(t *testing.T) {
	ctx := context.Background()
	reg := NewLocalRegistry(ownerAddr)
	owner := reg.Session(ownerAddr)
	issuer := reg.Session(issuerAddr)

	_, err := owner.AuthorizeIssuer(ctx, issuerAddr)
	require.NoError(t, err)

	_, err = issuer.IssueCertificate(ctx, certRequest("CERT-B"))
	require.NoError(t, err)

	_, err = owner.RevokeIssuer(ctx, issuerAddr)
	require.NoError(t, err)

	_, err = issuer.IssueCertificate(ctx, certRequest("CERT-C"))
	assert.ErrorIs(t, err, interfaces.ErrNotAuthorized)

	cert, err := issuer.GetCertificateDetails(ctx, "CERT-B")
	require.NoError(t, err)
	assert.True(t, cert.Valid)
	assert.Equal(t, issuerAddr, cert.Issuer)

	ok, err := owner.IsAuthorizedIssuer(ctx, issuerAddr)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := issuer.Owner(ctx)
	require.NoError(t, err)
	assert.Equal(t, ownerAddr, got)
}
