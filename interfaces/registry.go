package interfaces

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// CertificateRegistry is the caller's view of the registry. Implementations are
// bound to a single caller identity; mutating methods return once the
// transition is final.
type CertificateRegistry interface {
	// Caller returns the identity mutating calls are submitted as.
	Caller() common.Address

	// IssueCertificate creates a certificate owned by the caller.
	IssueCertificate(ctx context.Context, req CertificateRequest) (*Receipt, error)

	// RevokeCertificate marks a certificate invalid. Allowed for the owner and
	// the original issuer.
	RevokeCertificate(ctx context.Context, id string) (*Receipt, error)

	// VerifyCertificate returns the current validity of a certificate.
	VerifyCertificate(ctx context.Context, id string) (bool, error)

	// GetCertificateDetails returns a snapshot of a certificate.
	GetCertificateDetails(ctx context.Context, id string) (*Certificate, error)

	// AuthorizeIssuer adds an issuer. Owner only, idempotent.
	AuthorizeIssuer(ctx context.Context, issuer common.Address) (*Receipt, error)

	// RevokeIssuer removes an issuer. Owner only, idempotent, never removes the owner.
	RevokeIssuer(ctx context.Context, issuer common.Address) (*Receipt, error)

	// IsAuthorizedIssuer reports whether addr may issue certificates.
	IsAuthorizedIssuer(ctx context.Context, addr common.Address) (bool, error)

	// Owner returns the registry owner.
	Owner(ctx context.Context) (common.Address, error)
}

// RegistryFactory creates CertificateRegistry instances for registry contract addresses.
type RegistryFactory interface {
	RegistryFor(address common.Address) (CertificateRegistry, error)
}
