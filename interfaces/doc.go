// Package interfaces defines core interfaces and types for the certificate
// registry, separating interface definitions from implementations.
//
// # Registry Interfaces
//
// CertificateRegistry: the caller's view of the registry (issue, revoke,
// verify, details, issuer management). Implemented by the on-chain client in
// package registry and by the in-process LocalRegistry.
//
// RegistryFactory: creates CertificateRegistry instances per contract address.
//
// # Error Taxonomy
//
// Every failure surfaced to a caller is a *RegistryError carrying an
// ErrorKind, a short message and a details string. Kinds correspond to
// policy rejections (NotAuthorized), state machine invariant violations
// (DuplicateId, NotFound, AlreadyRevoked, CannotRevokeOwner) and transport
// conditions (UserRejected, TransientUnavailable, NumericOverflow, Unknown).
// The package-level sentinels match by kind:
//
//	if errors.Is(err, interfaces.ErrDuplicateID) { ... }
//
// # Storage Interfaces
//
// StorageBackend: content-addressed storage used to archive receipts of
// finalized mutations (file, S3, IPFS).
//
// StorageBackendFactory: creates storage backends from URI strings and
// aggregates them for redundant storage.
package interfaces
