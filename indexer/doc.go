// Package indexer keeps a queryable SQLite copy of the registry's event log.
//
// The registry itself only answers point lookups by certificate id. The
// indexer replays the CertificateIssued, CertificateRevoked, IssuerAuthorized
// and IssuerRevoked logs into a local database so operators can list the
// certificates an issuer has produced and review how a certificate or an
// issuer's rights changed over time.
//
// Sync catches up in block ranges from the last checkpoint; Watch follows new
// logs through a subscription. Both are idempotent: events are keyed by
// transaction hash and log index.
package indexer
