// Package storage provides content-addressed archival of registry receipts
// and certificate snapshots with pluggable backends.
//
// Content is identified by the SHA-256 hash of its bytes and kept in one
// namespace per content type:
//
//   - File system storage for local deployments and testing
//   - S3-compatible object storage
//   - IPFS storage through the node's mutable file system
//
// # Storage URI Format
//
//	file:///var/lib/certificate-registry/archive
//	s3://bucket-name/prefix/?region=us-west-2
//	ipfs://127.0.0.1:5001/certificate-registry?timeout=30s
//
// Multiple locations are combined into a MultiStorageBackend, which writes to
// every available backend and reads from the first one holding the content.
// Fetched content is checked against its content ID.
package storage
