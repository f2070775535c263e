/*
Package api provides the query and verification entry point of the certificate
registry and the response shapes collaborators consume.

A Service wraps any interfaces.CertificateRegistry, either the in-process
registry or the on-chain client, and converts every outcome into a Response:

	{"success": true, "txHash": "0x...", "archiveId": "..."}
	{"success": false, "error": {"message": "Failed to issue certificate", "details": "...", "kind": "DuplicateId"}}

# Operations

  - Issue, Revoke: mutations, finalized before the response is returned
  - Verify, Details, Check: certificate reads
  - AuthorizeIssuer, RevokeIssuer, IsAuthorizedIssuer, IsOwner: issuer management
  - Health: ledger and archive reachability

# Receipt Archival

When constructed with a storage backend, the Service stores a JSON
interfaces.ArchiveRecord for every successful mutation and reports its content
ID. Archival failures are logged and never fail the mutation itself.
*/
package api
