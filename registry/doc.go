// Package registry implements the certificate registry: its state machine,
// the access policy consulted by every mutation, and the clients callers use
// to reach a registry.
//
// # State machine
//
// Machine holds the owner, the authorized issuer set and the certificate map.
// Each operation either applies completely and returns the emitted event, or
// fails with an *interfaces.RegistryError without touching state:
//
//	ev, err := m.Issue(caller, req)      // NotAuthorized, DuplicateId
//	ev, err := m.Revoke(caller, id)      // NotFound, NotAuthorized, AlreadyRevoked
//	ev, err := m.RevokeIssuer(caller, a) // CannotRevokeOwner, NotAuthorized
//
// Machine assumes operations are applied one at a time in a total order and
// holds no lock of its own. On a ledger the ledger provides that order;
// LocalRegistry provides it with a mutex.
//
// # Clients
//
// All clients implement interfaces.CertificateRegistry:
//
//   - OnchainRegistryClient talks to a deployed contract through go-ethereum
//     bindings. It estimates gas and adds a safety margin before submitting,
//     waits for inclusion, recovers revert reasons of failed transactions and
//     retries reads (see package txutils).
//   - LocalSession, obtained from LocalRegistry.Session, runs the state
//     machine in memory for tests and tooling.
//   - MockRegistry is a testify mock.
//
// Identifiers are normalized by the clients before they reach the state machine.
//
// # Usage
//
//	client, err := registry.NewOnchainRegistryClient(ethClient, ethClient, contractAddr)
//	if err != nil {
//		return err
//	}
//	client = client.WithTransactOpts(auth)
//
//	receipt, err := client.IssueCertificate(ctx, interfaces.CertificateRequest{
//		ID:          "CERT-1",
//		StudentName: "Alice",
//		CourseName:  "Systems 101",
//		IssueDate:   "2024-01-01",
//	})
package registry
