// Package ledgersim is an in-process ledger hosting certificate registry
// contracts, for tests and local runs without a node.
//
// Backend implements the go-ethereum bind.ContractBackend and
// bind.DeployBackend interfaces, so the on-chain registry client and the
// contract binding run against it unchanged. Contract execution is delegated
// to registry.Machine. Transactions must be signed for the backend's chain id;
// the sender is recovered from the signature.
//
// The ledger guarantees what the registry relies on: every transaction is
// executed atomically, in a single global order, and observes all previously
// included transactions. Reverted and out-of-gas transactions are included
// with a failed receipt and leave contract state untouched.
//
// For exercising client resilience, execution can be made more expensive than
// its estimate (SetExecutionOverhead) and read calls can be made to fail
// (FailNextCalls).
package ledgersim
