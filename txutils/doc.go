// Package txutils is the client side reliability layer for talking to the
// registry over an asynchronously confirmed ledger.
//
// It provides a bounded retry combinator for reads, the gas safety margin
// applied to estimates before submission, and Classify, which turns opaque
// go-ethereum and JSON-RPC failures into the interfaces error taxonomy.
// It makes no authorization decisions.
package txutils
