package txutils

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/ruteri/certificate-registry/interfaces"
)

var knownReasons = []string{
	interfaces.ReasonNotIssuer,
	interfaces.ReasonOnlyOwner,
	interfaces.ReasonNotRevoker,
	interfaces.ReasonDuplicateID,
	interfaces.ReasonNotFound,
	interfaces.ReasonAlreadyRevoked,
	interfaces.ReasonCannotRevokeOwner,
}

// Message shapes used by nodes and wallets to report a revert.
var revertPrefixes = []string{
	"execution reverted: ",
	"reverted with reason string ",
	"VM Exception while processing transaction: revert ",
	"revert ",
}

// Classify maps an error returned by the ledger transport into the registry
// error taxonomy. Errors that already are *RegistryError are returned as is.
func Classify(err error) *interfaces.RegistryError {
	if err == nil {
		return nil
	}

	var rerr *interfaces.RegistryError
	if errors.As(err, &rerr) {
		return rerr
	}

	if reason, ok := RevertReason(err); ok {
		out := interfaces.NewRevertError(reason)
		out.Err = err
		return out
	}

	msg := err.Error()
	switch {
	case isUserRejection(err, msg):
		return &interfaces.RegistryError{
			Kind:    interfaces.KindUserRejected,
			Message: interfaces.ErrUserRejected.Message,
			Details: "Transaction was rejected by the signer",
			Err:     err,
		}
	case isNumericOverflow(msg):
		return &interfaces.RegistryError{
			Kind:    interfaces.KindNumericOverflow,
			Message: interfaces.ErrNumericOverflow.Message,
			Details: msg,
			Err:     err,
		}
	case isTransient(err, msg):
		return &interfaces.RegistryError{
			Kind:    interfaces.KindTransientUnavailable,
			Message: interfaces.ErrTransientUnavailable.Message,
			Details: msg,
			Err:     err,
		}
	}

	return &interfaces.RegistryError{Kind: interfaces.KindUnknown, Message: msg, Details: msg, Err: err}
}

// ClassifyRead is Classify for failed reads. A cancelled read is reported
// as abandoned by the caller without mentioning a transaction.
func ClassifyRead(err error) *interfaces.RegistryError {
	out := Classify(err)
	if out != nil && out.Kind == interfaces.KindUserRejected && errors.Is(err, context.Canceled) {
		return &interfaces.RegistryError{
			Kind:    interfaces.KindUserRejected,
			Message: "Request cancelled",
			Details: "The read was cancelled before it completed",
			Err:     err,
		}
	}
	return out
}

// IsRetryableRead reports whether a failed read may succeed on another attempt.
// NotFound is included since it cannot be told apart from propagation lag
// right after a write.
func IsRetryableRead(err error) bool {
	switch Classify(err).Kind {
	case interfaces.KindTransientUnavailable, interfaces.KindNotFound:
		return true
	default:
		return false
	}
}

// IsTransient reports whether err is a transport failure.
func IsTransient(err error) bool {
	return Classify(err).Kind == interfaces.KindTransientUnavailable
}

// RevertReason extracts the human readable revert reason from err, looking at
// JSON-RPC revert data first and then at the known message shapes.
func RevertReason(err error) (string, bool) {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if reason, ok := unpackRevertData(dataErr.ErrorData()); ok {
			return reason, true
		}
	}

	msg := err.Error()
	for _, reason := range knownReasons {
		if strings.Contains(msg, reason) {
			return reason, true
		}
	}
	for _, prefix := range revertPrefixes {
		if i := strings.Index(msg, prefix); i >= 0 {
			reason := strings.Trim(strings.TrimSpace(msg[i+len(prefix):]), "'\"")
			if reason != "" {
				return reason, true
			}
		}
	}
	return "", false
}

func unpackRevertData(data interface{}) (string, bool) {
	var raw []byte
	switch v := data.(type) {
	case string:
		decoded, err := hexutil.Decode(v)
		if err != nil {
			return "", false
		}
		raw = decoded
	case []byte:
		raw = v
	default:
		return "", false
	}

	reason, err := abi.UnpackRevert(raw)
	if err != nil || reason == "" {
		return "", false
	}
	return reason, true
}

func isUserRejection(err error, msg string) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "user denied") || strings.Contains(lower, "user rejected")
}

func isNumericOverflow(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "can't convert bigint") ||
		strings.Contains(lower, "overflow") ||
		strings.Contains(lower, "exceeds uint64")
}

func isTransient(err error, msg string) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ethereum.NotFound) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500 || httpErr.StatusCode == 429
	}

	lower := strings.ToLower(msg)
	for _, s := range []string{"connection refused", "connection reset", "header not found", "missing trie node", "timeout", "temporarily unavailable"} {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
