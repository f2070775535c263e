package interfaces

import (
	"errors"
	"strings"
)

// ErrorKind classifies every failure the registry can surface to a caller.
type ErrorKind int

const (
	// KindUnknown is an unclassified failure; its message is passed through verbatim.
	KindUnknown ErrorKind = iota
	// KindNotAuthorized is a policy rejection.
	KindNotAuthorized
	// KindDuplicateID means the certificate id is already taken.
	KindDuplicateID
	// KindNotFound means the certificate id does not exist.
	KindNotFound
	// KindAlreadyRevoked means the certificate was revoked before.
	KindAlreadyRevoked
	// KindCannotRevokeOwner means the owner's issuing rights were targeted.
	KindCannotRevokeOwner
	// KindUserRejected means the caller abandoned a pending submission.
	KindUserRejected
	// KindTransientUnavailable is a transport or propagation failure and may be retried.
	KindTransientUnavailable
	// KindNumericOverflow means a value exceeded its representable range.
	KindNumericOverflow
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotAuthorized:
		return "NotAuthorized"
	case KindDuplicateID:
		return "DuplicateId"
	case KindNotFound:
		return "NotFound"
	case KindAlreadyRevoked:
		return "AlreadyRevoked"
	case KindCannotRevokeOwner:
		return "CannotRevokeOwner"
	case KindUserRejected:
		return "UserRejected"
	case KindTransientUnavailable:
		return "TransientUnavailable"
	case KindNumericOverflow:
		return "NumericOverflow"
	default:
		return "Unknown"
	}
}

// Deterministic reports whether failures of this kind are invariant or policy
// violations that would fail again with the same input.
func (k ErrorKind) Deterministic() bool {
	switch k {
	case KindNotAuthorized, KindDuplicateID, KindNotFound, KindAlreadyRevoked, KindCannotRevokeOwner:
		return true
	default:
		return false
	}
}

// Revert reasons emitted by the registry contract.
const (
	ReasonNotIssuer         = "Not authorized to issue certificates"
	ReasonOnlyOwner         = "Only the owner can perform this action"
	ReasonNotRevoker        = "Only the issuer or owner can revoke certificates"
	ReasonDuplicateID       = "Certificate ID already exists"
	ReasonNotFound          = "Certificate doesn't exist"
	ReasonAlreadyRevoked    = "Certificate already revoked"
	ReasonCannotRevokeOwner = "Cannot revoke owner"
)

// RegistryError is the single error type surfaced to callers. Message is short,
// Details is suitable for direct display in a user interface.
type RegistryError struct {
	Kind    ErrorKind
	Message string
	Details string
	Err     error
}

func (e *RegistryError) Error() string {
	switch {
	case e.Details != "" && e.Message != "" && e.Details != e.Message:
		return e.Message + ": " + e.Details
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String()
	}
}

func (e *RegistryError) Unwrap() error {
	return e.Err
}

// Is matches any RegistryError of the same kind, so the package-level
// sentinels can be used with errors.Is.
func (e *RegistryError) Is(target error) bool {
	t, ok := target.(*RegistryError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// WithMessage returns a copy of the error carrying a caller-facing message.
// The previous message becomes the details when no details were set.
func (e *RegistryError) WithMessage(message string) *RegistryError {
	out := *e
	if out.Details == "" {
		out.Details = out.Message
	}
	out.Message = message
	return &out
}

var (
	ErrNotAuthorized        = &RegistryError{Kind: KindNotAuthorized, Message: "Not authorized"}
	ErrDuplicateID          = &RegistryError{Kind: KindDuplicateID, Message: "Certificate already exists"}
	ErrNotFound             = &RegistryError{Kind: KindNotFound, Message: "Certificate not found"}
	ErrAlreadyRevoked       = &RegistryError{Kind: KindAlreadyRevoked, Message: "Certificate already revoked"}
	ErrCannotRevokeOwner    = &RegistryError{Kind: KindCannotRevokeOwner, Message: "Owner cannot be revoked"}
	ErrUserRejected         = &RegistryError{Kind: KindUserRejected, Message: "Transaction was rejected"}
	ErrTransientUnavailable = &RegistryError{Kind: KindTransientUnavailable, Message: "Ledger temporarily unavailable"}
	ErrNumericOverflow      = &RegistryError{Kind: KindNumericOverflow, Message: "Error processing large numbers"}
)

// NewRevertError builds the error for a revert reason emitted by the registry.
func NewRevertError(reason string) *RegistryError {
	kind := KindForReason(reason)
	msg := reason
	switch kind {
	case KindNotFound:
		msg = ErrNotFound.Message
	case KindDuplicateID:
		msg = ErrDuplicateID.Message
	case KindAlreadyRevoked:
		msg = ErrAlreadyRevoked.Message
	}
	return &RegistryError{Kind: kind, Message: msg, Details: reason}
}

// KindForReason maps a revert reason to its error kind.
func KindForReason(reason string) ErrorKind {
	reason = strings.TrimSpace(reason)
	switch reason {
	case ReasonNotIssuer, ReasonOnlyOwner, ReasonNotRevoker:
		return KindNotAuthorized
	case ReasonDuplicateID:
		return KindDuplicateID
	case ReasonNotFound:
		return KindNotFound
	case ReasonAlreadyRevoked:
		return KindAlreadyRevoked
	case ReasonCannotRevokeOwner:
		return KindCannotRevokeOwner
	}
	return KindUnknown
}

// Reason returns the revert reason carried by err, if any.
func Reason(err error) string {
	var rerr *RegistryError
	if errors.As(err, &rerr) && KindForReason(rerr.Details) != KindUnknown {
		return rerr.Details
	}
	return ""
}

// KindOf returns the kind of err, or KindUnknown when err is not a RegistryError.
func KindOf(err error) ErrorKind {
	var rerr *RegistryError
	if errors.As(err, &rerr) {
		return rerr.Kind
	}
	return KindUnknown
}
