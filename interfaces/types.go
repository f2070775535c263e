// Package interfaces defines the core interfaces and types for the certificate registry.
// It provides the contract between different components without implementation details.
package interfaces

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Certificate is a snapshot of a certificate stored in the registry.
type Certificate struct {
	ID          string         `json:"id"`
	StudentName string         `json:"studentName"`
	CourseName  string         `json:"courseName"`
	IssueDate   string         `json:"issueDate"`
	Valid       bool           `json:"valid"`
	Issuer      common.Address `json:"issuer"`
}

// CertificateRequest carries the caller-supplied fields of a new certificate.
type CertificateRequest struct {
	ID          string `json:"id"`
	StudentName string `json:"studentName"`
	CourseName  string `json:"courseName"`
	IssueDate   string `json:"issueDate"`
}

// ErrMissingFields is returned when a certificate request lacks a required field.
var ErrMissingFields = errors.New("missing required certificate fields")

// Normalized returns a copy of the request with the id normalized.
func (r CertificateRequest) Normalized() CertificateRequest {
	r.ID = NormalizeID(r.ID)
	return r
}

// Validate checks that every field of the request is present.
func (r CertificateRequest) Validate() error {
	var missing []string
	if NormalizeID(r.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(r.StudentName) == "" {
		missing = append(missing, "studentName")
	}
	if strings.TrimSpace(r.CourseName) == "" {
		missing = append(missing, "courseName")
	}
	if strings.TrimSpace(r.IssueDate) == "" {
		missing = append(missing, "issueDate")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", "))
	}
	return nil
}

// NormalizeID converts a certificate identifier to its canonical key form:
// stringified and trimmed of surrounding whitespace.
func NormalizeID(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// EventKind identifies a registry event.
type EventKind int

const (
	CertificateIssued EventKind = iota + 1
	CertificateRevoked
	IssuerAuthorized
	IssuerRevoked
)

// String returns the event name as emitted by the registry contract.
func (k EventKind) String() string {
	switch k {
	case CertificateIssued:
		return "CertificateIssued"
	case CertificateRevoked:
		return "CertificateRevoked"
	case IssuerAuthorized:
		return "IssuerAuthorized"
	case IssuerRevoked:
		return "IssuerRevoked"
	default:
		return "Unknown"
	}
}

// Event is a durable notification of a finalized registry transition.
type Event struct {
	Kind          EventKind      `json:"kind"`
	CertificateID string         `json:"certificateId,omitempty"`
	Certificate   *Certificate   `json:"certificate,omitempty"`
	Issuer        common.Address `json:"issuer"`
	TxHash        common.Hash    `json:"txHash"`
	BlockNumber   uint64         `json:"blockNumber"`
	LogIndex      uint           `json:"logIndex"`
}

// Receipt describes a finalized mutating call.
type Receipt struct {
	TxHash      common.Hash `json:"txHash"`
	BlockNumber uint64      `json:"blockNumber"`
	GasLimit    uint64      `json:"gasLimit"`
	GasUsed     uint64      `json:"gasUsed"`
	Events      []Event     `json:"events,omitempty"`
}
