package api

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/ruteri/certificate-registry/interfaces"
)

// Response is the caller-facing result of every Service operation. On
// success only the payload fields of that operation are set, and Check sets
// both Certificate and IsValid. Error is set on failure.
type Response struct {
	// Success reports whether the operation completed.
	Success bool `json:"success"`

	// TxHash is the hash of the finalized transaction for mutations.
	TxHash string `json:"txHash,omitempty"`

	// Certificate is the certificate snapshot for detail queries.
	Certificate *CertificateView `json:"certificate,omitempty"`

	// IsValid is the verification result.
	IsValid *bool `json:"isValid,omitempty"`

	// IsAuthorized is set by issuer authorization queries.
	IsAuthorized *bool `json:"isAuthorized,omitempty"`

	// IsOwner is set by ownership queries.
	IsOwner *bool `json:"isOwner,omitempty"`

	// ArchiveID is the content ID of the archived receipt, when archival is enabled.
	ArchiveID string `json:"archiveId,omitempty"`

	// CertificateArchiveID is the content ID of the archived certificate
	// snapshot, set for issuance when archival is enabled.
	CertificateArchiveID string `json:"certificateArchiveId,omitempty"`

	// Error describes the failure.
	Error *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo is a failure ready to be shown to a user.
type ErrorInfo struct {
	// Message names the operation that failed, e.g. "Failed to issue certificate".
	Message string `json:"message"`

	// Details explains the cause in user terms.
	Details string `json:"details"`

	// Kind is the error taxonomy tag, e.g. "DuplicateId".
	Kind string `json:"kind"`
}

// CertificateView is the JSON shape of a certificate.
type CertificateView struct {
	ID          string `json:"id"`
	StudentName string `json:"studentName"`
	CourseName  string `json:"courseName"`
	IssueDate   string `json:"issueDate"`
	Valid       bool   `json:"valid"`
	Issuer      string `json:"issuer"`
}

// NewCertificateView converts a registry certificate into its caller-facing shape.
func NewCertificateView(cert *interfaces.Certificate) *CertificateView {
	if cert == nil {
		return nil
	}
	return &CertificateView{
		ID:          cert.ID,
		StudentName: cert.StudentName,
		CourseName:  cert.CourseName,
		IssueDate:   cert.IssueDate,
		Valid:       cert.Valid,
		Issuer:      cert.Issuer.Hex(),
	}
}

// HealthStatus reports whether the registry can be reached.
type HealthStatus struct {
	Status   string `json:"status"`
	Ledger   string `json:"blockchain"`
	Owner    string `json:"owner,omitempty"`
	Caller   string `json:"caller,omitempty"`
	Archive  string `json:"archive,omitempty"`
	Problems string `json:"problems,omitempty"`
}

// Operation names recorded in archive records.
const (
	OpIssueCertificate  = "issueCertificate"
	OpRevokeCertificate = "revokeCertificate"
	OpAuthorizeIssuer   = "authorizeIssuer"
	OpRevokeIssuer      = "revokeIssuer"
)

// Failure messages, one per operation.
const (
	MsgIssueFailed         = "Failed to issue certificate"
	MsgRevokeFailed        = "Failed to revoke certificate"
	MsgVerifyFailed        = "Failed to verify certificate"
	MsgDetailsFailed       = "Failed to get certificate details"
	MsgAuthorizeFailed     = "Failed to authorize issuer"
	MsgRevokeIssuerFailed  = "Failed to revoke issuer"
	MsgAuthorizationFailed = "Failed to check authorization status"
	MsgOwnerCheckFailed    = "Failed to check owner status"
	MsgMissingFields       = "Missing required certificate fields"

	DetailsSyncDelayHint  = "Certificate not found or blockchain sync delay. If you just created this certificate, please wait a few seconds and try again."
	DetailsInvalidAddress = "Invalid address"
)

func boolPtr(v bool) *bool {
	return &v
}

func hashString(h common.Hash) string {
	if h == (common.Hash{}) {
		return ""
	}
	return h.Hex()
}
