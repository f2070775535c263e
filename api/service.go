package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/ruteri/certificate-registry/interfaces"
	"github.com/ruteri/certificate-registry/txutils"
)

// Service is the query and verification entry point used by collaborators.
// It turns registry results and failures into Response values and optionally
// archives the receipt of every successful mutation.
type Service struct {
	registry interfaces.CertificateRegistry
	archive  interfaces.StorageBackend
	log      *slog.Logger
	now      func() time.Time
}

// NewService creates a new Service.
//
// Parameters:
//   - registry: Registry the operations are forwarded to
//   - archive: Receipt archive, may be nil to disable archival
//   - log: Structured logger
//
// Returns:
//   - Configured service
func NewService(registry interfaces.CertificateRegistry, archive interfaces.StorageBackend, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		registry: registry,
		archive:  archive,
		log:      log,
		now:      time.Now,
	}
}

// Issue validates req and issues the certificate.
func (s *Service) Issue(ctx context.Context, req interfaces.CertificateRequest) *Response {
	if err := req.Validate(); err != nil {
		return &Response{Error: &ErrorInfo{
			Message: MsgMissingFields,
			Details: err.Error(),
			Kind:    interfaces.KindUnknown.String(),
		}}
	}
	req = req.Normalized()

	s.log.Info("issuing certificate", "id", req.ID, "caller", s.registry.Caller())
	receipt, err := s.registry.IssueCertificate(ctx, req)
	if err != nil {
		return s.failure(MsgIssueFailed, err, false)
	}

	cert := &interfaces.Certificate{
		ID:          req.ID,
		StudentName: req.StudentName,
		CourseName:  req.CourseName,
		IssueDate:   req.IssueDate,
		Valid:       true,
		Issuer:      s.registry.Caller(),
	}
	return s.mutated(ctx, OpIssueCertificate, req.ID, cert, receipt)
}

// Revoke revokes the certificate with the given id.
func (s *Service) Revoke(ctx context.Context, id string) *Response {
	id = interfaces.NormalizeID(id)
	s.log.Info("revoking certificate", "id", id, "caller", s.registry.Caller())
	receipt, err := s.registry.RevokeCertificate(ctx, id)
	if err != nil {
		return s.failure(MsgRevokeFailed, err, false)
	}
	return s.mutated(ctx, OpRevokeCertificate, id, nil, receipt)
}

// Verify reports whether the certificate is currently valid.
func (s *Service) Verify(ctx context.Context, id string) *Response {
	valid, err := s.registry.VerifyCertificate(ctx, interfaces.NormalizeID(id))
	if err != nil {
		return s.failure(MsgVerifyFailed, err, true)
	}
	return &Response{Success: true, IsValid: boolPtr(valid)}
}

// Details returns the certificate snapshot.
func (s *Service) Details(ctx context.Context, id string) *Response {
	cert, err := s.registry.GetCertificateDetails(ctx, interfaces.NormalizeID(id))
	if err != nil {
		return s.failure(MsgDetailsFailed, err, true)
	}
	return &Response{Success: true, Certificate: NewCertificateView(cert)}
}

// Check reads the certificate snapshot and then its validity. The two reads
// are not atomic; the later verification result overrides the snapshot's
// validity flag.
func (s *Service) Check(ctx context.Context, id string) *Response {
	id = interfaces.NormalizeID(id)
	cert, err := s.registry.GetCertificateDetails(ctx, id)
	if err != nil {
		return s.failure(MsgDetailsFailed, err, true)
	}
	valid, err := s.registry.VerifyCertificate(ctx, id)
	if err != nil {
		return s.failure(MsgVerifyFailed, err, true)
	}

	view := NewCertificateView(cert)
	if view.Valid != valid {
		s.log.Debug("validity changed between reads", "id", id, "snapshot", view.Valid, "verified", valid)
	}
	view.Valid = valid
	return &Response{Success: true, Certificate: view, IsValid: boolPtr(valid)}
}

// AuthorizeIssuer grants issuing rights to addr.
func (s *Service) AuthorizeIssuer(ctx context.Context, addr string) *Response {
	issuer, resp := parseAddress(addr, MsgAuthorizeFailed)
	if resp != nil {
		return resp
	}
	s.log.Info("authorizing issuer", "issuer", issuer, "caller", s.registry.Caller())
	receipt, err := s.registry.AuthorizeIssuer(ctx, issuer)
	if err != nil {
		return s.failure(MsgAuthorizeFailed, err, false)
	}
	return s.mutated(ctx, OpAuthorizeIssuer, issuer.Hex(), nil, receipt)
}

// RevokeIssuer removes issuing rights from addr.
func (s *Service) RevokeIssuer(ctx context.Context, addr string) *Response {
	issuer, resp := parseAddress(addr, MsgRevokeIssuerFailed)
	if resp != nil {
		return resp
	}
	s.log.Info("revoking issuer", "issuer", issuer, "caller", s.registry.Caller())
	receipt, err := s.registry.RevokeIssuer(ctx, issuer)
	if err != nil {
		return s.failure(MsgRevokeIssuerFailed, err, false)
	}
	return s.mutated(ctx, OpRevokeIssuer, issuer.Hex(), nil, receipt)
}

// IsAuthorizedIssuer reports whether addr may issue certificates.
func (s *Service) IsAuthorizedIssuer(ctx context.Context, addr string) *Response {
	issuer, resp := parseAddress(addr, MsgAuthorizationFailed)
	if resp != nil {
		return resp
	}
	ok, err := s.registry.IsAuthorizedIssuer(ctx, issuer)
	if err != nil {
		return s.failure(MsgAuthorizationFailed, err, true)
	}
	return &Response{Success: true, IsAuthorized: boolPtr(ok)}
}

// IsOwner reports whether addr is the registry owner. An empty addr checks
// the service's own caller identity.
func (s *Service) IsOwner(ctx context.Context, addr string) *Response {
	target := s.registry.Caller()
	if addr != "" {
		var resp *Response
		target, resp = parseAddress(addr, MsgOwnerCheckFailed)
		if resp != nil {
			return resp
		}
	}
	owner, err := s.registry.Owner(ctx)
	if err != nil {
		return s.failure(MsgOwnerCheckFailed, err, true)
	}
	return &Response{Success: true, IsOwner: boolPtr(owner == target)}
}

// Health checks that the registry answers reads and, when configured, that
// the receipt archive is reachable.
func (s *Service) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{Status: "OK", Ledger: "Connected", Caller: s.registry.Caller().Hex()}

	owner, err := s.registry.Owner(ctx)
	if err != nil {
		s.log.Warn("registry health check failed", "err", err)
		status.Status = "Degraded"
		status.Ledger = "Disconnected"
		status.Problems = txutils.ClassifyRead(err).Error()
	} else {
		status.Owner = owner.Hex()
	}

	if s.archive != nil {
		if s.archive.Available(ctx) {
			status.Archive = "Available"
		} else {
			status.Archive = "Unavailable"
		}
	}
	return status
}

// mutated builds the response of a successful mutation and archives its receipt.
func (s *Service) mutated(ctx context.Context, op, subject string, cert *interfaces.Certificate, receipt *interfaces.Receipt) *Response {
	resp := &Response{Success: true}
	if receipt != nil {
		resp.TxHash = hashString(receipt.TxHash)
		s.log.Info("registry mutation finalized", "operation", op, "subject", subject, "txHash", resp.TxHash, "block", receipt.BlockNumber)
	}

	if s.archive == nil {
		return resp
	}

	id, err := s.archiveReceipt(ctx, op, subject, cert, receipt)
	if err != nil {
		s.log.Error("failed to archive receipt", "operation", op, "subject", subject, "backend", s.archive.Name(), "err", err)
	} else {
		resp.ArchiveID = id.String()
	}

	if cert != nil {
		id, err := s.archiveCertificate(ctx, cert)
		if err != nil {
			s.log.Error("failed to archive certificate", "id", cert.ID, "backend", s.archive.Name(), "err", err)
		} else {
			resp.CertificateArchiveID = id.String()
		}
	}
	return resp
}

// archiveCertificate stores the snapshot of a newly issued certificate.
func (s *Service) archiveCertificate(ctx context.Context, cert *interfaces.Certificate) (interfaces.ContentID, error) {
	data, err := json.Marshal(cert)
	if err != nil {
		return interfaces.ContentID{}, fmt.Errorf("encoding certificate: %w", err)
	}
	return s.archive.Store(ctx, data, interfaces.CertificateType)
}

func (s *Service) archiveReceipt(ctx context.Context, op, subject string, cert *interfaces.Certificate, receipt *interfaces.Receipt) (interfaces.ContentID, error) {
	record := interfaces.ArchiveRecord{
		RecordID:    uuid.NewString(),
		Operation:   op,
		Caller:      s.registry.Caller().Hex(),
		Subject:     subject,
		Certificate: cert,
		Receipt:     receipt,
		ArchivedAt:  s.now().UTC(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return interfaces.ContentID{}, fmt.Errorf("encoding archive record: %w", err)
	}
	return s.archive.Store(ctx, data, interfaces.ReceiptType)
}

// failure converts err into a failed Response. Reads that cannot find the
// certificate get a hint about ledger propagation delay.
func (s *Service) failure(message string, err error, read bool) *Response {
	classify := txutils.Classify
	if read {
		classify = txutils.ClassifyRead
	}
	rerr := classify(err)
	details := rerr.Details
	if details == "" {
		details = rerr.Message
	}

	switch rerr.Kind {
	case interfaces.KindNotFound:
		details = interfaces.ErrNotFound.Message
		if read {
			details = DetailsSyncDelayHint
		}
	case interfaces.KindDuplicateID:
		details = "A certificate with this ID already exists"
	case interfaces.KindAlreadyRevoked:
		details = "This certificate has already been revoked"
	}

	s.log.Warn(message, "kind", rerr.Kind.String(), "err", err)
	return &Response{Error: &ErrorInfo{
		Message: message,
		Details: details,
		Kind:    rerr.Kind.String(),
	}}
}

func parseAddress(addr, message string) (common.Address, *Response) {
	if !common.IsHexAddress(addr) {
		return common.Address{}, &Response{Error: &ErrorInfo{
			Message: message,
			Details: fmt.Sprintf("%s: %q", DetailsInvalidAddress, addr),
			Kind:    interfaces.KindUnknown.String(),
		}}
	}
	return common.HexToAddress(addr), nil
}

// Err returns the failure carried by the response as an error, or nil on success.
func (r *Response) Err() error {
	if r.Success {
		return nil
	}
	if r.Error == nil {
		return errors.New("operation failed")
	}
	return fmt.Errorf("%s: %s", r.Error.Message, r.Error.Details)
}
