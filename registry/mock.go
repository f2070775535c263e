package registry

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"

	"github.com/ruteri/certificate-registry/interfaces"
)

// MockRegistry mocks the CertificateRegistry interface
type MockRegistry struct {
	mock.Mock
}

// Caller mocks the Caller method
func (m *MockRegistry) Caller() common.Address {
	args := m.Called()
	return args.Get(0).(common.Address)
}

// IssueCertificate mocks the IssueCertificate method
func (m *MockRegistry) IssueCertificate(ctx context.Context, req interfaces.CertificateRequest) (*interfaces.Receipt, error) {
	args := m.Called(ctx, req)
	receipt, _ := args.Get(0).(*interfaces.Receipt)
	return receipt, args.Error(1)
}

// RevokeCertificate mocks the RevokeCertificate method
func (m *MockRegistry) RevokeCertificate(ctx context.Context, id string) (*interfaces.Receipt, error) {
	args := m.Called(ctx, id)
	receipt, _ := args.Get(0).(*interfaces.Receipt)
	return receipt, args.Error(1)
}

// VerifyCertificate mocks the VerifyCertificate method
func (m *MockRegistry) VerifyCertificate(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// GetCertificateDetails mocks the GetCertificateDetails method
func (m *MockRegistry) GetCertificateDetails(ctx context.Context, id string) (*interfaces.Certificate, error) {
	args := m.Called(ctx, id)
	cert, _ := args.Get(0).(*interfaces.Certificate)
	return cert, args.Error(1)
}

// AuthorizeIssuer mocks the AuthorizeIssuer method
func (m *MockRegistry) AuthorizeIssuer(ctx context.Context, issuer common.Address) (*interfaces.Receipt, error) {
	args := m.Called(ctx, issuer)
	receipt, _ := args.Get(0).(*interfaces.Receipt)
	return receipt, args.Error(1)
}

// RevokeIssuer mocks the RevokeIssuer method
func (m *MockRegistry) RevokeIssuer(ctx context.Context, issuer common.Address) (*interfaces.Receipt, error) {
	args := m.Called(ctx, issuer)
	receipt, _ := args.Get(0).(*interfaces.Receipt)
	return receipt, args.Error(1)
}

// IsAuthorizedIssuer mocks the IsAuthorizedIssuer method
func (m *MockRegistry) IsAuthorizedIssuer(ctx context.Context, addr common.Address) (bool, error) {
	args := m.Called(ctx, addr)
	return args.Bool(0), args.Error(1)
}

// Owner mocks the Owner method
func (m *MockRegistry) Owner(ctx context.Context) (common.Address, error) {
	args := m.Called(ctx)
	return args.Get(0).(common.Address), args.Error(1)
}

var _ interfaces.CertificateRegistry = (*MockRegistry)(nil)
