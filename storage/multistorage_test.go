package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/certificate-registry/interfaces"
)

// MockStorageBackend mocks the StorageBackend interface
type MockStorageBackend struct {
	mock.Mock
	name string
}

func (m *MockStorageBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	args := m.Called(ctx, id, contentType)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockStorageBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	args := m.Called(ctx, data, contentType)
	return args.Get(0).(interfaces.ContentID), args.Error(1)
}

func (m *MockStorageBackend) Available(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

func (m *MockStorageBackend) Name() string {
	return m.name
}

func (m *MockStorageBackend) LocationURI() string {
	return "mock://" + m.name
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func unavailableBackend(name string) *MockStorageBackend {
	b := &MockStorageBackend{name: name}
	b.On("Available", mock.Anything).Return(false)
	return b
}

func sampleRecord(t *testing.T) []byte {
	t.Helper()
	issuer := common.HexToAddress("0x2000000000000000000000000000000000000002")
	data, err := json.Marshal(interfaces.ArchiveRecord{
		RecordID:  "6f1c2f3e-8d1b-4c53-9b0e-5d0d9c8a7e11",
		Operation: "issueCertificate",
		Caller:    issuer.Hex(),
		Subject:   "CERT-1",
		Certificate: &interfaces.Certificate{
			ID:          "CERT-1",
			StudentName: "Alice",
			CourseName:  "Systems 101",
			IssueDate:   "2024-01-01",
			Valid:       true,
			Issuer:      issuer,
		},
		Receipt: &interfaces.Receipt{
			TxHash:      common.HexToHash("0xabc1"),
			BlockNumber: 7,
			GasLimit:    120_000,
			GasUsed:     100_000,
		},
		ArchivedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)
	return data
}

func TestMultiStorageBackend_StoreFansOutRecord(t *testing.T) {
	ctx := context.Background()
	first, _ := newTestFileBackend(t)
	second, _ := newTestFileBackend(t)
	offline := unavailableBackend("offline")

	multi := NewMultiStorageBackend([]interfaces.StorageBackend{first, offline, second}, quietLogger())
	record := sampleRecord(t)

	id, err := multi.Store(ctx, record, interfaces.ReceiptType)
	require.NoError(t, err)
	assert.Equal(t, interfaces.ComputeID(record), id)

	for _, backend := range []*FileBackend{first, second} {
		data, err := backend.Fetch(ctx, id, interfaces.ReceiptType)
		require.NoError(t, err, backend.Name())

		var got interfaces.ArchiveRecord
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, "CERT-1", got.Subject)
		assert.Equal(t, uint64(7), got.Receipt.BlockNumber)
	}

	// Archived under receipts only.
	_, err = first.Fetch(ctx, id, interfaces.CertificateType)
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)

	offline.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything)
}

func TestMultiStorageBackend_StorePartialFailure(t *testing.T) {
	ctx := context.Background()
	record := sampleRecord(t)
	good, _ := newTestFileBackend(t)

	broken := &MockStorageBackend{name: "broken"}
	broken.On("Available", mock.Anything).Return(true)
	broken.On("Store", mock.Anything, record, interfaces.ReceiptType).
		Return(interfaces.ContentID{}, errors.New("quota exceeded"))

	multi := NewMultiStorageBackend([]interfaces.StorageBackend{broken, good}, quietLogger())
	id, err := multi.Store(ctx, record, interfaces.ReceiptType)
	require.NoError(t, err)
	assert.Equal(t, interfaces.ComputeID(record), id)
	broken.AssertExpectations(t)
}

func TestMultiStorageBackend_StoreJoinsErrors(t *testing.T) {
	errQuota := errors.New("quota exceeded")
	errDenied := errors.New("access denied")

	s3 := &MockStorageBackend{name: "s3-archive"}
	s3.On("Available", mock.Anything).Return(true)
	s3.On("Store", mock.Anything, mock.Anything, interfaces.ReceiptType).Return(interfaces.ContentID{}, errQuota)

	ipfs := &MockStorageBackend{name: "ipfs-archive"}
	ipfs.On("Available", mock.Anything).Return(true)
	ipfs.On("Store", mock.Anything, mock.Anything, interfaces.ReceiptType).Return(interfaces.ContentID{}, errDenied)

	multi := NewMultiStorageBackend([]interfaces.StorageBackend{s3, ipfs}, quietLogger())
	_, err := multi.Store(context.Background(), sampleRecord(t), interfaces.ReceiptType)

	require.Error(t, err)
	assert.ErrorIs(t, err, errQuota)
	assert.ErrorIs(t, err, errDenied)
	assert.NotErrorIs(t, err, interfaces.ErrBackendUnavailable)
	assert.Contains(t, err.Error(), "s3-archive")
	assert.Contains(t, err.Error(), "ipfs-archive")
}

func TestMultiStorageBackend_FetchFallsBack(t *testing.T) {
	ctx := context.Background()
	record := sampleRecord(t)
	empty, _ := newTestFileBackend(t)
	holder, _ := newTestFileBackend(t)

	id, err := holder.Store(ctx, record, interfaces.ReceiptType)
	require.NoError(t, err)

	multi := NewMultiStorageBackend([]interfaces.StorageBackend{unavailableBackend("offline"), empty, holder}, quietLogger())
	data, err := multi.Fetch(ctx, id, interfaces.ReceiptType)
	require.NoError(t, err)
	assert.Equal(t, record, data)

	// Nobody has it: the not-found of every backend is preserved.
	_, err = multi.Fetch(ctx, interfaces.ComputeID([]byte("missing")), interfaces.ReceiptType)
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)
	assert.NotErrorIs(t, err, interfaces.ErrBackendUnavailable)
}

func TestMultiStorageBackend_FetchSkipsFailingBackend(t *testing.T) {
	ctx := context.Background()
	record := sampleRecord(t)
	id := interfaces.ComputeID(record)

	flaky := &MockStorageBackend{name: "flaky"}
	flaky.On("Available", mock.Anything).Return(true)
	flaky.On("Fetch", mock.Anything, id, interfaces.ReceiptType).Return(nil, errors.New("connection reset"))

	holder, _ := newTestFileBackend(t)
	_, err := holder.Store(ctx, record, interfaces.ReceiptType)
	require.NoError(t, err)

	multi := NewMultiStorageBackend([]interfaces.StorageBackend{flaky, holder}, quietLogger())
	data, err := multi.Fetch(ctx, id, interfaces.ReceiptType)
	require.NoError(t, err)
	assert.Equal(t, record, data)
	flaky.AssertExpectations(t)
}

func TestMultiStorageBackend_NothingAvailable(t *testing.T) {
	ctx := context.Background()

	for name, backends := range map[string][]interfaces.StorageBackend{
		"all offline": {unavailableBackend("a"), unavailableBackend("b")},
		"none":        nil,
	} {
		t.Run(name, func(t *testing.T) {
			multi := NewMultiStorageBackend(backends, quietLogger())
			assert.False(t, multi.Available(ctx))

			_, err := multi.Store(ctx, sampleRecord(t), interfaces.ReceiptType)
			assert.ErrorIs(t, err, interfaces.ErrBackendUnavailable)

			_, err = multi.Fetch(ctx, interfaces.ComputeID([]byte("receipt")), interfaces.ReceiptType)
			assert.ErrorIs(t, err, interfaces.ErrBackendUnavailable)
		})
	}
}

func TestMultiStorageBackend_LocationURI(t *testing.T) {
	multi := NewMultiStorageBackend([]interfaces.StorageBackend{
		&MockStorageBackend{name: "a"},
		&MockStorageBackend{name: "b"},
	}, quietLogger())
	assert.Equal(t, "multi:[mock://a,mock://b]", multi.LocationURI())
	assert.Equal(t, "multi-storage", multi.Name())
}
