package indexer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/certificate-registry/interfaces"
)

var issuerAddr = common.HexToAddress("0x2000000000000000000000000000000000000002")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS registry_events").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS registry_events_certificate").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS registry_events_issuer").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS sync_state").WillReturnResult(sqlmock.NewResult(0, 0))

	store, err := NewStore(context.Background(), db, testLogger())
	require.NoError(t, err)
	return store, mock
}

func issuedEvent(id string, block uint64) interfaces.Event {
	return interfaces.Event{
		Kind:          interfaces.CertificateIssued,
		CertificateID: id,
		Issuer:        issuerAddr,
		Certificate: &interfaces.Certificate{
			ID:          id,
			StudentName: "Alice",
			CourseName:  "Systems 101",
			IssueDate:   "2024-01-01",
			Valid:       true,
			Issuer:      issuerAddr,
		},
		TxHash:      common.HexToHash("0x01"),
		BlockNumber: block,
	}
}

func TestStore_SaveEventsSkipsDuplicates(t *testing.T) {
	store, mock := newMockStore(t)
	ev := issuedEvent("CERT-1", 7)
	revoked := interfaces.Event{
		Kind:          interfaces.CertificateRevoked,
		CertificateID: "CERT-1",
		TxHash:        common.HexToHash("0x02"),
		BlockNumber:   8,
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT OR IGNORE INTO registry_events")
	prep.ExpectExec().
		WithArgs(ev.TxHash.Hex(), int64(0), int64(7), "CertificateIssued", "CERT-1", issuerAddr.Hex(), "Alice", "Systems 101", "2024-01-01").
		WillReturnResult(sqlmock.NewResult(0, 0))
	prep.ExpectExec().
		WithArgs(revoked.TxHash.Hex(), int64(0), int64(8), "CertificateRevoked", "CERT-1", "", "", "", "").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec("INSERT INTO sync_state").WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	n, err := store.SaveEvents(context.Background(), []interfaces.Event{ev, revoked}, 9)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SaveEventsRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT OR IGNORE INTO registry_events")
	prep.ExpectExec().WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	_, err := store.SaveEvents(context.Background(), []interfaces.Event{issuedEvent("CERT-1", 1)}, 1)
	assert.ErrorContains(t, err, "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_LastBlock(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT last_block FROM sync_state").WillReturnRows(sqlmock.NewRows([]string{"last_block"}))
	_, ok, err := store.LastBlock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectQuery("SELECT last_block FROM sync_state").WillReturnRows(sqlmock.NewRows([]string{"last_block"}).AddRow(42))
	block, ok, err := store.LastBlock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(42), block)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListByIssuer(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"certificate_id", "student_name", "course_name", "issue_date", "issuer", "valid"}).
		AddRow("CERT-1", "Alice", "Systems 101", "2024-01-01", issuerAddr.Hex(), true).
		AddRow("CERT-2", "Bob", "Systems 101", "2024-01-02", issuerAddr.Hex(), false)
	mock.ExpectQuery("SELECT e.certificate_id").WithArgs(issuerAddr.Hex()).WillReturnRows(rows)

	certs, err := store.ListByIssuer(context.Background(), issuerAddr)
	require.NoError(t, err)
	require.Len(t, certs, 2)
	assert.Equal(t, interfaces.Certificate{
		ID: "CERT-1", StudentName: "Alice", CourseName: "Systems 101", IssueDate: "2024-01-01", Valid: true, Issuer: issuerAddr,
	}, certs[0])
	assert.False(t, certs[1].Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_History(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"tx_hash", "log_index", "block_number", "kind", "certificate_id", "issuer", "student_name", "course_name", "issue_date"}).
		AddRow(common.HexToHash("0x01").Hex(), 0, 3, "CertificateIssued", "CERT-1", issuerAddr.Hex(), "Alice", "Systems 101", "2024-01-01").
		AddRow(common.HexToHash("0x02").Hex(), 0, 5, "CertificateRevoked", "CERT-1", "", "", "", "")
	mock.ExpectQuery("SELECT tx_hash, log_index").WithArgs("CERT-1").WillReturnRows(rows)

	events, err := store.History(context.Background(), " CERT-1 ")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, interfaces.CertificateIssued, events[0].Kind)
	require.NotNil(t, events[0].Certificate)
	assert.Equal(t, "Alice", events[0].Certificate.StudentName)
	assert.Equal(t, interfaces.CertificateRevoked, events[1].Kind)
	assert.Equal(t, uint64(5), events[1].BlockNumber)
	assert.Equal(t, common.Address{}, events[1].Issuer)
	assert.NoError(t, mock.ExpectationsWereMet())
}
