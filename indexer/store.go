package indexer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ruteri/certificate-registry/interfaces"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS registry_events (
		tx_hash        TEXT    NOT NULL,
		log_index      INTEGER NOT NULL,
		block_number   INTEGER NOT NULL,
		kind           TEXT    NOT NULL,
		certificate_id TEXT    NOT NULL DEFAULT '',
		issuer         TEXT    NOT NULL DEFAULT '',
		student_name   TEXT    NOT NULL DEFAULT '',
		course_name    TEXT    NOT NULL DEFAULT '',
		issue_date     TEXT    NOT NULL DEFAULT '',
		PRIMARY KEY (tx_hash, log_index)
	)`,
	`CREATE INDEX IF NOT EXISTS registry_events_certificate ON registry_events (certificate_id)`,
	`CREATE INDEX IF NOT EXISTS registry_events_issuer ON registry_events (issuer, kind)`,
	`CREATE TABLE IF NOT EXISTS sync_state (
		id         INTEGER PRIMARY KEY CHECK (id = 1),
		last_block INTEGER NOT NULL
	)`,
}

const (
	insertEventQuery = `INSERT OR IGNORE INTO registry_events
		(tx_hash, log_index, block_number, kind, certificate_id, issuer, student_name, course_name, issue_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	saveCheckpointQuery = `INSERT INTO sync_state (id, last_block) VALUES (1, ?)
		ON CONFLICT (id) DO UPDATE SET last_block = MAX(last_block, excluded.last_block)`

	lastBlockQuery = `SELECT last_block FROM sync_state WHERE id = 1`

	listByIssuerQuery = `SELECT e.certificate_id, e.student_name, e.course_name, e.issue_date, e.issuer,
		NOT EXISTS (
			SELECT 1 FROM registry_events r
			WHERE r.kind = 'CertificateRevoked' AND r.certificate_id = e.certificate_id
		)
		FROM registry_events e
		WHERE e.kind = 'CertificateIssued' AND e.issuer = ?
		ORDER BY e.block_number, e.log_index`

	historyQuery = `SELECT tx_hash, log_index, block_number, kind, certificate_id, issuer, student_name, course_name, issue_date
		FROM registry_events
		WHERE certificate_id = ?
		ORDER BY block_number, log_index`

	issuerHistoryQuery = `SELECT tx_hash, log_index, block_number, kind, certificate_id, issuer, student_name, course_name, issue_date
		FROM registry_events
		WHERE kind IN ('IssuerAuthorized', 'IssuerRevoked') AND issuer = ?
		ORDER BY block_number, log_index`
)

// Store persists registry events in SQLite.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens (creating if needed) the SQLite index at path.
func Open(ctx context.Context, path string, log *slog.Logger) (*Store, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=ON&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping index database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store, err := NewStore(ctx, db, log)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewStore wraps an open database and applies the schema.
func NewStore(ctx context.Context, db *sql.DB, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to migrate index schema: %w", err)
		}
	}
	return &Store{db: db, log: log}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveEvents records events and advances the sync checkpoint to syncedTo in a
// single transaction. Events already present, keyed by transaction hash and
// log index, are skipped. It returns the number of newly recorded events.
func (s *Store) SaveEvents(ctx context.Context, events []interfaces.Event, syncedTo uint64) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertEventQuery)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, ev := range events {
		var student, course, issueDate string
		if ev.Certificate != nil {
			student, course, issueDate = ev.Certificate.StudentName, ev.Certificate.CourseName, ev.Certificate.IssueDate
		}
		res, err := stmt.ExecContext(ctx,
			ev.TxHash.Hex(), ev.LogIndex, ev.BlockNumber, ev.Kind.String(),
			ev.CertificateID, issuerColumn(ev), student, course, issueDate)
		if err != nil {
			return 0, fmt.Errorf("failed to insert %s event: %w", ev.Kind, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			inserted++
		}
	}

	if _, err := tx.ExecContext(ctx, saveCheckpointQuery, syncedTo); err != nil {
		return 0, fmt.Errorf("failed to save checkpoint: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit events: %w", err)
	}

	s.log.Debug("indexed registry events", "received", len(events), "inserted", inserted, "syncedTo", syncedTo)
	return inserted, nil
}

// LastBlock returns the last block fully indexed. ok is false before the first sync.
func (s *Store) LastBlock(ctx context.Context) (block uint64, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, lastBlockQuery).Scan(&block)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	return block, true, nil
}

// ListByIssuer returns the certificates issued by issuer with their current validity.
func (s *Store) ListByIssuer(ctx context.Context, issuer common.Address) ([]interfaces.Certificate, error) {
	rows, err := s.db.QueryContext(ctx, listByIssuerQuery, issuer.Hex())
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}
	defer rows.Close()

	var certs []interfaces.Certificate
	for rows.Next() {
		var (
			cert      interfaces.Certificate
			issuerHex string
		)
		if err := rows.Scan(&cert.ID, &cert.StudentName, &cert.CourseName, &cert.IssueDate, &issuerHex, &cert.Valid); err != nil {
			return nil, fmt.Errorf("failed to scan certificate: %w", err)
		}
		cert.Issuer = common.HexToAddress(issuerHex)
		certs = append(certs, cert)
	}
	return certs, rows.Err()
}

// History returns every event recorded for a certificate, oldest first.
func (s *Store) History(ctx context.Context, certID string) ([]interfaces.Event, error) {
	return s.queryEvents(ctx, historyQuery, interfaces.NormalizeID(certID))
}

// IssuerHistory returns the authorization changes of an issuer, oldest first.
func (s *Store) IssuerHistory(ctx context.Context, issuer common.Address) ([]interfaces.Event, error) {
	return s.queryEvents(ctx, issuerHistoryQuery, issuer.Hex())
}

func (s *Store) queryEvents(ctx context.Context, query string, arg string) ([]interfaces.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []interfaces.Event
	for rows.Next() {
		var (
			ev                         interfaces.Event
			txHash, kind, issuer       string
			student, course, issueDate string
		)
		if err := rows.Scan(&txHash, &ev.LogIndex, &ev.BlockNumber, &kind, &ev.CertificateID, &issuer, &student, &course, &issueDate); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.TxHash = common.HexToHash(txHash)
		ev.Kind = parseKind(kind)
		if issuer != "" {
			ev.Issuer = common.HexToAddress(issuer)
		}
		if ev.Kind == interfaces.CertificateIssued {
			ev.Certificate = &interfaces.Certificate{
				ID:          ev.CertificateID,
				StudentName: student,
				CourseName:  course,
				IssueDate:   issueDate,
				Valid:       true,
				Issuer:      ev.Issuer,
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// issuerColumn returns the issuer recorded for ev. Revocation logs do not
// carry an issuer, so none is recorded for them.
func issuerColumn(ev interfaces.Event) string {
	if ev.Issuer == (common.Address{}) {
		return ""
	}
	return ev.Issuer.Hex()
}

func parseKind(kind string) interfaces.EventKind {
	for _, k := range []interfaces.EventKind{
		interfaces.CertificateIssued,
		interfaces.CertificateRevoked,
		interfaces.IssuerAuthorized,
		interfaces.IssuerRevoked,
	} {
		if strings.EqualFold(k.String(), kind) {
			return k
		}
	}
	return 0
}
