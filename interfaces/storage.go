package interfaces

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ContentID is a 32-byte SHA-256 hash uniquely identifying archived content.
type ContentID [32]byte

// NewContentIDFromHex parses a 64 character hex content ID, with or without 0x prefix.
func NewContentIDFromHex(source string) (ContentID, error) {
	clean := strings.TrimPrefix(strings.TrimSpace(source), "0x")
	if len(clean) != 64 {
		return ContentID{}, errors.New("invalid content ID length: hex string must be 64 characters")
	}

	hashBytes, err := hex.DecodeString(clean)
	if err != nil {
		return ContentID{}, fmt.Errorf("invalid hex format: %w", err)
	}

	var id ContentID
	copy(id[:], hashBytes)
	return id, nil
}

// ComputeID calculates content ID from data.
func ComputeID(data []byte) ContentID {
	return ContentID(sha256.Sum256(data))
}

// String returns hex representation.
func (id ContentID) String() string {
	return hex.EncodeToString(id[:])
}

// ContentType indicates storage namespace.
type ContentType int

const (
	// ReceiptType for archived mutation receipts
	ReceiptType ContentType = iota
	// CertificateType for archived certificate snapshots
	CertificateType
)

// String returns type name.
func (ct ContentType) String() string {
	switch ct {
	case ReceiptType:
		return "receipts"
	case CertificateType:
		return "certificates"
	default:
		return "unknown"
	}
}

// ArchiveRecord is the archived evidence of one finalized registry mutation.
type ArchiveRecord struct {
	RecordID    string       `json:"recordId"`
	Operation   string       `json:"operation"`
	Caller      string       `json:"caller"`
	Subject     string       `json:"subject"`
	Certificate *Certificate `json:"certificate,omitempty"`
	Receipt     *Receipt     `json:"receipt"`
	ArchivedAt  time.Time    `json:"archivedAt"`
}

// StorageBackendLocation represents URI for storage backend.
type StorageBackendLocation struct {
	Raw    string     // Original URI
	Scheme string     // Protocol
	Host   string     // Hostname
	Path   string     // Resource path
	Query  url.Values // Query parameters
	User   *url.Userinfo
}

// NewStorageBackendLocation creates a new storage location from a URI string with validation.
func NewStorageBackendLocation(uri string) (StorageBackendLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return StorageBackendLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	switch scheme {
	case "file", "s3", "ipfs":
	default:
		return StorageBackendLocation{}, fmt.Errorf("%w: unsupported storage scheme %q", ErrInvalidLocationURI, parsed.Scheme)
	}

	return StorageBackendLocation{
		Raw:    uri,
		Scheme: scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		User:   parsed.User,
	}, nil
}

// String returns the original URI string with credentials redacted.
func (loc StorageBackendLocation) String() string {
	if loc.User == nil {
		return loc.Raw
	}
	u, err := url.Parse(loc.Raw)
	if err != nil {
		return loc.Raw
	}
	return u.Redacted()
}

// GetParam returns a query parameter value.
func (loc StorageBackendLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

// GetParamBool returns a boolean query parameter value.
func (loc StorageBackendLocation) GetParamBool(name string) bool {
	value := loc.Query.Get(name)
	return value == "true" || value == "1" || value == "yes"
}

var (
	// ErrContentNotFound is returned when requested content cannot be found in the storage backend.
	ErrContentNotFound = errors.New("content not found")

	// ErrBackendUnavailable is returned when a storage backend is not accessible.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocationURI is returned when a storage location URI is malformed or unsupported.
	// URIs must follow the format: [scheme]://[auth@]host[:port][/path][?params]
	ErrInvalidLocationURI = errors.New("invalid storage location URI")
)

// StorageBackend provides content-addressed data storage.
type StorageBackend interface {
	// Fetch retrieves data by content ID and type.
	Fetch(ctx context.Context, id ContentID, contentType ContentType) ([]byte, error)

	// Store saves data and returns its content ID.
	Store(ctx context.Context, data []byte, contentType ContentType) (ContentID, error)

	// Available checks if backend is accessible.
	Available(ctx context.Context) bool

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns URI identifying this backend.
	LocationURI() string
}

// StorageBackendFactory creates storage backends.
type StorageBackendFactory interface {
	// StorageBackendFor creates backend from a location. Supports file://, s3://, ipfs://
	StorageBackendFor(location StorageBackendLocation) (StorageBackend, error)

	// CreateMultiBackend creates aggregated storage backend.
	CreateMultiBackend(locations []StorageBackendLocation) (StorageBackend, error)
}
