package storage

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/certificate-registry/interfaces"
)

// StorageBackendFactory creates storage backends from location URIs and
// manages multi-backend configurations for redundant archival.
type StorageBackendFactory struct {
	log *slog.Logger
}

// NewStorageBackendFactory creates a new factory instance that can create storage backends.
func NewStorageBackendFactory(logger *slog.Logger) *StorageBackendFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &StorageBackendFactory{log: logger}
}

// StorageBackendFor creates a storage backend from a location.
// The URI format is [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//   - file:// - Local filesystem storage
//   - s3:// - Amazon S3 or compatible object storage
//   - ipfs:// - IPFS node, content kept in MFS
func (sf *StorageBackendFactory) StorageBackendFor(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	switch location.Scheme {
	case "ipfs":
		return sf.createIPFSBackend(location)
	case "s3":
		return sf.createS3Backend(location)
	case "file":
		return sf.createFileBackend(location)
	default:
		return nil, fmt.Errorf("%w: unsupported backend scheme %q", interfaces.ErrInvalidLocationURI, location.Scheme)
	}
}

// CreateMultiBackend creates a multi-storage backend from a list of locations.
// Locations that fail to produce a backend are skipped with a warning.
// Returns an error if no valid backends could be created.
func (sf *StorageBackendFactory) CreateMultiBackend(locations []interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	backends := make([]interfaces.StorageBackend, 0, len(locations))

	for _, location := range locations {
		backend, err := sf.StorageBackendFor(location)
		if err != nil {
			sf.log.Warn("Failed to create storage backend",
				"err", err,
				slog.String("locationURI", location.String()))
			continue
		}
		backends = append(backends, backend)
	}

	if len(backends) == 0 {
		return nil, fmt.Errorf("no valid storage backends created")
	}
	if len(backends) == 1 {
		return backends[0], nil
	}

	return NewMultiStorageBackend(backends, sf.log), nil
}

// BackendFromURIs parses uris and builds the archive backend they describe.
func (sf *StorageBackendFactory) BackendFromURIs(uris []string) (interfaces.StorageBackend, error) {
	locations := make([]interfaces.StorageBackendLocation, 0, len(uris))
	for _, uri := range uris {
		location, err := interfaces.NewStorageBackendLocation(uri)
		if err != nil {
			return nil, err
		}
		locations = append(locations, location)
	}
	return sf.CreateMultiBackend(locations)
}

// createIPFSBackend creates an IPFS storage backend.
// URI format: ipfs://host:port/mfs/root?timeout=30s
func (sf *StorageBackendFactory) createIPFSBackend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating IPFS backend", slog.String("uri", location.String()))

	host, port := location.Host, ""
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host, port = host[:i], host[i+1:]
	}

	timeout := 30 * time.Second
	if raw := location.GetParam("timeout"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid timeout %q", interfaces.ErrInvalidLocationURI, raw)
		}
		timeout = d
	}

	return NewIPFSBackend(host, port, location.Path, timeout, sf.log)
}

// createS3Backend creates an S3 or S3-compatible storage backend.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/path/?region=us-west-2&endpoint=custom.s3.com&acl=public-read&pathStyle=true
func (sf *StorageBackendFactory) createS3Backend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating S3 backend", slog.String("uri", location.String()))

	cfg := S3Config{
		Bucket:    location.Host,
		Prefix:    strings.TrimPrefix(location.Path, "/"),
		Region:    location.GetParam("region"),
		Endpoint:  location.GetParam("endpoint"),
		ACL:       location.GetParam("acl"),
		PathStyle: location.GetParamBool("pathStyle"),
	}
	if location.User != nil {
		cfg.AccessKey = location.User.Username()
		cfg.SecretKey, _ = location.User.Password()
		sf.log.Debug("Using embedded S3 credentials")
	}

	return NewS3Backend(cfg, sf.log)
}

// createFileBackend creates a file system storage backend.
// URI format: file:///absolute/path/ or file://./relative/path/
func (sf *StorageBackendFactory) createFileBackend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating file backend", slog.String("uri", location.String()))

	path := location.Path
	if location.Host != "" {
		path = location.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI %s", interfaces.ErrInvalidLocationURI, location.String())
	}

	return NewFileBackend(path, sf.log)
}

var _ interfaces.StorageBackendFactory = (*StorageBackendFactory)(nil)
