package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/ruteri/certificate-registry/interfaces"
)

// DefaultIPFSRoot is the MFS directory archived content is written under.
const DefaultIPFSRoot = "/certificate-registry"

// IPFSBackend implements a storage backend on top of the mutable file system
// (MFS) of an IPFS node. Content is addressed by its SHA-256 content ID; the
// node assigns its own CID, which is logged.
type IPFSBackend struct {
	shell       *shell.Shell
	host        string
	port        string
	root        string
	log         *slog.Logger
	locationURI string
}

// NewIPFSBackend creates a new IPFS storage backend connected to the API of
// the node at host:port.
func NewIPFSBackend(host, port, root string, timeout time.Duration, log *slog.Logger) (*IPFSBackend, error) {
	if host == "" {
		return nil, fmt.Errorf("%w: missing IPFS host", interfaces.ErrInvalidLocationURI)
	}
	if port == "" {
		port = "5001"
	}
	if root == "" || root == "/" {
		root = DefaultIPFSRoot
	}
	if log == nil {
		log = slog.Default()
	}

	apiURL := fmt.Sprintf("%s:%s", host, port)
	sh := shell.NewShell(apiURL)
	if timeout > 0 {
		sh.SetTimeout(timeout)
	}

	return &IPFSBackend{
		shell:       sh,
		host:        host,
		port:        port,
		root:        path.Clean("/" + root),
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s%s?timeout=%s", apiURL, root, timeout),
	}, nil
}

// Fetch reads archived content from MFS.
// Returns ErrContentNotFound if the content doesn't exist or ErrBackendUnavailable
// if the IPFS node is not accessible.
func (b *IPFSBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	start := time.Now()
	mfsPath := b.getMFSPath(id, contentType)

	if !b.shell.IsUp() {
		b.log.Warn("IPFS node unavailable",
			slog.String("host", b.host),
			slog.String("port", b.port))
		return nil, interfaces.ErrBackendUnavailable
	}

	reader, err := b.shell.FilesRead(ctx, mfsPath)
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			return nil, interfaces.ErrContentNotFound
		}
		b.log.Error("Failed to read content from IPFS",
			slog.String("path", mfsPath),
			"err", err)
		return nil, fmt.Errorf("failed to read from IPFS: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read data from IPFS: %w", err)
	}
	if interfaces.ComputeID(data) != id {
		return nil, fmt.Errorf("%w: ipfs:%s", ErrContentMismatch, mfsPath)
	}

	b.log.Debug("Fetched content from IPFS",
		slog.String("path", mfsPath),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Store writes data to MFS and returns its content identifier.
// Returns ErrBackendUnavailable if the IPFS node is not accessible.
func (b *IPFSBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)
	mfsPath := b.getMFSPath(id, contentType)

	if !b.shell.IsUp() {
		return id, interfaces.ErrBackendUnavailable
	}

	err := b.shell.FilesWrite(ctx, mfsPath, bytes.NewReader(data),
		shell.FilesWrite.Create(true),
		shell.FilesWrite.Parents(true),
		shell.FilesWrite.Truncate(true))
	if err != nil {
		return id, fmt.Errorf("failed to write to IPFS: %w", err)
	}

	attrs := []any{slog.String("path", mfsPath), slog.String("contentID", id.String())}
	if stat, err := b.shell.FilesStat(ctx, mfsPath); err == nil {
		attrs = append(attrs, slog.String("ipfsCID", stat.Hash))
	}
	b.log.Debug("Stored content in IPFS", attrs...)

	return id, nil
}

// Available checks if the IPFS node is accessible.
func (b *IPFSBackend) Available(ctx context.Context) bool {
	return b.shell.IsUp()
}

// Name returns a unique identifier for this storage backend.
func (b *IPFSBackend) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", b.host, b.port)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *IPFSBackend) LocationURI() string {
	return b.locationURI
}

func (b *IPFSBackend) getMFSPath(id interfaces.ContentID, contentType interfaces.ContentType) string {
	return path.Join(b.root, contentType.String(), id.String())
}
