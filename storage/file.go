package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ruteri/certificate-registry/interfaces"
)

// ErrContentMismatch is returned when stored bytes no longer hash to their content ID.
var ErrContentMismatch = errors.New("stored content does not match its content ID")

// FileBackend implements a storage backend using the local file system.
// Content is stored in one subdirectory per content type.
type FileBackend struct {
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates a new file storage backend using the specified base directory.
// It creates subdirectories for the archived content types if they don't exist.
func NewFileBackend(baseDir string, log *slog.Logger) (*FileBackend, error) {
	if log == nil {
		log = slog.Default()
	}

	for _, ct := range []interfaces.ContentType{interfaces.ReceiptType, interfaces.CertificateType} {
		dir := filepath.Join(baseDir, ct.String())
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", ct, err)
		}
	}

	return &FileBackend{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Fetch retrieves data from the file system by its content identifier and type.
// Returns ErrContentNotFound if the file doesn't exist.
func (b *FileBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	filePath := b.getFilePath(id, contentType)

	data, err := os.ReadFile(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, interfaces.ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if interfaces.ComputeID(data) != id {
		b.log.Warn("Archived content corrupted", slog.String("path", filePath))
		return nil, fmt.Errorf("%w: %s", ErrContentMismatch, filePath)
	}

	b.log.Debug("Fetched content from file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return data, nil
}

// Store saves data to the file system and returns its content identifier.
// Content is written to a temporary file first so readers never observe a partial write.
func (b *FileBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)
	filePath := b.getFilePath(id, contentType)

	if _, err := os.Stat(filePath); err == nil {
		b.log.Debug("Content already stored", slog.String("path", filePath))
		return id, nil
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return id, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".tmp-*")
	if err != nil {
		return id, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return id, fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return id, fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return id, fmt.Errorf("failed to move file into place: %w", err)
	}

	b.log.Debug("Stored content in file",
		slog.String("path", filePath),
		slog.String("contentID", id.String()))

	return id, nil
}

// Available checks if the file backend is accessible by verifying the base directory exists.
func (b *FileBackend) Available(ctx context.Context) bool {
	_, err := os.Stat(b.baseDir)
	if err != nil {
		b.log.Debug("File backend unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this storage backend.
func (b *FileBackend) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.baseDir))
}

// LocationURI returns the URI that identifies this storage backend.
func (b *FileBackend) LocationURI() string {
	return b.locationURI
}

func (b *FileBackend) getFilePath(id interfaces.ContentID, contentType interfaces.ContentType) string {
	return filepath.Join(b.baseDir, contentType.String(), id.String())
}
