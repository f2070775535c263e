package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/certificate-registry/interfaces"
)

// MultiStorageBackend implements interfaces.StorageBackend using multiple backends.
// Stores fan out to every available backend; fetches fall back in order.
type MultiStorageBackend struct {
	backends []interfaces.StorageBackend
	log      *slog.Logger
}

// NewMultiStorageBackend creates a new multi-storage backend with fallback.
func NewMultiStorageBackend(backends []interfaces.StorageBackend, logger *slog.Logger) *MultiStorageBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &MultiStorageBackend{
		backends: backends,
		log:      logger,
	}
}

// Fetch returns the content from the first available backend that has it.
func (m *MultiStorageBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	start := time.Now()
	var errs []error
	contentIDStr := fmt.Sprintf("%x", id[:8])

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable",
				slog.String("backend_name", backend.Name()),
				slog.String("content_id", contentIDStr))
			continue
		}

		data, err := backend.Fetch(ctx, id, contentType)
		if err == nil {
			m.log.Debug("Fetched content",
				slog.String("backend_name", backend.Name()),
				slog.String("content_id", contentIDStr),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}

		errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
		m.log.Debug("Failed to fetch from backend",
			slog.String("backend_name", backend.Name()),
			slog.String("content_id", contentIDStr),
			"err", err)
	}

	if len(errs) == 0 {
		return nil, interfaces.ErrBackendUnavailable
	}
	return nil, fmt.Errorf("all backends failed to fetch %s: %w", contentIDStr, errors.Join(errs...))
}

// Store saves data to all available backends. It succeeds when at least one
// backend stored the content.
func (m *MultiStorageBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	start := time.Now()
	var (
		result  interfaces.ContentID
		success bool
		errs    []error
	)

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable", slog.String("backend_name", backend.Name()))
			continue
		}

		id, err := backend.Store(ctx, data, contentType)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			m.log.Warn("Failed to store to backend",
				slog.String("backend_name", backend.Name()),
				"err", err)
			continue
		}

		if !success {
			result = id
			success = true
		} else if result != id {
			m.log.Warn("Inconsistent content IDs from backends",
				slog.String("backend_name", backend.Name()),
				slog.String("expected_id", result.String()),
				slog.String("actual_id", id.String()))
		}
	}

	if !success {
		m.log.Error("All backends failed to store data",
			slog.Int("failed_backends", len(errs)),
			slog.Duration("duration", time.Since(start)))
		if len(errs) == 0 {
			return result, interfaces.ErrBackendUnavailable
		}
		return result, fmt.Errorf("all backends failed to store data: %w", errors.Join(errs...))
	}

	m.log.Debug("Stored content",
		slog.String("content_id", result.String()),
		slog.Int("failed_backends", len(errs)),
		slog.Duration("duration", time.Since(start)))
	return result, nil
}

// Available checks if any backend is available.
func (m *MultiStorageBackend) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if backend.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns the name of this backend.
func (m *MultiStorageBackend) Name() string {
	return "multi-storage"
}

// LocationURI returns a combined URI of all backends.
func (m *MultiStorageBackend) LocationURI() string {
	locations := make([]string, 0, len(m.backends))
	for _, backend := range m.backends {
		locations = append(locations, backend.LocationURI())
	}
	return "multi:[" + strings.Join(locations, ",") + "]"
}
