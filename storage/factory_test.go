package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/certificate-registry/interfaces"
)

func TestStorageBackendFactory_StorageBackendFor(t *testing.T) {
	factory := NewStorageBackendFactory(slog.New(slog.NewTextHandler(io.Discard, nil)))
	dir := t.TempDir()

	tests := []struct {
		name     string
		uri      string
		wantType interface{}
		wantErr  bool
	}{
		{name: "file", uri: "file://" + dir, wantType: &FileBackend{}},
		{name: "s3", uri: "s3://receipts/archive/?region=eu-west-1", wantType: &S3Backend{}},
		{name: "s3 with credentials", uri: "s3://AKID:SECRET@receipts/?endpoint=http://127.0.0.1:9000&pathStyle=true", wantType: &S3Backend{}},
		{name: "ipfs", uri: "ipfs://127.0.0.1:5001/registry?timeout=5s", wantType: &IPFSBackend{}},
		{name: "ipfs bad timeout", uri: "ipfs://127.0.0.1:5001/?timeout=soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			location, err := interfaces.NewStorageBackendLocation(tt.uri)
			require.NoError(t, err)

			backend, err := factory.StorageBackendFor(location)
			if tt.wantErr {
				assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, backend)
		})
	}
}

func TestStorageBackendFactory_BackendFromURIs(t *testing.T) {
	factory := NewStorageBackendFactory(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	single, err := factory.BackendFromURIs([]string{"file://" + t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, single)

	multi, err := factory.BackendFromURIs([]string{"file://" + t.TempDir(), "file://" + t.TempDir()})
	require.NoError(t, err)
	require.IsType(t, &MultiStorageBackend{}, multi)

	id, err := multi.Store(ctx, []byte("receipt"), interfaces.ReceiptType)
	require.NoError(t, err)
	data, err := multi.Fetch(ctx, id, interfaces.ReceiptType)
	require.NoError(t, err)
	assert.Equal(t, []byte("receipt"), data)

	_, err = factory.BackendFromURIs([]string{"ftp://example.com/archive"})
	assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)

	_, err = factory.BackendFromURIs(nil)
	assert.Error(t, err)
}
