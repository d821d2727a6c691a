package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Keys of the client's persisted state.
const (
	KeyReaderSettings = "reader-settings"
	KeyAuthSession    = "auth-session"
	KeyDeviceID       = "device-id"

	// CoverHashPrefix namespaces cached blurhash placeholders by cover URL.
	CoverHashPrefix = "cover-hash:"
)

// CoverHashKey returns the cache key for a cover URL.
func CoverHashKey(coverURL string) string {
	return CoverHashPrefix + coverURL
}

// DeviceID returns the persisted device identifier, creating a random UUID
// on first use. It identifies this installation to the server.
func DeviceID(ctx context.Context, kv KV) (string, error) {
	data, err := kv.Get(ctx, KeyDeviceID)
	if err == nil {
		if id, perr := uuid.ParseBytes(data); perr == nil {
			return id.String(), nil
		}
	} else if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	id := uuid.New().String()
	if err := kv.Set(ctx, KeyDeviceID, []byte(id)); err != nil {
		return "", fmt.Errorf("persist device id: %w", err)
	}
	return id, nil
}
