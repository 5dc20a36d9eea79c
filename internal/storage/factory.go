package storage

import (
	"fmt"
	"strings"

	"github.com/timmy/lookaloud/internal/config"
)

// StorageType defines the flavour of object storage.
type StorageType string

const (
	StorageTypeMinIO        StorageType = "minio"
	StorageTypeR2           StorageType = "r2"
	StorageTypeS3           StorageType = "s3"
	StorageTypeS3Compatible StorageType = "s3compatible"
	StorageTypeMemory       StorageType = "memory"
)

// NewStorage creates an AudioStore from the storage configuration.
// MinIO uses minio-go, memory keeps objects in process, and every other type
// goes through the AWS SDK.
// Parameters:
//   - cfg: storage section of the application config.
//
// Returns:
//   - AudioStore: initialized storage client implementation.
//   - error: non-nil if the storage client cannot be created.
func NewStorage(cfg *config.StorageConfig) (AudioStore, error) {
	storeType := StorageType(strings.ToLower(strings.TrimSpace(cfg.Type)))
	if storeType == "" {
		storeType = detectStorageType(cfg.Endpoint)
	}

	switch storeType {
	case StorageTypeMemory:
		return NewMemoryStorage(), nil
	case StorageTypeMinIO:
		return NewMinIOStorage(cfg)
	case StorageTypeR2, StorageTypeS3, StorageTypeS3Compatible:
		return NewS3Storage(cfg, storeType)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
}

// detectStorageType guesses the storage type from the endpoint host.
func detectStorageType(endpoint string) StorageType {
	endpoint = strings.ToLower(endpoint)

	switch {
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return StorageTypeR2
	case strings.Contains(endpoint, "amazonaws.com"):
		return StorageTypeS3
	case strings.Contains(endpoint, "minio"), strings.HasSuffix(normalizeEndpoint(endpoint), ":9000"):
		return StorageTypeMinIO
	default:
		return StorageTypeS3Compatible
	}
}

// normalizeEndpoint strips the scheme and any path from an endpoint.
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")

	if idx := strings.Index(endpoint, "/"); idx != -1 {
		endpoint = endpoint[:idx]
	}
	return endpoint
}

// objectURL joins a base, a bucket and a key into a path-style URL.
func objectURL(publicURL, scheme, endpoint, bucket, key string) string {
	if publicURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimSuffix(publicURL, "/"), key)
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, endpoint, bucket, key)
}
