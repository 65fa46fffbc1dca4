package storage

import (
	"context"
	"io"
	"time"
)

// ArtifactStore holds evidence bytes: original uploads and enhanced outputs.
// Objects are written once and read back for analysis and integrity checks;
// nothing here overwrites or deletes.
type ArtifactStore interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
	Download(ctx context.Context, objectName string) ([]byte, error)
}

// Signer issues short-lived read URLs for case workers to fetch artifacts
// without the store credentials.
type Signer interface {
	SignedGetURL(ctx context.Context, objectName string, ttl time.Duration) (string, error)
}
