package storage

import (
	"context"
	"io"
	"time"
)

// Uploader archives capture audio for parental review. Uploads are private;
// access goes through short-lived signed URLs, never public ACLs.
type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
}

type Signer interface {
	SignedGetURL(ctx context.Context, objectName string, ttl time.Duration) (string, error)
}
