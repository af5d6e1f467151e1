package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	gcs "cloud.google.com/go/storage"
)

type GCSArchive struct {
	client *gcs.Client
	bucket string
}

func NewGCSArchive(ctx context.Context, bucket string) (*GCSArchive, error) {
	c, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GCSArchive{client: c, bucket: bucket}, nil
}

func (a *GCSArchive) Close() error { return a.client.Close() }

// Upload stores one audio clip. Objects stay private: this is children's
// voice data, readable only through SignedGetURL.
func (a *GCSArchive) Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (string, error) {
	obj := a.client.Bucket(a.bucket).Object(objectName)

	w := obj.NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	return fmt.Sprintf("gs://%s/%s", a.bucket, objectName), nil
}

// SignedGetURL mints a V4 read URL so the parent dashboard can play a clip
// without the bucket ever being public.
func (a *GCSArchive) SignedGetURL(ctx context.Context, objectName string, ttl time.Duration) (string, error) {
	return a.client.Bucket(a.bucket).SignedURL(objectName, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(ttl),
	})
}
