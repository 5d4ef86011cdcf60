// Package storage persists the proof images operators attach to review
// line items. The resulting URLs are embedded in the append-only
// picture-reply log, so a key must stay resolvable once it has been
// handed out.
package storage

import (
	"context"
	"io"
)

// UploadInput describes one proof image as received from the admin
// upload form.
type UploadInput struct {
	Filename    string
	ContentType string
	Size        int64
}

// StoredObject is the durable handle for an uploaded proof. URL is what
// the customer-facing reply log links to.
type StoredObject struct {
	Key string
	URL string
}

type Storage interface {
	Put(ctx context.Context, r io.Reader, in UploadInput) (StoredObject, error)
	Delete(ctx context.Context, key string) error
}
