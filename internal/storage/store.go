// Package storage is the blob store ideas attach their files to.
//
// A Store takes the bytes of an upload and hands back a reference (a URL)
// that is kept on the idea. Nothing else about the file is persisted by the
// service layer: the reference is opaque to it.
package storage

import (
	"context"
	"io"
)

// Store persists file payloads and returns a stable reference to them.
// Upload is synchronous; an error means nothing usable was stored.
type Store interface {
	Upload(ctx context.Context, f *File) (string, error)
}

// File is one uploaded payload as received from the client.
type File struct {
	Name        string // original filename, only its extension is kept
	ContentType string
	Size        int64
	Body        io.Reader
}

// IsEmpty reports whether there is nothing to store. A multipart form with an
// empty file input arrives as a zero-size part and counts as no file.
func (f *File) IsEmpty() bool {
	return f == nil || f.Body == nil || f.Size == 0
}
