package storage

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/xid"
	"golang.org/x/crypto/blake2b"
)

// LocalStore keeps uploads in a directory on disk and serves them through
// BaseURL (the server mounts Dir at /files/).
//
// Objects are content addressed: the name is the hex BLAKE2b-256 digest of
// the bytes plus the original extension. Uploading the same file twice yields
// the same reference and one copy on disk.
type LocalStore struct {
	Dir     string
	BaseURL string
}

// NewLocalStore creates dir if needed.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating %s: %w", dir, err)
	}
	return &LocalStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Upload streams f into a temp file while hashing it, then renames the temp
// file to its content address.
func (s *LocalStore) Upload(ctx context.Context, f *File) (string, error) {
	if f.IsEmpty() {
		return "", fmt.Errorf("storage: refusing to store an empty file")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.Dir, "upload-"+xid.New().String()+"-*")
	if err != nil {
		return "", fmt.Errorf("storage: creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	// Once renamed, the remove is a no-op.
	defer os.Remove(tmpName)

	h, err := blake2b.New256(nil)
	if err != nil {
		tmp.Close()
		return "", fmt.Errorf("storage: initialising hash: %w", err)
	}

	n, err := io.Copy(io.MultiWriter(tmp, h), f.Body)
	if err != nil {
		tmp.Close()
		return "", fmt.Errorf("storage: writing %s: %w", f.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("storage: closing temp file: %w", err)
	}
	if n == 0 {
		return "", fmt.Errorf("storage: %s has no content", f.Name)
	}

	name := hex.EncodeToString(h.Sum(nil)) + safeExt(f.Name)
	if err := os.Rename(tmpName, filepath.Join(s.Dir, name)); err != nil {
		return "", fmt.Errorf("storage: storing %s: %w", name, err)
	}
	return s.BaseURL + "/" + name, nil
}

// safeExt keeps a short alphanumeric extension and drops anything else, so a
// client-supplied filename can never steer the object path.
func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
