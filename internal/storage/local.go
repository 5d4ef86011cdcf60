package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Local keeps proof images under one directory and serves them by URL
// prefix. Fine for development and single-node deploys.
type Local struct {
	Dir       string
	URLPrefix string
}

func NewLocal(dir, urlPrefix string) *Local {
	return &Local{Dir: dir, URLPrefix: urlPrefix}
}

func (l *Local) Put(ctx context.Context, r io.Reader, in UploadInput) (StoredObject, error) {
	_ = ctx

	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return StoredObject{}, err
	}

	key := proofKey(in.Filename)
	dst := filepath.Join(l.Dir, key)

	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return StoredObject{}, err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return StoredObject{}, err
	}

	url := strings.TrimRight(l.URLPrefix, "/") + "/" + key
	return StoredObject{Key: key, URL: url}, nil
}

// Delete strips any path component so a crafted key cannot reach outside
// the proof directory.
func (l *Local) Delete(ctx context.Context, key string) error {
	_ = ctx
	return os.Remove(filepath.Join(l.Dir, filepath.Base(key)))
}

// proofKey issues a fresh random name, keeping the extension only when it
// is one of the image formats the upload form accepts.
func proofKey(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp", ".gif":
	default:
		ext = ""
	}
	return "proof_" + uuid.NewString() + ext
}

func (l *Local) String() string { return fmt.Sprintf("local(%s)", l.Dir) }
