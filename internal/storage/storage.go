package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
)

// ErrFinished is returned by Object methods after Commit or Abort.
var ErrFinished = errors.New("storage: object already finished")

// Store is the destination for downloaded packages.
type Store struct {
	bucket *blob.Bucket
	dir    string // local directory for file stores, empty otherwise
	url    string
}

// Open opens dest. A value without a URL scheme is a local directory,
// created if missing; "file://" is treated the same way. Any other scheme
// registered with gocloud.dev/blob (e.g. "mem://") is opened as-is.
func Open(ctx context.Context, dest string) (*Store, error) {
	if dest == "" {
		dest = "."
	}

	dir, isLocal := localDir(dest)
	if !isLocal {
		bucket, err := blob.OpenBucket(ctx, dest)
		if err != nil {
			return nil, fmt.Errorf("opening bucket %s: %w", dest, err)
		}
		return &Store{bucket: bucket, url: dest}, nil
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving destination %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("creating destination %s: %w", abs, err)
	}
	bucket, err := fileblob.OpenBucket(abs, &fileblob.Options{
		Metadata:  fileblob.MetadataDontWrite,
		NoTempDir: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening destination %s: %w", abs, err)
	}
	return &Store{bucket: bucket, dir: abs, url: "file://" + filepath.ToSlash(abs)}, nil
}

func localDir(dest string) (string, bool) {
	if strings.HasPrefix(dest, "file://") {
		return strings.TrimPrefix(dest, "file://"), true
	}
	if !strings.Contains(dest, "://") {
		return dest, true
	}
	return "", false
}

// Path returns where key is stored: a filesystem path for local stores,
// otherwise the bucket URL joined with key.
func (s *Store) Path(key string) string {
	if s.dir != "" {
		return filepath.Join(s.dir, filepath.FromSlash(key))
	}
	if strings.HasSuffix(s.url, "/") {
		return s.url + key
	}
	return s.url + "/" + key
}

// Exists reports whether key has been committed.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	return s.bucket.Exists(ctx, key)
}

// ReadAll returns the committed contents of key.
func (s *Store) ReadAll(ctx context.Context, key string) ([]byte, error) {
	b, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return b, nil
}

// Close releases the bucket.
func (s *Store) Close() error {
	return s.bucket.Close()
}

// Object is a pending write. Nothing is visible under its key until Commit
// succeeds; Abort discards everything written so far.
type Object struct {
	w      *blob.Writer
	cancel context.CancelFunc

	mu       sync.Mutex
	finished bool
}

// NewObject starts a write to key.
func (s *Store) NewObject(ctx context.Context, key string) (*Object, error) {
	wctx, cancel := context.WithCancel(ctx)
	w, err := s.bucket.NewWriter(wctx, key, &blob.WriterOptions{
		ContentType: "application/x-rpm",
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating object %s: %w", key, err)
	}
	return &Object{w: w, cancel: cancel}, nil
}

func (o *Object) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.finished {
		return 0, ErrFinished
	}
	return o.w.Write(p)
}

// Commit makes the object visible.
func (o *Object) Commit() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.finished {
		return ErrFinished
	}
	o.finished = true
	defer o.cancel()
	if err := o.w.Close(); err != nil {
		return fmt.Errorf("committing object: %w", err)
	}
	return nil
}

// Abort discards the object. It is safe to call after Commit, in which case
// it does nothing.
func (o *Object) Abort() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.finished {
		return
	}
	o.finished = true
	o.cancel()
	_ = o.w.Close()
}
