// Package filekv stores each key as a file in one directory.
package filekv

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dvloznov/smart-finance/internal/store"
)

// KV writes key K to <dir>/K. Writes go through a temporary file and a
// rename, so a crash never leaves a half-written blob behind.
type KV struct {
	dir string
}

// Open creates dir if needed.
func Open(dir string) (*KV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filekv.Open: mkdir %q: %w", dir, err)
	}
	return &KV{dir: dir}, nil
}

// Get implements store.KV.
func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := k.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("filekv.Get: %w", err)
	}
	return data, nil
}

// Put implements store.KV.
func (k *KV) Put(ctx context.Context, key string, value []byte) error {
	path, err := k.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(k.dir, "."+key+".*")
	if err != nil {
		return fmt.Errorf("filekv.Put: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("filekv.Put: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("filekv.Put: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("filekv.Put: rename: %w", err)
	}
	return nil
}

// Close implements store.KV.
func (k *KV) Close() error { return nil }

func (k *KV) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("filekv: invalid key %q", key)
	}
	return filepath.Join(k.dir, key), nil
}

var _ store.KV = (*KV)(nil)
