package store

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

type fileStore struct {
	base string
}

// NewFileStore creates a store rooted at the given directory, creating it if
// needed. Keys map to relative file paths under the root.
func NewFileStore(base string) (Store, error) {
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(base, 0755); err != nil {
		return nil, errors.Wrapf(err, "create %s", base)
	}
	return &fileStore{base: base}, nil
}

func (s *fileStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(key))
	if clean == "/" || strings.Contains(key, "..") {
		return "", errors.Errorf("invalid key %q", key)
	}
	return filepath.Join(s.base, clean), nil
}

func (s *fileStore) Get(key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(ErrNotFound, key)
	}
	return data, err
}

// Put writes to a temporary file and renames it into place, so a value is
// either fully written or not visible at all.
func (s *fileStore) Put(key string, value []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return errors.Wrapf(err, "put %s", key)
	}
	tmp := fmt.Sprintf("%s.tmp.%d", p, os.Getpid())
	if err := os.WriteFile(tmp, value, 0644); err != nil {
		return errors.Wrapf(err, "put %s", key)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrapf(err, "put %s", key)
	}
	return nil
}

func (s *fileStore) Delete(key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "delete %s", key)
	}
	return nil
}

func (s *fileStore) Contains(key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	st, err := os.Stat(p)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !st.IsDir(), nil
}

func (s *fileStore) List(prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.base, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(s.base, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	return keys, err
}

func (s *fileStore) Info() Info {
	return Info{
		Name:            "file://" + s.base,
		SupportsWrites:  true,
		SupportsDeletes: true,
		SupportsListing: true,
	}
}
