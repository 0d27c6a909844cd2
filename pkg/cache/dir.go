package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const (
	dirMode  = 0o700
	fileMode = 0o600
)

// DirStore writes one file per entry, named by fingerprint.
type DirStore struct {
	dir    string
	logger *zap.Logger
}

func NewDirStore(dir string, logger *zap.Logger) (*DirStore, error) {
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	return &DirStore{dir: dir, logger: logger}, nil
}

func (d *DirStore) Get(fingerprint string) (*Entry, error) {
	data, err := os.ReadFile(d.path(fingerprint))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrMiss
		}

		return nil, err
	}

	var entry Entry
	if err = json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decoding cache entry %s: %w", fingerprint, err)
	}

	return &entry, nil
}

func (d *DirStore) Put(fingerprint string, entry Entry) error {
	target := d.path(fingerprint)
	if _, err := os.Stat(target); err == nil {
		d.logger.Debug("cache entry already present", zap.String("fingerprint", fingerprint))

		return nil
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(d.dir, fingerprint+".*.tmp")
	if err != nil {
		return err
	}

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return err
	}

	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return err
	}

	if err = os.Chmod(tmp.Name(), fileMode); err != nil {
		_ = os.Remove(tmp.Name())

		return err
	}

	return os.Rename(tmp.Name(), target)
}

func (d *DirStore) Close() error {
	return nil
}

func (d *DirStore) path(fingerprint string) string {
	return filepath.Join(d.dir, fingerprint)
}
