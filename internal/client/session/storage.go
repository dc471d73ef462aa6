package session

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Storage is durable client-side key/value storage. Load returns ErrNoValue for absent keys.
type Storage interface {
	Load(key string) ([]byte, error)
	Save(key string, value []byte) error
	Remove(key string) error
}

// ErrNoValue reports an absent key.
var ErrNoValue = errors.New("no value")

// FileStorage keeps one file per key under Dir.
type FileStorage struct {
	Dir string
}

func (f FileStorage) path(key string) string { return filepath.Join(f.Dir, key+".json") }

func (f FileStorage) Load(key string) ([]byte, error) {
	b, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoValue
	}
	return b, err
}

// Save writes atomically through a temp file so a crash never leaves half a record.
func (f FileStorage) Save(key string, value []byte) error {
	if err := os.MkdirAll(f.Dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.Dir, key+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.path(key))
}

func (f FileStorage) Remove(key string) error {
	err := os.Remove(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
