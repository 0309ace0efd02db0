package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrSourceNotStored = errors.New("source file not stored")

// ============================================================
// File Storage
// ============================================================

// FileStorage хранит исходные файлы по хешу содержимого: <root>/<ab>/<hash><ext>.
type FileStorage struct {
	root string
}

func NewFileStorage(root string) *FileStorage {
	return &FileStorage{root: root}
}

func (s *FileStorage) Dir(hash string) string {
	prefix := hash
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	return filepath.Join(s.root, prefix)
}

func (s *FileStorage) Path(hash, filename string) string {
	return filepath.Join(s.Dir(hash), hash+strings.ToLower(filepath.Ext(filename)))
}

func (s *FileStorage) EnsureDir(hash string) error {
	if err := os.MkdirAll(s.Dir(hash), 0o755); err != nil {
		return fmt.Errorf("mkdir source dir: %w", err)
	}
	return nil
}

// Save записывает файл, если его ещё нет: одинаковые байты дают один файл.
func (s *FileStorage) Save(hash, filename string, data []byte) error {
	if !validHash(hash) {
		return fmt.Errorf("invalid content hash %q", hash)
	}
	target := s.Path(hash, filename)
	if _, err := os.Stat(target); err == nil {
		return nil
	}
	if err := s.EnsureDir(hash); err != nil {
		return err
	}

	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write source: %w", err)
	}
	return os.Rename(tmp, target)
}

func (s *FileStorage) Load(hash, filename string) ([]byte, error) {
	if !validHash(hash) {
		return nil, ErrSourceNotStored
	}
	data, err := os.ReadFile(s.Path(hash, filename))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrSourceNotStored
		}
		return nil, fmt.Errorf("read source: %w", err)
	}
	return data, nil
}

// validHash не пускает в путь ничего, кроме hex-строки SHA-256.
func validHash(hash string) bool {
	if len(hash) != 64 {
		return false
	}
	for _, r := range hash {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}
