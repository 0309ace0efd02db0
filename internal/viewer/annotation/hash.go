package annotation

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

var ErrHashing = errors.New("content hashing failed")

// ContentHash - hex(SHA-256) байтов исходного файла, ключ хранилища аннотаций.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashReader считает ContentHash потоково.
func HashReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashing, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// StorageKey - ключ записи в хранилище.
func StorageKey(hash string) string {
	return "markers-" + hash
}
