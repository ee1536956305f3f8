// Package credstore provides the client's persistent credential storage:
// an opaque key-value store holding the auth token and the cached user
// record, sealed at rest.
package credstore

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

// Well-known keys. Nothing else is persisted on-device.
const (
	KeyToken    = "token"
	KeyUserData = "userData"
)

// Store is an opaque persistent key-value store. A missing key reads as the
// empty string, mirroring platform secure stores.
type Store interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
}

// FileStore persists the key-value map as a single encrypted file.
type FileStore struct {
	mu   sync.Mutex
	path string
	aead interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	}
}

// NewFileStore creates a FileStore at path, deriving the sealing key from
// secret. The file is created lazily on first Set.
func NewFileStore(path, secret string) (*FileStore, error) {
	if secret == "" {
		return nil, errors.New("credstore: secret is required")
	}
	key := sha256.Sum256([]byte(secret))
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, fmt.Errorf("credstore: %w", err)
	}
	return &FileStore{path: path, aead: aead}, nil
}

func (s *FileStore) load() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("credstore: read: %w", err)
	}
	if len(raw) < chacha20poly1305.NonceSizeX {
		return nil, errors.New("credstore: file truncated")
	}
	nonce, sealed := raw[:chacha20poly1305.NonceSizeX], raw[chacha20poly1305.NonceSizeX:]
	plain, err := s.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("credstore: unseal: %w", err)
	}
	values := map[string]string{}
	if err := json.Unmarshal(plain, &values); err != nil {
		return nil, fmt.Errorf("credstore: decode: %w", err)
	}
	return values, nil
}

func (s *FileStore) save(values map[string]string) error {
	plain, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("credstore: encode: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("credstore: nonce: %w", err)
	}
	sealed := s.aead.Seal(nil, nonce, plain, nil)
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("credstore: mkdir: %w", err)
		}
	}
	return os.WriteFile(s.path, append(nonce, sealed...), 0o600)
}

// Set stores value under key.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	return s.save(values)
}

// Get returns the value for key, or the empty string when absent.
func (s *FileStore) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return "", err
	}
	return values[key], nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.save(values)
}
