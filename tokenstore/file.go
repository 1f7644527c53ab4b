package tokenstore

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	fileMagic     = "GST1"
	fileSaltLen   = 16
	minPassphrase = 10
)

// KDFConfig holds the Argon2id parameters used to derive the file key.
type KDFConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
}

// DefaultKDFConfig returns the parameters used when none are given.
func DefaultKDFConfig() KDFConfig {
	return KDFConfig{Memory: 64 * 1024, Time: 1, Parallelism: 4}
}

func (c KDFConfig) validate() error {
	if c.Memory < 8*1024 {
		return errors.New("kdf memory must be >= 8192 KB")
	}
	if c.Time < 1 {
		return errors.New("kdf time must be >= 1")
	}
	if c.Parallelism < 1 {
		return errors.New("kdf parallelism must be >= 1")
	}
	return nil
}

type filePayload struct {
	Tokens map[string]string `json:"tokens"`
}

// FileStore keeps the pair in a single sealed file. The file layout is
// magic | salt | nonce | ciphertext; the key is derived from a passphrase
// with Argon2id and cached per salt.
type FileStore struct {
	path       string
	passphrase []byte
	kdf        KDFConfig
	keys       Keys

	mu   sync.Mutex
	salt []byte
	key  []byte
}

// NewFileStore returns a FileStore writing to path.
func NewFileStore(path string, passphrase []byte, keys Keys, kdf KDFConfig) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file store path must not be empty")
	}
	if len(passphrase) < minPassphrase {
		return nil, errors.New("file store passphrase must be at least 10 bytes")
	}
	if err := kdf.validate(); err != nil {
		return nil, err
	}
	return &FileStore{
		path:       path,
		passphrase: append([]byte(nil), passphrase...),
		kdf:        kdf,
		keys:       keys.normalized(),
	}, nil
}

// Load decrypts the file. A missing file is an empty store.
func (s *FileStore) Load(context.Context) (Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Tokens{}, nil
		}
		return Tokens{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	payload, err := s.open(data)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{
		AccessToken:  payload.Tokens[s.keys.Access],
		RefreshToken: payload.Tokens[s.keys.Refresh],
	}, nil
}

// Save seals the pair and replaces the file via rename.
func (s *FileStore) Save(_ context.Context, tokens Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tokens.Empty() {
		return s.remove()
	}

	payload := filePayload{Tokens: map[string]string{}}
	if tokens.AccessToken != "" {
		payload.Tokens[s.keys.Access] = tokens.AccessToken
	}
	if tokens.RefreshToken != "" {
		payload.Tokens[s.keys.Refresh] = tokens.RefreshToken
	}
	plain, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	sealed, err := s.seal(plain)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, sealed)
}

// Clear removes the file.
func (s *FileStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove()
}

func (s *FileStore) remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *FileStore) deriveKey(salt []byte) []byte {
	if s.key != nil && bytes.Equal(s.salt, salt) {
		return s.key
	}
	s.salt = append([]byte(nil), salt...)
	s.key = argon2.IDKey(s.passphrase, salt, s.kdf.Time, s.kdf.Memory, s.kdf.Parallelism, chacha20poly1305.KeySize)
	return s.key
}

func (s *FileStore) seal(plain []byte) ([]byte, error) {
	salt := s.salt
	if salt == nil {
		salt = make([]byte, fileSaltLen)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, err
		}
	}
	aead, err := chacha20poly1305.NewX(s.deriveKey(salt))
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(fileMagic)+len(salt)+len(nonce)+len(plain)+aead.Overhead())
	out = append(out, fileMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plain, []byte(fileMagic)), nil
}

func (s *FileStore) open(data []byte) (*filePayload, error) {
	header := len(fileMagic) + fileSaltLen + chacha20poly1305.NonceSizeX
	if len(data) < header+chacha20poly1305.Overhead || string(data[:len(fileMagic)]) != fileMagic {
		return nil, ErrCorrupt
	}
	salt := data[len(fileMagic) : len(fileMagic)+fileSaltLen]
	nonce := data[len(fileMagic)+fileSaltLen : header]

	aead, err := chacha20poly1305.NewX(s.deriveKey(salt))
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, nonce, data[header:], []byte(fileMagic))
	if err != nil {
		return nil, ErrCorrupt
	}

	var payload filePayload
	if err := json.Unmarshal(plain, &payload); err != nil {
		return nil, ErrCorrupt
	}
	return &payload, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tokens-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
