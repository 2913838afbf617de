package client

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

var (
	ErrNoCredential      = errors.New("no credential stored")
	ErrCredentialExpired = errors.New("stored credential expired")
	ErrCredentialInvalid = errors.New("stored credential is corrupt or was sealed with another passphrase")
)

// CredentialStore keeps the caller's API key between requests.
// A ttl <= 0 stores the key without expiry.
type CredentialStore interface {
	Load() (string, error)
	Save(key string, ttl time.Duration) error
	Clear() error
}

// MemoryStore holds the key in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	key     string
	expires time.Time
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == "" {
		return "", ErrNoCredential
	}
	if !s.expires.IsZero() && !s.now().Before(s.expires) {
		s.key = ""
		s.expires = time.Time{}
		return "", ErrCredentialExpired
	}
	return s.key, nil
}

func (s *MemoryStore) Save(key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = key
	s.expires = time.Time{}
	if ttl > 0 {
		s.expires = s.now().Add(ttl)
	}
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = ""
	s.expires = time.Time{}
	return nil
}

const (
	saltSize  = 16
	nonceSize = 24

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// FileStore seals the key on disk. The key is encrypted with secretbox under
// an argon2id key derived from the passphrase, and the ciphertext travels in
// an HS256 token signed with a second derived key. exp carries the expiry.
type FileStore struct {
	path       string
	passphrase []byte
	now        func() time.Time
}

func NewFileStore(path, passphrase string) *FileStore {
	return &FileStore{path: path, passphrase: []byte(passphrase), now: time.Now}
}

type sealedClaims struct {
	Salt   string `json:"salt"`
	Sealed string `json:"sealed"`
	jwt.RegisteredClaims
}

// deriveKeys returns the secretbox key and the token signing key.
func (s *FileStore) deriveKeys(salt []byte) (*[32]byte, []byte) {
	material := argon2.IDKey(s.passphrase, salt, argonTime, argonMemory, argonThreads, 64)
	var boxKey [32]byte
	copy(boxKey[:], material[:32])
	return &boxKey, material[32:]
}

func (s *FileStore) Save(key string, ttl time.Duration) error {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return err
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return err
	}
	boxKey, signKey := s.deriveKeys(salt)
	sealed := secretbox.Seal(nonce[:], []byte(key), &nonce, boxKey)

	now := s.now()
	claims := sealedClaims{
		Salt:   base64.RawURLEncoding.EncodeToString(salt),
		Sealed: base64.RawURLEncoding.EncodeToString(sealed),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signKey)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte(token), 0o600)
}

func (s *FileStore) Load() (string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoCredential
	}
	if err != nil {
		return "", err
	}

	var claims sealedClaims
	var boxKey *[32]byte
	_, err = jwt.ParseWithClaims(string(raw), &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		salt, err := base64.RawURLEncoding.DecodeString(claims.Salt)
		if err != nil || len(salt) != saltSize {
			return nil, ErrCredentialInvalid
		}
		var signKey []byte
		boxKey, signKey = s.deriveKeys(salt)
		return signKey, nil
	})
	if errors.Is(err, jwt.ErrTokenExpired) {
		return "", ErrCredentialExpired
	}
	if err != nil {
		return "", ErrCredentialInvalid
	}

	sealed, err := base64.RawURLEncoding.DecodeString(claims.Sealed)
	if err != nil || len(sealed) < nonceSize {
		return "", ErrCredentialInvalid
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	key, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, boxKey)
	if !ok {
		return "", ErrCredentialInvalid
	}
	return string(key), nil
}

func (s *FileStore) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
