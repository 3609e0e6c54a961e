// Package session persists the tracker login between runs as an encrypted
// file so the password is never stored.
package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"zentaohelper/internal/logging"
)

// DefaultTTL is how long a saved session stays usable.
const DefaultTTL = 24 * time.Hour

// UserInfo identifies the logged-in account.
type UserInfo struct {
	ID       int    `json:"id"`
	Account  string `json:"account"`
	Realname string `json:"realname,omitempty"`
}

// Data is the saved session.
type Data struct {
	User      string            `json:"user"`
	Token     string            `json:"token"`
	Cookies   map[string]string `json:"cookies,omitempty"`
	UserInfo  UserInfo          `json:"user_info"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// Options configures a Store. Secret wins over KeyFile.
type Options struct {
	Path    string
	KeyFile string
	Secret  string
	TTL     time.Duration
}

// Store reads and writes one session file.
type Store struct {
	mu   sync.Mutex
	path string
	key  [32]byte
	ttl  time.Duration
	now  func() time.Time
}

// New resolves the encryption key and returns a store. The session file
// itself is not touched until Load or Save.
func New(opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, errors.New("session: path is required")
	}
	secret := opts.Secret
	if secret == "" {
		if opts.KeyFile == "" {
			return nil, errors.New("session: either a secret or a key file is required")
		}
		var err error
		if secret, err = loadOrCreateKey(opts.KeyFile); err != nil {
			return nil, err
		}
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		path: opts.Path,
		key:  sha256.Sum256([]byte(secret)),
		ttl:  ttl,
		now:  time.Now,
	}, nil
}

// loadOrCreateKey reads the hex key from path, creating a random one on first use.
func loadOrCreateKey(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		if key := strings.TrimSpace(string(raw)); key != "" {
			return key, nil
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("session: read key file: %w", err)
	}

	buf := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("session: generate key: %w", err)
	}
	key := hex.EncodeToString(buf)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("session: create key dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(key+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("session: write key file: %w", err)
	}
	logging.Session("created session key at %s", path)
	return key, nil
}

// Path returns the session file location.
func (s *Store) Path() string { return s.path }

// Save stamps the expiry and writes the encrypted session.
func (s *Store) Save(d *Data) error {
	if d == nil {
		return errors.New("session: nil data")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	d.ExpiresAt = s.now().UTC().Add(s.ttl)
	plain, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	sealed, err := s.seal(plain)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("session: create dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(sealed), 0o600); err != nil {
		return fmt.Errorf("session: write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("session: replace: %w", err)
	}
	logging.Session("session saved for %s (expires %s)", d.User, d.ExpiresAt.Format(time.RFC3339))
	return nil
}

// Load returns the saved session, or false when it is missing, unreadable
// or expired.
func (s *Store) Load() (*Data, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logging.SessionWarn("read session file: %v", err)
		} else {
			logging.SessionDebug("no session file at %s", s.path)
		}
		return nil, false
	}
	plain, err := s.open(strings.TrimSpace(string(raw)))
	if err != nil {
		logging.SessionWarn("session file unreadable: %v", err)
		return nil, false
	}
	var d Data
	if err := json.Unmarshal(plain, &d); err != nil {
		logging.SessionWarn("session file malformed: %v", err)
		return nil, false
	}
	if d.ExpiresAt.IsZero() || !s.now().Before(d.ExpiresAt) {
		logging.Session("session for %s expired", d.User)
		return nil, false
	}
	logging.SessionDebug("session loaded for %s", d.User)
	return &d, true
}

// Valid reports whether Load would succeed.
func (s *Store) Valid() bool {
	_, ok := s.Load()
	return ok
}

// Clear removes the session file. A missing file is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("session: clear: %w", err)
	}
	logging.Session("session cleared")
	return nil
}

// seal encrypts with AES-256-GCM; the nonce is prepended and the result hex encoded.
func (s *Store) seal(plain []byte) (string, error) {
	gcm, err := s.aead()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("session: nonce: %w", err)
	}
	return hex.EncodeToString(gcm.Seal(nonce, nonce, plain, nil)), nil
}

func (s *Store) open(sealed string) ([]byte, error) {
	data, err := hex.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	gcm, err := s.aead()
	if err != nil {
		return nil, err
	}
	if len(data) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, body := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plain, nil
}

func (s *Store) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key[:])
	if err != nil {
		return nil, fmt.Errorf("session: aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("session: gcm: %w", err)
	}
	return gcm, nil
}
