// Package profile provides durable, name-keyed storage of browser profiles.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Store errors, surfaced to callers as result values and never fatal
var (
	ErrAlreadyExists = errors.New("profile already exists")
	ErrNotFound      = errors.New("profile does not exist")
)

const metadataFile = "profiles_metadata.json"

// Record holds one saved browser identity: credentials, proxy and the
// filesystem path reserved for its browser-session data.
type Record struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Email       string     `json:"email"`
	Password    string     `json:"password"`
	Proxy       string     `json:"proxy"`
	TwoFASecret string     `json:"twofa_secret"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUsed    *time.Time `json:"last_used"`
	Path        string     `json:"path"`
}

// Info carries the optional fields for a new profile.
type Info struct {
	Description string
	Email       string
	Password    string
	Proxy       string
	TwoFASecret string
}

// Store is a keyed record store persisted to a single JSON document. Every
// mutation rewrites the full document; one mutex serializes all
// load/mutate/persist cycles. Single-process, single-writer usage is assumed.
type Store struct {
	dir      string
	metaPath string
	codec    Codec

	mu      sync.Mutex
	records map[string]*Record
	order   []string
	now     func() time.Time
}

// Open loads the store rooted at dir, creating the directory and an empty
// metadata document if none exists. A nil codec stores records as plain JSON.
func Open(dir string, codec Codec) (*Store, error) {
	if codec == nil {
		codec = PlainCodec{}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create profiles directory: %w", err)
	}

	s := &Store{
		dir:      dir,
		metaPath: filepath.Join(dir, metadataFile),
		codec:    codec,
		records:  make(map[string]*Record),
		now:      time.Now,
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	return s, nil
}

// load reads the metadata document, tolerating a missing file.
func (s *Store) load() error {
	raw, err := os.ReadFile(s.metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return s.persistLocked()
		}
		return fmt.Errorf("failed to read metadata: %w", err)
	}

	plain, err := s.codec.Decode(raw)
	if err != nil {
		return fmt.Errorf("failed to decode metadata: %w", err)
	}

	if err := json.Unmarshal(plain, &s.records); err != nil {
		return fmt.Errorf("failed to parse metadata: %w", err)
	}

	// The document is a JSON object, so insertion order is not recoverable.
	// Rebuild display order from creation timestamps instead.
	s.order = make([]string, 0, len(s.records))
	for name := range s.records {
		s.order = append(s.order, name)
	}
	sort.Slice(s.order, func(i, j int) bool {
		a, b := s.records[s.order[i]], s.records[s.order[j]]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.Name < b.Name
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	return nil
}

// persistLocked rewrites the full metadata document. Callers hold s.mu.
func (s *Store) persistLocked() error {
	plain, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize metadata: %w", err)
	}

	raw, err := s.codec.Encode(plain)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	if err := os.WriteFile(s.metaPath, raw, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	return nil
}

// Create adds a new profile and its session directory. Returns
// ErrAlreadyExists when the name is taken; the existing record is untouched.
func (s *Store) Create(name string, info Info) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[name]; ok {
		return ErrAlreadyExists
	}

	sessionDir := filepath.Join(s.dir, name)
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	s.records[name] = &Record{
		Name:        name,
		Description: info.Description,
		Email:       info.Email,
		Password:    info.Password,
		Proxy:       info.Proxy,
		TwoFASecret: info.TwoFASecret,
		CreatedAt:   s.now(),
		Path:        sessionDir,
	}
	s.order = append(s.order, name)

	if err := s.persistLocked(); err != nil {
		return err
	}

	log.Debug("Profile created", "name", name, "has_proxy", info.Proxy != "")
	return nil
}

// Delete removes a profile and recursively deletes its session directory,
// tolerating a directory that is already gone.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[name]
	if !ok {
		return ErrNotFound
	}

	if rec.Path != "" {
		if err := os.RemoveAll(rec.Path); err != nil {
			return fmt.Errorf("failed to remove session directory: %w", err)
		}
	}

	delete(s.records, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	if err := s.persistLocked(); err != nil {
		return err
	}

	log.Debug("Profile deleted", "name", name)
	return nil
}

// List returns profile names in insertion order.
func (s *Store) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, len(s.order))
	copy(names, s.order)
	return names
}

// Get returns a copy of the named record.
func (s *Store) Get(name string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[name]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Touch sets last_used to now and persists. Unknown names are a no-op.
func (s *Store) Touch(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[name]
	if !ok {
		return nil
	}

	t := s.now()
	rec.LastUsed = &t
	return s.persistLocked()
}

// Path returns the session directory reserved for the named profile.
func (s *Store) Path(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[name]
	if !ok {
		return "", false
	}
	return rec.Path, true
}

// FindByEmail returns the name of the profile with the given email.
func (s *Store) FindByEmail(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range s.order {
		if s.records[name].Email == email {
			return name, true
		}
	}
	return "", false
}

// Len returns the number of stored profiles.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
