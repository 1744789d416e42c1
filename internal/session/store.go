package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ariefcatur/telava-pos/internal/backend"
	"github.com/golang-jwt/jwt/v4"
)

// state is what lands on disk.
type state struct {
	Token   string        `json:"token"`
	User    *backend.User `json:"user,omitempty"`
	SavedAt time.Time     `json:"saved_at"`
}

// Store keeps the cashier's token and profile in a local JSON file. It is the
// backend.TokenSource of the terminal.
type Store struct {
	path string
	now  func() time.Time

	mu sync.RWMutex
	st state
}

// Open loads path if it exists. A missing file is an empty session.
func Open(path string) (*Store, error) {
	s := &Store{path: path, now: time.Now}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(b, &s.st); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", path, err)
	}
	return s, nil
}

// Token returns the stored bearer token, or "" when there is none or its exp
// claim has passed. Opaque (non JWT) tokens are returned as is.
func (s *Store) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	tok := s.st.Token
	s.mu.RUnlock()
	if tok == "" || expired(tok, s.now()) {
		return "", nil
	}
	return tok, nil
}

func (s *Store) User() (backend.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.st.User == nil {
		return backend.User{}, false
	}
	return *s.st.User, true
}

// SellerName is the name printed on receipts: the logged in user, else def.
func (s *Store) SellerName(def string) string {
	if u, ok := s.User(); ok && strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	return def
}

func (s *Store) LoggedIn() bool {
	tok, _ := s.Token(context.Background())
	return tok != ""
}

func (s *Store) Save(res backend.LoginResult) error {
	u := res.User
	next := state{Token: res.Token, User: &u, SavedAt: s.now().UTC()}
	if err := s.write(next); err != nil {
		return err
	}
	s.mu.Lock()
	s.st = next
	s.mu.Unlock()
	return nil
}

// ErrNoUser is returned when the profile is edited with nobody logged in.
var ErrNoUser = errors.New("session: no user logged in")

// UpdateProfile replaces the editable fields of the stored user and returns
// it. p must already have passed Validate.
func (s *Store) UpdateProfile(p Profile) (backend.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.User == nil || s.st.Token == "" {
		return backend.User{}, ErrNoUser
	}
	u := *s.st.User
	u.Name = strings.TrimSpace(p.Name)
	u.Email = strings.TrimSpace(p.Email)
	u.Phone = phoneFiller.Replace(p.Phone)
	u.Bio = strings.TrimSpace(p.Bio)
	u.Location = strings.TrimSpace(p.Location)
	next := s.st
	next.User = &u
	if err := s.write(next); err != nil {
		return backend.User{}, err
	}
	s.st = next
	return u, nil
}

// Clear forgets the session both in memory and on disk.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.st = state{}
	s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

func (s *Store) write(st state) error {
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("session dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func expired(tok string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return false
	}
	if _, ok := claims["exp"]; !ok {
		return false
	}
	return !claims.VerifyExpiresAt(now.Unix(), true)
}
