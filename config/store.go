package config

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tmanhococ/V2-Odoo-Agent/errors"
)

// Credential keys understood by the profile store.
const (
	KeyAnthropicAPIKey = "anthropic_api_key"
	KeyServerURL       = "mcp_server_url"
)

// Credentials is the key lookup port used for API keys and server URLs.
// Absent keys return ok=false, never an empty-string hit.
type Credentials interface {
	Get(key string) (value string, ok bool)
}

// EnvCredentials resolves keys from the process environment, mapping
// "anthropic_api_key" to ANTHROPIC_API_KEY.
type EnvCredentials struct{}

func (EnvCredentials) Get(key string) (string, bool) {
	v := os.Getenv(strings.ToUpper(key))
	return v, v != ""
}

// Chain tries each source in order and returns the first hit.
type Chain []Credentials

func (c Chain) Get(key string) (string, bool) {
	for _, src := range c {
		if v, ok := src.Get(key); ok {
			return v, true
		}
	}
	return "", false
}

// Profile is one named agent configuration. At most one profile is active
// at any time; Store.SetActive enforces the invariant.
type Profile struct {
	ID              int       `yaml:"id"`
	Name            string    `yaml:"name"`
	AnthropicAPIKey string    `yaml:"anthropic_api_key,omitempty"`
	ServerURL       string    `yaml:"mcp_server_url,omitempty"`
	Active          bool      `yaml:"active"`
	CreatedAt       time.Time `yaml:"created_at"`
}

// Store persists agent profiles to a YAML file.
type Store struct {
	mu       sync.Mutex
	path     string
	profiles []Profile
	nextID   int
}

// OpenStore loads the profile store at path, creating an empty store when
// the file does not exist yet.
func OpenStore(path string) (*Store, error) {
	s := &Store{path: path, nextID: 1}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not read profile store %s", path)
	}
	if err := yaml.Unmarshal(data, &s.profiles); err != nil {
		return nil, errors.Wrapf(err, "could not parse profile store %s", path)
	}
	for _, p := range s.profiles {
		if p.ID >= s.nextID {
			s.nextID = p.ID + 1
		}
	}
	return s, nil
}

// Create adds a profile and returns its assigned id. A profile created as
// active deactivates every other profile.
func (s *Store) Create(p Profile) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Name == "" {
		return 0, errors.New("profile name is required")
	}
	p.ID = s.nextID
	s.nextID++
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.Active {
		for i := range s.profiles {
			s.profiles[i].Active = false
		}
	}
	s.profiles = append(s.profiles, p)
	return p.ID, s.persistLocked()
}

// SetActive marks the given profile active and atomically deactivates all
// others. The single-active invariant lives here, not in save-time hooks.
func (s *Store) SetActive(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for i := range s.profiles {
		if s.profiles[i].ID == id {
			found = true
		}
	}
	if !found {
		return errors.New("no profile with id %d", id)
	}
	for i := range s.profiles {
		s.profiles[i].Active = s.profiles[i].ID == id
	}
	return s.persistLocked()
}

// Active returns the currently active profile, if any.
func (s *Store) Active() (Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.profiles {
		if p.Active {
			return p, true
		}
	}
	return Profile{}, false
}

// Profiles returns a snapshot of all profiles.
func (s *Store) Profiles() []Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Profile, len(s.profiles))
	copy(out, s.profiles)
	return out
}

// Get implements Credentials over the active profile.
func (s *Store) Get(key string) (string, bool) {
	p, ok := s.Active()
	if !ok {
		return "", false
	}
	switch key {
	case KeyAnthropicAPIKey:
		return p.AnthropicAPIKey, p.AnthropicAPIKey != ""
	case KeyServerURL:
		return p.ServerURL, p.ServerURL != ""
	}
	return "", false
}

func (s *Store) persistLocked() error {
	data, err := yaml.Marshal(s.profiles)
	if err != nil {
		return errors.Wrapf(err, "failed to serialize profile store")
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "could not create profile store directory")
		}
	}
	return os.WriteFile(s.path, data, 0600)
}

// TestConnection probes the protocol server's health endpoint. Used by the
// configuration surface for connectivity checks only.
func TestConnection(ctx context.Context, baseURL string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/health", nil)
	if err != nil {
		return errors.Wrapf(err, "invalid server URL %q", baseURL)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "connection test failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.New("connection failed: %s", resp.Status)
	}
	return nil
}

// DefaultStorePath is where the profile store lives unless overridden.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".odoo-agent", "profiles.yaml")
	}
	return filepath.Join(home, ".odoo-agent", "profiles.yaml")
}

var _ Credentials = (*Store)(nil)
var _ Credentials = EnvCredentials{}
var _ Credentials = Chain(nil)
