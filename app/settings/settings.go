// Package settings persists the user-editable runtime settings as a
// single YAML document. The document is read in full before every task
// run and written in full on every change; there are no partial updates.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const DefaultCredentialKey = "LOFTER-PHONE-LOGIN-AUTH"

type Settings struct {
	CredentialKey    string `yaml:"credential_key"`
	CredentialToken  string `yaml:"credential_token"`
	SavePath         string `yaml:"save_path"`
	AutoDedup        bool   `yaml:"auto_dedup"`
	NotifyOnComplete bool   `yaml:"notify_on_complete"`
}

// HasCredential reports whether a lofter login token is configured.
func (s Settings) HasCredential() bool {
	return s.CredentialToken != ""
}

type Store struct {
	mu   sync.Mutex
	path string

	defaults Settings
}

func NewStore(dataDir, defaultSavePath string) *Store {
	return &Store{
		path: filepath.Join(dataDir, "settings.yml"),
		defaults: Settings{
			CredentialKey:    DefaultCredentialKey,
			SavePath:         defaultSavePath,
			AutoDedup:        true,
			NotifyOnComplete: true,
		},
	}
}

// Load reads the settings document, applying defaults for anything
// missing. A missing file is not an error; it yields the defaults.
func (s *Store) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.defaults

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("failed to read settings file: %w", err)
	}

	if err := yaml.Unmarshal(data, &out); err != nil {
		return s.defaults, fmt.Errorf("failed to parse settings file: %w", err)
	}

	if out.CredentialKey == "" {
		out.CredentialKey = s.defaults.CredentialKey
	}
	if out.SavePath == "" {
		out.SavePath = s.defaults.SavePath
	}

	return out, nil
}

// Save writes the whole settings document, creating the data directory
// when needed.
func (s *Store) Save(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	return nil
}
