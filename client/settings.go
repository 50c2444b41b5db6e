package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/parallaxchat/parallax/provider"
)

// Settings is the user-held provider configuration: one credential and one
// model variant per provider. It travels only inside request bodies and is
// never logged.
type Settings struct {
	APIKeys        map[provider.Key]string `json:"apiKeys"`
	SelectedModels map[provider.Key]string `json:"selectedModels"`
}

// NewSettings returns settings with empty defaults for the full provider set.
func NewSettings() *Settings {
	s := &Settings{
		APIKeys:        make(map[provider.Key]string, len(provider.Keys())),
		SelectedModels: make(map[provider.Key]string, len(provider.Keys())),
	}
	for _, key := range provider.Keys() {
		s.APIKeys[key] = ""
		s.SelectedModels[key] = ""
	}
	return s
}

// Active reports whether key participates in requests: its credential is
// non-empty after trimming.
func (s *Settings) Active(key provider.Key) bool {
	return strings.TrimSpace(s.APIKeys[key]) != ""
}

// ActiveKeys returns the active providers in canonical order.
func (s *Settings) ActiveKeys() []provider.Key {
	var active []provider.Key
	for _, key := range provider.Keys() {
		if s.Active(key) {
			active = append(active, key)
		}
	}
	return active
}

// Store persists Settings to one local JSON file. Every mutation saves
// immediately, mirroring a save-on-change settings form.
type Store struct {
	mu       sync.Mutex
	path     string
	settings *Settings
}

// LoadStore reads settings from path, or starts from empty defaults when the
// file does not exist yet.
func LoadStore(path string) (*Store, error) {
	st := &Store{path: path, settings: NewSettings()}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if err := json.Unmarshal(raw, st.settings); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	// older files may miss keys for newer providers
	for _, key := range provider.Keys() {
		if _, ok := st.settings.APIKeys[key]; !ok {
			st.settings.APIKeys[key] = ""
		}
		if _, ok := st.settings.SelectedModels[key]; !ok {
			st.settings.SelectedModels[key] = ""
		}
	}
	return st, nil
}

// Settings returns a copy of the current settings.
func (st *Store) Settings() *Settings {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.settings.clone()
}

// SetAPIKey stores a credential and saves.
func (st *Store) SetAPIKey(key provider.Key, apiKey string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.settings.APIKeys[key] = apiKey
	return st.save()
}

// SetModel stores a model selection and saves.
func (st *Store) SetModel(key provider.Key, model string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.settings.SelectedModels[key] = model
	return st.save()
}

func (st *Store) save() error {
	data, err := json.MarshalIndent(st.settings, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(st.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
	}
	// keys are secrets: owner-only
	return os.WriteFile(st.path, data, 0o600)
}

func (s *Settings) clone() *Settings {
	out := &Settings{
		APIKeys:        make(map[provider.Key]string, len(s.APIKeys)),
		SelectedModels: make(map[provider.Key]string, len(s.SelectedModels)),
	}
	for k, v := range s.APIKeys {
		out.APIKeys[k] = v
	}
	for k, v := range s.SelectedModels {
		out.SelectedModels[k] = v
	}
	return out
}
