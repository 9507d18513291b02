package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FSStore keeps every app's session in one JSON file readable only by the
// owner.
type FSStore struct {
	mu       sync.RWMutex
	path     string
	sessions map[string]*Session
}

type sessionFile struct {
	Sessions map[string]*Session `json:"sessions"`
}

// NewFSStore opens the session file at path. An empty path defaults to
// <user config dir>/<appName>/session.json.
func NewFSStore(path, appName string) (*FSStore, error) {
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("could not determine config directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
		if appName == "" {
			appName = "rxauth"
		}
		path = filepath.Join(configDir, appName, "session.json")
	}

	s := &FSStore{path: path, sessions: map[string]*Session{}}
	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return s, nil
}

func (s *FSStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var file sessionFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse session file: %w", err)
	}
	if file.Sessions != nil {
		s.sessions = file.Sessions
	}
	return nil
}

// flush writes the file. Caller holds the write lock.
func (s *FSStore) flush() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	data, err := json.MarshalIndent(sessionFile{Sessions: s.sessions}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize sessions: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write sessions: %w", err)
	}
	return nil
}

func (s *FSStore) Load(app string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[app]
	if !ok {
		return nil, nil
	}
	c := *sess
	return &c, nil
}

func (s *FSStore) Save(app string, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *sess
	s.sessions[app] = &c
	return s.flush()
}

func (s *FSStore) Clear(app string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[app]; !ok {
		return nil
	}
	delete(s.sessions, app)
	return s.flush()
}

// Path returns the session file path.
func (s *FSStore) Path() string {
	return s.path
}
