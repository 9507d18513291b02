package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/panyam/rxauth/stores"
)

// FSChannelStore stores channels as JSON files grouped by provider.
type FSChannelStore struct {
	StoragePath string
	mu          sync.RWMutex
}

func NewFSChannelStore(storagePath string) *FSChannelStore {
	return &FSChannelStore{StoragePath: storagePath}
}

func (s *FSChannelStore) dir() string {
	return filepath.Join(s.StoragePath, "channels")
}

func (s *FSChannelStore) channelPath(provider, identityKey string) string {
	return filepath.Join(s.dir(), fileName(provider), fileName(identityKey))
}

func (s *FSChannelStore) GetChannel(provider string, identityKey string, createIfMissing bool) (*stores.Channel, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var channel stores.Channel
	notFound := fmt.Errorf("channel %s/%s: %w", provider, identityKey, stores.ErrNotFound)
	err := readJSON(s.channelPath(provider, identityKey), &channel, notFound)
	if err == nil {
		return &channel, false, nil
	}
	if !createIfMissing || !isNotFound(err) {
		return nil, false, err
	}

	now := time.Now()
	created := &stores.Channel{
		Provider:    provider,
		IdentityKey: identityKey,
		Credentials: map[string]any{},
		Profile:     map[string]any{},
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
	if err := writeJSON(s.channelPath(provider, identityKey), created); err != nil {
		return nil, false, err
	}
	return created, true, nil
}

func (s *FSChannelStore) SaveChannel(channel *stores.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	channel.UpdatedAt = time.Now()
	return writeJSON(s.channelPath(channel.Provider, channel.IdentityKey), channel)
}

func (s *FSChannelStore) GetChannelsByIdentity(identityKey string) ([]*stores.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	providers, err := os.ReadDir(s.dir())
	if errors.Is(err, os.ErrNotExist) {
		return []*stores.Channel{}, nil
	}
	if err != nil {
		return nil, err
	}

	channels := []*stores.Channel{}
	for _, p := range providers {
		if !p.IsDir() {
			continue
		}
		var channel stores.Channel
		path := filepath.Join(s.dir(), p.Name(), fileName(identityKey))
		if err := readJSON(path, &channel, stores.ErrNotFound); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		channels = append(channels, &channel)
	}
	return channels, nil
}

func (s *FSChannelStore) DeleteChannel(provider string, identityKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removeFile(s.channelPath(provider, identityKey))
}

func isNotFound(err error) bool {
	return errors.Is(err, stores.ErrNotFound)
}
