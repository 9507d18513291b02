package fs

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/panyam/rxauth/stores"
)

// FSIdentityStore stores identities as JSON files keyed by identity key.
type FSIdentityStore struct {
	StoragePath string
	mu          sync.RWMutex
}

func NewFSIdentityStore(storagePath string) *FSIdentityStore {
	return &FSIdentityStore{StoragePath: storagePath}
}

func (s *FSIdentityStore) dir() string {
	return filepath.Join(s.StoragePath, "identities")
}

func (s *FSIdentityStore) identityPath(identityType, identityValue string) string {
	return filepath.Join(s.dir(), fileName(stores.IdentityKey(identityType, identityValue)))
}

func (s *FSIdentityStore) load(identityType, identityValue string) (*stores.Identity, error) {
	var identity stores.Identity
	notFound := fmt.Errorf("identity %s: %w", stores.IdentityKey(identityType, identityValue), stores.ErrNotFound)
	if err := readJSON(s.identityPath(identityType, identityValue), &identity, notFound); err != nil {
		return nil, err
	}
	return &identity, nil
}

func (s *FSIdentityStore) GetIdentity(identityType, identityValue string, createIfMissing bool) (*stores.Identity, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, err := s.load(identityType, identityValue)
	if err == nil {
		return identity, false, nil
	}
	if !createIfMissing || !isNotFound(err) {
		return nil, false, err
	}

	now := time.Now()
	identity = &stores.Identity{
		Type:      identityType,
		Value:     identityValue,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
	if err := writeJSON(s.identityPath(identityType, identityValue), identity); err != nil {
		return nil, false, err
	}
	return identity, true, nil
}

func (s *FSIdentityStore) SaveIdentity(identity *stores.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.identityPath(identity.Type, identity.Value), identity)
}

func (s *FSIdentityStore) update(identityType, identityValue string, fn func(*stores.Identity)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, err := s.load(identityType, identityValue)
	if err != nil {
		return err
	}
	fn(identity)
	identity.UpdatedAt = time.Now()
	identity.Version++
	return writeJSON(s.identityPath(identityType, identityValue), identity)
}

func (s *FSIdentityStore) SetUserForIdentity(identityType, identityValue string, newUserID string) error {
	return s.update(identityType, identityValue, func(i *stores.Identity) { i.UserID = newUserID })
}

func (s *FSIdentityStore) MarkIdentityVerified(identityType, identityValue string) error {
	return s.update(identityType, identityValue, func(i *stores.Identity) { i.Verified = true })
}

func (s *FSIdentityStore) GetUserIdentities(userID string) ([]*stores.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identities := []*stores.Identity{}
	err := eachJSON(s.dir(), func(i *stores.Identity) error {
		if i.UserID == userID {
			identities = append(identities, i)
		}
		return nil
	})
	return identities, err
}

func (s *FSIdentityStore) DeleteIdentity(identityType, identityValue string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removeFile(s.identityPath(identityType, identityValue))
}
