package session

import (
	"encoding/json"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
)

// SCSStore keeps sessions in any scs storage backend (memstore, redisstore,
// pgxstore, ...), keyed by app name. Records expire with the refresh
// token lifetime.
type SCSStore struct {
	backend  scs.Store
	Lifetime time.Duration
}

// NewSCSStore wraps backend. A nil backend uses an in-memory store.
func NewSCSStore(backend scs.Store) *SCSStore {
	if backend == nil {
		backend = memstore.New()
	}
	return &SCSStore{backend: backend, Lifetime: 30 * 24 * time.Hour}
}

func (s *SCSStore) key(app string) string {
	return "rxauth-session:" + app
}

func (s *SCSStore) Load(app string) (*Session, error) {
	b, found, err := s.backend.Find(s.key(app))
	if err != nil || !found {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *SCSStore) Save(app string, sess *Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.backend.Commit(s.key(app), b, time.Now().Add(s.Lifetime))
}

func (s *SCSStore) Clear(app string) error {
	return s.backend.Delete(s.key(app))
}
