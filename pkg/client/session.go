package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	sessionBucket = "session"
	sessionKey    = "current"
)

var ErrNoSession = errors.New("no saved session")

// Session is what the CLI remembers between runs.
type Session struct {
	Email        string    `json:"email"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	SavedAt      time.Time `json:"saved_at"`
}

func (s Session) Tokens() Tokens {
	return Tokens{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken}
}

// SessionStore keeps one Session in a bbolt file.
type SessionStore struct {
	db *bbolt.DB
}

func OpenSessionStore(path string) (*SessionStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(sessionBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating session bucket: %w", err)
	}

	return &SessionStore{db: db}, nil
}

func (s *SessionStore) Save(session Session) error {
	if session.SavedAt.IsZero() {
		session.SavedAt = time.Now()
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(sessionBucket)).Put([]byte(sessionKey), data)
	})
}

func (s *SessionStore) Load() (Session, error) {
	var session Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(sessionBucket)).Get([]byte(sessionKey))
		if data == nil {
			return ErrNoSession
		}
		return json.Unmarshal(data, &session)
	})
	return session, err
}

func (s *SessionStore) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(sessionBucket)).Delete([]byte(sessionKey))
	})
}

func (s *SessionStore) Close() error {
	return s.db.Close()
}
