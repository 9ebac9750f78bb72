package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

type SessionStore interface {
	UpsertPlayer(name string) (*Player, error)
	InsertSession(sess *Session) error
	MarkConsent(sessionID string) (bool, error)
}

// SessionService owns the session state machine: creation, consent,
// and (via ScoreService) completion.
type SessionService struct {
	store SessionStore
	now   func() time.Time
	idGen func() (string, error)
}

type StartResult struct {
	SessionID string
	PlayerID  int64
}

func NewSessionService(store SessionStore) *SessionService {
	return &SessionService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: sessionID,
	}
}

// StartSession creates or reuses the player for name (exact match) and
// opens a fresh session with consent and completion unset.
func (s *SessionService) StartSession(name string) (*StartResult, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < 2 || n > 80 {
		return nil, NewInvalidError("name must be 2-80 characters")
	}
	if strings.ContainsAny(name, "<>") {
		return nil, NewInvalidError("name cannot contain < or >")
	}
	p, err := s.store.UpsertPlayer(name)
	if err != nil {
		return nil, err
	}
	id, err := s.idGen()
	if err != nil {
		return nil, err
	}
	sess := &Session{ID: id, PlayerID: p.ID, CreatedAt: s.now()}
	if err := s.store.InsertSession(sess); err != nil {
		return nil, err
	}
	return &StartResult{SessionID: sess.ID, PlayerID: p.ID}, nil
}

// GiveConsent marks an open session as consented. Re-consenting a
// session that has consented but not completed succeeds silently.
func (s *SessionService) GiveConsent(sessionID string) error {
	if sessionID == "" {
		return NewInvalidError("session required")
	}
	ok, err := s.store.MarkConsent(sessionID)
	if err != nil {
		return err
	}
	if !ok {
		return NewNotFoundError("invalid or completed session")
	}
	return nil
}

// sessionID returns a 128-bit random token, hex encoded.
func sessionID() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}
