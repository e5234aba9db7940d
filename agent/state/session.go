package state

import (
	"errors"
	"time"

	contractx "github.com/tanpawarit/albaqer-concierge/agent/contract"
)

const maxRecentTurns = 10

var (
	ErrNilSession     = errors.New("session is nil")
	ErrInvalidSession = errors.New("session id is empty")
)

// Turn is one handled query, kept for continuity only. Routing never reads it.
type Turn struct {
	Query      string                   `json:"query"`
	Specialist contractx.SpecialistName `json:"specialist"`
	Backend    contractx.BackendID      `json:"backend,omitempty"`
	At         time.Time                `json:"at"`
}

// Session is the continuity record for one conversation.
type Session struct {
	SessionID      string                   `json:"session_id"`
	Turns          int                      `json:"turns"`
	LastSpecialist contractx.SpecialistName `json:"last_specialist,omitempty"`
	Recent         []Turn                   `json:"recent,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
	Version        int64                    `json:"version"`
}

func NewSession(sessionID string, now time.Time) *Session {
	return &Session{
		SessionID: sessionID,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

// Record appends a turn, keeping only the most recent ones.
func (s *Session) Record(t Turn) {
	t.At = t.At.UTC()
	s.Turns++
	s.LastSpecialist = t.Specialist
	s.Recent = append(s.Recent, t)
	if n := len(s.Recent); n > maxRecentTurns {
		s.Recent = append([]Turn(nil), s.Recent[n-maxRecentTurns:]...)
	}
	s.UpdatedAt = t.At
}

func (s *Session) Validate() error {
	if s == nil {
		return ErrNilSession
	}
	if s.SessionID == "" {
		return ErrInvalidSession
	}
	if s.Turns < len(s.Recent) {
		return errors.New("session turn count is below recent history length")
	}
	return nil
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Recent = append([]Turn(nil), s.Recent...)
	return &out
}
