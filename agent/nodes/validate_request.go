package orchestratornode

import (
	"strings"
	"time"

	"github.com/google/uuid"

	contractx "github.com/tanpawarit/albaqer-concierge/agent/contract"
)

// ValidateRequest trims the query and assigns a session id when none was given.
func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	text := strings.TrimSpace(in.Query.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	sessionID := strings.TrimSpace(in.Query.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	return &GraphState{
		Query: contractx.Query{
			Text:      text,
			SessionID: sessionID,
			Metadata:  in.Query.Metadata,
		},
		Now: nowFn().UTC(),
	}, nil
}
