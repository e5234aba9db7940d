// Package transcript hands finished exchanges to the external persistence
// consumer.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/albaqer-concierge/agent/contract"
	"github.com/tanpawarit/albaqer-concierge/pkg/qstash"
)

// Exchange is one query and the reply it produced.
type Exchange struct {
	SessionID   string                   `json:"session_id"`
	Query       string                   `json:"query"`
	Response    contractx.ChatResponse   `json:"response"`
	Specialist  contractx.SpecialistName `json:"specialist"`
	Failed      bool                     `json:"failed,omitempty"`
	ReceivedAt  time.Time                `json:"received_at"`
	CompletedAt time.Time                `json:"completed_at"`
}

type Recorder interface {
	Record(ctx context.Context, ex Exchange) error
}

type publisher interface {
	Publish(ctx context.Context, destination string, body any) (qstash.PublishResponse, error)
}

// QStashRecorder publishes each exchange to a QStash topic or URL.
type QStashRecorder struct {
	client      publisher
	destination string
}

var _ Recorder = (*QStashRecorder)(nil)

func NewQStashRecorder(client *qstash.Client, destination string) (*QStashRecorder, error) {
	if client == nil {
		return nil, errors.New("qstash client is required")
	}
	return newQStashRecorder(client, destination)
}

func newQStashRecorder(client publisher, destination string) (*QStashRecorder, error) {
	if destination == "" {
		return nil, errors.New("transcript destination is required")
	}
	return &QStashRecorder{client: client, destination: destination}, nil
}

func (r *QStashRecorder) Record(ctx context.Context, ex Exchange) error {
	if ex.SessionID == "" {
		return fmt.Errorf("%w: exchange has no session id", contractx.ErrValidation)
	}
	if _, err := r.client.Publish(ctx, r.destination, ex); err != nil {
		return fmt.Errorf("record exchange session=%s: %w", ex.SessionID, err)
	}
	return nil
}
