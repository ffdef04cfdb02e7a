package stream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
)

// Publisher defines the transport events are sent over
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Close() error
}

// EventType names a step of a deployment run
type EventType string

const (
	EventSearchCompleted EventType = "search.completed"
	EventInstanceCreated EventType = "instance.created"
	EventInstanceReady   EventType = "instance.ready"
	EventRunFailed       EventType = "run.failed"
)

// Event is the payload published for every EventType
type Event struct {
	RunID      string    `json:"runId"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	OfferCount int       `json:"offerCount,omitempty"`
	OfferID    int64     `json:"offerId,omitempty"`
	ContractID int64     `json:"contractId,omitempty"`
	WindowCost float64   `json:"windowCost,omitempty"`
	Endpoint   string    `json:"endpoint,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Emitter stamps events with the run id and publishes them under
// <subject>.<type>. Publishing is best effort: failures are logged and
// never abort the run.
type Emitter struct {
	pub     Publisher
	subject string
	runID   string
	logger  *logrus.Logger
}

// NewEmitter creates an emitter. A nil publisher discards every event.
func NewEmitter(pub Publisher, subject, runID string, logger *logrus.Logger) *Emitter {
	return &Emitter{
		pub:     pub,
		subject: subject,
		runID:   runID,
		logger:  logger,
	}
}

// Emit publishes ev
func (e *Emitter) Emit(ctx context.Context, ev Event) {
	if e == nil || e.pub == nil {
		return
	}

	ev.RunID = e.runID
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		e.logger.Warnf("Failed to encode %s event: %v", ev.Type, err)
		return
	}

	subject := e.subject + "." + string(ev.Type)
	if err := e.pub.Publish(ctx, subject, data); err != nil {
		e.logger.WithField("subject", subject).Warnf("Failed to publish event: %v", err)
	}
}

// Close closes the underlying publisher
func (e *Emitter) Close() error {
	if e == nil || e.pub == nil {
		return nil
	}
	return e.pub.Close()
}
