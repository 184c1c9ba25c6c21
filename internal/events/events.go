package events

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/savvydealshub/SavvyDealsHub/internal/models"
)

// EventType represents the type of event.
type EventType string

const (
	// EventOfferUpserted is emitted when a catalog offer is created or updated
	EventOfferUpserted EventType = "offer.upserted"
	// EventClickRecorded is emitted when an outbound click is recorded
	EventClickRecorded EventType = "click.recorded"
	// EventCompareRequested is emitted when a comparison is computed
	EventCompareRequested EventType = "compare.requested"
	// EventFeedsRefreshed is emitted when the remote feed cache is dropped
	EventFeedsRefreshed EventType = "feeds.refreshed"
)

// Event represents an event in the system.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// OfferUpsertedData contains data for offer upserted events.
type OfferUpsertedData struct {
	Offer models.Offer
}

// ClickRecordedData contains data for click recorded events.
type ClickRecordedData struct {
	Click models.ClickEvent
}

// CompareRequestedData contains data for compare requested events.
type CompareRequestedData struct {
	Query    string
	Category string
	Postcode string
	Rows     int
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager manages event handlers and event publishing.
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	enabled  bool
}

// NewManager creates a new event manager.
func NewManager(enabled bool) *Manager {
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
	}
}

// Subscribe subscribes a handler to a specific event type.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	if !m.enabled {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish publishes an event to all subscribed handlers.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data interface{}) {
	if !m.enabled {
		return
	}

	m.mu.RLock()
	handlers := m.handlers[eventType]
	m.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	// Handlers run asynchronously so publishing never blocks a request.
	for _, handler := range handlers {
		go func(h Handler) {
			if err := h(ctx, event); err != nil {
				log.Printf("event handler error for %s: %v", event.Type, err)
			}
		}(handler)
	}
}

// PublishOfferUpserted publishes an offer upserted event.
func (m *Manager) PublishOfferUpserted(ctx context.Context, offer models.Offer) {
	m.Publish(ctx, EventOfferUpserted, OfferUpsertedData{Offer: offer})
}

// PublishClickRecorded publishes a click recorded event.
func (m *Manager) PublishClickRecorded(ctx context.Context, click models.ClickEvent) {
	m.Publish(ctx, EventClickRecorded, ClickRecordedData{Click: click})
}

// PublishCompareRequested publishes a compare requested event.
func (m *Manager) PublishCompareRequested(ctx context.Context, query, category, postcode string, rows int) {
	m.Publish(ctx, EventCompareRequested, CompareRequestedData{
		Query:    query,
		Category: category,
		Postcode: postcode,
		Rows:     rows,
	})
}

// PublishFeedsRefreshed publishes a feeds refreshed event.
func (m *Manager) PublishFeedsRefreshed(ctx context.Context) {
	m.Publish(ctx, EventFeedsRefreshed, nil)
}

// Shutdown shuts down the event manager.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabled = false
	m.handlers = make(map[EventType][]Handler)
}
