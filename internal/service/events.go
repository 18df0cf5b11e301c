package service

import "sync"

// EventType defines the type of event
type EventType string

const (
	EventNeuronCreated     EventType = "neuron_created"
	EventConnectionCreated EventType = "connection_created"
	EventCascade           EventType = "cascade"
	EventAutoConnected     EventType = "auto_connected"
	EventNetworkCleared    EventType = "network_cleared"
	EventNetworkImported   EventType = "network_imported"
	EventNetworkReloaded   EventType = "network_reloaded"
)

// Event represents something that happened to one owner's network
type Event struct {
	Type    EventType   `json:"type"`
	Owner   string      `json:"-"`
	Payload interface{} `json:"payload,omitempty"`
}

// CascadePayload is published with EventCascade
type CascadePayload struct {
	StimulatedID string   `json:"stimulated_neuron_id"`
	Fired        []string `json:"fired_neurons"`
}

// EventBus allows publishing and subscribing to events
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]chan<- Event, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers = append(eb.subscribers, ch)
}

// Publish sends an event to all subscribers without blocking
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}
