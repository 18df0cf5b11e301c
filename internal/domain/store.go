package domain

import (
	"context"
	"time"
)

// NeuronRecord is the persisted form of a neuron
type NeuronRecord struct {
	ID        string    `json:"id"`
	Threshold float64   `json:"threshold"`
	Position  *Position `json:"position,omitempty"`
}

// Connection is a directed edge between two neurons
type Connection struct {
	FromID string `json:"from"`
	ToID   string `json:"to"`
}

// FiringEvent records a single neuron firing
type FiringEvent struct {
	NeuronID string    `json:"neuron_id"`
	FiredAt  time.Time `json:"fired_at"`
}

// Store is the persistence collaborator a Network writes through.
// Every call is scoped by an opaque owner ID.
type Store interface {
	SaveNeuron(ctx context.Context, rec NeuronRecord, owner string) error

	// SaveConnection must be idempotent: a repeated edge is not stored twice
	SaveConnection(ctx context.Context, fromID, toID, owner string) error

	LoadNeurons(ctx context.Context, owner string) ([]NeuronRecord, error)
	LoadConnections(ctx context.Context, owner string) ([]Connection, error)

	// DeleteOwnerNetwork removes connections, firing events and neurons for
	// the owner atomically, in that order
	DeleteOwnerNetwork(ctx context.Context, owner string) error

	AppendFiringEvent(ctx context.Context, neuronID, owner string, at time.Time) error
}

// Record returns the persisted form of the neuron
func (n *Neuron) Record() NeuronRecord {
	return NeuronRecord{ID: n.ID, Threshold: n.Threshold, Position: n.Position}
}
