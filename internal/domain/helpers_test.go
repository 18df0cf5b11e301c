package domain

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"testing"
	"time"
)

// ============================================================================
// Test Helpers
// ============================================================================

var errStoreDown = errors.New("store unavailable")

// memStore is an in-memory Store keyed by owner
type memStore struct {
	neurons map[string][]NeuronRecord
	conns   map[string][]Connection
	events  map[string][]FiringEvent

	failSave   bool
	failDelete bool
	failLoad   bool
}

func newMemStore() *memStore {
	return &memStore{
		neurons: make(map[string][]NeuronRecord),
		conns:   make(map[string][]Connection),
		events:  make(map[string][]FiringEvent),
	}
}

func (s *memStore) SaveNeuron(_ context.Context, rec NeuronRecord, owner string) error {
	if s.failSave {
		return errStoreDown
	}
	s.neurons[owner] = append(s.neurons[owner], rec)
	return nil
}

func (s *memStore) SaveConnection(_ context.Context, fromID, toID, owner string) error {
	if s.failSave {
		return errStoreDown
	}
	c := Connection{FromID: fromID, ToID: toID}
	if !slices.Contains(s.conns[owner], c) {
		s.conns[owner] = append(s.conns[owner], c)
	}
	return nil
}

func (s *memStore) LoadNeurons(_ context.Context, owner string) ([]NeuronRecord, error) {
	if s.failLoad {
		return nil, errStoreDown
	}
	return slices.Clone(s.neurons[owner]), nil
}

func (s *memStore) LoadConnections(_ context.Context, owner string) ([]Connection, error) {
	if s.failLoad {
		return nil, errStoreDown
	}
	return slices.Clone(s.conns[owner]), nil
}

func (s *memStore) DeleteOwnerNetwork(_ context.Context, owner string) error {
	if s.failDelete {
		return errStoreDown
	}
	delete(s.conns, owner)
	delete(s.events, owner)
	delete(s.neurons, owner)
	return nil
}

func (s *memStore) AppendFiringEvent(_ context.Context, neuronID, owner string, at time.Time) error {
	if s.failSave {
		return errStoreDown
	}
	s.events[owner] = append(s.events[owner], FiringEvent{NeuronID: neuronID, FiredAt: at})
	return nil
}

// fakeClock is a manually advanced clock
type fakeClock struct {
	now  time.Time
	step time.Duration // added after every read
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

// newTestNetwork creates a network bound to owner with a deterministic source
func newTestNetwork(t *testing.T, owner string, store Store, clock *fakeClock) *Network {
	t.Helper()
	opts := []Option{WithRand(testRand()), WithClock(clock.Now), WithOwner(owner)}
	if store != nil {
		opts = append(opts, WithStore(store))
	}
	return NewNetwork(opts...)
}

// addAt adds a neuron at (x, y) and fails the test on error
func addAt(t *testing.T, net *Network, x, y float64) *Neuron {
	t.Helper()
	n, err := net.AddNeuron(context.Background(), &Position{X: x, Y: y})
	if err != nil {
		t.Fatalf("AddNeuron: %v", err)
	}
	return n
}

// constStimulus always delivers the same amount
func constStimulus(v float64) func() float64 {
	return func() float64 { return v }
}

func assertFired(t *testing.T, want, got []string) {
	t.Helper()
	if !slices.Equal(want, got) {
		t.Fatalf("expected fired %v, got %v", want, got)
	}
}
