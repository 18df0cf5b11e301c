package domain

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Params tunes the simulation. Zero values are replaced by defaults.
type Params struct {
	RefractoryPeriod time.Duration
	MinThreshold     float64
	MaxThreshold     float64
	MinStimulus      float64
	MaxStimulus      float64

	// MaxCascadeDepth bounds the propagation stack; 0 means unlimited
	MaxCascadeDepth int
}

// DefaultParams returns the stock simulation parameters
func DefaultParams() Params {
	return Params{
		RefractoryPeriod: DefaultRefractoryPeriod,
		MinThreshold:     MinThreshold,
		MaxThreshold:     MaxThreshold,
		MinStimulus:      MinStimulus,
		MaxStimulus:      MaxStimulus,
		MaxCascadeDepth:  10000,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.RefractoryPeriod <= 0 {
		p.RefractoryPeriod = d.RefractoryPeriod
	}
	if p.MinThreshold <= 0 || p.MaxThreshold < p.MinThreshold {
		p.MinThreshold, p.MaxThreshold = d.MinThreshold, d.MaxThreshold
	}
	if p.MinStimulus <= 0 || p.MaxStimulus < p.MinStimulus {
		p.MinStimulus, p.MaxStimulus = d.MinStimulus, d.MaxStimulus
	}
	if p.MaxCascadeDepth < 0 {
		p.MaxCascadeDepth = 0
	}
	return p
}

// Network owns the resident neurons of exactly one owner.
//
// A Network is not safe for concurrent use; callers serialize access.
// Without a Store it runs purely in memory.
type Network struct {
	owner   string
	neurons []*Neuron
	index   map[string]*Neuron

	store  Store
	rng    *rand.Rand
	clock  func() time.Time
	params Params
}

// Option configures a Network
type Option func(*Network)

// WithStore attaches the persistence collaborator
func WithStore(s Store) Option {
	return func(n *Network) { n.store = s }
}

// WithRand sets the random source used for thresholds, stimuli and wiring
func WithRand(r *rand.Rand) Option {
	return func(n *Network) { n.rng = r }
}

// WithClock overrides time.Now
func WithClock(clock func() time.Time) Option {
	return func(n *Network) { n.clock = clock }
}

// WithParams sets simulation parameters
func WithParams(p Params) Option {
	return func(n *Network) { n.params = p.withDefaults() }
}

// WithOwner binds the network to an owner without loading anything
func WithOwner(owner string) Option {
	return func(n *Network) { n.owner = owner }
}

// NewNetwork creates an empty network
func NewNetwork(opts ...Option) *Network {
	n := &Network{
		index:  make(map[string]*Neuron),
		params: DefaultParams(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.rng == nil {
		n.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return n
}

// Owner returns the owner whose data is resident
func (n *Network) Owner() string {
	return n.owner
}

// Params returns the active simulation parameters
func (n *Network) Params() Params {
	return n.params
}

// SetParams replaces the simulation parameters. The refractory period is
// applied to resident neurons as well.
func (n *Network) SetParams(p Params) {
	n.params = p.withDefaults()
	for _, neuron := range n.neurons {
		neuron.RefractoryPeriod = n.params.RefractoryPeriod
	}
}

// Len returns the number of resident neurons
func (n *Network) Len() int {
	return len(n.neurons)
}

// Neurons returns the resident neurons in insertion order
func (n *Network) Neurons() []*Neuron {
	out := make([]*Neuron, len(n.neurons))
	copy(out, n.neurons)
	return out
}

// Connections lists every edge of the resident network, grouped by source in
// insertion order
func (n *Network) Connections() []Connection {
	var conns []Connection
	for _, neuron := range n.neurons {
		for _, to := range neuron.ConnectedTo {
			conns = append(conns, Connection{FromID: neuron.ID, ToID: to})
		}
	}
	return conns
}

// GetNeuron resolves a resident neuron by ID
func (n *Network) GetNeuron(id string) *Neuron {
	return n.index[id]
}

// AddNeuron creates a neuron with a random threshold at pos and persists it
func (n *Network) AddNeuron(ctx context.Context, pos *Position) (*Neuron, error) {
	neuron := NewNeuron("", n.drawThreshold(), pos)
	neuron.RefractoryPeriod = n.params.RefractoryPeriod

	if err := n.persistNeuron(ctx, neuron); err != nil {
		return nil, err
	}
	n.adopt(neuron)
	return neuron, nil
}

// ImportNeuron adds a neuron from an external record, keeping its ID and
// threshold. A record whose ID is already resident returns the resident neuron.
func (n *Network) ImportNeuron(ctx context.Context, rec NeuronRecord) (*Neuron, error) {
	if existing := n.GetNeuron(rec.ID); existing != nil && rec.ID != "" {
		return existing, nil
	}
	threshold := rec.Threshold
	if threshold <= 0 {
		threshold = n.drawThreshold()
	}
	neuron := NewNeuron(rec.ID, threshold, rec.Position)
	neuron.RefractoryPeriod = n.params.RefractoryPeriod

	if err := n.persistNeuron(ctx, neuron); err != nil {
		return nil, err
	}
	n.adopt(neuron)
	return neuron, nil
}

// ConnectNeurons adds the edge id1 -> id2 and persists it. It is a silent
// no-op, returning false, when either ID is not resident.
func (n *Network) ConnectNeurons(ctx context.Context, id1, id2 string) (bool, error) {
	from, to := n.GetNeuron(id1), n.GetNeuron(id2)
	if from == nil || to == nil {
		return false, nil
	}
	if id1 == id2 {
		return false, ErrSelfConnection
	}
	if err := n.persistConnection(ctx, id1, id2); err != nil {
		return false, err
	}
	from.Connect(id2)
	return true, nil
}

// StimulateNeuron delivers one random stimulus to neuron and, if it reaches
// threshold, fires the resulting cascade
func (n *Network) StimulateNeuron(neuron *Neuron) []string {
	if !neuron.Stimulate(n.drawStimulus(), n.clock()) {
		return []string{}
	}
	return neuron.Fire(n.propagation())
}

// GetRandomNeuron picks a resident neuron uniformly, or nil when empty
func (n *Network) GetRandomNeuron() *Neuron {
	if len(n.neurons) == 0 {
		return nil
	}
	return n.neurons[n.rng.IntN(len(n.neurons))]
}

// StimulateRandom stimulates a random neuron and returns it with the cascade
func (n *Network) StimulateRandom() (*Neuron, []string, error) {
	neuron := n.GetRandomNeuron()
	if neuron == nil {
		return nil, nil, ErrEmptyNetwork
	}
	return neuron, n.StimulateNeuron(neuron), nil
}

// LoadFromOwner replaces the resident collection with the owner's persisted
// network. Prior state is discarded even if loading fails.
func (n *Network) LoadFromOwner(ctx context.Context, owner string) error {
	n.reset()
	n.owner = owner
	if n.store == nil {
		return nil
	}

	records, err := n.store.LoadNeurons(ctx, owner)
	if err != nil {
		return persistErr("load neurons", err)
	}
	for _, rec := range records {
		neuron := NewNeuron(rec.ID, rec.Threshold, rec.Position)
		neuron.RefractoryPeriod = n.params.RefractoryPeriod
		n.adopt(neuron)
	}

	conns, err := n.store.LoadConnections(ctx, owner)
	if err != nil {
		n.reset()
		return persistErr("load connections", err)
	}
	for _, c := range conns {
		from, to := n.GetNeuron(c.FromID), n.GetNeuron(c.ToID)
		if from != nil && to != nil {
			from.Connect(to.ID)
		}
	}
	return nil
}

// Sync brings the resident network in line with the owner's persisted one.
// Neurons still in storage keep their potential and last firing time, while
// threshold, position and connections are taken from storage. On a load
// failure the resident state is left as it was.
func (n *Network) Sync(ctx context.Context) error {
	if n.store == nil {
		return nil
	}
	if n.owner == "" {
		return ErrNoOwner
	}

	records, err := n.store.LoadNeurons(ctx, n.owner)
	if err != nil {
		return persistErr("load neurons", err)
	}
	conns, err := n.store.LoadConnections(ctx, n.owner)
	if err != nil {
		return persistErr("load connections", err)
	}

	prev := n.index
	n.reset()
	for _, rec := range records {
		neuron, ok := prev[rec.ID]
		if ok {
			neuron.Threshold = rec.Threshold
			neuron.Position = rec.Position
			neuron.ConnectedTo = make([]string, 0, len(neuron.ConnectedTo))
		} else {
			neuron = NewNeuron(rec.ID, rec.Threshold, rec.Position)
			neuron.RefractoryPeriod = n.params.RefractoryPeriod
		}
		n.adopt(neuron)
	}
	for _, c := range conns {
		from, to := n.GetNeuron(c.FromID), n.GetNeuron(c.ToID)
		if from != nil && to != nil {
			from.Connect(to.ID)
		}
	}
	return nil
}

// ClearOwnerNetwork deletes the owner's persisted network and, once storage
// has committed, empties the resident collection
func (n *Network) ClearOwnerNetwork(ctx context.Context) error {
	if n.store != nil {
		if n.owner == "" {
			return ErrNoOwner
		}
		if err := n.store.DeleteOwnerNetwork(ctx, n.owner); err != nil {
			return persistErr("delete network", err)
		}
	}
	n.reset()
	return nil
}

// RecordFiringEvent appends a timestamped firing record for neuronID
func (n *Network) RecordFiringEvent(ctx context.Context, neuronID string) error {
	if n.store == nil {
		return nil
	}
	if n.owner == "" {
		return ErrNoOwner
	}
	return persistErr("firing event", n.store.AppendFiringEvent(ctx, neuronID, n.owner, n.clock()))
}

func (n *Network) adopt(neuron *Neuron) {
	n.neurons = append(n.neurons, neuron)
	n.index[neuron.ID] = neuron
}

func (n *Network) reset() {
	n.neurons = nil
	n.index = make(map[string]*Neuron)
}

func (n *Network) persistNeuron(ctx context.Context, neuron *Neuron) error {
	if n.store == nil {
		return nil
	}
	if n.owner == "" {
		return ErrNoOwner
	}
	return persistErr("neuron", n.store.SaveNeuron(ctx, neuron.Record(), n.owner))
}

func (n *Network) persistConnection(ctx context.Context, fromID, toID string) error {
	if n.store == nil {
		return nil
	}
	if n.owner == "" {
		return ErrNoOwner
	}
	if err := n.store.SaveConnection(ctx, fromID, toID, n.owner); err != nil {
		return persistErr(fmt.Sprintf("connection %s -> %s", fromID, toID), err)
	}
	return nil
}

func (n *Network) propagation() Propagation {
	return Propagation{
		Resolve:  n.GetNeuron,
		Now:      n.clock,
		Stimulus: n.drawStimulus,
		MaxDepth: n.params.MaxCascadeDepth,
	}
}

func (n *Network) drawThreshold() float64 {
	return uniform(n.rng, n.params.MinThreshold, n.params.MaxThreshold)
}

func (n *Network) drawStimulus() float64 {
	return uniform(n.rng, n.params.MinStimulus, n.params.MaxStimulus)
}

func uniform(r *rand.Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}
