package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultRefractoryPeriod is how long a neuron stays silent after firing
	DefaultRefractoryPeriod = time.Second

	// Threshold range used when a neuron is created without one
	MinThreshold = 0.3
	MaxThreshold = 1.0

	// Stimulus range drawn at every propagation step
	MinStimulus = 0.2
	MaxStimulus = 0.5
)

// Neuron is a single spiking unit. Neurons reference each other only by ID;
// lookups go through the Resolver handed to Fire.
type Neuron struct {
	ID               string        `json:"id"`
	Threshold        float64       `json:"threshold"`
	Potential        float64       `json:"potential"`
	Position         *Position     `json:"position,omitempty"`
	ConnectedTo      []string      `json:"connected_to"`
	RefractoryPeriod time.Duration `json:"-"`
	LastFired        time.Time     `json:"last_fired"`
}

// NewNeuron creates a neuron with the given identity and threshold.
// An empty id gets a fresh UUID.
func NewNeuron(id string, threshold float64, pos *Position) *Neuron {
	if id == "" {
		id = uuid.NewString()
	}
	return &Neuron{
		ID:               id,
		Threshold:        threshold,
		Position:         pos,
		ConnectedTo:      make([]string, 0),
		RefractoryPeriod: DefaultRefractoryPeriod,
	}
}

// IsRefractory reports whether the neuron fired less than one refractory
// period before now
func (n *Neuron) IsRefractory(now time.Time) bool {
	return now.Sub(n.LastFired) < n.RefractoryPeriod
}

// Stimulate adds amount to the potential unless the neuron is refractory.
// It returns true when the potential has reached the threshold; the caller
// decides whether to Fire.
func (n *Neuron) Stimulate(amount float64, now time.Time) bool {
	if n.IsRefractory(now) {
		return false
	}
	n.Potential += amount
	return n.Potential >= n.Threshold
}

// Connect adds an outgoing edge to targetID. It returns false if the edge
// already existed.
func (n *Neuron) Connect(targetID string) bool {
	if slices.Contains(n.ConnectedTo, targetID) {
		return false
	}
	n.ConnectedTo = append(n.ConnectedTo, targetID)
	return true
}

// IsConnectedTo reports whether an edge n -> targetID exists
func (n *Neuron) IsConnectedTo(targetID string) bool {
	return slices.Contains(n.ConnectedTo, targetID)
}

// Snapshot returns a copy that shares no memory with n
func (n *Neuron) Snapshot() Neuron {
	c := *n
	c.ConnectedTo = slices.Clone(n.ConnectedTo)
	if n.Position != nil {
		p := *n.Position
		c.Position = &p
	}
	return c
}

// discharge resets the potential and stamps the firing time
func (n *Neuron) discharge(now time.Time) {
	n.Potential = 0
	n.LastFired = now
}

// Resolver looks up a resident neuron by ID, returning nil when absent
type Resolver func(id string) *Neuron

// Propagation holds everything a cascade needs besides the neurons.
type Propagation struct {
	Resolve Resolver

	// Now is read before every refractory check. Defaults to time.Now.
	Now func() time.Time

	// Stimulus draws the amount delivered to each downstream neuron.
	// Defaults to the midpoint of the stimulus range.
	Stimulus func() float64

	// MaxDepth caps the traversal stack; 0 means unlimited.
	MaxDepth int
}

func (p Propagation) stimulus() float64 {
	if p.Stimulus == nil {
		return (MinStimulus + MaxStimulus) / 2
	}
	return p.Stimulus()
}

func (p Propagation) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

// cascadeFrame is one neuron on the traversal stack along with the index of
// the next outgoing edge to visit
type cascadeFrame struct {
	neuron *Neuron
	next   int
}

// Fire discharges the neuron and propagates through its connections
// depth-first. The returned IDs are in firing order and include repeats when a
// neuron fires again through another path after its refractory window.
//
// A refractory neuron does not fire and yields an empty cascade. The traversal
// uses an explicit stack, so cyclic graphs cannot exhaust the call stack.
func (n *Neuron) Fire(p Propagation) []string {
	if n.IsRefractory(p.now()) {
		return []string{}
	}

	n.discharge(p.now())
	fired := []string{n.ID}
	stack := []cascadeFrame{{neuron: n}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next >= len(top.neuron.ConnectedTo) {
			stack = stack[:len(stack)-1]
			continue
		}
		targetID := top.neuron.ConnectedTo[top.next]
		top.next++

		if p.Resolve == nil {
			continue
		}
		target := p.Resolve(targetID)
		if target == nil {
			continue
		}
		if !target.Stimulate(p.stimulus(), p.now()) {
			continue
		}
		if p.MaxDepth > 0 && len(stack) >= p.MaxDepth {
			continue
		}
		if target.IsRefractory(p.now()) {
			continue
		}

		target.discharge(p.now())
		fired = append(fired, target.ID)
		stack = append(stack, cascadeFrame{neuron: target})
	}

	return fired
}
