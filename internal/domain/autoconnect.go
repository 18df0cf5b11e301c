package domain

import (
	"context"
	"fmt"
)

// AutoConnectParams controls distance-based random wiring
type AutoConnectParams struct {
	MaxDistance             float64 `json:"max_distance" yaml:"max_distance"`
	MaxConnectionsPerNeuron int     `json:"max_connections_per_neuron" yaml:"max_connections_per_neuron"`
	BaseProbability         float64 `json:"base_probability" yaml:"base_probability"`
}

// DefaultAutoConnectParams returns maxDistance=200, 5 connections, p=0.8
func DefaultAutoConnectParams() AutoConnectParams {
	return AutoConnectParams{
		MaxDistance:             200,
		MaxConnectionsPerNeuron: 5,
		BaseProbability:         0.8,
	}
}

// AutoConnectOverrides replaces selected fields of a parameter set. A nil
// field keeps the base value; a zero is taken literally.
type AutoConnectOverrides struct {
	MaxDistance             *float64
	MaxConnectionsPerNeuron *int
	BaseProbability         *float64
}

// Apply returns base with the set fields replaced
func (o AutoConnectOverrides) Apply(base AutoConnectParams) AutoConnectParams {
	if o.MaxDistance != nil {
		base.MaxDistance = *o.MaxDistance
	}
	if o.MaxConnectionsPerNeuron != nil {
		base.MaxConnectionsPerNeuron = *o.MaxConnectionsPerNeuron
	}
	if o.BaseProbability != nil {
		base.BaseProbability = *o.BaseProbability
	}
	return base
}

// Validate checks the parameter ranges. Zero connections or a zero
// probability are valid and wire nothing.
func (p AutoConnectParams) Validate() error {
	if p.MaxDistance <= 0 {
		return fmt.Errorf("%w: max distance must be positive, got %v", ErrInvalidParams, p.MaxDistance)
	}
	if p.MaxConnectionsPerNeuron < 0 {
		return fmt.Errorf("%w: max connections per neuron must not be negative, got %d", ErrInvalidParams, p.MaxConnectionsPerNeuron)
	}
	if p.BaseProbability < 0 || p.BaseProbability > 1 {
		return fmt.Errorf("%w: base probability must be within [0, 1], got %v", ErrInvalidParams, p.BaseProbability)
	}
	return nil
}

type wiringCandidate struct {
	neuron   *Neuron
	distance float64
}

// AutoConnect wires every positioned neuron to nearby neurons. For each source
// the candidates within MaxDistance are shuffled and each is connected with
// probability BaseProbability * (1 - distance/MaxDistance), until the source
// has gained MaxConnectionsPerNeuron new edges. Existing edges are skipped and
// do not count toward that limit. Neurons without a position are ignored.
//
// It returns the number of edges created.
func (n *Network) AutoConnect(ctx context.Context, p AutoConnectParams) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	total := 0
	for _, src := range n.neurons {
		if src.Position == nil {
			continue
		}

		candidates := make([]wiringCandidate, 0)
		for _, dst := range n.neurons {
			if dst.ID == src.ID || dst.Position == nil {
				continue
			}
			d := src.Position.DistanceTo(*dst.Position)
			if d <= p.MaxDistance {
				candidates = append(candidates, wiringCandidate{neuron: dst, distance: d})
			}
		}
		n.rng.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})

		made := 0
		for _, c := range candidates {
			if made >= p.MaxConnectionsPerNeuron {
				break
			}
			if src.IsConnectedTo(c.neuron.ID) {
				continue
			}
			prob := p.BaseProbability * (1 - c.distance/p.MaxDistance)
			if n.rng.Float64() >= prob {
				continue
			}
			if err := n.persistConnection(ctx, src.ID, c.neuron.ID); err != nil {
				return total, err
			}
			src.Connect(c.neuron.ID)
			made++
			total++
		}
	}
	return total, nil
}
