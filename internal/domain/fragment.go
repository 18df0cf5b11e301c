package domain

import "context"

// NetworkFragment is a portable copy of a network used for import/export
type NetworkFragment struct {
	Neurons     []NeuronRecord `json:"neurons"`
	Connections []Connection   `json:"connections"`
}

// NewNetworkFragment creates an empty fragment
func NewNetworkFragment() *NetworkFragment {
	return &NetworkFragment{
		Neurons:     make([]NeuronRecord, 0),
		Connections: make([]Connection, 0),
	}
}

// AddNeuron adds a neuron record to the fragment
func (f *NetworkFragment) AddNeuron(rec NeuronRecord) {
	f.Neurons = append(f.Neurons, rec)
}

// AddConnection adds an edge to the fragment
func (f *NetworkFragment) AddConnection(c Connection) {
	f.Connections = append(f.Connections, c)
}

// ExportFragment captures the resident network
func (n *Network) ExportFragment() *NetworkFragment {
	f := NewNetworkFragment()
	for _, neuron := range n.neurons {
		f.AddNeuron(neuron.Record())
	}
	for _, c := range n.Connections() {
		f.AddConnection(c)
	}
	return f
}

// ImportResult counts what an import added
type ImportResult struct {
	NeuronsCreated     int `json:"neurons_created"`
	ConnectionsCreated int `json:"connections_created"`
}

// ImportFragment merges a fragment into the resident network. Neurons whose
// IDs are already resident are kept as they are; connections between unknown
// neurons or from a neuron to itself are skipped.
func (n *Network) ImportFragment(ctx context.Context, f *NetworkFragment) (*ImportResult, error) {
	result := &ImportResult{}
	for _, rec := range f.Neurons {
		before := n.Len()
		if _, err := n.ImportNeuron(ctx, rec); err != nil {
			return result, err
		}
		if n.Len() > before {
			result.NeuronsCreated++
		}
	}
	for _, c := range f.Connections {
		from := n.GetNeuron(c.FromID)
		if from == nil || c.FromID == c.ToID || from.IsConnectedTo(c.ToID) {
			continue
		}
		ok, err := n.ConnectNeurons(ctx, c.FromID, c.ToID)
		if err != nil {
			return result, err
		}
		if ok {
			result.ConnectionsCreated++
		}
	}
	return result, nil
}
