// Package domain defines the spiking-neuron simulation engine.
//
// # Core Types
//
// Neuron is a single unit with a firing threshold, an accumulated potential,
// a refractory period and an ordered set of outgoing connections. Neurons
// refer to each other by ID only.
//
// Network owns the resident neurons of one owner, resolves IDs for cascades,
// and implements the operations spanning several neurons: connecting,
// random selection, distance-based auto-wiring and cascade stimulation.
//
// # Cascades
//
// Stimulating a neuron adds a random amount to its potential. Once the
// potential reaches the threshold the neuron fires: its potential resets, it
// becomes refractory, and each connected neuron is stimulated in turn. The
// cascade is walked depth-first with an explicit stack. Refractory gating is
// what stops a cycle from firing forever within one refractory window.
//
// # Persistence
//
// Network writes through the Store interface. The simulation itself never
// touches storage; only adding neurons, connecting, wiring, loading, clearing
// and recording firing events do.
//
// # Reports
//
// BuildReport aggregates firing events into per-second activity for display.
package domain
