// Package service implements business logic for neurosim.
//
// NetworkService sits between the HTTP handlers and the domain. It keeps one
// resident domain.Network per owner, loaded lazily from the repository on
// first use, and serializes every operation on that network with a
// per-owner mutex. Operations on different owners run in parallel.
//
// # Event System
//
// Mutations and cascades are published on the EventBus tagged with the owner
// ID. The SSE hub forwards each event only to that owner's clients.
//
// # Hot Reload
//
// ApplySimulation swaps simulation parameters on every resident network; the
// config watcher calls it when the simulation section of the file changes.
package service
