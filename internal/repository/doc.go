// Package repository defines the data access interfaces for neurosim.
//
// The Repository interface embeds domain.Store, the narrow collaborator a
// domain.Network writes through, and adds the queries the service layer
// needs on top of it: firing history for reports and user accounts for
// authentication. The implementation lives in the sqlite subpackage.
//
// # Ownership
//
// Every neuron, connection and firing event row carries an owner ID. Queries
// never cross owners; clearing one owner's network leaves the others intact.
//
// # Schema Migration
//
// The sqlite repository creates its schema on startup and adds indexes as
// needed while preserving existing data.
package repository
