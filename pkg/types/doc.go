// Package types defines the Entity contract, the concrete entity types, and
// the closed registry used to rebuild entities from their serialized records.
//
// Every entity carries an id, a creation timestamp, an update timestamp and a
// free-form attribute map. Entities are created either fresh, in which case
// they register with a Registry, or from a stored record via Reconstruct.
package types
