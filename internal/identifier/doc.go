// Package identifier derives deterministic, URL-safe identifiers.
//
// Identifiers are used as Home Assistant device identifiers and entity
// unique_ids. The same seed (and namespace) always yields the same token,
// across processes and hosts, so a device keeps its identity in the hub
// between restarts without any local state.
//
// # Usage
//
//	id, err := identifier.Derive("serial-0042", identifier.DefaultLength, "")
//	uniq, err := identifier.Derive(entityID, identifier.DefaultLength, deviceID)
package identifier
