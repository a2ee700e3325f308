// Package promptbridge links prompt-valued configuration keys to an
// external prompt-versioning service.
//
// The store persists the mapping table (prompt name to config key to
// external identity); the bridge drives the external conversation: syncing
// published prompt values into versions, and promoting a winning experiment
// variant into the published value plus a fresh external version.
//
// The external service is consumed through the VersionService interface.
// MockService provides an in-memory implementation for tests; production
// embedders supply a client for their real versioning backend.
package promptbridge
