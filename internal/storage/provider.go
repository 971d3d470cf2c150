// Package storage keeps the raw files that sources were created from.
package storage

// Provider is the interface for source file operations.
type Provider interface {
	// Persist stores payload under the user's directory and returns its
	// path relative to the storage root.
	Persist(userID int64, name string, payload []byte) (string, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Abs resolves a relative path against the root.
	Abs(path string) (string, error)
}
