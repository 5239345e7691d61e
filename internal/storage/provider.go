// Package storage keeps work documents and uploaded assets on disk.
package storage

import "github.com/starford/pagecraft/internal/models"

// Provider is the interface for work file operations. Works are addressed
// by id; each one lives in <id>.json under the works root.
type Provider interface {
	// List returns metadata for every work document.
	List() ([]models.WorkMetadata, error)
	// Read returns the raw document of work id.
	Read(id string) ([]byte, error)
	// Write atomically replaces the document of work id.
	Write(id string, content []byte) error
	// Delete removes the document of work id.
	Delete(id string) error
	// Exists reports whether work id has a document.
	Exists(id string) bool

	// WriteAsset atomically stores an uploaded file under the assets dir.
	WriteAsset(name string, data []byte) error
	// AssetPath returns the absolute path of an asset, rejecting names
	// that are not plain file names.
	AssetPath(name string) (string, error)
}
