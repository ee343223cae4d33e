// Package blobstore implements the append-only, hash-addressed content store.
package blobstore

import "io"

// Provider is the interface for content store operations.
type Provider interface {
	// Put stores the bytes of r under hash. The bytes must hash to hash.
	Put(hash string, r io.Reader) error
	// PutBytes stores data and returns its hash.
	PutBytes(data []byte) (string, error)
	// Has reports whether a blob exists for hash.
	Has(hash string) (bool, error)
	// Open returns a reader for the blob stored under hash.
	Open(hash string) (io.ReadCloser, error)
	// Path returns the absolute file path of the blob for hash.
	Path(hash string) (string, error)
	// List returns every stored hash.
	List() ([]string, error)
}
