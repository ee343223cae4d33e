// Package models defines the domain types for the archive.
package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/algiz/internal/checksum"
)

// Document is one ingested file, identified by the hash of its bytes.
type Document struct {
	ID        int64     `json:"id"`
	Hash      string    `json:"hash"`
	Name      string    `json:"name"`
	Ext       string    `json:"ext,omitempty"`
	Size      int64     `json:"size"`
	MediaType string    `json:"media_type,omitempty"`
	Comment   string    `json:"comment,omitempty"`
	Deleted   bool      `json:"deleted,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the fields required before a document row is written.
func (d *Document) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.Hash, validation.Required, validation.Match(checksum.Pattern)),
		validation.Field(&d.Name, validation.Required),
		validation.Field(&d.Size, validation.Min(int64(0))),
	)
}

// FileName is the name a view slot uses for the document's blob.
func (d *Document) FileName() string {
	return BlobFileName(d.Hash, d.Ext)
}

// BlobFileName joins hash and extension the way slot entries spell them.
func BlobFileName(hash, ext string) string {
	if ext == "" {
		return hash
	}
	return hash + "." + ext
}
