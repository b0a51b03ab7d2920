// Package models defines server-side data models persisted in the database.
package models

import "time"

// Document is one submitted file under custody of the server.
type Document struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	FileName    string
	MediaType   string
	Size        int64

	// Digest is the lowercase hex SHA-256 of the stored bytes.
	Digest string
	// StoragePath is the server-local location of the file. It never leaves
	// the server.
	StoragePath string

	// ContentID is the content-store identifier, empty when the upload to
	// the store did not succeed.
	ContentID string
	// TxID is the ledger transaction that anchors Digest.
	TxID     string
	Anchored bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanAnchor reports whether the document may be marked anchored with txID.
func (d *Document) CanAnchor(txID string) bool {
	return d.Digest != "" && txID != ""
}
