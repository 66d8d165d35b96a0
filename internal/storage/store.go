package storage

import (
	"context"
)

// Store combines the word registry and the document archive.
type Store interface {
	WordRegistry
	DocumentStore
	Close() error
}

// WordRegistry tracks logical word ids and whether they are still present
// in some document.
type WordRegistry interface {
	// RegisterWords marks ids as live, creating them when unknown.
	RegisterWords(ctx context.Context, namespace string, ids []string) error

	// MarkDeleted records that id left the document. Repeated calls for an
	// already deleted id change nothing.
	MarkDeleted(ctx context.Context, namespace, id string) error

	// GetWord retrieves one registry row.
	GetWord(ctx context.Context, namespace, id string) (*Word, error)

	// DeletedWords lists the ids of a namespace that are no longer live.
	DeletedWords(ctx context.Context, namespace string) ([]string, error)
}

// DocumentStore keeps the last rendition of each document.
type DocumentStore interface {
	// SaveDocument upserts the rendition and reports whether its content changed.
	SaveDocument(ctx context.Context, path, html string) (bool, error)

	// LoadDocument returns the stored rendition, if any.
	LoadDocument(ctx context.Context, path string) (string, bool, error)

	// DeleteDocument forgets a document that no longer exists.
	DeleteDocument(ctx context.Context, path string) error
}

// Word is one row of the registry.
type Word struct {
	Namespace   string
	ID          string
	Live        bool
	DeleteCount int
	UpdatedAt   string
}
