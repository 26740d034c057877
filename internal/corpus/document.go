// Package corpus supplies documents to the keyword search pipeline and the
// metadata used to present ranked results. Sources are lazy: documents are
// produced one at a time so a corpus never has to be resident in memory.
package corpus

import (
	"context"
	"iter"
)

// Document is one corpus record handed to the analyzer. Records without
// text are filtered out before they reach the pipeline.
type Document struct {
	ID   string `json:"doc_id"`
	Text string `json:"text"`
}

// Metadata is the human-readable side of a record, joined onto ranked rows
// for presentation.
type Metadata struct {
	DocID       string `json:"doc_id"`
	Title       string `json:"title"`
	Abstract    string `json:"abstract"`
	PublishTime string `json:"publish_time"`
	URL         string `json:"url"`
}

// Record is a full metadata row as read from the dataset.
type Record struct {
	Metadata
	HasFullText bool
}

// Source produces the documents of a corpus. The sequence yields a non-nil
// error either for a single bad record (an *errors.DocumentError, which the
// caller may skip) or for a failure that ends the scan.
type Source interface {
	Documents(ctx context.Context) iter.Seq2[Document, error]
}

// MetadataLookup resolves metadata for a set of document identifiers.
// Unknown identifiers are absent from the returned map.
type MetadataLookup interface {
	Lookup(ctx context.Context, ids []string) (map[string]Metadata, error)
}

// Slice is an in-memory Source, used for request-supplied corpora and tests.
type Slice []Document

func (s Slice) Documents(ctx context.Context) iter.Seq2[Document, error] {
	return func(yield func(Document, error) bool) {
		for _, doc := range s {
			if err := ctx.Err(); err != nil {
				yield(Document{}, err)
				return
			}
			if !yield(doc, nil) {
				return
			}
		}
	}
}

// MemoryMetadata is a MetadataLookup backed by a map.
type MemoryMetadata map[string]Metadata

func (m MemoryMetadata) Lookup(_ context.Context, ids []string) (map[string]Metadata, error) {
	out := make(map[string]Metadata, len(ids))
	for _, id := range ids {
		if md, ok := m[id]; ok {
			out[id] = md
		}
	}
	return out, nil
}
