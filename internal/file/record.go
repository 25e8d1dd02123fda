// Package file orchestrates uploads and deletions across object storage, the
// metadata document store, the link shortener and the shared aggregate.
package file

import (
	"time"

	"github.com/ndunkgo99/Viyey-worker/internal/docstore"
	"github.com/ndunkgo99/Viyey-worker/internal/storage"
)

// Record is the metadata document kept for every stored object.
type Record struct {
	ID        string
	Name      string
	SizeBytes int64
	Storage   storage.Locator
	// ShortURL is empty when shortening was skipped or failed.
	ShortURL   string
	UploadedAt time.Time
}

func (r Record) document() docstore.Document {
	doc := docstore.Document{
		"name":       docstore.String(r.Name),
		"size":       docstore.Integer(r.SizeBytes),
		"backend":    docstore.String(r.Storage.Backend),
		"library":    docstore.String(r.Storage.Library),
		"key":        docstore.String(r.Storage.Key),
		"url":        docstore.String(r.Storage.URL),
		"uploadedAt": docstore.Timestamp(r.UploadedAt),
	}
	if r.ShortURL != "" {
		doc["shortUrl"] = docstore.String(r.ShortURL)
	}
	return doc
}

func recordFromDocument(id string, doc docstore.Document) Record {
	r := Record{
		ID:        id,
		Name:      doc.String("name"),
		SizeBytes: max(0, doc.Int("size")),
		Storage: storage.Locator{
			Backend: doc.String("backend"),
			Library: doc.String("library"),
			Key:     doc.String("key"),
			URL:     doc.String("url"),
		},
		ShortURL: doc.String("shortUrl"),
	}
	if r.Storage.Key == "" {
		r.Storage.Key = id
	}
	if ts, ok := doc.Time("uploadedAt"); ok {
		r.UploadedAt = ts
	}
	return r
}
