package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lexsite/lexsite/backend/go-services/internal/document"
)

// wireDocument is the JSON layout written to the blob store.
type wireDocument[T document.Entity] struct {
	Version        int64      `json:"version"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty"`
	Items          []T        `json:"items"`
	PublishedIndex *[]string  `json:"publishedIndex,omitempty"`
}

func encode[T document.Entity](spec document.Spec[T], doc *document.Document[T]) ([]byte, error) {
	w := wireDocument[T]{Version: doc.Version, UpdatedAt: doc.UpdatedAt, Items: doc.Items}
	if w.Items == nil {
		w.Items = []T{}
	}
	if spec.IndexPublished {
		idx := doc.PublishedIDs()
		w.PublishedIndex = &idx
	}
	return json.Marshal(w)
}

// decode accepts both the current layout and legacy documents that keyed the
// array by collection name and carried a hand-maintained published index. The
// index is never read back; it is derived from the items.
func decode[T document.Entity](spec document.Spec[T], b []byte) (*document.Document[T], error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", spec.Key, err)
	}
	doc := &document.Document[T]{Items: []T{}}
	if v, ok := raw["version"]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &doc.Version); err != nil {
			return nil, fmt.Errorf("decode %s version: %w", spec.Key, err)
		}
	}
	if v, ok := raw["updatedAt"]; ok && !isNull(v) {
		var t time.Time
		if err := json.Unmarshal(v, &t); err != nil {
			return nil, fmt.Errorf("decode %s updatedAt: %w", spec.Key, err)
		}
		doc.UpdatedAt = &t
	}
	items, ok := raw["items"]
	if !ok && spec.LegacyItemsKey != "" {
		items, ok = raw[spec.LegacyItemsKey]
	}
	if !ok || isNull(items) {
		return doc, nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(items, &elems); err != nil {
		return nil, fmt.Errorf("decode %s items: %w", spec.Key, err)
	}
	for i, e := range elems {
		if isNull(e) {
			continue
		}
		it := spec.New()
		if err := json.Unmarshal(e, it); err != nil {
			return nil, fmt.Errorf("decode %s item %d: %w", spec.Key, i, err)
		}
		doc.Items = append(doc.Items, it)
	}
	return doc, nil
}

func isNull(b json.RawMessage) bool {
	return len(b) == 0 || string(b) == "null"
}
