package lookup

import (
	"context"
	"errors"
	"fmt"
	"iter"
)

// Collections and categories of the backing store read by the pipeline.
const (
	CollectionItems = "items"
	CategoryType    = "type"
	LabelLanguage   = "en"
)

// ErrUnknownCollection is returned by stores asked for a collection they do not hold.
var ErrUnknownCollection = errors.New("unknown collection")

// Document is one record of the items collection: an entity of some category
// with its display labels keyed by language.
type Document struct {
	Entity   string            `json:"entity" msgpack:"entity"`
	Category string            `json:"category" msgpack:"category"`
	Labels   map[string]string `json:"labels" msgpack:"labels"`
}

// Filter selects documents by category and, when Entities is non-empty, by entity id.
type Filter struct {
	Category string
	Entities []string
}

// BackingStore reads documents of a knowledge graph lazily.
// Errors surface through the sequence and stop it.
type BackingStore interface {
	Find(ctx context.Context, kg, collection string, filter Filter) iter.Seq2[Document, error]
}

// TypeLabels maps a type id to its English label. A nil label means the store
// holds no label for that id.
type TypeLabels map[string]*string

// Name returns the label of id, or nil.
func (tl TypeLabels) Name(id string) *string {
	return tl[id]
}

// CollectTypeIDs returns the distinct type ids of all hit sets in first-seen order.
func CollectTypeIDs(hitSets ...[]Hit) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, hits := range hitSets {
		for _, hit := range hits {
			for _, id := range hit.Types {
				if id == "" {
					continue
				}
				if _, ok := seen[id]; ok {
					continue
				}
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// ResolveTypeLabels looks all ids up in one batch. Every id is present in the
// result, with a nil label when the store has none.
func ResolveTypeLabels(ctx context.Context, store BackingStore, kg string, ids []string) (TypeLabels, error) {
	labels := make(TypeLabels, len(ids))
	for _, id := range ids {
		labels[id] = nil
	}
	if len(ids) == 0 || store == nil {
		return labels, nil
	}

	filter := Filter{Category: CategoryType, Entities: ids}
	for doc, err := range store.Find(ctx, kg, CollectionItems, filter) {
		if err != nil {
			return nil, fmt.Errorf("resolve type labels: %w", err)
		}
		if _, wanted := labels[doc.Entity]; !wanted {
			continue
		}
		if label, ok := doc.Labels[LabelLanguage]; ok {
			labels[doc.Entity] = &label
		}
	}
	return labels, nil
}
