package dedup

import (
	"github.com/lueurxax/event-scout/internal/core/domain"
	"github.com/lueurxax/event-scout/internal/core/embeddings"
)

const (
	matchExact    = "exact"
	matchSemantic = "semantic"
)

// match returns the catalog index the candidate duplicates, or -1.
// Exact title keys win over embeddings; within a pass the first hit in
// catalog order wins.
func (m *Merger) match(catalog []domain.Event, c domain.Candidate) (int, string) {
	key := domain.TitleKey(c.Title)

	for i := range catalog {
		if domain.TitleKey(catalog[i].Title) == key {
			return i, matchExact
		}
	}

	if len(c.Embedding) == 0 {
		return -1, ""
	}

	if i := FirstSimilar(catalog, c.Embedding, m.threshold); i >= 0 {
		return i, matchSemantic
	}

	return -1, ""
}

// FirstSimilar returns the index of the first event whose embedding has
// cosine similarity strictly above threshold, or -1. Events without an
// embedding are skipped.
func FirstSimilar(catalog []domain.Event, vec []float32, threshold float32) int {
	for i := range catalog {
		if len(catalog[i].Embedding) == 0 {
			continue
		}

		if embeddings.CosineSimilarity(vec, catalog[i].Embedding) > threshold {
			return i
		}
	}

	return -1
}
