package domain

// IndexState tracks the index builder lifecycle.
// Transitions: Empty -> Building -> Built -> Persisted.
type IndexState int

const (
	// IndexEmpty is the initial state; no chunks have been added.
	IndexEmpty IndexState = iota

	// IndexBuilding accepts further batches of chunks.
	IndexBuilding

	// IndexBuilt means every input chunk is incorporated.
	IndexBuilt

	// IndexPersisted means the artifact is durably written.
	IndexPersisted
)

// String returns the state name.
func (s IndexState) String() string {
	switch s {
	case IndexEmpty:
		return "empty"
	case IndexBuilding:
		return "building"
	case IndexBuilt:
		return "built"
	case IndexPersisted:
		return "persisted"
	default:
		return "unknown"
	}
}

// Hit is a single similarity search result.
type Hit struct {
	// Chunk is the matched chunk with its provenance metadata.
	Chunk Chunk

	// Score is the cosine similarity to the query (higher is closer).
	Score float64
}
