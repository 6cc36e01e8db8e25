package types

// IndexingState is the lifecycle state of an indexing session.
// Transitions are owned by the state manager: Standby -> Indexing ->
// {Indexed | Error} -> Indexing (next run).
type IndexingState string

const (
	IndexingStateStandby  IndexingState = "Standby"
	IndexingStateIndexing IndexingState = "Indexing"
	IndexingStateIndexed  IndexingState = "Indexed"
	IndexingStateError    IndexingState = "Error"
)

// Valid reports whether s is a known indexing state.
func (s IndexingState) Valid() bool {
	switch s {
	case IndexingStateStandby, IndexingStateIndexing, IndexingStateIndexed, IndexingStateError:
		return true
	}
	return false
}

// ProgressStatus is the latest materialized view of indexing
// progress. It is always available synchronously, independent of
// event throttling.
type ProgressStatus struct {
	SystemStatus    IndexingState
	Message         string
	ProcessedItems  int
	TotalItems      int
	CurrentItemUnit string
}
