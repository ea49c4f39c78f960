package types

// SearchStage is a step of the per-query retrieval state machine
type SearchStage string

const (
	SearchStageReceived       SearchStage = "RECEIVED"
	SearchStageEmbeddingQuery SearchStage = "EMBEDDING_QUERY"
	SearchStageSearching      SearchStage = "SEARCHING"
	SearchStageFiltering      SearchStage = "FILTERING"
	SearchStageReranking      SearchStage = "RERANKING"
	SearchStageDone           SearchStage = "DONE"
	SearchStageError          SearchStage = "ERROR"
)

func (s SearchStage) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible
func (s SearchStage) IsTerminal() bool {
	return s == SearchStageDone || s == SearchStageError
}
