package domain

// Keys under which a sender's session state is persisted.
const (
	KeyDataDump      = "data_dump"
	KeyAnalysis      = "analysis"
	KeySearchResults = "search_results"
	KeyRawCuration   = "raw_curation_response"
	KeyCuration      = "curation"
)

// SessionEntry is a single persisted value in a sender's session.
type SessionEntry struct {
	PK        string
	SK        string
	Sender    string
	Key       string
	Value     string
	UpdatedAt string
}

// SessionState is the progress of a sender through analysis, search and curation.
type SessionState int

const (
	StateNew SessionState = iota
	StateAnalyzed
	StateSearched
	StateCurated
)

func (s SessionState) String() string {
	switch s {
	case StateAnalyzed:
		return "ANALYZED"
	case StateSearched:
		return "SEARCHED"
	case StateCurated:
		return "CURATED"
	default:
		return "NEW"
	}
}

// DeriveState computes the session state from the set of stored keys.
// Without an analysis nothing downstream counts.
func DeriveState(keys []string) SessionState {
	present := make(map[string]bool, len(keys))
	for _, k := range keys {
		present[k] = true
	}
	switch {
	case !present[KeyAnalysis]:
		return StateNew
	case present[KeyCuration]:
		return StateCurated
	case present[KeySearchResults]:
		return StateSearched
	default:
		return StateAnalyzed
	}
}

// ReadableKey reports whether key holds a structured artefact that may be
// served back to clients.
func ReadableKey(key string) bool {
	switch key {
	case KeyAnalysis, KeySearchResults, KeyCuration:
		return true
	}
	return false
}
