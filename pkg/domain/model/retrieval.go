package model

// RetrievalStatus tells whether retrieval surfaced any usable evidence
type RetrievalStatus string

const (
	RetrievalFound      RetrievalStatus = "found"
	RetrievalNoEvidence RetrievalStatus = "no_evidence"
)

// AssembledContext is the word-capped evidence handed to answer synthesis
type AssembledContext struct {
	Text        string
	UsedSources []string
	Truncated   bool
	WordCount   int
}

// Retrieval is the outcome of one retrieval call
type Retrieval struct {
	Status     RetrievalStatus
	Context    *AssembledContext
	Candidates []*Candidate
}

// HasEvidence reports whether the retrieval carries assembled context
func (r *Retrieval) HasEvidence() bool {
	return r != nil && r.Status == RetrievalFound && r.Context != nil
}

// NoEvidence builds a retrieval result without evidence
func NoEvidence() *Retrieval {
	return &Retrieval{Status: RetrievalNoEvidence}
}
