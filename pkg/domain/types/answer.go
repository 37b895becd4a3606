package types

// AnswerSource tells the client which knowledge source produced a response
type AnswerSource string

const (
	AnswerSourceNotes   AnswerSource = "notes"
	AnswerSourceAI      AnswerSource = "ai"
	AnswerSourceDataset AnswerSource = "dataset"
)

// Confidence is the confidence label reported in response metadata
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// Feature is the top level capability a request targets
type Feature string

const (
	FeatureChat Feature = "chat"
	FeatureQuiz Feature = "quiz"
)

func (f Feature) IsValid() bool {
	return f == FeatureChat || f == FeatureQuiz
}
