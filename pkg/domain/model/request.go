package model

import "github.com/secmon-lab/studypal/pkg/domain/types"

// Request is the closed set of routed requests. Exactly one of
// ChatRAGRequest, ChatGeneralRequest, QuizNotesRequest and QuizDatasetRequest.
type Request interface {
	Feature() types.Feature
	isRequest()
}

// ProviderOptions carries per-request provider settings such as api_key or model
type ProviderOptions map[string]string

// Get returns the option value for key
func (o ProviderOptions) Get(key string) string {
	if o == nil {
		return ""
	}
	return o[key]
}

// ChatRAGRequest asks a question answered strictly from the notes of a bucket
type ChatRAGRequest struct {
	Message         string
	Bucket          string
	Provider        types.Provider
	ProviderOptions ProviderOptions
}

// ChatGeneralRequest asks a question answered from general model knowledge
type ChatGeneralRequest struct {
	Message         string
	Provider        types.Provider
	ProviderOptions ProviderOptions
}

// QuizNotesRequest generates a quiz from selected notes
type QuizNotesRequest struct {
	NoteIDs      []NoteID
	NumQuestions int
}

// QuizDatasetRequest generates a quiz from the topic dataset
type QuizDatasetRequest struct {
	Topic        string
	NumQuestions int
}

func (ChatRAGRequest) Feature() types.Feature     { return types.FeatureChat }
func (ChatGeneralRequest) Feature() types.Feature { return types.FeatureChat }
func (QuizNotesRequest) Feature() types.Feature   { return types.FeatureQuiz }
func (QuizDatasetRequest) Feature() types.Feature { return types.FeatureQuiz }

func (ChatRAGRequest) isRequest()     {}
func (ChatGeneralRequest) isRequest() {}
func (QuizNotesRequest) isRequest()   {}
func (QuizDatasetRequest) isRequest() {}
