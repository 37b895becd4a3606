package model

// NotInNotesMarker is the token a model emits when the context does not answer
// the question. It is also the wire text of a not-in-notes answer.
const NotInNotesMarker = "NOT_IN_NOTES"

// AnswerStatus tells whether an answer is grounded in the notes
type AnswerStatus string

const (
	AnswerGrounded   AnswerStatus = "grounded"
	AnswerNotInNotes AnswerStatus = "not_in_notes"
)

// Answer is the result of grounded answer synthesis
type Answer struct {
	Status  AnswerStatus
	Text    string
	Sources []string
}

// NotInNotes builds an answer for questions the notes cannot answer
func NotInNotes() *Answer {
	return &Answer{Status: AnswerNotInNotes, Sources: []string{}}
}

// IsGrounded reports whether the answer carries grounded content
func (a *Answer) IsGrounded() bool {
	return a != nil && a.Status == AnswerGrounded
}

// Content returns the text sent to clients
func (a *Answer) Content() string {
	if !a.IsGrounded() {
		return NotInNotesMarker
	}
	return a.Text
}
