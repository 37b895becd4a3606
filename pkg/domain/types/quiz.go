package types

// Difficulty is the difficulty label attached to a quiz item
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
)

func (d Difficulty) String() string {
	return string(d)
}

// QuestionKind records which strategy produced a quiz item
type QuestionKind string

const (
	QuestionKindMultipleChoice QuestionKind = "multiple_choice"
	QuestionKindTrueFalse      QuestionKind = "true_false"
	QuestionKindFillBlank      QuestionKind = "fill_blank"
)
