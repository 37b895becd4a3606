package model

// Fact is a declarative sentence scored for use as a quiz question seed
type Fact struct {
	Text     string
	Score    int
	Position int // sentence index in the source text, used for stable ordering
}
