package usecase

import (
	"sort"
	"strings"

	"github.com/jdkato/prose/v2"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/studypal/pkg/domain/model"
)

const minFactTokens = 6

var weakMarkers = []string{"should", "maybe", "think", "believe", "feel", "probably"}

// ExtractFacts splits text into sentences and returns up to limit declarative,
// fact-shaped ones ordered by score. Sentences shorter than six tokens, with a
// question mark, or with a weak epistemic marker are dropped. Ties keep the
// original sentence order.
func ExtractFacts(text string, limit int) ([]model.Fact, error) {
	if strings.TrimSpace(text) == "" || limit <= 0 {
		return nil, nil
	}

	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to segment text")
	}

	var facts []model.Fact
	for i, sent := range doc.Sentences() {
		s := strings.TrimSpace(sent.Text)
		if s == "" {
			continue
		}

		weak, err := isWeakSentence(s)
		if err != nil {
			return nil, err
		}
		if weak {
			continue
		}

		facts = append(facts, model.Fact{
			Text:     s,
			Score:    scoreFact(s),
			Position: i,
		})
	}

	sort.SliceStable(facts, func(i, j int) bool {
		return facts[i].Score > facts[j].Score
	})

	if len(facts) > limit {
		facts = facts[:limit]
	}
	return facts, nil
}

func isWeakSentence(s string) (bool, error) {
	if strings.Contains(s, "?") {
		return true, nil
	}

	// Substring match: "shouldn't" and "believed" are weak too
	lower := strings.ToLower(s)
	for _, m := range weakMarkers {
		if strings.Contains(lower, m) {
			return true, nil
		}
	}

	doc, err := prose.NewDocument(s,
		prose.WithSegmentation(false),
		prose.WithTagging(false),
		prose.WithExtraction(false))
	if err != nil {
		return false, goerr.Wrap(err, "failed to tokenize sentence")
	}
	return len(doc.Tokens()) < minFactTokens, nil
}

func scoreFact(s string) int {
	score := 0
	if strings.Contains(s, " is ") || strings.Contains(s, " are ") {
		score += 2
	}
	if strings.Contains(s, " because ") {
		score++
	}
	if strings.Contains(s, " leads to ") {
		score++
	}
	return score
}
