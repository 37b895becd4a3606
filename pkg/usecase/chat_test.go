package usecase_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/studypal/pkg/usecase"
)

func TestTrimGeneralReply(t *testing.T) {
	testCases := []struct {
		name  string
		reply string
		want  string
	}{
		{name: "plain reply", reply: "  Paris is the capital of France.  ", want: "Paris is the capital of France."},
		{name: "first paragraph only", reply: "Hi there!\n\nI can also help with math.", want: "Hi there!"},
		{name: "cut at user marker", reply: "Sure thing. User: what else", want: "Sure thing."},
		{name: "cut at assistant token", reply: "Hello<|assistant|>Hello again", want: "Hello"},
		{name: "empty reply", reply: "   ", want: "Hey! How can I help you?"},
		{name: "meta prefix", reply: "Here is a friendly answer: hello", want: "Hey! How can I help you?"},
		{name: "revised version anywhere", reply: "Hello. This is a revised version.", want: "Hey! How can I help you?"},
		{name: "only a marker", reply: "User: hi", want: "Hey! How can I help you?"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gt.Value(t, usecase.TrimGeneralReply(tc.reply)).Equal(tc.want)
		})
	}
}
