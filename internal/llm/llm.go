// Package llm holds the ports the assistant uses to talk to a language
// model, and their Gemini implementations.
package llm

import (
	"context"
	"errors"

	"google.golang.org/genai"
)

// ErrEmptyResponse means the model returned no candidates at all.
var ErrEmptyResponse = errors.New("empty model response")

// Reply is one model turn reduced to what the assistant acts on.
type Reply struct {
	Text  string
	Calls []*genai.FunctionCall
}

// HasCalls reports whether the model asked for any tool.
func (r Reply) HasCalls() bool { return len(r.Calls) > 0 }

// Session is a single conversation. Each Send is one model round trip.
type Session interface {
	Send(ctx context.Context, parts ...*genai.Part) (Reply, error)
}

// ChatModel opens fresh sessions with no prior history.
type ChatModel interface {
	NewSession(ctx context.Context) (Session, error)
}

// Completer runs a one-shot completion of input under a system prompt.
type Completer interface {
	Complete(ctx context.Context, system, input string) (string, error)
}

// replyFrom flattens the first candidate of resp. Thought parts are skipped.
// A candidate without content, as sent after function responses with
// nothing left to say, is an empty reply.
func replyFrom(resp *genai.GenerateContentResponse) (Reply, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return Reply{}, ErrEmptyResponse
	}
	var r Reply
	content := resp.Candidates[0].Content
	if content == nil {
		return r, nil
	}
	for _, p := range content.Parts {
		switch {
		case p == nil || p.Thought:
		case p.FunctionCall != nil:
			r.Calls = append(r.Calls, p.FunctionCall)
		case p.Text != "":
			r.Text += p.Text
		}
	}
	return r, nil
}
