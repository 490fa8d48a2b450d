package assistant

import (
	"context"
	"sync"

	"google.golang.org/genai"

	"finbot/internal/llm"
)

// scriptedModel replays replies in order and records what was sent.
type scriptedModel struct {
	mu       sync.Mutex
	replies  []llm.Reply
	errAt    int // 1-based send that fails, 0 for never
	err      error
	sent     [][]*genai.Part
	sessions int
}

func (m *scriptedModel) NewSession(context.Context) (llm.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions++
	return m, nil
}

func (m *scriptedModel) Send(_ context.Context, parts ...*genai.Part) (llm.Reply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, parts)
	n := len(m.sent)
	if m.errAt == n {
		return llm.Reply{}, m.err
	}
	if n > len(m.replies) {
		return llm.Reply{Text: ""}, nil
	}
	return m.replies[n-1], nil
}

// responses returns the function responses sent on the given 1-based turn.
func (m *scriptedModel) responses(turn int) []*genai.FunctionResponse {
	var out []*genai.FunctionResponse
	for _, p := range m.sent[turn-1] {
		if p.FunctionResponse != nil {
			out = append(out, p.FunctionResponse)
		}
	}
	return out
}

func call(name string, args map[string]any) *genai.FunctionCall {
	return &genai.FunctionCall{ID: name + "-id", Name: name, Args: args}
}

func calls(fcs ...*genai.FunctionCall) llm.Reply { return llm.Reply{Calls: fcs} }

func text(s string) llm.Reply { return llm.Reply{Text: s} }

// countingExecutor records executed calls and fails the named tool.
type countingExecutor struct {
	executed []string
	failOn   string
}

func (e *countingExecutor) Execute(_ context.Context, fc *genai.FunctionCall) Result {
	e.executed = append(e.executed, fc.Name)
	if fc.Name == e.failOn {
		return Result{Tool: fc.Name, Error: "sheet unavailable"}
	}
	return Result{Tool: fc.Name, Success: true, Message: "ok from " + fc.Name}
}
