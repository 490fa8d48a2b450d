// Package assistant runs the function-calling conversation between the
// chat model and the ledger tools.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"finbot/internal/llm"
	"finbot/internal/log"
	"finbot/internal/metrics"
)

// State of one orchestration run.
type State string

const (
	StateAwaitingModel  State = "AWAITING_MODEL"
	StateExecutingTools State = "EXECUTING_TOOLS"
	StateDone           State = "DONE"
	StateFailed         State = "FAILED"
)

// User-facing answers that do not come from the model or a tool.
const (
	FallbackAnswer    = "Sorry, I couldn't process your request."
	RoundTripsAnswer  = "Sorry, I could not complete your request."
	UnavailableAnswer = "Sorry, I'm having trouble reaching the assistant right now. Please try again later."
)

const DefaultMaxRoundTrips = 6

var (
	ErrEmptyQuery = errors.New("query is required")
	// ErrModelUnavailable wraps transport failures talking to the model.
	ErrModelUnavailable = errors.New("model unavailable")
)

// Outcome is the result of a run. Answer is always user-presentable.
type Outcome struct {
	Answer     string
	State      State
	RoundTrips int
	ToolCalls  int
}

// Executor runs a single tool call.
type Executor interface {
	Execute(ctx context.Context, fc *genai.FunctionCall) Result
}

// Orchestrator is safe for concurrent use; every run opens its own session.
type Orchestrator struct {
	model         llm.ChatModel
	tools         Executor
	maxRoundTrips int
	timeout       time.Duration
	log           *log.Logger
}

type Option func(*Orchestrator)

// WithMaxRoundTrips caps model calls per run.
func WithMaxRoundTrips(n int) Option { return func(o *Orchestrator) { o.maxRoundTrips = n } }

// WithModelTimeout bounds each model call.
func WithModelTimeout(d time.Duration) Option { return func(o *Orchestrator) { o.timeout = d } }

func WithLogger(l *log.Logger) Option { return func(o *Orchestrator) { o.log = l } }

func NewOrchestrator(model llm.ChatModel, tools Executor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		model:         model,
		tools:         tools,
		maxRoundTrips: DefaultMaxRoundTrips,
		log:           log.Default(log.ComponentAssistant),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.maxRoundTrips < 1 {
		o.maxRoundTrips = 1
	}
	return o
}

// Run answers query. The returned error is non-nil only when the query is
// empty or the model could not be reached; tool failures and the round trip
// cap end the run with a FAILED outcome and a nil error.
func (o *Orchestrator) Run(ctx context.Context, query string) (out Outcome, err error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Outcome{Answer: FallbackAnswer, State: StateFailed}, ErrEmptyQuery
	}

	start := time.Now()
	defer func() {
		metrics.AssistantRuns.WithLabelValues(string(out.State)).Inc()
		metrics.AssistantRoundTrips.Observe(float64(out.RoundTrips))
		o.log.InfoContext(ctx, "Assistant run finished",
			log.FieldState, string(out.State),
			log.FieldRoundTrip, out.RoundTrips,
			log.FieldDuration, time.Since(start).Milliseconds())
	}()

	out.State = StateAwaitingModel
	session, err := o.model.NewSession(ctx)
	if err != nil {
		return o.unavailable(ctx, out, err)
	}

	reply, err := o.send(ctx, session, genai.NewPartFromText(query))
	out.RoundTrips++
	if err != nil {
		return o.unavailable(ctx, out, err)
	}

	var lastSummary string
	for {
		if !reply.HasCalls() {
			out.State = StateDone
			out.Answer = firstNonEmpty(strings.TrimSpace(reply.Text), lastSummary, FallbackAnswer)
			return out, nil
		}
		if out.RoundTrips >= o.maxRoundTrips {
			o.log.WarnContext(ctx, "Round trip limit reached", log.FieldRoundTrip, out.RoundTrips)
			out.State = StateFailed
			out.Answer = RoundTripsAnswer
			return out, nil
		}

		out.State = StateExecutingTools
		parts := make([]*genai.Part, 0, len(reply.Calls))
		for _, fc := range reply.Calls {
			res := o.tools.Execute(ctx, fc)
			out.ToolCalls++
			if !res.Success {
				out.State = StateFailed
				out.Answer = "Error: " + res.Error
				return out, nil
			}
			if s := res.Summary(); s != "" {
				lastSummary = s
			}
			parts = append(parts, &genai.Part{FunctionResponse: res.FunctionResponse(fc.ID)})
		}

		out.State = StateAwaitingModel
		reply, err = o.send(ctx, session, parts...)
		out.RoundTrips++
		if err != nil {
			return o.unavailable(ctx, out, err)
		}
	}
}

func (o *Orchestrator) send(ctx context.Context, s llm.Session, parts ...*genai.Part) (llm.Reply, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	reply, err := s.Send(ctx, parts...)
	if errors.Is(err, llm.ErrEmptyResponse) {
		return llm.Reply{}, nil
	}
	return reply, err
}

func (o *Orchestrator) unavailable(ctx context.Context, out Outcome, err error) (Outcome, error) {
	o.log.ErrorContext(ctx, "Model call failed", log.FieldRoundTrip, out.RoundTrips, log.FieldError, err)
	out.State = StateFailed
	out.Answer = UnavailableAnswer
	return out, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
