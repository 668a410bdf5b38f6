package action

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mselway/courtier/internal/config"
	"github.com/mselway/courtier/internal/game"
)

// Status is the lifecycle state of a requested action. Transitions are
// monotone: pending moves to approved or rejected, approved moves to
// executed or error. Nothing else is legal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusExecuted Status = "executed"
	StatusError    Status = "error"
)

// ToolCall is one requested action moving through the approval pipeline.
type ToolCall struct {
	ID            string
	ParticipantID int32
	Name          string
	Params        []any
	Approval      config.ApprovalLevel
	Status        Status
	Err           error
}

func (t *ToolCall) transition(to Status) error {
	legal := map[Status][]Status{
		StatusPending:  {StatusApproved, StatusRejected},
		StatusApproved: {StatusExecuted, StatusError},
	}
	for _, s := range legal[t.Status] {
		if s == to {
			t.Status = to
			return nil
		}
	}
	return fmt.Errorf("illegal tool call transition %s -> %s", t.Status, to)
}

// CallError records a per-action failure during parsing or validation.
// One action's failure never aborts the others.
type CallError struct {
	Name string
	Err  error
}

// Result is the outcome of processing one structured action block.
type Result struct {
	Rationale string
	Calls     []*ToolCall
	Errors    []CallError
}

// Pending returns the calls still awaiting confirmation.
func (r Result) Pending() []*ToolCall {
	var out []*ToolCall
	for _, c := range r.Calls {
		if c.Status == StatusPending {
			out = append(out, c)
		}
	}
	return out
}

// Pipeline validates, approves and executes model-requested actions.
type Pipeline struct {
	registry *Registry
	cfg      config.Config
	sink     game.EffectSink
	logger   *slog.Logger
}

// NewPipeline creates an action pipeline over a loaded registry and the
// effect sink.
func NewPipeline(registry *Registry, cfg config.Config, sink game.EffectSink, logger *slog.Logger) *Pipeline {
	return &Pipeline{registry: registry, cfg: cfg, sink: sink, logger: logger}
}

// Registry exposes the loaded registry for prompt rendering.
func (p *Pipeline) Registry() *Registry {
	return p.registry
}

// Process parses a structured action block and runs every call through
// validation, availability check and approval policy. Auto-approved calls
// execute immediately; approval-level calls are surfaced pending; blocked
// calls are rejected without ever reaching execute. Failures are
// collected per action.
func (p *Pipeline) Process(text string, st State) Result {
	rationale, calls, ok := ParseBlock(text)
	if !ok {
		return Result{}
	}

	result := Result{Rationale: rationale}
	for _, call := range calls {
		act, found := p.registry.Get(call.Name)
		if !found {
			result.Errors = append(result.Errors, CallError{Name: call.Name, Err: fmt.Errorf("unknown action")})
			p.logger.Warn("dropping unknown action", "action", call.Name)
			continue
		}

		params, err := act.ValidateArgs(call.RawArgs)
		if err != nil {
			result.Errors = append(result.Errors, CallError{Name: call.Name, Err: err})
			continue
		}

		if act.Check != nil && !checkSafely(act, st, p.logger) {
			p.logger.Debug("action unavailable in current state", "action", call.Name)
			continue
		}

		tc := &ToolCall{
			ID:            uuid.NewString(),
			ParticipantID: st.Actor.ID,
			Name:          act.Signature,
			Params:        params,
			Approval:      p.cfg.ApprovalFor(act.Signature),
			Status:        StatusPending,
		}

		switch tc.Approval {
		case config.ApprovalBlocked:
			_ = tc.transition(StatusRejected)
		case config.ApprovalAuto:
			p.approveAndExecute(tc, act, st)
		}

		result.Calls = append(result.Calls, tc)
	}
	return result
}

// Approve confirms a pending call and executes it. Calls in any other
// state fail the transition and are left untouched.
func (p *Pipeline) Approve(tc *ToolCall, st State) error {
	act, ok := p.registry.Get(tc.Name)
	if !ok {
		return fmt.Errorf("action %s no longer loaded", tc.Name)
	}
	p.approveAndExecute(tc, act, st)
	return tc.Err
}

// Reject declines a pending call.
func (p *Pipeline) Reject(tc *ToolCall) error {
	return tc.transition(StatusRejected)
}

func (p *Pipeline) approveAndExecute(tc *ToolCall, act Action, st State) {
	if err := tc.transition(StatusApproved); err != nil {
		tc.Err = err
		return
	}

	if err := executeSafely(act, st, tc.Params, p.sink); err != nil {
		tc.Err = err
		_ = tc.transition(StatusError)
		p.logger.Error("action execution failed", "action", tc.Name, "error", err)
		return
	}
	_ = tc.transition(StatusExecuted)
	p.logger.Info("action executed", "action", tc.Name, "participant", tc.ParticipantID)
}

// checkSafely guards against panicking check functions in user-defined
// actions; a panic counts as unavailable.
func checkSafely(act Action, st State, logger *slog.Logger) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("action check panicked", "action", act.Signature, "panic", r)
			ok = false
		}
	}()
	return act.Check(st)
}

func executeSafely(act Action, st State, params []any, sink game.EffectSink) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action %s panicked: %v", act.Signature, r)
		}
	}()
	return act.Execute(st, params, sink)
}
